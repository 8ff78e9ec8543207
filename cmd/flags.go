package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	flagHome              = "home"
	flagDebug             = "debug"
	flagLogFormat         = "log-format"
	flagJSON              = "json"
	flagYAML              = "yaml"
	flagFrom              = "from"
	flagName              = "name"
	flagSymbol            = "symbol"
	flagMinter            = "minter"
	flagURI               = "uri"
	flagMemo              = "memo"
	flagReverse           = "reverse"
	flagTimeoutBlocks     = "timeout-blocks"
	flagTimeoutTime       = "timeout-time"
	flagPort              = "port"
	flagAdmin             = "admin"
	flagPauser            = "pauser"
	flagRelayInterval     = "relay-interval"
	flagMetricsListenAddr = "metrics-listen-addr"
	flagEnableMetrics     = "enable-metrics-server"
)

func jsonFlag(v *viper.Viper, cmd *cobra.Command) *cobra.Command {
	cmd.Flags().BoolP(flagJSON, "j", false, "returns the response in json format")
	if err := v.BindPFlag(flagJSON, cmd.Flags().Lookup(flagJSON)); err != nil {
		panic(err)
	}
	return cmd
}

func yamlFlag(v *viper.Viper, cmd *cobra.Command) *cobra.Command {
	cmd.Flags().BoolP(flagYAML, "y", false, "output using yaml")
	if err := v.BindPFlag(flagYAML, cmd.Flags().Lookup(flagYAML)); err != nil {
		panic(err)
	}
	return cmd
}

// fromFlag is the account a transaction is executed as. Transactions are
// not signed; the chains trust the caller.
func fromFlag(v *viper.Viper, cmd *cobra.Command) *cobra.Command {
	cmd.Flags().String(flagFrom, "", "account executing the transaction")
	if err := cmd.MarkFlagRequired(flagFrom); err != nil {
		panic(err)
	}
	if err := v.BindPFlag(flagFrom, cmd.Flags().Lookup(flagFrom)); err != nil {
		panic(err)
	}
	return cmd
}

func collectionFlags(v *viper.Viper, cmd *cobra.Command) *cobra.Command {
	cmd.Flags().String(flagName, "", "collection name, defaults to the contract address")
	cmd.Flags().String(flagSymbol, "", "collection symbol")
	cmd.Flags().String(flagMinter, "", "account allowed to mint, defaults to --from")
	for _, f := range []string{flagName, flagSymbol, flagMinter} {
		if err := v.BindPFlag(f, cmd.Flags().Lookup(f)); err != nil {
			panic(err)
		}
	}
	return cmd
}

func uriFlag(v *viper.Viper, cmd *cobra.Command) *cobra.Command {
	cmd.Flags().String(flagURI, "", "token uri")
	if err := v.BindPFlag(flagURI, cmd.Flags().Lookup(flagURI)); err != nil {
		panic(err)
	}
	return cmd
}

func transferFlags(v *viper.Viper, cmd *cobra.Command) *cobra.Command {
	cmd.Flags().String(flagMemo, "", "memo carried in the packet")
	cmd.Flags().BoolP(flagReverse, "r", false, "send from the path destination to its source")
	cmd.Flags().Uint64(flagTimeoutBlocks, 0, "packet timeout in counterparty blocks, defaults to the global timeout-blocks")
	cmd.Flags().Duration(flagTimeoutTime, 0, "packet timeout relative to the counterparty block time, 0 disables it")
	for _, f := range []string{flagMemo, flagReverse, flagTimeoutBlocks, flagTimeoutTime} {
		if err := v.BindPFlag(f, cmd.Flags().Lookup(f)); err != nil {
			panic(err)
		}
	}
	return cmd
}

func chainAddFlags(v *viper.Viper, cmd *cobra.Command) *cobra.Command {
	cmd.Flags().String(flagPort, "", "transfer port, defaults to nft-transfer")
	cmd.Flags().String(flagAdmin, "", "account allowed to migrate the ICS-721 configuration")
	cmd.Flags().String(flagPauser, "", "account allowed to pause the module once")
	for _, f := range []string{flagPort, flagAdmin, flagPauser} {
		if err := v.BindPFlag(f, cmd.Flags().Lookup(f)); err != nil {
			panic(err)
		}
	}
	return cmd
}

func relayIntervalFlag(v *viper.Viper, cmd *cobra.Command) *cobra.Command {
	cmd.Flags().Duration(flagRelayInterval, 0, "time between relay passes, defaults to the global relay-interval")
	if err := v.BindPFlag(flagRelayInterval, cmd.Flags().Lookup(flagRelayInterval)); err != nil {
		panic(err)
	}
	return cmd
}

func metricsServerFlags(v *viper.Viper, cmd *cobra.Command) *cobra.Command {
	cmd.Flags().Bool(flagEnableMetrics, false, "enables the metrics server")
	cmd.Flags().String(flagMetricsListenAddr, "", "address to use for the metrics server, defaults to the global metrics-listen-addr")
	for _, f := range []string{flagEnableMetrics, flagMetricsListenAddr} {
		if err := v.BindPFlag(f, cmd.Flags().Lookup(f)); err != nil {
			panic(err)
		}
	}
	return cmd
}

package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cosmos/ics721/ics721/types"
)

func chainsCmd(a *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "chains",
		Aliases: []string{"ch"},
		Short:   "Manage chain configurations",
	}

	cmd.AddCommand(
		chainsListCmd(a),
		chainsAddCmd(a),
		chainsInitCmd(a),
	)

	return cmd
}

type chainStatus struct {
	ChainID string `json:"chain_id"`
	Port    string `json:"port"`
	Admin   string `json:"admin"`
	Height  int64  `json:"height"`
}

func chainsListCmd(a *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"l"},
		Short:   "Returns chain configuration data",
		Args:    withUsage(cobra.NoArgs),
		Example: strings.TrimSpace(fmt.Sprintf(`
$ %s chains list
$ %s ch l --json`, appName, appName)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireConfig(); err != nil {
				return err
			}
			jsn, err := cmd.Flags().GetBool(flagJSON)
			if err != nil {
				return err
			}

			out := make([]chainStatus, 0, len(a.Config.Chains))
			for _, id := range a.Config.Chains.ChainIDs() {
				cc := a.Config.Chains[id]
				c, err := a.openChain(id)
				if err != nil {
					return err
				}
				out = append(out, chainStatus{ChainID: id, Port: cc.genesis().PortID, Admin: cc.Admin, Height: c.Height()})
				if err := c.Close(); err != nil {
					return err
				}
			}

			if jsn {
				bz, err := json.Marshal(out)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(bz))
				return nil
			}
			for i, s := range out {
				fmt.Fprintf(cmd.OutOrStdout(), "%2d: %-20s -> port(%s) admin(%s) height(%d)\n", i, s.ChainID, s.Port, s.Admin, s.Height)
			}
			return nil
		},
	}
	return jsonFlag(a.Viper, cmd)
}

func chainsAddCmd(a *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "add chain_id",
		Aliases: []string{"a"},
		Short:   "Add a chain to the configuration file",
		Args:    withUsage(cobra.ExactArgs(1)),
		Example: strings.TrimSpace(fmt.Sprintf(`
$ %s chains add ics721-a --admin admin
$ %s ch a ics721-b --admin admin --pauser guardian`, appName, appName)),
		RunE: func(cmd *cobra.Command, args []string) error {
			chainID := args[0]
			admin, err := cmd.Flags().GetString(flagAdmin)
			if err != nil {
				return err
			}
			port, err := cmd.Flags().GetString(flagPort)
			if err != nil {
				return err
			}
			pauser, err := cmd.Flags().GetString(flagPauser)
			if err != nil {
				return err
			}
			if admin == "" {
				return fmt.Errorf("--%s is required", flagAdmin)
			}

			return a.OverwriteConfigOnTheFly(cmd, func(cfg *Config) error {
				if _, ok := cfg.Chains[chainID]; ok {
					return errChainExists(chainID)
				}
				cc := newDefaultChainConfig(admin)
				if port != "" {
					cc.Port = port
				}
				cc.Pauser = pauser
				cfg.Chains[chainID] = cc
				return nil
			})
		},
	}
	return chainAddFlags(a.Viper, cmd)
}

func chainsInitCmd(a *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "init chain_id",
		Aliases: []string{"i"},
		Short:   "Write the genesis block of a configured chain",
		Long:    "Write the genesis block of a configured chain. Chains are also initialized on first use.",
		Args:    withUsage(cobra.ExactArgs(1)),
		Example: strings.TrimSpace(fmt.Sprintf(`
$ %s chains init ics721-a`, appName)),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.openChain(args[0])
			if err != nil {
				return err
			}
			defer c.Close()

			a.Log.Info("Chain ready",
				zap.String("chain_id", c.ChainID()),
				zap.Int64("height", c.Height()),
				zap.String("escrow", types.ModuleAddress()),
			)
			return nil
		},
	}
	return cmd
}

/*
Copyright © 2020 Jack Zampolin jack.zampolin@gmail.com

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	zaplogfmt "github.com/jsternberg/zap-logfmt"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	appName = "ics721"
	// envPrefix is the prefix of environment variables overriding flags,
	// e.g. ICS721_HOME.
	envPrefix = "ICS721"
)

var defaultHome = filepath.Join(os.Getenv("HOME"), ".ics721")

// NewRootCmd returns the root command for ics721.
// If log is nil, a new zap.Logger is set on the app state
// based on the cobra command arguments.
func NewRootCmd(log *zap.Logger) *cobra.Command {
	// Use a local app state instance scoped to the new root command,
	// so that tests don't concurrently access the state.
	a := &appState{
		Viper: viper.New(),
		Log:   log,
	}

	// RootCmd represents the base command when called without any subcommands
	var rootCmd = &cobra.Command{
		Use:   appName,
		Short: "Move NFTs between in-process chains over ICS-721",
		Long: strings.TrimSpace(`ics721 runs chains implementing the ICS-721 NFT transfer protocol
and relays packets between them.

NOTE: Most of the commands have aliases that make typing them much quicker
      (i.e. 'ics721 tx transfer', 'ics721 q owner', etc...)`),
	}

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		// Inside persistent pre-run because this takes effect after flags are parsed.
		// reads `homeDir/config/config.yaml` into `a.Config`
		if err := initConfig(rootCmd, a); err != nil {
			return err
		}

		if log == nil {
			logFormat := a.Viper.GetString(flagLogFormat)
			if !cmd.Flags().Changed(flagLogFormat) && a.Config != nil && a.Config.Global.LogFormat != "" {
				logFormat = a.Config.Global.LogFormat
			}
			l, err := newRootLogger(logFormat, a.Viper.GetBool(flagDebug))
			if err != nil {
				return err
			}
			a.Log = l
		}
		return nil
	}

	rootCmd.PersistentPostRun = func(cmd *cobra.Command, _ []string) {
		// Force syncing the logs before exit, if anything is buffered.
		_ = a.Log.Sync()
	}

	// Register --home flag
	rootCmd.PersistentFlags().StringVar(&a.HomePath, flagHome, defaultHome, "set home directory")
	if err := a.Viper.BindPFlag(flagHome, rootCmd.PersistentFlags().Lookup(flagHome)); err != nil {
		// Panic if we've misconfigured the flags.
		panic(err)
	}

	// Register --debug flag
	rootCmd.PersistentFlags().BoolVarP(&a.Debug, flagDebug, "d", false, "debug output")
	if err := a.Viper.BindPFlag(flagDebug, rootCmd.PersistentFlags().Lookup(flagDebug)); err != nil {
		panic(err)
	}

	rootCmd.PersistentFlags().String(flagLogFormat, "console", "log output format (json, console or logfmt)")
	if err := a.Viper.BindPFlag(flagLogFormat, rootCmd.PersistentFlags().Lookup(flagLogFormat)); err != nil {
		panic(err)
	}

	a.Viper.SetEnvPrefix(envPrefix)
	a.Viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.Viper.AutomaticEnv()

	// Register subcommands
	rootCmd.AddCommand(
		configCmd(a),
		chainsCmd(a),
		pathsCmd(a),
		lineBreakCommand(),
		transactionCmd(a),
		queryCmd(a),
		adminCmd(a),
		lineBreakCommand(),
		relayCmd(a),
		startCmd(a),
		lineBreakCommand(),
		getVersionCmd(a),
	)

	return rootCmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.EnableCommandSorting = false

	rootCmd := NewRootCmd(nil)
	rootCmd.SilenceUsage = true

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for interrupt signal.
		sig := <-sigCh

		// Cancel the root context.
		cancel()

		// Short delay before printing the received signal message.
		// This should result in cleaner output from non-interactive commands that stop quickly.
		time.Sleep(250 * time.Millisecond)
		fmt.Fprintf(os.Stderr, "Received signal %v. Attempting clean shutdown. Send interrupt again to force hard shutdown.\n", sig)

		// Dump all goroutines on panic, not just the current one.
		debug.SetTraceback("all")

		// Block waiting for a second interrupt or a timeout.
		// The main goroutine ought to finish before either case is reached.
		// But if a case is reached, panic so that we get a non-zero exit and a dump of remaining goroutines.
		select {
		case <-time.After(time.Minute):
			panic(fmt.Errorf("ics721 did not shut down within one minute of interrupt"))
		case sig := <-sigCh:
			panic(fmt.Errorf("received signal %v; forcing quit", sig))
		}
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootLogger(format string, debug bool) (*zap.Logger, error) {
	config := zap.NewProductionEncoderConfig()
	config.EncodeTime = func(ts time.Time, encoder zapcore.PrimitiveArrayEncoder) {
		encoder.AppendString(ts.UTC().Format("2006-01-02T15:04:05.000000Z07:00"))
	}
	config.LevelKey = "lvl"

	var enc zapcore.Encoder
	switch format {
	case "json":
		enc = zapcore.NewJSONEncoder(config)
	case "console":
		enc = zapcore.NewConsoleEncoder(config)
	case "logfmt":
		enc = zaplogfmt.NewEncoder(config)
	default:
		return nil, fmt.Errorf("unrecognized log format %q", format)
	}

	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}
	return zap.New(zapcore.NewCore(
		enc,
		os.Stderr,
		level,
	)), nil
}

// lineBreakCommand returns a new instance of the lineBreakCommand every time to avoid
// data races in concurrent tests exercising commands.
func lineBreakCommand() *cobra.Command {
	return &cobra.Command{Run: func(*cobra.Command, []string) {}}
}

// withUsage wraps a PositionalArgs to display usage only when the PositionalArgs
// variant is violated.
func withUsage(inner cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := inner(cmd, args); err != nil {
			cmd.Root().SilenceUsage = false
			cmd.SilenceUsage = false
			return err
		}

		return nil
	}
}

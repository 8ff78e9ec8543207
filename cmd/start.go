/*
Package cmd includes ics721 commands
Copyright © 2020 Jack Zampolin <jack.zampolin@gmail.com>

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
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cosmos/ics721/chain"
	"github.com/cosmos/ics721/ics721/keeper"
	"github.com/cosmos/ics721/internal/metricsserver"
)

// startCmd represents the start command
func startCmd(a *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "start path_name [path_name...]",
		Aliases: []string{"st"},
		Short:   "Start the relayer on the given paths",
		Long: strings.TrimSpace(`Relay the given paths until interrupted. Every relay interval each path
delivers its pending packets, then the acknowledgements and timeouts they
produced. Paths without a channel are linked first.`),
		Args: withUsage(cobra.MinimumNArgs(1)),
		Example: strings.TrimSpace(fmt.Sprintf(`
$ %s start demo-path
$ %s start demo-path other-path --relay-interval 1s --enable-metrics-server`, appName, appName)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireConfig(); err != nil {
				return err
			}

			interval, err := cmd.Flags().GetDuration(flagRelayInterval)
			if err != nil {
				return err
			}
			if interval == 0 {
				if interval, err = a.Config.Global.relayInterval(); err != nil {
					return err
				}
			}

			var opts []keeper.Option
			enableMetrics, err := cmd.Flags().GetBool(flagEnableMetrics)
			if err != nil {
				return err
			}
			if enableMetrics {
				metricsListenAddr, err := cmd.Flags().GetString(flagMetricsListenAddr)
				if err != nil {
					return err
				}
				if metricsListenAddr == "" {
					metricsListenAddr = a.Config.Global.MetricsListenAddr
				}
				if metricsListenAddr == "" {
					return fmt.Errorf("metrics server is enabled but no listen address is configured, set --%s", flagMetricsListenAddr)
				}

				ln, err := net.Listen("tcp", metricsListenAddr)
				if err != nil {
					a.Log.Error("Failed to listen on metrics address. If you have another ics721 process open, use --" + flagMetricsListenAddr + " to pick a different address.")
					return fmt.Errorf("failed to listen on metrics address %q: %w", metricsListenAddr, err)
				}
				log := a.Log.With(zap.String("sys", "metricshttp"))
				log.Info("Metrics server listening", zap.String("addr", ln.Addr().String()))

				metrics := keeper.NewPrometheusMetrics()
				metricsserver.StartMetricsServer(cmd.Context(), log, ln, metrics.Registry)
				opts = append(opts, keeper.WithMetrics(metrics))
			} else {
				a.Log.Info("Metrics server is disabled. You can enable it using --" + flagEnableMetrics + " flag")
			}

			o, err := a.openPaths(cmd, args, true, opts...)
			if err != nil {
				return err
			}
			defer o.Close()

			// Paths may share a chain; a chain is advanced by one pass at a time.
			var mu sync.Mutex
			eg, egCtx := errgroup.WithContext(cmd.Context())
			for _, name := range args {
				name := name
				p := o.Get(name)
				eg.Go(func() error {
					return relayLoop(egCtx, a.Log, name, p, interval, &mu)
				})
			}

			// Block until the relayers stop. The context being canceled will
			// cause them to stop, so we don't want to separately monitor the
			// ctx.Done channel, because we would risk returning before the
			// chains are closed.
			if err := eg.Wait(); err != nil && !isContextDone(err) {
				a.Log.Warn(
					"Relayer start error",
					zap.Error(err),
				)
				return err
			}
			return nil
		},
	}
	return metricsServerFlags(a.Viper, relayIntervalFlag(a.Viper, cmd))
}

// relayLoop relays p every interval until ctx is done.
func relayLoop(ctx context.Context, log *zap.Logger, name string, p *chain.Path, interval time.Duration, mu *sync.Mutex) error {
	log.Info("Relaying path",
		zap.String("path", name),
		zap.String("src", p.Src.String()),
		zap.String("dst", p.Dst.String()),
		zap.Duration("interval", interval),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		mu.Lock()
		_, err := relayOnce(ctx, log, name, p)
		mu.Unlock()
		if err != nil {
			if isContextDone(err) {
				return err
			}
			// A failed pass leaves both chains consistent; try again later.
			log.Warn("Relay pass failed", zap.String("path", name), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func isContextDone(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

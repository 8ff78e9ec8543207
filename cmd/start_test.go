package cmd_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cosmos/ics721/internal/ics721test"
)

func setupLogger() (*observer.ObservedLogs, *zap.Logger) {
	observedZapCore, observedLogs := observer.New(zap.InfoLevel)
	observedLogger := zap.New(observedZapCore)
	return observedLogs, observedLogger
}

func TestMetricsServerFlag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		args          []string
		wantedRunning bool
	}{
		{
			[]string{"start", demoPath},
			false,
		},
		{
			[]string{"start", demoPath, "--enable-metrics-server", "--metrics-listen-addr", "127.0.0.1:0"},
			true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			t.Parallel()

			sys := setupSystem(t)
			logs, logger := setupLogger()

			// A canceled context stops the relay loop after its first pass.
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			res := sys.RunC(ctx, logger, tt.args...)
			require.NoError(t, res.Err)

			if tt.wantedRunning {
				require.Equal(t, 1, logs.FilterMessage("Metrics server listening").Len())
				require.Zero(t, logs.FilterMessageSnippet("Metrics server is disabled").Len())
			} else {
				require.Zero(t, logs.FilterMessage("Metrics server listening").Len())
				require.Equal(t, 1, logs.FilterMessageSnippet("Metrics server is disabled").Len())
			}

			// start links the path before relaying.
			require.True(t, sys.MustGetConfig(t).Paths[demoPath].Linked())
		})
	}
}

func TestStartRequiresConfig(t *testing.T) {
	t.Parallel()

	sys := ics721test.NewSystem(t)
	_, logger := setupLogger()

	res := sys.Run(logger, "start", demoPath)
	require.ErrorContains(t, res.Err, "config not found")

	_ = sys.MustRun(t, "config", "init")
	res = sys.Run(logger, "start", demoPath)
	require.ErrorContains(t, res.Err, `path "demo" not found`)
}

func TestStartRelaysUntilCanceled(t *testing.T) {
	t.Parallel()

	sys := setupSystem(t)
	mintPunk(t, sys, "1", true)
	_ = sys.MustRun(t, "tx", "transfer", demoPath, punks, ics721test.Bob, "1", "--from", ics721test.Alice)

	logs, logger := setupLogger()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res := sys.RunC(ctx, logger, "start", demoPath, "--relay-interval", "50ms")
	require.NoError(t, res.Err)

	relayed := logs.FilterMessage("Relayed").All()
	require.NotEmpty(t, relayed)
	fields := relayed[0].ContextMap()
	require.Equal(t, demoPath, fields["path"])
	require.EqualValues(t, 1, fields["received"])
	require.EqualValues(t, 1, fields["acknowledged"])

	requireOwner(t, sys, chainB, punksClassB, "1", ics721test.Bob)
}

func TestStartServesMetrics(t *testing.T) {
	t.Parallel()

	sys := setupSystem(t)
	mintPunk(t, sys, "1", true)
	_ = sys.MustRun(t, "tx", "transfer", demoPath, punks, ics721test.Bob, "1", "--from", ics721test.Alice)

	logs, logger := setupLogger()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan ics721test.RunResult, 1)
	go func() {
		done <- sys.RunC(ctx, logger, "start", demoPath, "--relay-interval", "50ms",
			"--enable-metrics-server", "--metrics-listen-addr", "127.0.0.1:0")
	}()

	var addr string
	require.Eventually(t, func() bool {
		entries := logs.FilterMessage("Metrics server listening").All()
		if len(entries) == 0 {
			return false
		}
		addr = entries[0].ContextMap()["addr"].(string)
		return logs.FilterMessage("Relayed").Len() > 0
	}, 5*time.Second, 20*time.Millisecond)

	body := getMetrics(t, fmt.Sprintf("http://%s/ics721/metrics", addr))
	require.Contains(t, body, `ics721_received_packets{chain="ics721-b",channel="channel-0",result="success"} 1`)
	require.Contains(t, body, `ics721_acknowledgements{chain="ics721-a",channel="channel-0",result="success"} 1`)

	cancel()
	res := <-done
	require.NoError(t, res.Err)
	require.Zero(t, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func getMetrics(t *testing.T, url string) string {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

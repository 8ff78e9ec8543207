package metricsserver_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cosmos/ics721/ics721/keeper"
	"github.com/cosmos/ics721/internal/metricsserver"
)

func get(t *testing.T, url string) (int, string) {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestMetricsServer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	metrics := keeper.NewPrometheusMetrics()
	metricsserver.StartMetricsServer(ctx, zaptest.NewLogger(t), ln, metrics.Registry)
	base := "http://" + ln.Addr().String()

	metrics.IncTimeouts("ics721-a", "channel-0")

	code, body := get(t, base+"/ics721/metrics")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, `ics721_timeouts{chain="ics721-a",channel="channel-0"} 1`)

	code, body = get(t, base+"/metrics")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, "go_goroutines")

	code, _ = get(t, base+"/debug/pprof/")
	require.Equal(t, http.StatusOK, code)
}

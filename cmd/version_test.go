package cmd_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cosmos/ics721/ics721/types"
	"github.com/cosmos/ics721/internal/ics721test"
)

func TestVersion(t *testing.T) {
	t.Parallel()

	sys := ics721test.NewSystem(t)

	var report struct {
		Version  string            `json:"version"`
		Protocol string            `json:"protocol"`
		Port     string            `json:"port"`
		Go       string            `json:"go"`
		Modules  map[string]string `json:"modules"`
	}
	sys.MustRunJSON(t, &report, "version", "--json")
	require.NotEmpty(t, report.Version)
	require.Equal(t, types.Version, report.Protocol)
	require.Equal(t, types.PortID, report.Port)
	require.NotEmpty(t, report.Go)

	res := sys.MustRun(t, "v")
	require.Contains(t, res.Stdout.String(), "protocol: "+types.Version)
}

// Package ics721test enables testing the ics721 command-line interface
// from within Go unit tests.
package ics721test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gopkg.in/yaml.v3"

	"github.com/cosmos/ics721/cmd"
)

// System is a system under test.
type System struct {
	// Temporary directory to be injected as --home argument.
	HomeDir string
}

// NewSystem creates a new system with a home dir associated with a temp dir belonging to t.
//
// The returned System does not store a reference to t;
// some of its methods expect a *testing.T as an argument.
// This allows creating one instance of System to be shared with subtests.
func NewSystem(t *testing.T) *System {
	t.Helper()

	return &System{
		HomeDir: t.TempDir(),
	}
}

// RunResult is the stdout and stderr resulting from a call to (*System).Run,
// and any error that was returned.
type RunResult struct {
	Stdout, Stderr bytes.Buffer

	Err error
}

// Run calls s.RunC with context.Background().
func (s *System) Run(log *zap.Logger, args ...string) RunResult {
	return s.RunC(context.Background(), log, args...)
}

// RunC calls s.RunWithInputC with an empty stdin.
func (s *System) RunC(ctx context.Context, log *zap.Logger, args ...string) RunResult {
	return s.RunWithInputC(ctx, log, bytes.NewReader(nil), args...)
}

// RunWithInputC executes the root command with the given context and args,
// providing in as the command's standard input,
// and returns a RunResult that has its Stdout and Stderr populated.
func (s *System) RunWithInputC(ctx context.Context, log *zap.Logger, in io.Reader, args ...string) RunResult {
	rootCmd := cmd.NewRootCmd(log)
	rootCmd.SetIn(in)
	// cmd.Execute also sets SilenceUsage,
	// so match that here for more correct assertions.
	rootCmd.SilenceUsage = true

	var res RunResult
	rootCmd.SetOut(&res.Stdout)
	rootCmd.SetErr(&res.Stderr)

	// Prepend the system's home directory to any provided args.
	args = append([]string{"--home", s.HomeDir}, args...)
	rootCmd.SetArgs(args)

	res.Err = rootCmd.ExecuteContext(ctx)
	return res
}

// MustRun calls Run with a test logger, but also calls t.Fatal if RunResult.Err is not nil.
func (s *System) MustRun(t *testing.T, args ...string) RunResult {
	t.Helper()

	return s.MustRunWithLogger(t, zaptest.NewLogger(t), args...)
}

// MustRunWithLogger calls Run, but also calls t.Fatal if RunResult.Err is not nil.
func (s *System) MustRunWithLogger(t *testing.T, log *zap.Logger, args ...string) RunResult {
	t.Helper()

	res := s.Run(log, args...)
	if res.Err != nil {
		t.Logf("Error executing %v: %v", args, res.Err)
		t.Logf("Stdout: %q", res.Stdout.String())
		t.Logf("Stderr: %q", res.Stderr.String())
		t.FailNow()
	}

	return res
}

// MustRunJSON calls MustRun and decodes its standard output into v.
func (s *System) MustRunJSON(t *testing.T, v any, args ...string) {
	t.Helper()

	res := s.MustRun(t, args...)
	require.NoError(t, json.Unmarshal(res.Stdout.Bytes(), v), "stdout: %q", res.Stdout.String())
}

// MustAddChain calls "chains add" for a chain administered by admin.
// Output is expected to be silent.
func (s *System) MustAddChain(t *testing.T, chainID, admin string, extraArgs ...string) {
	t.Helper()

	args := append([]string{"chains", "add", chainID, "--admin", admin}, extraArgs...)
	res := s.MustRun(t, args...)
	require.Empty(t, res.Stdout.String())
	require.Empty(t, res.Stderr.String())
}

// MustGetConfig reads and decodes the config file of the system.
func (s *System) MustGetConfig(t *testing.T) (config cmd.Config) {
	t.Helper()

	configBz, err := os.ReadFile(filepath.Join(s.HomeDir, "config", "config.yaml"))
	require.NoError(t, err, "failed to read config file")

	err = yaml.Unmarshal(configBz, &config)
	require.NoError(t, err, "failed to unmarshal config file")

	return config
}

// Fixed accounts used across CLI tests.
const (
	Admin = "admin"
	Alice = "alice"
	Bob   = "bob"
)

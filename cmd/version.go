package cmd

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cosmos/ics721/ics721/types"
)

// Version, Commit and Dirty are set through -ldflags at build time.
var (
	Version = ""
	Commit  = ""
	Dirty   = ""
)

// stateModules decide whether two builds agree on wire and state formats.
var stateModules = map[string]string{
	"github.com/cosmos/cosmos-sdk": "cosmos-sdk",
	"github.com/cosmos/ibc-go/v7":  "ibc-go",
	"github.com/cometbft/cometbft": "cometbft",
}

type buildReport struct {
	Version  string            `json:"version" yaml:"version"`
	Commit   string            `json:"commit,omitempty" yaml:"commit,omitempty"`
	Protocol string            `json:"protocol" yaml:"protocol"`
	Port     string            `json:"port" yaml:"port"`
	Go       string            `json:"go" yaml:"go"`
	Modules  map[string]string `json:"modules" yaml:"modules"`
}

func newBuildReport() buildReport {
	r := buildReport{
		Version:  Version,
		Commit:   Commit,
		Protocol: types.Version,
		Port:     types.PortID,
		Go:       runtime.Version() + " " + runtime.GOOS + "/" + runtime.GOARCH,
		Modules:  make(map[string]string, len(stateModules)),
	}
	if r.Commit != "" && Dirty != "" && Dirty != "0" {
		r.Commit += "-dirty"
	}

	bi, ok := debug.ReadBuildInfo()
	if ok {
		if r.Version == "" && bi.Main.Version != "(devel)" {
			r.Version = bi.Main.Version
		}
		for _, dep := range bi.Deps {
			name, tracked := stateModules[dep.Path]
			if !tracked {
				continue
			}
			if dep.Replace != nil {
				dep = dep.Replace
			}
			r.Modules[name] = dep.Version
		}
	}
	if r.Version == "" {
		r.Version = "devel"
	}
	return r
}

func getVersionCmd(a *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "version",
		Aliases: []string{"v"},
		Short:   "Print the build, protocol and dependency versions",
		Args:    withUsage(cobra.NoArgs),
		Example: strings.TrimSpace(fmt.Sprintf(`
$ %s version
$ %s v --json`,
			appName, appName,
		)),
		RunE: func(cmd *cobra.Command, _ []string) error {
			jsn, err := cmd.Flags().GetBool(flagJSON)
			if err != nil {
				return err
			}
			report := newBuildReport()
			if jsn {
				return printJSON(cmd, report)
			}
			bz, err := yaml.Marshal(report)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(bz)
			return err
		},
	}
	return jsonFlag(a.Viper, cmd)
}

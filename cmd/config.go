/*
Package cmd includes ics721 commands
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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	host "github.com/cosmos/ibc-go/v7/modules/core/24-host"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cosmos/ics721/chain"
	"github.com/cosmos/ics721/ics721/types"
)

const (
	defaultRelayInterval     = 5 * time.Second
	defaultTimeoutBlocks     = 100
	defaultMetricsListenAddr = "127.0.0.1:5184"
)

func configCmd(a *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Aliases: []string{"cfg"},
		Short:   "Manage configuration file",
	}

	cmd.AddCommand(
		configShowCmd(a),
		configInitCmd(a),
	)
	return cmd
}

// Command for printing current configuration
func configShowCmd(a *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "show",
		Aliases: []string{"s", "list", "l"},
		Short:   "Prints current configuration",
		Args:    withUsage(cobra.NoArgs),
		Example: strings.TrimSpace(fmt.Sprintf(`
$ %s config show --home %s
$ %s cfg list`, appName, defaultHome, appName)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.Config == nil {
				return errConfigNotFound
			}
			jsn, err := cmd.Flags().GetBool(flagJSON)
			if err != nil {
				return err
			}
			yml, err := cmd.Flags().GetBool(flagYAML)
			if err != nil {
				return err
			}
			switch {
			case yml && jsn:
				return errBothJSONYAML
			case jsn:
				out, err := json.Marshal(a.Config)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			default:
				out, err := yaml.Marshal(a.Config)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}
		},
	}

	return yamlFlag(a.Viper, jsonFlag(a.Viper, cmd))
}

// Command for initializing an empty config at the --home location
func configInitCmd(a *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "init",
		Aliases: []string{"i"},
		Short:   "Creates a default home directory at path defined by --home",
		Args:    withUsage(cobra.NoArgs),
		Example: strings.TrimSpace(fmt.Sprintf(`
$ %s config init --home %s
$ %s cfg i`, appName, defaultHome, appName)),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir := filepath.Join(a.HomePath, "config")
			cfgPath := filepath.Join(cfgDir, "config.yaml")

			// If the config exists, an error is returned...
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("config already exists: %s", cfgPath)
			}

			// Create the home config folder
			if err := os.MkdirAll(cfgDir, os.ModePerm); err != nil {
				return err
			}

			out, err := yaml.Marshal(defaultConfig())
			if err != nil {
				return err
			}

			// And write the default config to that location...
			return os.WriteFile(cfgPath, out, 0600)
		},
	}
	return cmd
}

// Config represents the config file for ics721.
type Config struct {
	Global GlobalConfig `yaml:"global" json:"global"`
	Chains Chains       `yaml:"chains" json:"chains"`
	Paths  Paths        `yaml:"paths" json:"paths"`
}

// GlobalConfig describes settings shared by every chain and path.
type GlobalConfig struct {
	LogFormat         string `yaml:"log-format,omitempty" json:"log-format,omitempty"`
	MetricsListenAddr string `yaml:"metrics-listen-addr" json:"metrics-listen-addr"`
	RelayInterval     string `yaml:"relay-interval" json:"relay-interval"`
	TimeoutBlocks     uint64 `yaml:"timeout-blocks" json:"timeout-blocks"`
}

// ChainConfig describes a chain run from the home directory.
type ChainConfig struct {
	Port   string `yaml:"port" json:"port"`
	Admin  string `yaml:"admin" json:"admin"`
	Pauser string `yaml:"pauser,omitempty" json:"pauser,omitempty"`
	// BlockInterval is the time between two blocks.
	BlockInterval string `yaml:"block-interval,omitempty" json:"block-interval,omitempty"`

	IncomingGate types.GateConfig `yaml:"incoming-gate" json:"incoming-gate"`
	OutgoingGate types.GateConfig `yaml:"outgoing-gate" json:"outgoing-gate"`
}

// Chains is a collection of chains keyed by chain id.
type Chains map[string]*ChainConfig

// PathEndConfig is one end of a path.
type PathEndConfig struct {
	ChainID string `yaml:"chain-id" json:"chain-id"`
	// ChannelID is set once the path is linked.
	ChannelID string `yaml:"channel-id,omitempty" json:"channel-id,omitempty"`
}

// PathConfig connects two chains.
type PathConfig struct {
	Src PathEndConfig `yaml:"src" json:"src"`
	Dst PathEndConfig `yaml:"dst" json:"dst"`
}

// Linked reports whether the path has a channel on both ends.
func (p *PathConfig) Linked() bool {
	return p.Src.ChannelID != "" && p.Dst.ChannelID != ""
}

// Paths is a collection of paths keyed by name.
type Paths map[string]*PathConfig

// ChainIDs returns the chain ids in sorted order.
func (c Chains) ChainIDs() []string {
	ids := make([]string, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// genesis builds the genesis state of the chain.
func (cc *ChainConfig) genesis() types.GenesisState {
	gs := types.DefaultGenesisState()
	if cc.Port != "" {
		gs.PortID = cc.Port
	}
	gs.Pauser = cc.Pauser
	gs.Params = types.Params{Incoming: cc.IncomingGate, Outgoing: cc.OutgoingGate}
	return gs
}

func (cc *ChainConfig) chainConfig(chainID string) (chain.Config, error) {
	cfg := chain.Config{
		ChainID: chainID,
		Admin:   cc.Admin,
		Genesis: cc.genesis(),
	}
	if cc.BlockInterval != "" {
		d, err := time.ParseDuration(cc.BlockInterval)
		if err != nil {
			return chain.Config{}, fmt.Errorf("invalid block-interval %q for chain %s: %w", cc.BlockInterval, chainID, err)
		}
		cfg.BlockInterval = d
	}
	return cfg, nil
}

func newDefaultChainConfig(admin string) *ChainConfig {
	return &ChainConfig{
		Port:         types.PortID,
		Admin:        admin,
		IncomingGate: types.DefaultGateConfig(),
		OutgoingGate: types.DefaultGateConfig(),
	}
}

func defaultConfig() *Config {
	return &Config{
		Global: GlobalConfig{
			LogFormat:         "console",
			MetricsListenAddr: defaultMetricsListenAddr,
			RelayInterval:     defaultRelayInterval.String(),
			TimeoutBlocks:     defaultTimeoutBlocks,
		},
		Chains: Chains{},
		Paths:  Paths{},
	}
}

// relayInterval parses the configured relay interval.
func (g GlobalConfig) relayInterval() (time.Duration, error) {
	if g.RelayInterval == "" {
		return defaultRelayInterval, nil
	}
	return time.ParseDuration(g.RelayInterval)
}

// validateConfig is used to validate the GlobalConfig values
func validateConfig(c *Config) error {
	if _, err := c.Global.relayInterval(); err != nil {
		return fmt.Errorf("invalid relay-interval %q: %w", c.Global.RelayInterval, err)
	}
	switch c.Global.LogFormat {
	case "", "json", "console", "logfmt":
	default:
		return fmt.Errorf("invalid log-format %q", c.Global.LogFormat)
	}

	for id, cc := range c.Chains {
		// The chain id names its data directory.
		if strings.TrimSpace(id) == "" || filepath.Base(id) != id || strings.HasPrefix(id, ".") {
			return fmt.Errorf("invalid chain id %q", id)
		}
		if cc == nil {
			return fmt.Errorf("chain %s has no configuration", id)
		}
		if cc.Admin == "" {
			return fmt.Errorf("chain %s has no admin", id)
		}
		if _, err := cc.chainConfig(id); err != nil {
			return err
		}
		if err := cc.genesis().Validate(); err != nil {
			return fmt.Errorf("chain %s: %w", id, err)
		}
	}

	for name, p := range c.Paths {
		if p == nil {
			return fmt.Errorf("path %s has no configuration", name)
		}
		for _, end := range []PathEndConfig{p.Src, p.Dst} {
			if _, ok := c.Chains[end.ChainID]; !ok {
				return fmt.Errorf("path %s: %w", name, errChainNotFound(end.ChainID))
			}
			if end.ChannelID != "" {
				if err := host.ChannelIdentifierValidator(end.ChannelID); err != nil {
					return fmt.Errorf("path %s: %w", name, err)
				}
			}
		}
		if p.Src.ChainID == p.Dst.ChainID {
			return fmt.Errorf("path %s connects chain %s to itself", name, p.Src.ChainID)
		}
	}
	return nil
}

// initConfig reads config file into a.Config if file is present.
func initConfig(cmd *cobra.Command, a *appState) error {
	home, err := cmd.PersistentFlags().GetString(flagHome)
	if err != nil {
		return err
	}
	if !cmd.PersistentFlags().Changed(flagHome) && a.Viper.IsSet(flagHome) {
		// ICS721_HOME
		home = a.Viper.GetString(flagHome)
	}
	a.HomePath = home

	cfgPath := filepath.Join(home, "config", "config.yaml")
	if _, err := os.Stat(cfgPath); err != nil {
		// don't return error if file doesn't exist
		a.Config = nil
		return nil
	}

	a.Viper.SetConfigFile(cfgPath)
	if err := a.Viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file at %s: %w", cfgPath, err)
	}

	// read the config file bytes
	file, err := os.ReadFile(a.Viper.ConfigFileUsed())
	if err != nil {
		return fmt.Errorf("error reading file: %w", err)
	}

	// unmarshall them into the struct
	cfg := defaultConfig()
	if err := yaml.Unmarshal(file, cfg); err != nil {
		return fmt.Errorf("error unmarshalling config: %w", err)
	}
	if cfg.Chains == nil {
		cfg.Chains = Chains{}
	}
	if cfg.Paths == nil {
		cfg.Paths = Paths{}
	}

	// validate configuration
	if err := validateConfig(cfg); err != nil {
		return fmt.Errorf("error parsing chain config: %w", err)
	}

	a.Config = cfg
	return nil
}

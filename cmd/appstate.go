package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/juju/fslock"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cosmos/ics721/chain"
	"github.com/cosmos/ics721/ics721/keeper"
)

// appState is the modifiable state of the application.
type appState struct {
	// Log is the root logger of the application.
	// Consumers are expected to store and use local copies of the logger
	// after modifying with the .With method.
	Log *zap.Logger

	Viper *viper.Viper

	HomePath string
	Debug    bool
	Config   *Config
}

func (a *appState) configPath() string {
	return filepath.Join(a.HomePath, "config", "config.yaml")
}

func (a *appState) dataDir() string {
	return filepath.Join(a.HomePath, "data")
}

// requireConfig returns an error if no config was loaded.
func (a *appState) requireConfig() error {
	if a.Config == nil {
		return errConfigNotFound
	}
	return nil
}

// OverwriteConfigOnTheFly overwrites the config file concurrently,
// locking to read, modify, then write the config.
func (a *appState) OverwriteConfigOnTheFly(cmd *cobra.Command, modify func(cfg *Config) error) error {
	// use lock file to guard concurrent access to config.yaml
	lockFilePath := filepath.Join(a.HomePath, "config", "config.lock")
	lock := fslock.New(lockFilePath)
	err := lock.LockWithTimeout(10 * time.Second)
	if err != nil {
		return fmt.Errorf("failed to acquire config lock: %w", err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			a.Log.Error("error unlocking config file lock, please manually delete",
				zap.String("filepath", lockFilePath),
			)
		}
	}()

	// load config from file and validate it. don't want to miss
	// any changes that may have been made while unlocked.
	if err := initConfig(cmd.Root(), a); err != nil {
		return fmt.Errorf("failed to initialize config from file: %w", err)
	}
	if err := a.requireConfig(); err != nil {
		return err
	}

	if err := modify(a.Config); err != nil {
		return err
	}

	// ensure validateConfig runs properly
	if err := validateConfig(a.Config); err != nil {
		return fmt.Errorf("failed to validate config at %s: %w", a.configPath(), err)
	}

	// marshal the new config
	out, err := yaml.Marshal(a.Config)
	if err != nil {
		return err
	}

	// Overwrite the config file.
	if err := os.WriteFile(a.configPath(), out, 0600); err != nil {
		return fmt.Errorf("failed to write config file at %s: %w", a.configPath(), err)
	}
	return nil
}

// openChain opens the chain persisted under the home directory, creating
// it from its genesis on first use. The caller must Close it.
func (a *appState) openChain(chainID string, opts ...keeper.Option) (*chain.Chain, error) {
	if err := a.requireConfig(); err != nil {
		return nil, err
	}
	cc, ok := a.Config.Chains[chainID]
	if !ok {
		return nil, errChainNotFound(chainID)
	}
	cfg, err := cc.chainConfig(chainID)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(a.dataDir(), os.ModePerm); err != nil {
		return nil, err
	}
	db, err := dbm.NewGoLevelDB(chainID, a.dataDir())
	if err != nil {
		return nil, fmt.Errorf("failed to open data of chain %s: %w", chainID, err)
	}
	c, err := chain.New(a.Log, db, cfg, opts...)
	if err != nil {
		return nil, multierr.Append(err, db.Close())
	}
	return c, nil
}

// openedPaths are configured paths with their chains open. A chain shared
// by several paths is opened once.
type openedPaths struct {
	paths  map[string]*chain.Path
	chains map[string]*chain.Chain
}

// Get returns an opened path by name.
func (o *openedPaths) Get(name string) *chain.Path {
	return o.paths[name]
}

// Close closes every chain.
func (o *openedPaths) Close() error {
	var err error
	for _, c := range o.chains {
		err = multierr.Append(err, c.Close())
	}
	return err
}

// openPaths opens the chains of the named paths. The channel ids are taken
// from the config; unlinked paths are linked only if link is true, and the
// new channel ids are saved to the config file.
func (a *appState) openPaths(cmd *cobra.Command, names []string, link bool, opts ...keeper.Option) (*openedPaths, error) {
	if err := a.requireConfig(); err != nil {
		return nil, err
	}
	o := &openedPaths{
		paths:  make(map[string]*chain.Path, len(names)),
		chains: make(map[string]*chain.Chain),
	}
	open := func(chainID string) (*chain.Chain, error) {
		if c, ok := o.chains[chainID]; ok {
			return c, nil
		}
		c, err := a.openChain(chainID, opts...)
		if err != nil {
			return nil, err
		}
		o.chains[chainID] = c
		return c, nil
	}

	for _, name := range names {
		pc, ok := a.Config.Paths[name]
		if !ok {
			return nil, multierr.Append(errPathNotFound(name), o.Close())
		}
		src, err := open(pc.Src.ChainID)
		if err != nil {
			return nil, multierr.Append(err, o.Close())
		}
		dst, err := open(pc.Dst.ChainID)
		if err != nil {
			return nil, multierr.Append(err, o.Close())
		}
		p := chain.NewPath(a.Log.With(zap.String("path", name)), src, dst)
		p.Src.ChannelID, p.Dst.ChannelID = pc.Src.ChannelID, pc.Dst.ChannelID
		o.paths[name] = p

		if !link || p.Linked() {
			continue
		}
		if err := p.Link(); err != nil {
			return nil, multierr.Append(fmt.Errorf("failed to link path %s: %w", name, err), o.Close())
		}
		name, srcChannel, dstChannel := name, p.Src.ChannelID, p.Dst.ChannelID
		if err := a.OverwriteConfigOnTheFly(cmd, func(cfg *Config) error {
			pc, ok := cfg.Paths[name]
			if !ok {
				return errPathNotFound(name)
			}
			pc.Src.ChannelID, pc.Dst.ChannelID = srcChannel, dstChannel
			return nil
		}); err != nil {
			return nil, multierr.Append(err, o.Close())
		}
	}
	return o, nil
}

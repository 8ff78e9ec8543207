// Package chain runs the ICS-721 module on an in-process chain: a committed
// multistore advanced block by block, transactions applied atomically, and a
// minimal packet transport that a Path relays between two chains.
package chain

import (
	"fmt"
	"sync"
	"time"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/cometbft/cometbft/libs/log"
	tmproto "github.com/cometbft/cometbft/proto/tendermint/types"
	"github.com/cosmos/cosmos-sdk/store"
	storetypes "github.com/cosmos/cosmos-sdk/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"go.uber.org/zap"

	"github.com/cosmos/ics721/ics721/keeper"
	"github.com/cosmos/ics721/ics721/nft"
	"github.com/cosmos/ics721/ics721/types"
)

const (
	NFTStoreKey = "nft"
	IBCStoreKey = "ibc"

	DefaultBlockInterval = 5 * time.Second
)

var genesisTimeKey = []byte("genesisTime")

// Config describes a chain.
type Config struct {
	ChainID string
	// Admin may migrate the ICS-721 configuration.
	Admin   string
	Genesis types.GenesisState

	GenesisTime   time.Time
	BlockInterval time.Duration
}

// Chain is a single writer state machine. Exec and Query are serialized.
type Chain struct {
	log *zap.Logger
	cfg Config

	mu  sync.Mutex
	db  dbm.DB
	cms storetypes.CommitMultiStore

	genesisTime time.Time

	icsKey *storetypes.KVStoreKey
	nftKey *storetypes.KVStoreKey
	ibcKey *storetypes.KVStoreKey

	NFT       *nft.Keeper
	ICS721    *keeper.Keeper
	Transport *Transport
}

// New opens the chain stored in db. An empty db is initialized from
// cfg.Genesis and committed as block 1.
func New(log *zap.Logger, db dbm.DB, cfg Config, opts ...keeper.Option) (*Chain, error) {
	if cfg.ChainID == "" {
		return nil, fmt.Errorf("chain id cannot be blank")
	}
	if cfg.BlockInterval == 0 {
		cfg.BlockInterval = DefaultBlockInterval
	}
	if cfg.Genesis.PortID == "" {
		cfg.Genesis = types.DefaultGenesisState()
	}

	c := &Chain{
		log:    log.With(zap.String("chain_id", cfg.ChainID)),
		cfg:    cfg,
		db:     db,
		cms:    store.NewCommitMultiStore(db),
		icsKey: storetypes.NewKVStoreKey(types.StoreKey),
		nftKey: storetypes.NewKVStoreKey(NFTStoreKey),
		ibcKey: storetypes.NewKVStoreKey(IBCStoreKey),
	}
	for _, key := range []*storetypes.KVStoreKey{c.icsKey, c.nftKey, c.ibcKey} {
		c.cms.MountStoreWithDB(key, storetypes.StoreTypeIAVL, nil)
	}
	if err := c.cms.LoadLatestVersion(); err != nil {
		return nil, fmt.Errorf("failed to load chain %s: %w", cfg.ChainID, err)
	}

	c.NFT = nft.NewKeeper(c.log, c.nftKey)
	c.Transport = NewTransport(c.log, c.ibcKey)
	c.ICS721 = keeper.NewKeeper(c.log, c.icsKey, c.NFT, c.Transport, c.Transport, cfg.Admin, opts...)
	c.Transport.app = c.ICS721

	if c.Height() == 0 {
		if err := c.initGenesis(); err != nil {
			return nil, err
		}
		return c, nil
	}
	if err := c.Query(func(ctx sdk.Context) error {
		t, err := sdk.ParseTimeBytes(ctx.KVStore(c.ibcKey).Get(genesisTimeKey))
		if err != nil {
			return fmt.Errorf("failed to read genesis time: %w", err)
		}
		c.genesisTime = t
		return nil
	}); err != nil {
		return nil, err
	}
	if err := c.Query(c.ICS721.SeedMetrics); err != nil {
		return nil, fmt.Errorf("failed to seed metrics of %s: %w", cfg.ChainID, err)
	}
	return c, nil
}

// NewInMemory returns a fresh chain backed by a memdb.
func NewInMemory(log *zap.Logger, cfg Config, opts ...keeper.Option) (*Chain, error) {
	return New(log, dbm.NewMemDB(), cfg, opts...)
}

func (c *Chain) initGenesis() error {
	c.genesisTime = c.cfg.GenesisTime
	if c.genesisTime.IsZero() {
		c.genesisTime = time.Now().UTC().Truncate(time.Second)
	}
	_, err := c.Exec(func(ctx sdk.Context) error {
		ctx.KVStore(c.ibcKey).Set(genesisTimeKey, sdk.FormatTimeBytes(c.genesisTime))
		return c.ICS721.InitGenesis(ctx, c.cfg.Genesis)
	})
	if err != nil {
		return fmt.Errorf("failed to init genesis of %s: %w", c.cfg.ChainID, err)
	}
	c.log.Info("Initialized chain", zap.Time("genesis_time", c.genesisTime))
	return nil
}

func (c *Chain) ChainID() string {
	return c.cfg.ChainID
}

// Admin returns the account allowed to migrate the module.
func (c *Chain) Admin() string {
	return c.cfg.Admin
}

// Height returns the last committed block height.
func (c *Chain) Height() int64 {
	return c.cms.LastCommitID().Version
}

// BlockTime returns the timestamp of block height.
func (c *Chain) BlockTime(height int64) time.Time {
	return c.genesisTime.Add(time.Duration(height) * c.cfg.BlockInterval)
}

func (c *Chain) newContext(ms storetypes.MultiStore, height int64) sdk.Context {
	header := tmproto.Header{
		ChainID: c.cfg.ChainID,
		Height:  height,
		Time:    c.BlockTime(height),
	}
	return sdk.NewContext(ms, header, false, log.NewNopLogger())
}

// Exec applies fn as a transaction in the next block. Either all of its
// writes are committed, or none are and the height does not move. Panics
// are returned as errors.
func (c *Chain) Exec(fn func(ctx sdk.Context) error) (sdk.Events, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ms := c.cms.CacheMultiStore()
	ctx := c.newContext(ms, c.Height()+1)
	if err := runSafely(ctx, fn); err != nil {
		return nil, err
	}
	ms.Write()
	id := c.cms.Commit()
	c.log.Debug("Committed block", zap.Int64("height", id.Version))
	return ctx.EventManager().Events(), nil
}

// NextBlock commits an empty block.
func (c *Chain) NextBlock() error {
	_, err := c.Exec(func(sdk.Context) error { return nil })
	return err
}

// Query runs fn against the last committed state. Writes are discarded.
func (c *Chain) Query(fn func(ctx sdk.Context) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	height := c.Height()
	ms, err := c.cms.CacheMultiStoreWithVersion(height)
	if err != nil {
		return fmt.Errorf("failed to load state at height %d: %w", height, err)
	}
	return runSafely(c.newContext(ms, height), fn)
}

func runSafely(ctx sdk.Context, fn func(ctx sdk.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}

// Close releases the underlying database.
func (c *Chain) Close() error {
	return c.db.Close()
}

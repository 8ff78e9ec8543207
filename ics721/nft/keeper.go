package nft

import (
	"encoding/json"
	"strings"

	errorsmod "cosmossdk.io/errors"
	"github.com/cosmos/cosmos-sdk/store/prefix"
	storetypes "github.com/cosmos/cosmos-sdk/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"go.uber.org/zap"
)

// Keeper is the NFT ledger of a chain: collections, tokens and their owners.
type Keeper struct {
	storeKey storetypes.StoreKey
	log      *zap.Logger

	hooks     map[string]Hooks
	callbacks map[string]ReceiveCallback
}

// NewKeeper creates a new nft Keeper instance.
func NewKeeper(log *zap.Logger, storeKey storetypes.StoreKey) *Keeper {
	return &Keeper{
		storeKey: storeKey,
		log:      log,
		hooks:     make(map[string]Hooks),
		callbacks: make(map[string]ReceiveCallback),
	}
}

// SetHooks binds custom transfer logic to a collection address.
func (k *Keeper) SetHooks(contract string, h Hooks) {
	k.hooks[contract] = h
}

// SetReceiveCallback binds the code run when a transfer memo names addr as
// its receive callback.
func (k *Keeper) SetReceiveCallback(addr string, cb ReceiveCallback) {
	k.callbacks[addr] = cb
}

// GetReceiveCallback returns the receive callback bound to addr.
func (k *Keeper) GetReceiveCallback(addr string) (ReceiveCallback, bool) {
	cb, ok := k.callbacks[addr]
	return cb, ok
}

func (k *Keeper) hooksFor(contract string) Hooks {
	if h, ok := k.hooks[contract]; ok {
		return h
	}
	return NoopHooks{}
}

// CreateCollection stores a new native collection.
func (k *Keeper) CreateCollection(ctx sdk.Context, c Collection) error {
	if err := c.ValidateNative(); err != nil {
		return err
	}
	return k.createCollection(ctx, c)
}

// CreateReceiptCollection stores a collection under the reserved receipt
// prefix.
func (k *Keeper) CreateReceiptCollection(ctx sdk.Context, c Collection) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if !strings.HasPrefix(c.Address, ReceiptPrefix) {
		return errorsmod.Wrapf(ErrInvalidCollection, "receipt address %s lacks prefix %q", c.Address, ReceiptPrefix)
	}
	return k.createCollection(ctx, c)
}

func (k *Keeper) createCollection(ctx sdk.Context, c Collection) error {
	store := prefix.NewStore(ctx.KVStore(k.storeKey), CollectionPrefix)
	if store.Has([]byte(c.Address)) {
		return errorsmod.Wrapf(ErrCollectionExists, "collection %s", c.Address)
	}
	bz, err := json.Marshal(c)
	if err != nil {
		return err
	}
	store.Set([]byte(c.Address), bz)

	k.log.Debug("Created collection",
		zap.String("contract", c.Address),
		zap.String("name", c.Name),
		zap.String("minter", c.Minter),
	)
	return nil
}

// GetCollection returns the collection stored at contract.
func (k *Keeper) GetCollection(ctx sdk.Context, contract string) (Collection, bool) {
	store := prefix.NewStore(ctx.KVStore(k.storeKey), CollectionPrefix)
	bz := store.Get([]byte(contract))
	if bz == nil {
		return Collection{}, false
	}
	var c Collection
	if err := json.Unmarshal(bz, &c); err != nil {
		panic(err)
	}
	return c, true
}

// HasCollection reports whether a collection exists at contract.
func (k *Keeper) HasCollection(ctx sdk.Context, contract string) bool {
	return prefix.NewStore(ctx.KVStore(k.storeKey), CollectionPrefix).Has([]byte(contract))
}

// Collections lists all collections ordered by address.
func (k *Keeper) Collections(ctx sdk.Context) []Collection {
	store := prefix.NewStore(ctx.KVStore(k.storeKey), CollectionPrefix)
	iterator := store.Iterator(nil, nil)
	defer iterator.Close()

	var out []Collection
	for ; iterator.Valid(); iterator.Next() {
		var c Collection
		if err := json.Unmarshal(iterator.Value(), &c); err != nil {
			panic(err)
		}
		out = append(out, c)
	}
	return out
}

func (k *Keeper) tokenStore(ctx sdk.Context) prefix.Store {
	return prefix.NewStore(ctx.KVStore(k.storeKey), TokenPrefix)
}

// GetToken returns a token of a collection.
func (k *Keeper) GetToken(ctx sdk.Context, contract, tokenID string) (Token, error) {
	bz := k.tokenStore(ctx).Get(tokenKey(contract, tokenID))
	if bz == nil {
		return Token{}, errorsmod.Wrapf(ErrTokenNotFound, "token %s of %s", tokenID, contract)
	}
	var t Token
	if err := json.Unmarshal(bz, &t); err != nil {
		return Token{}, err
	}
	return t, nil
}

// OwnerOf returns the current owner of a token.
func (k *Keeper) OwnerOf(ctx sdk.Context, contract, tokenID string) (string, error) {
	t, err := k.GetToken(ctx, contract, tokenID)
	if err != nil {
		return "", err
	}
	return t.Owner, nil
}

// Tokens lists the tokens of a collection ordered by id.
func (k *Keeper) Tokens(ctx sdk.Context, contract string) []Token {
	store := prefix.NewStore(k.tokenStore(ctx), collectionTokensPrefix(contract))
	iterator := store.Iterator(nil, nil)
	defer iterator.Close()

	var out []Token
	for ; iterator.Valid(); iterator.Next() {
		var t Token
		if err := json.Unmarshal(iterator.Value(), &t); err != nil {
			panic(err)
		}
		out = append(out, t)
	}
	return out
}

// NumTokens counts the tokens of a collection.
func (k *Keeper) NumTokens(ctx sdk.Context, contract string) uint64 {
	return uint64(len(k.Tokens(ctx, contract)))
}

func (k *Keeper) setToken(ctx sdk.Context, contract string, t Token) {
	bz, err := json.Marshal(t)
	if err != nil {
		panic(err)
	}
	k.tokenStore(ctx).Set(tokenKey(contract, t.ID), bz)
}

// Mint creates a token owned by t.Owner. Only the collection minter may mint.
func (k *Keeper) Mint(ctx sdk.Context, contract, minter string, t Token) error {
	c, ok := k.GetCollection(ctx, contract)
	if !ok {
		return errorsmod.Wrapf(ErrCollectionNotFound, "collection %s", contract)
	}
	if c.Minter != minter {
		return errorsmod.Wrapf(ErrUnauthorized, "%s is not the minter of %s", minter, contract)
	}
	if k.tokenStore(ctx).Has(tokenKey(contract, t.ID)) {
		return errorsmod.Wrapf(ErrTokenExists, "token %s of %s", t.ID, contract)
	}
	if err := k.hooksFor(contract).BeforeMint(ctx, contract, t.ID, t.Owner); err != nil {
		return err
	}
	k.setToken(ctx, contract, t)
	return nil
}

// Burn deletes a token. The owner or the collection minter may burn.
func (k *Keeper) Burn(ctx sdk.Context, contract, caller, tokenID string) error {
	c, ok := k.GetCollection(ctx, contract)
	if !ok {
		return errorsmod.Wrapf(ErrCollectionNotFound, "collection %s", contract)
	}
	t, err := k.GetToken(ctx, contract, tokenID)
	if err != nil {
		return err
	}
	if caller != t.Owner && caller != c.Minter {
		return errorsmod.Wrapf(ErrUnauthorized, "%s may not burn token %s of %s", caller, tokenID, contract)
	}
	k.tokenStore(ctx).Delete(tokenKey(contract, tokenID))
	return nil
}

// Transfer moves a token from its owner to recipient. Only the owner may
// transfer; the collection hooks run first and may veto.
func (k *Keeper) Transfer(ctx sdk.Context, contract, caller, tokenID, recipient string) error {
	t, err := k.GetToken(ctx, contract, tokenID)
	if err != nil {
		return err
	}
	if caller != t.Owner {
		return errorsmod.Wrapf(ErrUnauthorized, "%s does not own token %s of %s", caller, tokenID, contract)
	}
	if err := k.hooksFor(contract).BeforeTransfer(ctx, contract, tokenID, t.Owner, recipient); err != nil {
		return err
	}
	t.Owner = recipient
	k.setToken(ctx, contract, t)
	return nil
}

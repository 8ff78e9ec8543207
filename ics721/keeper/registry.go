package keeper

import (
	"encoding/json"

	errorsmod "cosmossdk.io/errors"
	"github.com/cosmos/cosmos-sdk/store/prefix"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"go.uber.org/zap"

	"github.com/cosmos/ics721/ics721/nft"
	"github.com/cosmos/ics721/ics721/types"
)

// GetContract returns the receipt collection instantiated for classID.
func (k *Keeper) GetContract(ctx sdk.Context, classID string) (string, bool) {
	bz := prefix.NewStore(ctx.KVStore(k.storeKey), types.ClassIDToContractPrefix).Get([]byte(classID))
	if bz == nil {
		return "", false
	}
	return string(bz), true
}

// GetClassID returns the class id a receipt collection was instantiated for.
func (k *Keeper) GetClassID(ctx sdk.Context, contract string) (string, bool) {
	bz := prefix.NewStore(ctx.KVStore(k.storeKey), types.ContractToClassIDPrefix).Get([]byte(contract))
	if bz == nil {
		return "", false
	}
	return string(bz), true
}

func (k *Keeper) setClassContract(ctx sdk.Context, classID, contract string) {
	store := ctx.KVStore(k.storeKey)
	prefix.NewStore(store, types.ClassIDToContractPrefix).Set([]byte(classID), []byte(contract))
	prefix.NewStore(store, types.ContractToClassIDPrefix).Set([]byte(contract), []byte(classID))
}

// GetClass returns the metadata received with a class.
func (k *Keeper) GetClass(ctx sdk.Context, classID string) (types.Class, bool) {
	bz := prefix.NewStore(ctx.KVStore(k.storeKey), types.ClassMetadataPrefix).Get([]byte(classID))
	if bz == nil {
		return types.Class{}, false
	}
	var class types.Class
	if err := json.Unmarshal(bz, &class); err != nil {
		panic(err)
	}
	return class, true
}

func (k *Keeper) setClass(ctx sdk.Context, class types.Class) {
	bz, err := json.Marshal(class)
	if err != nil {
		panic(err)
	}
	prefix.NewStore(ctx.KVStore(k.storeKey), types.ClassMetadataPrefix).Set([]byte(class.ID), bz)
}

// GetOrCreateReceipt returns the receipt collection of class.ID, creating it
// the first time the class is seen. Later calls never overwrite the stored
// metadata, so a class id maps to exactly one collection.
func (k *Keeper) GetOrCreateReceipt(ctx sdk.Context, class types.Class) (contract string, created bool, err error) {
	if contract, ok := k.GetContract(ctx, class.ID); ok {
		return contract, false, nil
	}

	contract = types.ReceiptAddress(class.ID)
	collection := nft.Collection{
		Address: contract,
		Name:    class.ID,
		Symbol:  class.ID,
		Minter:  k.escrow,
	}
	// Class data is untrusted. When it looks like collection data, keep the
	// name and symbol the origin chain uses.
	var data types.CollectionData
	if len(class.Data) > 0 && json.Unmarshal(class.Data, &data) == nil {
		if data.Name != "" {
			collection.Name = data.Name
		}
		if data.Symbol != "" {
			collection.Symbol = data.Symbol
		}
		collection.Creator = data.Owner
	}
	if err := k.nftKeeper.CreateReceiptCollection(ctx, collection); err != nil {
		return "", false, errorsmod.Wrapf(types.ErrReceiptCollectionMissing, "instantiating receipt for class %s: %v", class.ID, err)
	}

	k.setClassContract(ctx, class.ID, contract)
	k.setClass(ctx, class)

	ctx.EventManager().EmitEvent(sdk.NewEvent(
		types.EventTypeClassCreated,
		sdk.NewAttribute(types.AttributeKeyClassID, class.ID),
		sdk.NewAttribute(types.AttributeKeyContract, contract),
	))
	k.Logger(ctx).Info("Instantiated receipt collection",
		zap.String("class_id", class.ID),
		zap.String("contract", contract),
	)
	return contract, true, nil
}

// ClassContracts lists the class registry ordered by class id.
func (k *Keeper) ClassContracts(ctx sdk.Context) []types.ClassContract {
	store := prefix.NewStore(ctx.KVStore(k.storeKey), types.ClassIDToContractPrefix)
	iterator := store.Iterator(nil, nil)
	defer iterator.Close()

	var out []types.ClassContract
	for ; iterator.Valid(); iterator.Next() {
		out = append(out, types.ClassContract{
			ClassID:  string(iterator.Key()),
			Contract: string(iterator.Value()),
		})
	}
	return out
}

// resolveContract maps a class id to the local collection holding its
// tokens: the registered receipt collection, or the native collection
// whose address is the class id.
func (k *Keeper) resolveContract(ctx sdk.Context, classID string) (string, error) {
	if contract, ok := k.GetContract(ctx, classID); ok {
		return contract, nil
	}
	if _, ok := k.nftKeeper.GetCollection(ctx, classID); ok {
		return classID, nil
	}
	return "", errorsmod.Wrapf(types.ErrClassNotFound, "no collection for class %s", classID)
}

// resolveClassID is the inverse of resolveContract.
func (k *Keeper) resolveClassID(ctx sdk.Context, contract string) (string, error) {
	if classID, ok := k.GetClassID(ctx, contract); ok {
		return classID, nil
	}
	if _, ok := k.nftKeeper.GetCollection(ctx, contract); ok {
		return contract, nil
	}
	return "", errorsmod.Wrapf(types.ErrClassNotFound, "collection %s does not exist", contract)
}

// classInfo returns the class uri and data forwarded with outbound packets.
// Receipts forward what they were received with; native collections send
// their collection data.
func (k *Keeper) classInfo(ctx sdk.Context, classID, contract string) (string, []byte) {
	if class, ok := k.GetClass(ctx, classID); ok {
		return class.URI, class.Data
	}
	c, ok := k.nftKeeper.GetCollection(ctx, contract)
	if !ok {
		return "", nil
	}
	bz, err := json.Marshal(types.CollectionData{
		Owner:     c.Creator,
		Name:      c.Name,
		Symbol:    c.Symbol,
		NumTokens: k.nftKeeper.NumTokens(ctx, contract),
	})
	if err != nil {
		return "", nil
	}
	return "", bz
}

package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// AccountScope represents the top-level account namespace
type AccountScope uint8

const (
	AccountScopePlayer AccountScope = iota
	AccountScopeInstance
	AccountScopeExternal
)

// AccountSubType represents the account purpose
type AccountSubType uint8

const (
	// Player sub-types
	SubTypeClaimable AccountSubType = iota
	SubTypeClaimed

	// Instance sub-types
	SubTypeFeesCollected
	SubTypePrizeEscrow
	SubTypePlatformFee
	SubTypeUnallocated

	// External sub-types
	SubTypeProvider
)

// AssetID maps asset symbols to numeric IDs for compact keys
type AssetID uint16

var (
	assetToID = map[string]AssetID{
		"GNOT": 1,
		"USDT": 2,
		"USDC": 3,
	}
	idToAsset = map[AssetID]string{
		1: "GNOT",
		2: "USDT",
		3: "USDC",
	}
)

func GetAssetID(asset string) (AssetID, bool) {
	id, ok := assetToID[asset]
	return id, ok
}

func GetAssetName(id AssetID) (string, bool) {
	name, ok := idToAsset[id]
	return name, ok
}

// AccountKey is the in-memory key for balance tracking.
// Player accounts carry the player identity; instance accounts carry the
// tournament instance id.
type AccountKey struct {
	Scope    AccountScope
	EntityID [16]byte
	SubType  AccountSubType
	AssetID  AssetID
}

// NewPlayerAccountKey creates a key for per-player accounts
func NewPlayerAccountKey(identity uuid.UUID, subType AccountSubType, assetID AssetID) AccountKey {
	return AccountKey{
		Scope:    AccountScopePlayer,
		EntityID: identity,
		SubType:  subType,
		AssetID:  assetID,
	}
}

// NewInstanceAccountKey creates a key for per-instance accounts
func NewInstanceAccountKey(instanceID uuid.UUID, subType AccountSubType, assetID AssetID) AccountKey {
	return AccountKey{
		Scope:    AccountScopeInstance,
		EntityID: instanceID,
		SubType:  subType,
		AssetID:  assetID,
	}
}

// NewProviderAccountKey creates the key for the external transfer-provider boundary
func NewProviderAccountKey(assetID AssetID) AccountKey {
	return AccountKey{
		Scope:   AccountScopeExternal,
		SubType: SubTypeProvider,
		AssetID: assetID,
	}
}

// AccountPath returns the string representation for storage/logging
func (k AccountKey) AccountPath() string {
	assetName, _ := GetAssetName(k.AssetID)

	switch k.Scope {
	case AccountScopePlayer:
		id := uuid.UUID(k.EntityID)
		return fmt.Sprintf("player:%s:%s:%s", id.String(), k.subTypeName(), assetName)
	case AccountScopeInstance:
		id := uuid.UUID(k.EntityID)
		return fmt.Sprintf("instance:%s:%s:%s", id.String(), k.subTypeName(), assetName)
	case AccountScopeExternal:
		return fmt.Sprintf("external:%s:%s", k.subTypeName(), assetName)
	}
	return "unknown"
}

func (k AccountKey) subTypeName() string {
	switch k.SubType {
	case SubTypeClaimable:
		return "claimable"
	case SubTypeClaimed:
		return "claimed"
	case SubTypeFeesCollected:
		return "fees_collected"
	case SubTypePrizeEscrow:
		return "prize_escrow"
	case SubTypePlatformFee:
		return "platform_fee"
	case SubTypeUnallocated:
		return "unallocated"
	case SubTypeProvider:
		return "provider"
	default:
		return "unknown"
	}
}

package chain

import (
	"context"

	sdkmath "cosmossdk.io/math"

	"github.com/happy-paisa/hpe/internal/types"
)

// Gateway defines the interface for reading authoritative on-chain state and
// confirming submitted transactions. It abstracts away the concrete chain
// client so the engine can run against a live network or a test double.
//
// The gateway never signs or builds transactions; the holder's wallet does
// that. The engine only needs balances, allowances, the authoritative supply
// and collateral figures, and a way to verify that a submitted transaction
// actually succeeded before any state is recorded.
type Gateway interface {
	// GetBalance returns the account's balance of the given asset.
	GetBalance(ctx context.Context, account string, asset types.Asset) (sdkmath.LegacyDec, error)

	// GetAllowance returns how much USDT the owner account has approved the
	// HP contract to spend.
	GetAllowance(ctx context.Context, owner string) (sdkmath.LegacyDec, error)

	// HPTotalSupply returns the authoritative total HP supply.
	HPTotalSupply(ctx context.Context) (sdkmath.LegacyDec, error)

	// CollateralBalance returns the USDT held by the HP contract, which is
	// the authoritative collateral figure.
	CollateralBalance(ctx context.Context) (sdkmath.LegacyDec, error)

	// ConfirmTransaction reports whether the transaction with the given hash
	// was mined successfully.
	ConfirmTransaction(ctx context.Context, txHash string) (bool, error)

	// Close cleans up any resources held by the gateway.
	Close() error
}

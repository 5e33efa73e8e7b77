/*

Live EVM chain client.

The HP token and its USDT collateral live as ERC-20 contracts on BSC. Reads go
through eth_call with hand-packed calldata (three view methods do not warrant
generated bindings), and confirmation checks go through transaction receipts.

*/

package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/happy-paisa/hpe/internal/logger"
	"github.com/happy-paisa/hpe/internal/types"
	"github.com/happy-paisa/hpe/internal/utils"
)

var chainLogger = logger.GetForComponent("chain_client")

// TokenDecimals is the decimal count of both HP and BSC USDT.
const TokenDecimals = 18

var (
	ErrInvalidAddress = errors.New("invalid hex address")
	ErrUnknownAsset   = errors.New("unknown asset")
	ErrEmptyCallData  = errors.New("contract call returned no data")
)

var (
	selectorBalanceOf   = crypto.Keccak256([]byte("balanceOf(address)"))[:4]
	selectorAllowance   = crypto.Keccak256([]byte("allowance(address,address)"))[:4]
	selectorTotalSupply = crypto.Keccak256([]byte("totalSupply()"))[:4]
)

// Client is the live Gateway implementation backed by an EVM JSON-RPC node.
type Client struct {
	eth       *ethclient.Client
	hpToken   common.Address
	usdtToken common.Address
}

var _ Gateway = (*Client)(nil)

// NewClient dials the RPC endpoint and binds the HP and USDT contracts.
func NewClient(rpcURL, hpTokenAddress, usdtTokenAddress string) (*Client, error) {
	hpToken, err := parseAddress(hpTokenAddress)
	if err != nil {
		return nil, fmt.Errorf("HP token: %w", err)
	}
	usdtToken, err := parseAddress(usdtTokenAddress)
	if err != nil {
		return nil, fmt.Errorf("USDT token: %w", err)
	}

	eth, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RPC endpoint: %w", err)
	}

	chainLogger.Info().
		Str("endpoint", rpcURL).
		Str("hpToken", hpToken.Hex()).
		Str("usdtToken", usdtToken.Hex()).
		Msg("Chain client connected")

	return &Client{eth: eth, hpToken: hpToken, usdtToken: usdtToken}, nil
}

// GetBalance returns the account's balance of the given asset.
func (c *Client) GetBalance(ctx context.Context, account string, asset types.Asset) (sdkmath.LegacyDec, error) {
	addr, err := parseAddress(account)
	if err != nil {
		return sdkmath.LegacyDec{}, err
	}

	switch asset {
	case types.AssetNative:
		wei, err := c.eth.BalanceAt(ctx, addr, nil)
		if err != nil {
			return sdkmath.LegacyDec{}, fmt.Errorf("failed to read native balance: %w", err)
		}
		return utils.BigIntToDec(wei, TokenDecimals)
	case types.AssetHP:
		return c.erc20BalanceOf(ctx, c.hpToken, addr)
	case types.AssetUSDT:
		return c.erc20BalanceOf(ctx, c.usdtToken, addr)
	default:
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: %s", ErrUnknownAsset, asset)
	}
}

// GetAllowance returns how much USDT the owner has approved the HP contract to spend.
func (c *Client) GetAllowance(ctx context.Context, owner string) (sdkmath.LegacyDec, error) {
	ownerAddr, err := parseAddress(owner)
	if err != nil {
		return sdkmath.LegacyDec{}, err
	}

	data := make([]byte, 0, 4+2*32)
	data = append(data, selectorAllowance...)
	data = append(data, common.LeftPadBytes(ownerAddr.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(c.hpToken.Bytes(), 32)...)

	raw, err := c.call(ctx, c.usdtToken, data)
	if err != nil {
		return sdkmath.LegacyDec{}, fmt.Errorf("failed to read allowance: %w", err)
	}
	return utils.BigIntToDec(raw, TokenDecimals)
}

// HPTotalSupply returns the authoritative total HP supply.
func (c *Client) HPTotalSupply(ctx context.Context) (sdkmath.LegacyDec, error) {
	raw, err := c.call(ctx, c.hpToken, selectorTotalSupply)
	if err != nil {
		return sdkmath.LegacyDec{}, fmt.Errorf("failed to read HP total supply: %w", err)
	}
	return utils.BigIntToDec(raw, TokenDecimals)
}

// CollateralBalance returns the USDT held by the HP contract.
func (c *Client) CollateralBalance(ctx context.Context) (sdkmath.LegacyDec, error) {
	return c.erc20BalanceOf(ctx, c.usdtToken, c.hpToken)
}

// ConfirmTransaction reports whether the transaction was mined successfully.
// A transaction that is not yet mined reports false without error.
func (c *Client) ConfirmTransaction(ctx context.Context, txHash string) (bool, error) {
	hash := common.HexToHash(txHash)
	receipt, err := c.eth.TransactionReceipt(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read receipt for %s: %w", txHash, err)
	}
	return receipt.Status == gethtypes.ReceiptStatusSuccessful, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() error {
	c.eth.Close()
	return nil
}

func (c *Client) erc20BalanceOf(ctx context.Context, token, account common.Address) (sdkmath.LegacyDec, error) {
	data := make([]byte, 0, 4+32)
	data = append(data, selectorBalanceOf...)
	data = append(data, common.LeftPadBytes(account.Bytes(), 32)...)

	raw, err := c.call(ctx, token, data)
	if err != nil {
		return sdkmath.LegacyDec{}, fmt.Errorf("failed to read balance of %s on %s: %w", account.Hex(), token.Hex(), err)
	}
	return utils.BigIntToDec(raw, TokenDecimals)
}

func (c *Client) call(ctx context.Context, to common.Address, data []byte) (*big.Int, error) {
	res, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, ErrEmptyCallData
	}
	return new(big.Int).SetBytes(res), nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}

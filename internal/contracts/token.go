package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/ToniyaSundaram/raiden-token/internal/chain"
)

// ReserveToken binds the auctioned ERC20 token contract. Its constructor
// mints the full supply, assigns preallocations, and hands the remainder
// to the auction.
type ReserveToken struct {
	*BoundContract
}

// NewReserveToken binds a token contract at the given address.
func NewReserveToken(gw chain.Gateway, contractABI abi.ABI, addr common.Address) *ReserveToken {
	return &ReserveToken{BoundContract: Bind(gw, contractABI, addr)}
}

// TotalSupply returns the token supply in the smallest denomination.
func (t *ReserveToken) TotalSupply(ctx context.Context) (*big.Int, error) {
	return t.callUint(ctx, "totalSupply")
}

// BalanceOf returns the holder's balance in the smallest denomination.
func (t *ReserveToken) BalanceOf(ctx context.Context, holder common.Address) (*big.Int, error) {
	return t.callUint(ctx, "balanceOf", holder)
}

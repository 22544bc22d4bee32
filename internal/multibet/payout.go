package multibet

import (
	"math/big"

	"github.com/hyblock/hyblock-contracts/pkg/types"
)

// computePayouts splits the losing pool among winners in proportion to their
// stake on the winning option. Each winner receives
//
//	stake + stake*losingPool/winningPool
//
// with floor division. Remainder dust stays in the contract. When nobody
// backed the winning option nothing is paid out.
func computePayouts(b *bet, winIdx int) []types.PayoutEvent {
	winningPool := b.totals[winIdx]
	if winningPool.Sign() == 0 {
		return nil
	}

	losingPool := new(big.Int)
	for i, t := range b.totals {
		if i != winIdx {
			losingPool.Add(losingPool, t)
		}
	}

	payouts := make([]types.PayoutEvent, 0, len(b.bettors))
	for _, user := range b.bettors {
		stake := b.stakes[user][winIdx]
		if stake.Sign() == 0 {
			continue
		}

		share := new(big.Int).Mul(stake, losingPool)
		share.Quo(share, winningPool)

		payouts = append(payouts, types.PayoutEvent{
			User:   user,
			Amount: share.Add(share, stake),
		})
	}

	return payouts
}

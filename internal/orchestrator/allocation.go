package orchestrator

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rxtech-lab/universal-launchpad/internal/models"
	"github.com/rxtech-lab/universal-launchpad/internal/utils"
)

// recipientTransfer is the summed amount owed to one recipient
type recipientTransfer struct {
	recipient common.Address
	amount    *big.Int
}

// allocationPlan is the outcome of checking every allocation entry
type allocationPlan struct {
	transfers []recipientTransfer
	// rejected holds failed and skipped entries in input order
	rejected []models.AllocationResult
	errors   []*AllocationError
}

// planAllocations validates each entry, drops zero or negative amounts and sums
// the rest per recipient (case-insensitive), keeping first-seen order.
func planAllocations(allocations []models.Allocation, decimals uint8) allocationPlan {
	var plan allocationPlan
	index := make(map[common.Address]int)

	for i, alloc := range allocations {
		reject := func(reason string) {
			allocErr := &AllocationError{Index: i, RecipientAddress: alloc.RecipientAddress, Amount: alloc.Amount, Reason: reason}
			plan.errors = append(plan.errors, allocErr)
			plan.rejected = append(plan.rejected, models.AllocationResult{
				RecipientAddress: alloc.RecipientAddress,
				Amount:           alloc.Amount,
				Status:           models.StepStatusFailed,
				Error:            allocErr.Error(),
			})
		}

		recipient, err := utils.ParseAddress(strings.TrimSpace(alloc.RecipientAddress))
		if err != nil {
			reject(err.Error())
			continue
		}
		amount, err := utils.ParseTokenAmount(alloc.Amount, decimals)
		if err != nil {
			reject(err.Error())
			continue
		}
		if amount.Sign() <= 0 {
			plan.rejected = append(plan.rejected, models.AllocationResult{
				RecipientAddress: recipient.Hex(),
				Amount:           alloc.Amount,
				Status:           models.StepStatusSkipped,
			})
			continue
		}

		if pos, ok := index[recipient]; ok {
			plan.transfers[pos].amount.Add(plan.transfers[pos].amount, amount)
			continue
		}
		index[recipient] = len(plan.transfers)
		plan.transfers = append(plan.transfers, recipientTransfer{recipient: recipient, amount: amount})
	}
	return plan
}

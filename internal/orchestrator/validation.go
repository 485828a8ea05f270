package orchestrator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/universal-launchpad/internal/models"
	"github.com/rxtech-lab/universal-launchpad/internal/utils"
)

// ValidateSpec checks a spec without touching the registry, the store or any node
func (o *Orchestrator) ValidateSpec(spec models.DeploymentSpec) error {
	if err := o.validate.Struct(spec); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &ValidationError{Field: fe.Namespace(), Reason: fmt.Sprintf("failed on '%s'", fe.Tag())}
		}
		return &ValidationError{Reason: err.Error()}
	}

	if strings.TrimSpace(spec.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be blank"}
	}
	if strings.TrimSpace(spec.Symbol) == "" {
		return &ValidationError{Field: "symbol", Reason: "must not be blank"}
	}
	if _, err := utils.ParseAddress(spec.FinalOwnerAddress); err != nil {
		return &ValidationError{Field: "final_owner_address", Reason: err.Error()}
	}

	seen := make(map[int64]bool, len(spec.ChainIDs))
	hubs := 0
	spokes := 0
	for _, id := range spec.ChainIDs {
		if id <= 0 {
			return &ValidationError{Field: "chain_ids", Reason: fmt.Sprintf("invalid chain id %d", id)}
		}
		if seen[id] {
			return &ValidationError{Field: "chain_ids", Reason: fmt.Sprintf("duplicate chain id %d", id)}
		}
		seen[id] = true
		if o.isHub(id) {
			hubs++
		} else {
			spokes++
		}
	}
	if hubs > 1 {
		return &ValidationError{Field: "chain_ids", Reason: "at most one hub chain may be requested"}
	}
	if hubs == 0 {
		if spokes > 0 {
			return &ValidationError{Field: "chain_ids", Reason: "the hub chain is required when spoke chains are requested"}
		}
		return &ValidationError{Field: "chain_ids", Reason: "no hub chain requested"}
	}

	switch spec.Kind {
	case models.AssetKindNFT:
		if len(spec.Allocations) > 0 {
			return &ValidationError{Field: "allocations", Reason: "nft collections do not support allocations"}
		}
		if spec.MaxSupply != "" {
			if _, err := utils.ParseTokenAmount(spec.MaxSupply, 0); err != nil {
				return &ValidationError{Field: "max_supply", Reason: err.Error()}
			}
		}
	case models.AssetKindToken:
		if spec.DecimalsOrDefault() != models.DefaultDecimals {
			return &ValidationError{Field: "decimals", Reason: fmt.Sprintf("universal tokens have %d decimals", models.DefaultDecimals)}
		}
		if spec.TotalSupply != "" {
			supply, err := utils.ParseTokenAmount(spec.TotalSupply, spec.DecimalsOrDefault())
			if err != nil {
				return &ValidationError{Field: "total_supply", Reason: err.Error()}
			}
			if supply.Sign() < 0 {
				return &ValidationError{Field: "total_supply", Reason: "must not be negative"}
			}
		}
	}
	return nil
}

func (o *Orchestrator) isHub(chainID int64) bool {
	for _, id := range o.config.HubChainIDs {
		if id == chainID {
			return true
		}
	}
	return false
}

// splitChains returns the hub and the spokes in requested order. The spec must be valid.
func (o *Orchestrator) splitChains(chainIDs []int64) (int64, []int64) {
	var hub int64
	spokes := make([]int64, 0, len(chainIDs))
	for _, id := range chainIDs {
		if o.isHub(id) {
			hub = id
			continue
		}
		spokes = append(spokes, id)
	}
	return hub, spokes
}

package orchestrator

import "fmt"

// ValidationError is a bad deployment spec. No record is created and no chain is contacted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid deployment spec: " + e.Reason
	}
	return fmt.Sprintf("invalid deployment spec: %s: %s", e.Field, e.Reason)
}

// ConfigurationError is a registered chain that lacks what the saga needs
type ConfigurationError struct {
	ChainID int64
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("chain %d is misconfigured: %s", e.ChainID, e.Reason)
}

// AllocationError is one rejected allocation entry. It is recorded, never returned.
type AllocationError struct {
	Index            int
	RecipientAddress string
	Amount           string
	Reason           string
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocation #%d (%s, %s): %s", e.Index, e.RecipientAddress, e.Amount, e.Reason)
}

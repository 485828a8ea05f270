package services

import (
	"context"
	"errors"
	"sync"
)

type HookService interface {
	AddHook(hook Hook) error
	OnContractDeployed(ctx context.Context, event ContractDeployedEvent) error
}

type hookService struct {
	mu    sync.RWMutex
	hooks []Hook
}

func NewHookService() HookService {
	return &hookService{
		hooks: []Hook{},
	}
}

func (h *hookService) AddHook(hook Hook) error {
	if hook == nil {
		return errors.New("hook is nil")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, hook)
	return nil
}

// OnContractDeployed runs every matching hook and stops at the first error
func (h *hookService) OnContractDeployed(ctx context.Context, event ContractDeployedEvent) error {
	h.mu.RLock()
	hooks := append([]Hook(nil), h.hooks...)
	h.mu.RUnlock()

	for _, hook := range hooks {
		if hook.CanHandle(event.ContractKind) {
			if err := hook.OnContractDeployed(ctx, event); err != nil {
				return err
			}
		}
	}
	return nil
}

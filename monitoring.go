package dtokit

import (
	"context"
	"time"
)

// ObservabilityHook receives callbacks around binding and transfer
// operations. Implementations must be safe for concurrent use.
type ObservabilityHook interface {
	// Called when a handler binding is built (schema parse plus transfer
	// model synthesis).
	OnBind(ctx context.Context, modelName string, direction Direction, duration time.Duration, err error)

	// Called after each decode or encode completes (success or failure).
	OnTransfer(ctx context.Context, operation string, modelName string, duration time.Duration, err error)
}

// NoOpObservabilityHook ignores all callbacks.
type NoOpObservabilityHook struct{}

func (NoOpObservabilityHook) OnBind(ctx context.Context, modelName string, direction Direction, duration time.Duration, err error) {
}

func (NoOpObservabilityHook) OnTransfer(ctx context.Context, operation string, modelName string, duration time.Duration, err error) {
}

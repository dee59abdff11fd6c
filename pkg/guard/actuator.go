package guard

import (
	"context"
	"fmt"
	"log"
)

// Actuator performs the platform-side mitigation actions. Restore
// returns nil only on a confirmed write; a best-effort attempt that
// cannot verify the surface content is a failure.
type Actuator interface {
	Clear(ctx context.Context, key SurfaceKey) error
	Restore(ctx context.Context, key SurfaceKey, text string) error
}

// RestoreStrategy is one way of putting text back on a surface. The
// chain tries direct restoration first, then broader fallbacks.
type RestoreStrategy func(ctx context.Context, key SurfaceKey, text string) error

// ChainActuator clears through a single function and restores through
// an ordered strategy chain, stopping at the first confirmed write.
type ChainActuator struct {
	ClearFunc func(ctx context.Context, key SurfaceKey) error
	Restorers []RestoreStrategy
}

func (a *ChainActuator) Clear(ctx context.Context, key SurfaceKey) error {
	if a.ClearFunc == nil {
		return fmt.Errorf("%w: no clear function configured", ErrClearFailure)
	}
	return a.ClearFunc(ctx, key)
}

func (a *ChainActuator) Restore(ctx context.Context, key SurfaceKey, text string) error {
	var lastErr error
	for i, restore := range a.Restorers {
		if err := restore(ctx, key, text); err != nil {
			lastErr = err
			log.Printf("[GUARD] restore strategy %d failed for %s: %v", i, key, err)
			continue
		}
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("%w: %v", ErrRestoreFailure, lastErr)
	}
	return fmt.Errorf("%w: no restore strategy configured", ErrRestoreFailure)
}

// LogActuator confirms every action and only logs it. Used when the
// platform adapter consumes mitigation decisions over the event API
// and performs the writes itself.
type LogActuator struct{}

func (LogActuator) Clear(_ context.Context, key SurfaceKey) error {
	log.Printf("[GUARD] clear requested for %s", key)
	return nil
}

func (LogActuator) Restore(_ context.Context, key SurfaceKey, text string) error {
	log.Printf("[GUARD] restore requested for %s (%d chars)", key, len(text))
	return nil
}

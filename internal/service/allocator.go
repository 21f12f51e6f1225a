package service

import (
	"context"
	"fmt"

	"github.com/emrgen/pidkeeper/internal/pid"
	"github.com/emrgen/pidkeeper/internal/store"
)

// allocator mints collision-free v3 codes. The loop has no iteration bound:
// the token space is large enough that collisions are vanishingly rare, and
// a broken generator surfaces as ErrGenerator instead of spinning forever.
type allocator struct {
	store    store.Store
	generate pid.Generator
}

// allocate returns a v3 guaranteed absent from all three record tables. A
// non-empty candidate is kept when it is free; otherwise fresh tokens are
// generated and re-checked until one collides with nothing. The returned
// origin is "generated" when the candidate was replaced, "" otherwise.
func (a *allocator) allocate(ctx context.Context, candidate string) (v3, origin string, err error) {
	if candidate != "" {
		exists, err := a.store.V3Exists(ctx, candidate)
		if err != nil {
			return "", "", err
		}
		if !exists {
			return candidate, "", nil
		}
	}

	for {
		generated, err := a.generate()
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", ErrGenerator, err)
		}
		exists, err := a.store.V3Exists(ctx, generated)
		if err != nil {
			return "", "", err
		}
		if !exists {
			return generated, pid.OriginGenerated, nil
		}
	}
}

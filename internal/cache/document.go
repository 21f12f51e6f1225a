// Package cache holds the optional redis read cache for canonical records.
// It only accelerates lookups by v3; the registration engine itself never
// reads from it, so a cold or absent cache is always correct.
package cache

import (
	"context"

	"github.com/emrgen/pidkeeper/internal/model"
)

// DocumentCache caches registration rows by their canonical v3.
type DocumentCache interface {
	GetDocument(ctx context.Context, v3 string) (*model.Document, error)
	SetDocument(ctx context.Context, doc *model.Document) error
}

// Package state defines how allocator states are persisted: a full snapshot
// written once, then one delta per committed operation.
package state

import (
	"context"

	"github.com/viant/idmint/model"
	"github.com/viant/idmint/service/dao"
)

// Service stores allocator states. Save writes a whole snapshot and is meant
// for the first write and for compaction; Apply records one operation.
type Service interface {
	dao.Service[string, model.State]

	// Apply adds delta on top of the stored state. It fails with
	// dao.ErrNotFound when nothing is stored under delta.Name and with
	// dao.ErrConflict unless delta.Version follows the stored version.
	Apply(ctx context.Context, delta *model.Delta) error
}

// Compactor folds stored deltas into the snapshot.
type Compactor interface {
	Compact(ctx context.Context, name string) error
}

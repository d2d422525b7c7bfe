package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/studygroups/core/study"
)

// SnapshotRepository keeps the catalog state in memory. Used by the memory engine and in tests.
type SnapshotRepository struct {
	mu   sync.RWMutex
	snap study.Snapshot
}

var _ study.Repository = (*SnapshotRepository)(nil)

func NewSnapshotRepository(seed ...study.Snapshot) *SnapshotRepository {
	repo := new(SnapshotRepository)
	if len(seed) > 0 {
		repo.snap = seed[0]
	}
	return repo
}

func (repo *SnapshotRepository) LoadSnapshot(ctx context.Context) (study.Snapshot, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	return repo.snap, nil
}

// SaveSnapshot keeps snap as is; callers hand over a freshly built Snapshot.
func (repo *SnapshotRepository) SaveSnapshot(ctx context.Context, snap study.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.snap = snap
	return nil
}

package memory

import (
	"context"
	"sync"

	"memescope/internal/domain"
	"memescope/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore in memory.
type SnapshotStore struct {
	mu      sync.RWMutex
	nextID  int64
	byToken map[int64][]*domain.Snapshot
	holders map[int64][]*domain.TopHolder // keyed by snapshot id
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		nextID:  1,
		byToken: make(map[int64][]*domain.Snapshot),
		holders: make(map[int64][]*domain.TopHolder),
	}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Insert persists a snapshot and returns its id.
func (s *SnapshotStore) Insert(ctx context.Context, snap *domain.Snapshot) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	snap.ID = id
	cp := *snap
	s.byToken[snap.TokenID] = append(s.byToken[snap.TokenID], &cp)
	return id, nil
}

// InsertHolders persists top-holder rows.
func (s *SnapshotStore) InsertHolders(ctx context.Context, holders []*domain.TopHolder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, h := range holders {
		cp := *h
		s.holders[h.SnapshotID] = append(s.holders[h.SnapshotID], &cp)
	}
	return nil
}

// GetLatest retrieves the newest snapshot for a token.
func (s *SnapshotStore) GetLatest(ctx context.Context, tokenID int64) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snaps := s.byToken[tokenID]
	if len(snaps) == 0 {
		return nil, storage.ErrNotFound
	}
	cp := *snaps[len(snaps)-1]
	return &cp, nil
}

// GetByToken retrieves all snapshots for a token, oldest first.
func (s *SnapshotStore) GetByToken(ctx context.Context, tokenID int64) ([]*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snaps := s.byToken[tokenID]
	out := make([]*domain.Snapshot, len(snaps))
	for i, sn := range snaps {
		cp := *sn
		out[i] = &cp
	}
	return out, nil
}

// HoldersBySnapshot returns the stored holders for a snapshot (test helper).
func (s *SnapshotStore) HoldersBySnapshot(snapshotID int64) []*domain.TopHolder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.holders[snapshotID]
}

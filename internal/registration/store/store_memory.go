package store

import (
	"context"
	"sync"

	"rollcall/internal/registration/models"
	"rollcall/pkg/requestcontext"
)

// InMemoryRecordStore keeps records in insertion order behind one mutex. The
// mutation volume is low, so a single lock buys correctness cheaply; readers
// always see a fully applied state. Records are cloned on the way in and out
// so the store stays the exclusive owner of its collection.
type InMemoryRecordStore struct {
	mu      sync.RWMutex
	records []*models.Record
	nextID  int64
}

func NewInMemoryRecordStore() *InMemoryRecordStore {
	return &InMemoryRecordStore{nextID: 1}
}

func (s *InMemoryRecordStore) Insert(ctx context.Context, sub models.Submission, createdBy string) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &models.Record{
		ID:        s.nextID,
		FullName:  sub.FullName,
		Phone:     sub.Phone,
		CreatedAt: requestcontext.Now(ctx),
		CreatedBy: createdBy,
		Attrs:     sub.Attrs,
	}
	// The counter only moves forward, so ids stay unique across deletes.
	s.nextID++
	s.records = append(s.records, rec.Clone())
	return rec, nil
}

func (s *InMemoryRecordStore) Get(_ context.Context, id int64) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.records {
		if rec.ID == id {
			return rec.Clone(), nil
		}
	}
	return nil, notFound(id)
}

func (s *InMemoryRecordStore) Update(_ context.Context, id int64, upd models.Update) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, rec := range s.records {
		if rec.ID != id {
			continue
		}
		// Merge on a clone, then swap; readers never observe a half-applied
		// update.
		merged := rec.Clone()
		upd.Apply(merged)
		s.records[i] = merged
		return merged.Clone(), nil
	}
	return nil, notFound(id)
}

func (s *InMemoryRecordStore) Delete(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, rec := range s.records {
		if rec.ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryRecordStore) All(_ context.Context) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Record, len(s.records))
	for i, rec := range s.records {
		out[i] = rec.Clone()
	}
	return out, nil
}

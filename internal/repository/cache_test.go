package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/runclub/internal/model"
)

// countingStore is an in-memory RunStore that counts GetByID calls.
type countingStore struct {
	RunStore
	runs map[string]model.Run
	gets int
}

func (s *countingStore) GetByID(_ context.Context, id string) (*model.Run, error) {
	s.gets++
	run, ok := s.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &run, nil
}

func (s *countingStore) Update(_ context.Context, id string, spec model.RunSpec) (*model.Run, error) {
	if _, ok := s.runs[id]; !ok {
		return nil, ErrNotFound
	}
	run := model.Run{ID: id, Date: spec.Date, Time: spec.Time, MeetingPlace: spec.MeetingPlace,
		Venue: spec.Venue, LengthKM: spec.LengthKM, MaxCapacity: spec.MaxCapacity}
	s.runs[id] = run
	return &run, nil
}

func (s *countingStore) Delete(_ context.Context, id string) error {
	if _, ok := s.runs[id]; !ok {
		return ErrNotFound
	}
	delete(s.runs, id)
	return nil
}

func (s *countingStore) Occupancy(_ context.Context, id string) (model.Occupancy, error) {
	run, ok := s.runs[id]
	if !ok {
		return model.Occupancy{}, ErrNotFound
	}
	return model.Occupancy{RunID: id, MaxCapacity: run.MaxCapacity}, nil
}

func TestCachedRunStore_ReadThrough(t *testing.T) {
	store := &countingStore{runs: map[string]model.Run{"r1": {ID: "r1", Venue: "Victoria Park", MaxCapacity: 3}}}
	cache := NewCachedRunStore(store, time.Minute, time.Minute)
	ctx := context.Background()

	first, err := cache.GetByID(ctx, "r1")
	require.NoError(t, err)
	first.Venue = "mutated by caller"

	second, err := cache.GetByID(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, "Victoria Park", second.Venue, "callers get copies")
	require.Equal(t, 1, store.gets)

	_, err = cache.GetByID(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = cache.GetByID(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, 3, store.gets, "misses are not cached")
}

func TestCachedRunStore_Invalidation(t *testing.T) {
	store := &countingStore{runs: map[string]model.Run{"r1": {ID: "r1", Venue: "Victoria Park", MaxCapacity: 3}}}
	cache := NewCachedRunStore(store, time.Minute, time.Minute)
	ctx := context.Background()

	_, err := cache.GetByID(ctx, "r1")
	require.NoError(t, err)

	_, err = cache.Update(ctx, "r1", model.RunSpec{Venue: "Regent's Canal", MaxCapacity: 5})
	require.NoError(t, err)
	got, err := cache.GetByID(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, "Regent's Canal", got.Venue)

	o, err := cache.Occupancy(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, 5, o.MaxCapacity, "occupancy is never served from the cache")

	require.NoError(t, cache.Delete(ctx, "r1"))
	_, err = cache.GetByID(ctx, "r1")
	require.ErrorIs(t, err, ErrNotFound)
}

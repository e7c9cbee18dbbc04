package service

import (
	"context"
	"sync"
	"time"

	"meowchi_miniapp/internal/model"
	"meowchi_miniapp/internal/repository"
	"meowchi_miniapp/pkg/calendar"

	"github.com/google/uuid"
)

type claimKey struct {
	userID int64
	day    calendar.Day
}

// memStore serializes every transaction behind one mutex, which is a
// stricter version of the per-row locks the SQL store takes, and restores
// a snapshot when the callback fails.
type memStore struct {
	mu     sync.Mutex
	states map[int64]model.DailyState
	quota  map[calendar.Day]int
	claims map[claimKey]uuid.UUID

	failSave error
	saves    int
}

func newMemStore() *memStore {
	return &memStore{
		states: make(map[int64]model.DailyState),
		quota:  make(map[calendar.Day]int),
		claims: make(map[claimKey]uuid.UUID),
	}
}

func (m *memStore) InMeowTx(_ context.Context, fn func(tx repository.MeowTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	states := make(map[int64]model.DailyState, len(m.states))
	for k, v := range m.states {
		states[k] = v
	}
	quota := make(map[calendar.Day]int, len(m.quota))
	for k, v := range m.quota {
		quota[k] = v
	}
	claims := make(map[claimKey]uuid.UUID, len(m.claims))
	for k, v := range m.claims {
		claims[k] = v
	}

	if err := fn(&memTx{m: m}); err != nil {
		m.states, m.quota, m.claims = states, quota, claims
		return err
	}
	return nil
}

func (m *memStore) GetDailyState(_ context.Context, userID int64) (*model.DailyState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.states[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &state, nil
}

func (m *memStore) GetClaimsTaken(_ context.Context, day calendar.Day) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quota[day], nil
}

func (m *memStore) ClaimExists(_ context.Context, id uuid.UUID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range m.claims {
		if v == id && k.userID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) seed(state model.DailyState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.UserID] = state
}

func (m *memStore) setQuota(day calendar.Day, taken int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quota[day] = taken
}

func (m *memStore) state(userID int64) model.DailyState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[userID]
}

func (m *memStore) claimCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.claims)
}

type memTx struct {
	m *memStore
}

func (t *memTx) LockDailyState(_ context.Context, userID int64) (*model.DailyState, error) {
	state, ok := t.m.states[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &state, nil
}

func (t *memTx) LockOrCreateDailyState(ctx context.Context, userID int64, day calendar.Day) (*model.DailyState, error) {
	if _, ok := t.m.states[userID]; !ok {
		t.m.states[userID] = model.DailyState{UserID: userID, TapDay: day}
	}
	return t.LockDailyState(ctx, userID)
}

func (t *memTx) SaveDailyState(_ context.Context, state *model.DailyState) error {
	if t.m.failSave != nil {
		return t.m.failSave
	}
	if _, ok := t.m.states[state.UserID]; !ok {
		return repository.ErrNotFound
	}
	t.m.saves++
	t.m.states[state.UserID] = *state
	return nil
}

func (t *memTx) LockClaimsTaken(_ context.Context, day calendar.Day) (int, error) {
	if _, ok := t.m.quota[day]; !ok {
		t.m.quota[day] = 0
	}
	return t.m.quota[day], nil
}

func (t *memTx) GetClaimsTaken(_ context.Context, day calendar.Day) (int, error) {
	return t.m.quota[day], nil
}

func (t *memTx) SetClaimsTaken(_ context.Context, day calendar.Day, taken int) error {
	if _, ok := t.m.quota[day]; !ok {
		return repository.ErrNotFound
	}
	t.m.quota[day] = taken
	return nil
}

func (t *memTx) InsertClaimRecord(_ context.Context, id uuid.UUID, userID int64, day calendar.Day) (bool, error) {
	key := claimKey{userID: userID, day: day}
	if _, ok := t.m.claims[key]; ok {
		return false, nil
	}
	t.m.claims[key] = id
	return true, nil
}

// testClock is a settable clock for rollover scenarios.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(now time.Time) *testClock {
	return &testClock{now: now}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

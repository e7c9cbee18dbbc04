package mocks

import (
	"context"

	"meowchi_miniapp/internal/model"
	"meowchi_miniapp/internal/repository"
	"meowchi_miniapp/pkg/calendar"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockMeowRepository runs transaction callbacks against Tx unless
// InMeowTx is set up to fail before the callback.
type MockMeowRepository struct {
	mock.Mock
	Tx *MockMeowTx
}

func (m *MockMeowRepository) InMeowTx(ctx context.Context, fn func(tx repository.MeowTx) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(m.Tx)
}

func (m *MockMeowRepository) GetDailyState(ctx context.Context, userID int64) (*model.DailyState, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DailyState), args.Error(1)
}

func (m *MockMeowRepository) GetClaimsTaken(ctx context.Context, day calendar.Day) (int, error) {
	args := m.Called(ctx, day)
	return args.Int(0), args.Error(1)
}

func (m *MockMeowRepository) ClaimExists(ctx context.Context, id uuid.UUID, userID int64) (bool, error) {
	args := m.Called(ctx, id, userID)
	return args.Bool(0), args.Error(1)
}

type MockMeowTx struct {
	mock.Mock
}

func (m *MockMeowTx) LockDailyState(ctx context.Context, userID int64) (*model.DailyState, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DailyState), args.Error(1)
}

func (m *MockMeowTx) LockOrCreateDailyState(ctx context.Context, userID int64, day calendar.Day) (*model.DailyState, error) {
	args := m.Called(ctx, userID, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DailyState), args.Error(1)
}

func (m *MockMeowTx) SaveDailyState(ctx context.Context, state *model.DailyState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

func (m *MockMeowTx) LockClaimsTaken(ctx context.Context, day calendar.Day) (int, error) {
	args := m.Called(ctx, day)
	return args.Int(0), args.Error(1)
}

func (m *MockMeowTx) GetClaimsTaken(ctx context.Context, day calendar.Day) (int, error) {
	args := m.Called(ctx, day)
	return args.Int(0), args.Error(1)
}

func (m *MockMeowTx) SetClaimsTaken(ctx context.Context, day calendar.Day, taken int) error {
	args := m.Called(ctx, day, taken)
	return args.Error(0)
}

func (m *MockMeowTx) InsertClaimRecord(ctx context.Context, id uuid.UUID, userID int64, day calendar.Day) (bool, error) {
	args := m.Called(ctx, id, userID, day)
	return args.Bool(0), args.Error(1)
}

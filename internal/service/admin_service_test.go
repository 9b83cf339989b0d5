package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gearbook/internal/events"
	"gearbook/internal/models"
)

type mockAdminStore struct {
	mock.Mock
}

func (m *mockAdminStore) GetSettings(ctx context.Context) (models.Settings, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.Settings), args.Error(1)
}
func (m *mockAdminStore) UpdateSettings(ctx context.Context, settings models.Settings) error {
	return m.Called(ctx, settings).Error(0)
}
func (m *mockAdminStore) ListClosedDates(ctx context.Context) ([]models.ClosedDate, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.ClosedDate), args.Error(1)
}
func (m *mockAdminStore) AddClosedDate(ctx context.Context, cd *models.ClosedDate) error {
	return m.Called(ctx, cd).Error(0)
}
func (m *mockAdminStore) RemoveClosedDate(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func newTestAdminService(store AdminStore) (*AdminService, *recordingBus) {
	bus := &recordingBus{}
	logger := zerolog.New(io.Discard)
	return NewAdminService(store, bus, &logger), bus
}

func validSettings() models.Settings {
	return models.Settings{
		DefaultCategoryLimit:  3,
		MaxLoanDuration:       7,
		MaxAdvanceBookingDays: 30,
	}
}

func TestAdminService_UpdateSettings(t *testing.T) {
	ctx := context.Background()

	t.Run("stores and publishes", func(t *testing.T) {
		store := new(mockAdminStore)
		store.On("UpdateSettings", ctx, mock.AnythingOfType("models.Settings")).Return(nil).Once()

		svc, bus := newTestAdminService(store)

		err := svc.UpdateSettings(ctx, validSettings())
		require.NoError(t, err)
		assert.Equal(t, []string{events.TopicSettingsUpdated}, bus.topics())
		store.AssertExpectations(t)
	})

	t.Run("rejects negative limits", func(t *testing.T) {
		store := new(mockAdminStore)
		svc, bus := newTestAdminService(store)

		bad := validSettings()
		bad.MaxAdvanceBookingDays = -1

		err := svc.UpdateSettings(ctx, bad)
		assert.Error(t, err)
		assert.Empty(t, bus.published)
		store.AssertNotCalled(t, "UpdateSettings", mock.Anything, mock.Anything)
	})

	t.Run("rejects unknown user type overrides", func(t *testing.T) {
		store := new(mockAdminStore)
		svc, _ := newTestAdminService(store)

		bad := validSettings()
		five := 5
		bad.UserTypeLimits = map[models.UserType]models.TypeLimitOverride{
			models.UserType("alumni"): {MaxItems: &five, IsActive: true},
		}

		err := svc.UpdateSettings(ctx, bad)
		assert.Error(t, err)
	})

	t.Run("rejects negative override values", func(t *testing.T) {
		store := new(mockAdminStore)
		svc, _ := newTestAdminService(store)

		bad := validSettings()
		minusOne := -1
		bad.UserTypeLimits = map[models.UserType]models.TypeLimitOverride{
			models.UserTypeStudent: {MaxDays: &minusOne, IsActive: true},
		}

		err := svc.UpdateSettings(ctx, bad)
		assert.Error(t, err)
	})
}

func TestAdminService_ClosedDates(t *testing.T) {
	ctx := context.Background()

	t.Run("add recurring sets the yearly pattern", func(t *testing.T) {
		store := new(mockAdminStore)
		store.On("AddClosedDate", ctx, mock.AnythingOfType("*models.ClosedDate")).Return(nil).Once()

		svc, bus := newTestAdminService(store)

		cd, err := svc.AddClosedDate(ctx, time.Date(2025, time.December, 25, 0, 0, 0, 0, time.Local), "winter break", true)
		require.NoError(t, err)
		assert.Equal(t, models.RecurringYearly, cd.RecurringPattern)
		assert.Equal(t, []string{events.TopicClosedDatesChanged}, bus.topics())
		store.AssertExpectations(t)
	})

	t.Run("add one-off keeps no pattern", func(t *testing.T) {
		store := new(mockAdminStore)
		store.On("AddClosedDate", ctx, mock.AnythingOfType("*models.ClosedDate")).Return(nil).Once()

		svc, _ := newTestAdminService(store)

		cd, err := svc.AddClosedDate(ctx, time.Date(2025, time.July, 4, 0, 0, 0, 0, time.Local), "", false)
		require.NoError(t, err)
		assert.Empty(t, cd.RecurringPattern)
	})

	t.Run("remove publishes", func(t *testing.T) {
		store := new(mockAdminStore)
		store.On("RemoveClosedDate", ctx, int64(12)).Return(nil).Once()

		svc, bus := newTestAdminService(store)

		require.NoError(t, svc.RemoveClosedDate(ctx, 12))
		assert.Equal(t, []string{events.TopicClosedDatesChanged}, bus.topics())
	})

	t.Run("store failure suppresses the event", func(t *testing.T) {
		store := new(mockAdminStore)
		store.On("AddClosedDate", ctx, mock.AnythingOfType("*models.ClosedDate")).Return(assert.AnError).Once()

		svc, bus := newTestAdminService(store)

		_, err := svc.AddClosedDate(ctx, time.Date(2025, time.July, 4, 0, 0, 0, 0, time.Local), "", false)
		assert.Error(t, err)
		assert.Empty(t, bus.published)
	})
}

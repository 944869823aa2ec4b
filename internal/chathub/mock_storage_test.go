package chathub_test

import (
	"context"

	"roomchat/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) AppendMessage(ctx context.Context, msg models.NewMessage) (*models.Message, error) {
	args := m.Called(ctx, msg)
	stored, _ := args.Get(0).(*models.Message)
	return stored, args.Error(1)
}

func (m *MockStorage) RecentByRoom(ctx context.Context, room string, limit int) ([]models.Message, error) {
	args := m.Called(ctx, room, limit)
	history, _ := args.Get(0).([]models.Message)
	return history, args.Error(1)
}

func (m *MockStorage) GetRoomByName(ctx context.Context, name string) (*models.Room, error) {
	args := m.Called(ctx, name)
	room, _ := args.Get(0).(*models.Room)
	return room, args.Error(1)
}

func (m *MockStorage) AddParticipant(ctx context.Context, roomName, userID string) error {
	args := m.Called(ctx, roomName, userID)
	return args.Error(0)
}

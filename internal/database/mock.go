package database

import (
	"time"

	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}

func (m *MockRepository) GetAccountById(id string) (User, error) {
	args := m.Called(id)
	return args.Get(0).(User), args.Error(1)
}

func (m *MockRepository) GetAccountByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}

func (m *MockRepository) GetAccountsByIds(ids []string) ([]User, error) {
	args := m.Called(ids)
	return args.Get(0).([]User), args.Error(1)
}

func (m *MockRepository) GetFirstAdmin() (User, error) {
	args := m.Called()
	return args.Get(0).(User), args.Error(1)
}

func (m *MockRepository) GetRoomByName(name string, isGroup bool) (Room, error) {
	args := m.Called(name, isGroup)
	return args.Get(0).(Room), args.Error(1)
}

func (m *MockRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	args := m.Called(params)
	return args.Get(0).(Room), args.Error(1)
}

func (m *MockRepository) GetParticipant(roomId, userId string) (RoomParticipant, error) {
	args := m.Called(roomId, userId)
	return args.Get(0).(RoomParticipant), args.Error(1)
}

func (m *MockRepository) CreateParticipant(roomId, userId string, at time.Time) (RoomParticipant, error) {
	args := m.Called(roomId, userId, at)
	return args.Get(0).(RoomParticipant), args.Error(1)
}

func (m *MockRepository) DeleteParticipant(roomId, userId string) error {
	args := m.Called(roomId, userId)
	return args.Error(0)
}

func (m *MockRepository) UpdateLastRead(roomId, userId string, at time.Time) (int64, error) {
	args := m.Called(roomId, userId, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) CreateHubMessage(msg HubMessage) error {
	args := m.Called(msg)
	return args.Error(0)
}

func (m *MockRepository) GetHubMessageById(id string) (HubMessage, error) {
	args := m.Called(id)
	return args.Get(0).(HubMessage), args.Error(1)
}

func (m *MockRepository) ListHubMessages(roomId string, limit, offset int) ([]HubMessage, int, error) {
	args := m.Called(roomId, limit, offset)
	return args.Get(0).([]HubMessage), args.Int(1), args.Error(2)
}

func (m *MockRepository) UpdateHubMessageContent(id, content string, at time.Time) error {
	args := m.Called(id, content, at)
	return args.Error(0)
}

func (m *MockRepository) SoftDeleteHubMessage(id string, at time.Time) error {
	args := m.Called(id, at)
	return args.Error(0)
}

func (m *MockRepository) CreateDirectMessage(msg DirectMessage) error {
	args := m.Called(msg)
	return args.Error(0)
}

func (m *MockRepository) GetDirectMessageById(id string) (DirectMessage, error) {
	args := m.Called(id)
	return args.Get(0).(DirectMessage), args.Error(1)
}

func (m *MockRepository) ListDirectMessages(userA, userB string, limit, offset int) ([]DirectMessage, int, error) {
	args := m.Called(userA, userB, limit, offset)
	return args.Get(0).([]DirectMessage), args.Int(1), args.Error(2)
}

func (m *MockRepository) UpdateDirectMessageContent(id, content string, at time.Time) error {
	args := m.Called(id, content, at)
	return args.Error(0)
}

func (m *MockRepository) SoftDeleteDirectMessage(id string, at time.Time) error {
	args := m.Called(id, at)
	return args.Error(0)
}

func (m *MockRepository) MarkDirectMessagesRead(senderId, receiverId string, at time.Time) error {
	args := m.Called(senderId, receiverId, at)
	return args.Error(0)
}

func (m *MockRepository) CountUnreadBySender(receiverId string) ([]UnreadCount, error) {
	args := m.Called(receiverId)
	return args.Get(0).([]UnreadCount), args.Error(1)
}

func (m *MockRepository) ListConversationPartners(userId string) ([]string, error) {
	args := m.Called(userId)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRepository) GetLatestDirectMessage(userA, userB string) (DirectMessage, error) {
	args := m.Called(userA, userB)
	return args.Get(0).(DirectMessage), args.Error(1)
}

func (m *MockRepository) HasUnreadFrom(senderId, receiverId string) (bool, error) {
	args := m.Called(senderId, receiverId)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) CreateNotification(n Notification) error {
	args := m.Called(n)
	return args.Error(0)
}

func (m *MockRepository) GetNotificationById(id string) (Notification, error) {
	args := m.Called(id)
	return args.Get(0).(Notification), args.Error(1)
}

func (m *MockRepository) ListNotifications(recipientId, notificationType string, limit, offset int) ([]Notification, int, error) {
	args := m.Called(recipientId, notificationType, limit, offset)
	return args.Get(0).([]Notification), args.Int(1), args.Error(2)
}

func (m *MockRepository) CountUnreadNotifications(recipientId string) (int, error) {
	args := m.Called(recipientId)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) MarkNotificationRead(id string, at time.Time) error {
	args := m.Called(id, at)
	return args.Error(0)
}

func (m *MockRepository) MarkAllNotificationsRead(recipientId string, at time.Time) error {
	args := m.Called(recipientId, at)
	return args.Error(0)
}

func (m *MockRepository) MarkConversationNotificationsRead(recipientId, senderId string, at time.Time) error {
	args := m.Called(recipientId, senderId, at)
	return args.Error(0)
}

func (m *MockRepository) DeleteNotification(id, recipientId string) error {
	args := m.Called(id, recipientId)
	return args.Error(0)
}

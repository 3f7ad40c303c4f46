package database

import "time"

type Repository interface {
	Ping() error

	CreateAccount(params CreateAccountParams) (User, error)
	GetAccountById(id string) (User, error)
	GetAccountByEmail(email string) (User, error)
	GetAccountsByIds(ids []string) ([]User, error)
	GetFirstAdmin() (User, error)

	GetRoomByName(name string, isGroup bool) (Room, error)
	CreateRoom(params CreateRoomParams) (Room, error)
	GetParticipant(roomId, userId string) (RoomParticipant, error)
	CreateParticipant(roomId, userId string, at time.Time) (RoomParticipant, error)
	DeleteParticipant(roomId, userId string) error
	UpdateLastRead(roomId, userId string, at time.Time) (int64, error)

	CreateHubMessage(msg HubMessage) error
	GetHubMessageById(id string) (HubMessage, error)
	ListHubMessages(roomId string, limit, offset int) ([]HubMessage, int, error)
	UpdateHubMessageContent(id, content string, at time.Time) error
	SoftDeleteHubMessage(id string, at time.Time) error

	CreateDirectMessage(msg DirectMessage) error
	GetDirectMessageById(id string) (DirectMessage, error)
	ListDirectMessages(userA, userB string, limit, offset int) ([]DirectMessage, int, error)
	UpdateDirectMessageContent(id, content string, at time.Time) error
	SoftDeleteDirectMessage(id string, at time.Time) error
	MarkDirectMessagesRead(senderId, receiverId string, at time.Time) error
	CountUnreadBySender(receiverId string) ([]UnreadCount, error)
	ListConversationPartners(userId string) ([]string, error)
	GetLatestDirectMessage(userA, userB string) (DirectMessage, error)
	HasUnreadFrom(senderId, receiverId string) (bool, error)

	CreateNotification(n Notification) error
	GetNotificationById(id string) (Notification, error)
	ListNotifications(recipientId, notificationType string, limit, offset int) ([]Notification, int, error)
	CountUnreadNotifications(recipientId string) (int, error)
	MarkNotificationRead(id string, at time.Time) error
	MarkAllNotificationsRead(recipientId string, at time.Time) error
	MarkConversationNotificationsRead(recipientId, senderId string, at time.Time) error
	DeleteNotification(id, recipientId string) error
}

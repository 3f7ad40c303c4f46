package database

import "time"

type User struct {
	Id           string
	Username     string
	EmailAddress string
	PasswordHash string
	AvatarURL    string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Room struct {
	Id         string
	ExternalId string
	Name       string
	IsGroup    bool
	LeaderId   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type RoomParticipant struct {
	RoomId     string
	UserId     string
	JoinedAt   time.Time
	LastReadAt *time.Time
}

type HubMessage struct {
	Id        string
	RoomId    string
	SenderId  string
	Content   string
	Deleted   bool
	CreatedAt time.Time
	UpdatedAt time.Time
	// sender fields joined in list queries
	SenderUsername  string
	SenderAvatarURL string
	SenderRole      string
}

type DirectMessage struct {
	Id         string
	SenderId   string
	ReceiverId string
	Content    string
	Read       bool
	Deleted    bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
	// participant fields joined in list queries
	SenderUsername    string
	SenderAvatarURL   string
	SenderRole        string
	ReceiverUsername  string
	ReceiverAvatarURL string
	ReceiverRole      string
}

type Notification struct {
	Id          string
	RecipientId string
	Type        string
	Message     string
	Read        bool
	RelatedId   string
	RelatedType string
	SenderId    string
	MessageId   string
	RoomId      string
	Priority    int
	ExpiresAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type UnreadCount struct {
	SenderId string
	Count    int
}

type CreateAccountParams struct {
	Id           string
	Username     string
	EmailAddress string
	PasswordHash string
	AvatarURL    string
	Role         string
}

type CreateRoomParams struct {
	Id         string
	ExternalId string
	Name       string
	IsGroup    bool
	LeaderId   string
}

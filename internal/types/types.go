package types

import (
	"time"
)

// Role is the closed set of account roles. Authorization code switches on
// it rather than comparing raw strings.
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleAdmin:
		return true
	}
	return false
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

type User struct {
	Id           string    `json:"id"`
	Username     string    `json:"username"`
	EmailAddress string    `json:"email_address,omitempty"`
	Password     string    `json:"-"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// UserSummary is the denormalized sender/receiver shape attached to
// message payloads.
type UserSummary struct {
	Id        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Role      Role   `json:"role"`
}

func (u User) Summary() UserSummary {
	return UserSummary{
		Id:        u.Id,
		Username:  u.Username,
		AvatarURL: u.AvatarURL,
		Role:      u.Role,
	}
}

type Room struct {
	Id         string    `json:"id"`
	ExternalId string    `json:"external_id"`
	Name       string    `json:"name"`
	IsGroup    bool      `json:"is_group"`
	LeaderId   string    `json:"leader_id"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}

type RoomParticipant struct {
	RoomId     string     `json:"room_id"`
	UserId     string     `json:"user_id"`
	JoinedAt   time.Time  `json:"joined_at"`
	LastReadAt *time.Time `json:"last_read_at,omitempty"`
}

type HubMessage struct {
	Id        string      `json:"id"`
	RoomId    string      `json:"room_id"`
	SenderId  string      `json:"sender_id"`
	Content   string      `json:"content"`
	Deleted   bool        `json:"deleted,omitempty"`
	Sender    UserSummary `json:"sender"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type DirectMessage struct {
	Id         string      `json:"id"`
	SenderId   string      `json:"sender_id"`
	ReceiverId string      `json:"receiver_id"`
	Content    string      `json:"content"`
	Read       bool        `json:"read"`
	Deleted    bool        `json:"deleted,omitempty"`
	Sender     UserSummary `json:"sender"`
	Receiver   UserSummary `json:"receiver"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// NotificationType is the single canonical enumeration of notification
// kinds, chat and domain alike.
type NotificationType string

const (
	NotificationDirectMessage   NotificationType = "direct_message"
	NotificationMention         NotificationType = "mention"
	NotificationMessageEdited   NotificationType = "message_edited"
	NotificationMessageDeleted  NotificationType = "message_deleted"
	NotificationTaskAssigned    NotificationType = "task_assigned"
	NotificationEventReminder   NotificationType = "event_reminder"
	NotificationInquiryReceived NotificationType = "inquiry_received"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationDirectMessage, NotificationMention,
		NotificationMessageEdited, NotificationMessageDeleted,
		NotificationTaskAssigned, NotificationEventReminder,
		NotificationInquiryReceived:
		return true
	}
	return false
}

const (
	PriorityLow    = 0
	PriorityNormal = 1
	PriorityHigh   = 2
)

type Notification struct {
	Id          string           `json:"id"`
	RecipientId string           `json:"recipient_id"`
	Type        NotificationType `json:"type"`
	Message     string           `json:"message"`
	Read        bool             `json:"read"`
	RelatedId   string           `json:"related_id,omitempty"`
	RelatedType string           `json:"related_type,omitempty"`
	SenderId    string           `json:"sender_id,omitempty"`
	MessageId   string           `json:"message_id,omitempty"`
	RoomId      string           `json:"room_id,omitempty"`
	Priority    int              `json:"priority"`
	ExpiresAt   *time.Time       `json:"expires_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// ConversationSummary is one entry of the conversation list: the latest
// message exchanged with a counterpart plus an unread indicator.
type ConversationSummary struct {
	Counterpart UserSummary   `json:"counterpart"`
	LastMessage DirectMessage `json:"last_message"`
	HasUnread   bool          `json:"has_unread"`
}

type UnreadCount struct {
	SenderId string `json:"sender_id"`
	Count    int    `json:"count"`
}

// MessagePayload is the message-created event shape emitted to the
// realtime transport.
type MessagePayload struct {
	Id         string       `json:"id"`
	RoomId     string       `json:"room_id,omitempty"`
	ReceiverId string       `json:"receiver_id,omitempty"`
	SenderId   string       `json:"sender_id"`
	Content    string       `json:"content"`
	Timestamp  time.Time    `json:"timestamp"`
	Sender     UserSummary  `json:"sender"`
	Receiver   *UserSummary `json:"receiver,omitempty"`
}

type MessageUpdatePayload struct {
	MessageId string    `json:"message_id"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}

type MessageDeletePayload struct {
	MessageId string `json:"message_id"`
}

// NotificationListPayload carries a refreshed view of the recipient's
// notifications after a read-state change.
type NotificationListPayload struct {
	Notifications []Notification `json:"notifications"`
	Unread        int            `json:"unread"`
}

// Event is the tagged union of realtime payloads; exactly one field is
// set.
type Event struct {
	MessageCreated      *MessagePayload          `json:"message_created,omitempty"`
	MessageUpdated      *MessageUpdatePayload    `json:"message_updated,omitempty"`
	MessageDeleted      *MessageDeletePayload    `json:"message_deleted,omitempty"`
	NotificationCreated *Notification            `json:"notification_created,omitempty"`
	NotificationList    *NotificationListPayload `json:"notification_list,omitempty"`
	UnreadNotifications *int                     `json:"unread_notifications,omitempty"`
}

package chat

import (
	"log"
	"time"

	"github.com/commhub/chatserver/internal/database"
	"github.com/commhub/chatserver/internal/stats"
	"github.com/commhub/chatserver/internal/types"
)

// Broadcaster is the realtime fan-out surface the service emits events
// through. The websocket gateway implements it; tests substitute a fake.
type Broadcaster interface {
	ToUser(userId string, ev types.Event)
	ToRoom(roomId string, ev types.Event)
	ToConversation(userA, userB string, ev types.Event)
}

// Mailer sends out-of-band alert emails for domain notifications.
type Mailer interface {
	SendTaskAssignedAlert(to, taskTitle string) error
}

type Service struct {
	log    *log.Logger
	db     database.Repository
	stats  stats.StatsProvider
	bc     Broadcaster
	mailer Mailer
}

func NewService(logger *log.Logger, db database.Repository, statsProvider stats.StatsProvider) *Service {
	statsProvider.RegisterMetric(stats.MetricMessagesPersisted)
	statsProvider.RegisterMetric(stats.MetricNotificationsCreated)
	statsProvider.RegisterMetric(stats.MetricMentionsExtracted)

	return &Service{
		log:   logger,
		db:    db,
		stats: statsProvider,
	}
}

// BindGateway attaches the realtime gateway after both sides are
// constructed. The gateway depends on the service for socket-driven
// mutations, so the service cannot take it at construction time.
func (s *Service) BindGateway(bc Broadcaster) {
	s.bc = bc
}

func (s *Service) SetMailer(m Mailer) {
	s.mailer = m
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type PageInfo struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func pageBounds(page, pageSize int) (limit, offset int) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page <= 0 {
		page = 1
	}

	return pageSize, (page - 1) * pageSize
}

func pageInfo(page, pageSize, total int) PageInfo {
	limit, _ := pageBounds(page, pageSize)
	if page <= 0 {
		page = 1
	}

	totalPages := (total + limit - 1) / limit

	return PageInfo{
		Page:       page,
		PageSize:   limit,
		Total:      total,
		TotalPages: totalPages,
	}
}

func userFromDB(u database.User) types.User {
	return types.User{
		Id:           u.Id,
		Username:     u.Username,
		EmailAddress: u.EmailAddress,
		AvatarURL:    u.AvatarURL,
		Role:         types.Role(u.Role),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func roomFromDB(r database.Room) types.Room {
	return types.Room{
		Id:         r.Id,
		ExternalId: r.ExternalId,
		Name:       r.Name,
		IsGroup:    r.IsGroup,
		LeaderId:   r.LeaderId,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func participantFromDB(p database.RoomParticipant) types.RoomParticipant {
	return types.RoomParticipant{
		RoomId:     p.RoomId,
		UserId:     p.UserId,
		JoinedAt:   p.JoinedAt,
		LastReadAt: p.LastReadAt,
	}
}

func hubMessageFromDB(m database.HubMessage) types.HubMessage {
	return types.HubMessage{
		Id:       m.Id,
		RoomId:   m.RoomId,
		SenderId: m.SenderId,
		Content:  m.Content,
		Deleted:  m.Deleted,
		Sender: types.UserSummary{
			Id:        m.SenderId,
			Username:  m.SenderUsername,
			AvatarURL: m.SenderAvatarURL,
			Role:      types.Role(m.SenderRole),
		},
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func directMessageFromDB(m database.DirectMessage) types.DirectMessage {
	return types.DirectMessage{
		Id:         m.Id,
		SenderId:   m.SenderId,
		ReceiverId: m.ReceiverId,
		Content:    m.Content,
		Read:       m.Read,
		Deleted:    m.Deleted,
		Sender: types.UserSummary{
			Id:        m.SenderId,
			Username:  m.SenderUsername,
			AvatarURL: m.SenderAvatarURL,
			Role:      types.Role(m.SenderRole),
		},
		Receiver: types.UserSummary{
			Id:        m.ReceiverId,
			Username:  m.ReceiverUsername,
			AvatarURL: m.ReceiverAvatarURL,
			Role:      types.Role(m.ReceiverRole),
		},
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func notificationFromDB(n database.Notification) types.Notification {
	return types.Notification{
		Id:          n.Id,
		RecipientId: n.RecipientId,
		Type:        types.NotificationType(n.Type),
		Message:     n.Message,
		Read:        n.Read,
		RelatedId:   n.RelatedId,
		RelatedType: n.RelatedType,
		SenderId:    n.SenderId,
		MessageId:   n.MessageId,
		RoomId:      n.RoomId,
		Priority:    n.Priority,
		ExpiresAt:   n.ExpiresAt,
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
	}
}

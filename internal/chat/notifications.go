package chat

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/commhub/chatserver/internal/database"
	"github.com/commhub/chatserver/internal/stats"
	"github.com/commhub/chatserver/internal/types"
)

// notificationPreviewLen bounds the message excerpt embedded in a
// notification row.
const notificationPreviewLen = 50

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= notificationPreviewLen {
		return content
	}
	return string(runes[:notificationPreviewLen]) + "..."
}

// createNotification persists a notification row and pushes it to the
// recipient's channel. The id and timestamps are always generated here;
// storage defaults are never relied on.
func (s *Service) createNotification(n database.Notification) error {
	n.Id = uuid.NewString()
	n.CreatedAt = Now()
	n.UpdatedAt = n.CreatedAt

	if err := s.db.CreateNotification(n); err != nil {
		return fmt.Errorf("create %s notification for %s: %w", n.Type, n.RecipientId, err)
	}
	s.stats.Incr(stats.MetricNotificationsCreated)

	if s.bc != nil {
		out := notificationFromDB(n)
		s.bc.ToUser(n.RecipientId, types.Event{NotificationCreated: &out})
	}

	return nil
}

// fanOutMentions creates one mention notification per user referenced in
// the message. The sender never receives one, and ids that don't belong
// to a real account are dropped.
func (s *Service) fanOutMentions(sender types.User, msg types.HubMessage) error {
	ids := ExtractMentions(msg.Content)
	if len(ids) == 0 {
		return nil
	}
	s.stats.Incr(stats.MetricMentionsExtracted)

	mentioned, err := s.db.GetAccountsByIds(ids)
	if err != nil {
		return fmt.Errorf("resolve mentioned users: %w", err)
	}

	var errs []error
	for _, user := range mentioned {
		if user.Id == sender.Id {
			continue
		}

		err := s.createNotification(database.Notification{
			RecipientId: user.Id,
			Type:        string(types.NotificationMention),
			Message:     fmt.Sprintf("%s mentioned you: %s", sender.Username, preview(msg.Content)),
			RelatedId:   msg.Id,
			RelatedType: "HubMessage",
			SenderId:    sender.Id,
			MessageId:   msg.Id,
			RoomId:      msg.RoomId,
			Priority:    types.PriorityNormal,
		})
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// notifyDirectMessage notifies the receiver of a new direct message.
// Direct messages outrank mentions in priority.
func (s *Service) notifyDirectMessage(sender types.User, msg types.DirectMessage) error {
	return s.createNotification(database.Notification{
		RecipientId: msg.ReceiverId,
		Type:        string(types.NotificationDirectMessage),
		Message:     fmt.Sprintf("New message from %s: %s", sender.Username, preview(msg.Content)),
		RelatedId:   msg.Id,
		RelatedType: "DirectMessage",
		SenderId:    sender.Id,
		MessageId:   msg.Id,
		Priority:    types.PriorityHigh,
	})
}

// notifyHubMessageChanged notifies a single counterpart, the hub room
// leader, of an edit or soft-delete. Edit/delete targeting is
// deliberately narrower than mention fanout.
func (s *Service) notifyHubMessageChanged(actor types.User, msg database.HubMessage, kind types.NotificationType) error {
	room, err := s.GetHubRoom()
	if err != nil {
		return err
	}
	if room.LeaderId == actor.Id {
		return nil
	}

	verb := "edited"
	if kind == types.NotificationMessageDeleted {
		verb = "deleted"
	}

	return s.createNotification(database.Notification{
		RecipientId: room.LeaderId,
		Type:        string(kind),
		Message:     fmt.Sprintf("%s %s a message: %s", actor.Username, verb, preview(msg.Content)),
		RelatedId:   msg.Id,
		RelatedType: "HubMessage",
		SenderId:    actor.Id,
		MessageId:   msg.Id,
		RoomId:      msg.RoomId,
		Priority:    types.PriorityLow,
	})
}

// notifyDirectMessageChanged notifies the non-acting end of the pair of
// an edit or soft-delete.
func (s *Service) notifyDirectMessageChanged(actor types.User, msg database.DirectMessage, kind types.NotificationType) error {
	recipient := msg.ReceiverId
	if recipient == actor.Id {
		recipient = msg.SenderId
	}
	if recipient == actor.Id {
		return nil
	}

	verb := "edited"
	if kind == types.NotificationMessageDeleted {
		verb = "deleted"
	}

	return s.createNotification(database.Notification{
		RecipientId: recipient,
		Type:        string(kind),
		Message:     fmt.Sprintf("%s %s a message: %s", actor.Username, verb, preview(msg.Content)),
		RelatedId:   msg.Id,
		RelatedType: "DirectMessage",
		SenderId:    actor.Id,
		MessageId:   msg.Id,
		Priority:    types.PriorityLow,
	})
}

type CreateNotificationParams struct {
	RecipientId string                 `json:"recipient_id"`
	Type        types.NotificationType `json:"type"`
	Message     string                 `json:"message"`
	RelatedId   string                 `json:"related_id"`
	RelatedType string                 `json:"related_type"`
	Priority    int                    `json:"priority"`
}

// CreateDomainNotification lets an admin create a notification of one of
// the platform's domain kinds (task assigned, event reminder, ...). A
// task-assignment additionally triggers an alert email when a mailer is
// configured.
func (s *Service) CreateDomainNotification(actor types.User, params CreateNotificationParams) error {
	switch actor.Role {
	case types.RoleAdmin:
	case types.RoleMember:
		return ErrForbidden
	default:
		return ErrForbidden
	}

	if !params.Type.Valid() || params.Message == "" || params.RecipientId == "" {
		return ErrValidation
	}

	recipient, err := s.db.GetAccountById(params.RecipientId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("load recipient: %w", err)
	}

	if err := s.createNotification(database.Notification{
		RecipientId: recipient.Id,
		Type:        string(params.Type),
		Message:     params.Message,
		RelatedId:   params.RelatedId,
		RelatedType: params.RelatedType,
		SenderId:    actor.Id,
		Priority:    params.Priority,
	}); err != nil {
		return err
	}

	if params.Type == types.NotificationTaskAssigned && s.mailer != nil {
		if err := s.mailer.SendTaskAssignedAlert(recipient.EmailAddress, params.Message); err != nil {
			s.log.Println("task assignment mail:", err)
		}
	}

	return nil
}

// ListNotifications returns the user's notifications newest first,
// optionally filtered by kind.
func (s *Service) ListNotifications(user types.User, notificationType string, page, pageSize int) ([]types.Notification, PageInfo, error) {
	if notificationType != "" && !types.NotificationType(notificationType).Valid() {
		return nil, PageInfo{}, ErrValidation
	}

	limit, offset := pageBounds(page, pageSize)
	dbNotifs, total, err := s.db.ListNotifications(user.Id, notificationType, limit, offset)
	if err != nil {
		return nil, PageInfo{}, fmt.Errorf("list notifications: %w", err)
	}

	notifications := make([]types.Notification, len(dbNotifs))
	for i, n := range dbNotifs {
		notifications[i] = notificationFromDB(n)
	}

	return notifications, pageInfo(page, pageSize, total), nil
}

func (s *Service) UnreadNotificationCount(userId string) (int, error) {
	return s.db.CountUnreadNotifications(userId)
}

// MarkNotificationRead flips a single notification's read flag. The read
// flag only ever moves false to true; re-marking is a no-op.
func (s *Service) MarkNotificationRead(user types.User, id string) error {
	n, err := s.db.GetNotificationById(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("load notification: %w", err)
	}
	if n.RecipientId != user.Id {
		return ErrForbidden
	}
	if n.Read {
		return nil
	}

	return s.db.MarkNotificationRead(id, Now())
}

func (s *Service) MarkAllNotificationsRead(user types.User) error {
	return s.db.MarkAllNotificationsRead(user.Id, Now())
}

// DeleteNotification removes a notification on the recipient's request.
func (s *Service) DeleteNotification(user types.User, id string) error {
	n, err := s.db.GetNotificationById(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("load notification: %w", err)
	}
	if n.RecipientId != user.Id {
		return ErrForbidden
	}

	return s.db.DeleteNotification(id, user.Id)
}

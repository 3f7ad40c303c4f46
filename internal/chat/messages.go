package chat

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/commhub/chatserver/internal/database"
	"github.com/commhub/chatserver/internal/stats"
	"github.com/commhub/chatserver/internal/types"
)

// CreateHubMessage persists a hub message for sender, fans out mention
// notifications and broadcasts the message to the hub room channel. The
// sender is joined to the hub first so membership is guaranteed before
// the write.
func (s *Service) CreateHubMessage(sender types.User, content string) (types.HubMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return types.HubMessage{}, ErrValidation
	}

	room, err := s.GetHubRoom()
	if err != nil {
		return types.HubMessage{}, err
	}

	if _, err := s.AddUserToRoom(sender.Id, room.Id); err != nil {
		return types.HubMessage{}, err
	}

	now := Now()
	msg := database.HubMessage{
		Id:        uuid.NewString(),
		RoomId:    room.Id,
		SenderId:  sender.Id,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.db.CreateHubMessage(msg); err != nil {
		return types.HubMessage{}, fmt.Errorf("create hub message: %w", err)
	}
	s.stats.Incr(stats.MetricMessagesPersisted)

	out := hubMessageFromDB(msg)
	out.Sender = sender.Summary()

	// notification fanout is best-effort and never fails the send
	if err := s.fanOutMentions(sender, out); err != nil {
		s.log.Println("mention fanout:", err)
	}

	if s.bc != nil {
		s.bc.ToRoom(room.Id, types.Event{MessageCreated: &types.MessagePayload{
			Id:        out.Id,
			RoomId:    out.RoomId,
			SenderId:  out.SenderId,
			Content:   out.Content,
			Timestamp: out.CreatedAt,
			Sender:    out.Sender,
		}})
	}

	return out, nil
}

// GetHubMessage fetches a single hub message by id, including its
// soft-delete flag.
func (s *Service) GetHubMessage(id string) (types.HubMessage, error) {
	msg, err := s.db.GetHubMessageById(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.HubMessage{}, ErrNotFound
		}
		return types.HubMessage{}, err
	}
	return hubMessageFromDB(msg), nil
}

// GetHubMessages lists non-deleted hub messages newest first. The caller
// is joined to the hub if not already a member and their last-read stamp
// is advanced.
func (s *Service) GetHubMessages(user types.User, page, pageSize int) ([]types.HubMessage, PageInfo, error) {
	room, err := s.GetHubRoom()
	if err != nil {
		return nil, PageInfo{}, err
	}

	if _, err := s.AddUserToRoom(user.Id, room.Id); err != nil {
		return nil, PageInfo{}, err
	}

	limit, offset := pageBounds(page, pageSize)
	dbMsgs, total, err := s.db.ListHubMessages(room.Id, limit, offset)
	if err != nil {
		return nil, PageInfo{}, fmt.Errorf("list hub messages: %w", err)
	}

	if err := s.UpdateLastRead(user.Id, room.Id); err != nil {
		s.log.Println("update last read:", err)
	}

	messages := make([]types.HubMessage, len(dbMsgs))
	for i, m := range dbMsgs {
		messages[i] = hubMessageFromDB(m)
	}

	return messages, pageInfo(page, pageSize, total), nil
}

// UpdateHubMessage edits a hub message's content. The original sender or
// an admin may edit; anyone else gets ErrForbidden.
func (s *Service) UpdateHubMessage(actor types.User, id, content string) (types.HubMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return types.HubMessage{}, ErrValidation
	}

	msg, err := s.db.GetHubMessageById(id)
	res, err := Authorize(actor, msg.SenderId, err, true)
	if err != nil {
		return types.HubMessage{}, fmt.Errorf("load hub message: %w", err)
	}
	if res != AuthzOK {
		return types.HubMessage{}, res.Err()
	}
	if msg.Deleted {
		return types.HubMessage{}, ErrNotFound
	}

	now := Now()
	if err := s.db.UpdateHubMessageContent(id, content, now); err != nil {
		return types.HubMessage{}, fmt.Errorf("update hub message: %w", err)
	}

	msg.Content = content
	msg.UpdatedAt = now

	if err := s.notifyHubMessageChanged(actor, msg, types.NotificationMessageEdited); err != nil {
		s.log.Println("edit notification:", err)
	}

	if s.bc != nil {
		s.bc.ToRoom(msg.RoomId, types.Event{MessageUpdated: &types.MessageUpdatePayload{
			MessageId: msg.Id,
			Content:   content,
			UpdatedAt: now,
		}})
	}

	return hubMessageFromDB(msg), nil
}

// DeleteHubMessage soft-deletes a hub message; the row is retained with
// its delete flag set. Same authorization rule as edits.
func (s *Service) DeleteHubMessage(actor types.User, id string) error {
	msg, err := s.db.GetHubMessageById(id)
	res, err := Authorize(actor, msg.SenderId, err, true)
	if err != nil {
		return fmt.Errorf("load hub message: %w", err)
	}
	if res != AuthzOK {
		return res.Err()
	}
	if msg.Deleted {
		return ErrNotFound
	}

	if err := s.db.SoftDeleteHubMessage(id, Now()); err != nil {
		return fmt.Errorf("delete hub message: %w", err)
	}

	if err := s.notifyHubMessageChanged(actor, msg, types.NotificationMessageDeleted); err != nil {
		s.log.Println("delete notification:", err)
	}

	if s.bc != nil {
		s.bc.ToRoom(msg.RoomId, types.Event{MessageDeleted: &types.MessageDeletePayload{
			MessageId: msg.Id,
		}})
	}

	return nil
}

// SendDirectMessage persists a 1:1 message, notifies the receiver and
// broadcasts to the conversation channel shared by the pair.
func (s *Service) SendDirectMessage(sender types.User, receiverId, content string) (types.DirectMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return types.DirectMessage{}, ErrValidation
	}

	dbReceiver, err := s.db.GetAccountById(receiverId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.DirectMessage{}, ErrNotFound
		}
		return types.DirectMessage{}, fmt.Errorf("load receiver: %w", err)
	}
	receiver := userFromDB(dbReceiver)

	now := Now()
	msg := database.DirectMessage{
		Id:         uuid.NewString(),
		SenderId:   sender.Id,
		ReceiverId: receiver.Id,
		Content:    content,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.db.CreateDirectMessage(msg); err != nil {
		return types.DirectMessage{}, fmt.Errorf("create direct message: %w", err)
	}
	s.stats.Incr(stats.MetricMessagesPersisted)

	out := directMessageFromDB(msg)
	out.Sender = sender.Summary()
	out.Receiver = receiver.Summary()

	if err := s.notifyDirectMessage(sender, out); err != nil {
		s.log.Println("direct message notification:", err)
	}

	if s.bc != nil {
		receiverSummary := out.Receiver
		s.bc.ToConversation(sender.Id, receiver.Id, types.Event{MessageCreated: &types.MessagePayload{
			Id:         out.Id,
			ReceiverId: out.ReceiverId,
			SenderId:   out.SenderId,
			Content:    out.Content,
			Timestamp:  out.CreatedAt,
			Sender:     out.Sender,
			Receiver:   &receiverSummary,
		}})
	}

	return out, nil
}

// GetDirectMessage fetches a single direct message by id, including its
// soft-delete flag.
func (s *Service) GetDirectMessage(id string) (types.DirectMessage, error) {
	msg, err := s.db.GetDirectMessageById(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.DirectMessage{}, ErrNotFound
		}
		return types.DirectMessage{}, err
	}
	return directMessageFromDB(msg), nil
}

// GetDirectMessages lists the non-deleted messages between user and
// counterpart, matched in either direction, newest first.
func (s *Service) GetDirectMessages(user types.User, counterpartId string, page, pageSize int) ([]types.DirectMessage, PageInfo, error) {
	limit, offset := pageBounds(page, pageSize)
	dbMsgs, total, err := s.db.ListDirectMessages(user.Id, counterpartId, limit, offset)
	if err != nil {
		return nil, PageInfo{}, fmt.Errorf("list direct messages: %w", err)
	}

	messages := make([]types.DirectMessage, len(dbMsgs))
	for i, m := range dbMsgs {
		messages[i] = directMessageFromDB(m)
	}

	return messages, pageInfo(page, pageSize, total), nil
}

// UpdateDirectMessage edits a direct message. Only the original sender
// may edit; there is no admin override on the direct path.
func (s *Service) UpdateDirectMessage(actor types.User, id, content string) (types.DirectMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return types.DirectMessage{}, ErrValidation
	}

	msg, err := s.db.GetDirectMessageById(id)
	res, err := Authorize(actor, msg.SenderId, err, false)
	if err != nil {
		return types.DirectMessage{}, fmt.Errorf("load direct message: %w", err)
	}
	if res != AuthzOK {
		return types.DirectMessage{}, res.Err()
	}
	if msg.Deleted {
		return types.DirectMessage{}, ErrNotFound
	}

	now := Now()
	if err := s.db.UpdateDirectMessageContent(id, content, now); err != nil {
		return types.DirectMessage{}, fmt.Errorf("update direct message: %w", err)
	}

	msg.Content = content
	msg.UpdatedAt = now

	if err := s.notifyDirectMessageChanged(actor, msg, types.NotificationMessageEdited); err != nil {
		s.log.Println("edit notification:", err)
	}

	if s.bc != nil {
		s.bc.ToConversation(msg.SenderId, msg.ReceiverId, types.Event{MessageUpdated: &types.MessageUpdatePayload{
			MessageId: msg.Id,
			Content:   content,
			UpdatedAt: now,
		}})
	}

	return directMessageFromDB(msg), nil
}

// DeleteDirectMessage soft-deletes a direct message; sender only.
func (s *Service) DeleteDirectMessage(actor types.User, id string) error {
	msg, err := s.db.GetDirectMessageById(id)
	res, err := Authorize(actor, msg.SenderId, err, false)
	if err != nil {
		return fmt.Errorf("load direct message: %w", err)
	}
	if res != AuthzOK {
		return res.Err()
	}
	if msg.Deleted {
		return ErrNotFound
	}

	if err := s.db.SoftDeleteDirectMessage(id, Now()); err != nil {
		return fmt.Errorf("delete direct message: %w", err)
	}

	if err := s.notifyDirectMessageChanged(actor, msg, types.NotificationMessageDeleted); err != nil {
		s.log.Println("delete notification:", err)
	}

	if s.bc != nil {
		s.bc.ToConversation(msg.SenderId, msg.ReceiverId, types.Event{MessageDeleted: &types.MessageDeletePayload{
			MessageId: msg.Id,
		}})
	}

	return nil
}

// MarkConversationRead flips the read flag on all unread messages sent
// by counterpart to user and clears the matching direct-message
// notifications. Already-read messages are untouched, so repeating the
// call is a no-op.
func (s *Service) MarkConversationRead(user types.User, counterpartId string) error {
	now := Now()
	if err := s.db.MarkDirectMessagesRead(counterpartId, user.Id, now); err != nil {
		return fmt.Errorf("mark messages read: %w", err)
	}

	if err := s.db.MarkConversationNotificationsRead(user.Id, counterpartId, now); err != nil {
		s.log.Println("mark conversation notifications read:", err)
	}

	return nil
}

// GetUnreadMessageCounts reports, per distinct sender, how many unread
// direct messages the user has.
func (s *Service) GetUnreadMessageCounts(userId string) ([]types.UnreadCount, error) {
	dbCounts, err := s.db.CountUnreadBySender(userId)
	if err != nil {
		return nil, fmt.Errorf("count unread: %w", err)
	}

	counts := make([]types.UnreadCount, len(dbCounts))
	for i, c := range dbCounts {
		counts[i] = types.UnreadCount{SenderId: c.SenderId, Count: c.Count}
	}
	return counts, nil
}

// GetRecentConversations returns, for every counterpart the user has
// exchanged messages with, the most recent non-deleted message and an
// unread indicator, ordered by that message's timestamp (id as the
// secondary key so equal timestamps cannot reorder between calls).
func (s *Service) GetRecentConversations(user types.User) ([]types.ConversationSummary, error) {
	partners, err := s.db.ListConversationPartners(user.Id)
	if err != nil {
		return nil, fmt.Errorf("list conversation partners: %w", err)
	}

	summaries := make([]types.ConversationSummary, 0, len(partners))
	for _, partnerId := range partners {
		latest, err := s.db.GetLatestDirectMessage(user.Id, partnerId)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// every message with this counterpart has been deleted
				continue
			}
			return nil, fmt.Errorf("latest message with %s: %w", partnerId, err)
		}

		hasUnread, err := s.db.HasUnreadFrom(partnerId, user.Id)
		if err != nil {
			return nil, fmt.Errorf("unread check for %s: %w", partnerId, err)
		}

		msg := directMessageFromDB(latest)
		counterpart := msg.Sender
		if msg.SenderId == user.Id {
			counterpart = msg.Receiver
		}

		summaries = append(summaries, types.ConversationSummary{
			Counterpart: counterpart,
			LastMessage: msg,
			HasUnread:   hasUnread,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		a, b := summaries[i].LastMessage, summaries[j].LastMessage
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.Id > b.Id
	})

	return summaries, nil
}

package database

import (
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

const (
	userColumns = "id, username, email, password_hash, avatar_url, role, created_at, updated_at"
)

func scanUser(row sq.RowScanner) (User, error) {
	var u User
	err := row.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.PasswordHash,
		&u.AvatarURL,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

func (db *PgRepository) CreateAccount(params CreateAccountParams) (User, error) {
	now := time.Now().UTC()
	row := db.conn.QueryRow(
		"INSERT INTO accounts (id, username, email, password_hash, avatar_url, role, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING "+userColumns,
		params.Id,
		params.Username,
		params.EmailAddress,
		params.PasswordHash,
		params.AvatarURL,
		params.Role,
		now,
		now,
	)

	return scanUser(row)
}

func (db *PgRepository) GetAccountById(id string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT "+userColumns+" FROM accounts WHERE id = $1 LIMIT 1", id,
	)
	return scanUser(row)
}

func (db *PgRepository) GetAccountByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT "+userColumns+" FROM accounts WHERE email = $1 LIMIT 1", email,
	)
	return scanUser(row)
}

func (db *PgRepository) GetAccountsByIds(ids []string) ([]User, error) {
	if len(ids) == 0 {
		return []User{}, nil
	}

	query, args, err := db.sb.
		Select("id", "username", "email", "password_hash", "avatar_url", "role", "created_at", "updated_at").
		From("accounts").
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users = make([]User, 0, len(ids))
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (db *PgRepository) GetFirstAdmin() (User, error) {
	row := db.conn.QueryRow(
		"SELECT "+userColumns+" FROM accounts WHERE role = 'admin' ORDER BY created_at ASC LIMIT 1",
	)
	return scanUser(row)
}

func (db *PgRepository) GetRoomByName(name string, isGroup bool) (Room, error) {
	row := db.conn.QueryRow(
		"SELECT id, external_id, name, is_group, leader_id, created_at, updated_at FROM rooms "+
			"WHERE name = $1 AND is_group = $2 LIMIT 1",
		name,
		isGroup,
	)

	var room Room
	err := row.Scan(
		&room.Id,
		&room.ExternalId,
		&room.Name,
		&room.IsGroup,
		&room.LeaderId,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	return room, err
}

func (db *PgRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	now := time.Now().UTC()
	row := db.conn.QueryRow(
		"INSERT INTO rooms (id, external_id, name, is_group, leader_id, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7) "+
			"RETURNING id, external_id, name, is_group, leader_id, created_at, updated_at",
		params.Id,
		params.ExternalId,
		params.Name,
		params.IsGroup,
		params.LeaderId,
		now,
		now,
	)

	var room Room
	err := row.Scan(
		&room.Id,
		&room.ExternalId,
		&room.Name,
		&room.IsGroup,
		&room.LeaderId,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	return room, err
}

func (db *PgRepository) GetParticipant(roomId, userId string) (RoomParticipant, error) {
	row := db.conn.QueryRow(
		"SELECT room_id, user_id, joined_at, last_read_at FROM room_participants "+
			"WHERE room_id = $1 AND user_id = $2 LIMIT 1",
		roomId,
		userId,
	)

	var p RoomParticipant
	var lastRead sql.NullTime
	err := row.Scan(&p.RoomId, &p.UserId, &p.JoinedAt, &lastRead)
	if lastRead.Valid {
		p.LastReadAt = &lastRead.Time
	}
	return p, err
}

func (db *PgRepository) CreateParticipant(roomId, userId string, at time.Time) (RoomParticipant, error) {
	row := db.conn.QueryRow(
		"INSERT INTO room_participants (room_id, user_id, joined_at) "+
			"VALUES ($1, $2, $3) RETURNING room_id, user_id, joined_at",
		roomId,
		userId,
		at,
	)

	var p RoomParticipant
	err := row.Scan(&p.RoomId, &p.UserId, &p.JoinedAt)
	return p, err
}

func (db *PgRepository) DeleteParticipant(roomId, userId string) error {
	_, err := db.conn.Exec(
		"DELETE FROM room_participants WHERE room_id = $1 AND user_id = $2",
		roomId,
		userId,
	)
	return err
}

func (db *PgRepository) UpdateLastRead(roomId, userId string, at time.Time) (int64, error) {
	res, err := db.conn.Exec(
		"UPDATE room_participants SET last_read_at = $3 WHERE room_id = $1 AND user_id = $2",
		roomId,
		userId,
		at,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (db *PgRepository) CreateHubMessage(msg HubMessage) error {
	_, err := db.conn.Exec(
		"INSERT INTO hub_messages (id, room_id, sender_id, content, deleted, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, false, $5, $6)",
		msg.Id,
		msg.RoomId,
		msg.SenderId,
		msg.Content,
		msg.CreatedAt,
		msg.CreatedAt,
	)
	return err
}

func (db *PgRepository) GetHubMessageById(id string) (HubMessage, error) {
	row := db.conn.QueryRow(
		"SELECT id, room_id, sender_id, content, deleted, created_at, updated_at "+
			"FROM hub_messages WHERE id = $1 LIMIT 1",
		id,
	)

	var msg HubMessage
	err := row.Scan(
		&msg.Id,
		&msg.RoomId,
		&msg.SenderId,
		&msg.Content,
		&msg.Deleted,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)
	return msg, err
}

func (db *PgRepository) ListHubMessages(roomId string, limit, offset int) ([]HubMessage, int, error) {
	var total int
	if err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM hub_messages WHERE room_id = $1 AND deleted = false",
		roomId,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	query, args, err := db.sb.
		Select("m.id", "m.room_id", "m.sender_id", "m.content", "m.created_at", "m.updated_at",
			"a.username", "a.avatar_url", "a.role").
		From("hub_messages m").
		Join("accounts a ON m.sender_id = a.id").
		Where(sq.Eq{"m.room_id": roomId, "m.deleted": false}).
		OrderBy("m.created_at DESC", "m.id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query: %w", err)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var messages = make([]HubMessage, 0, limit)
	for rows.Next() {
		var msg HubMessage
		if err := rows.Scan(
			&msg.Id,
			&msg.RoomId,
			&msg.SenderId,
			&msg.Content,
			&msg.CreatedAt,
			&msg.UpdatedAt,
			&msg.SenderUsername,
			&msg.SenderAvatarURL,
			&msg.SenderRole,
		); err != nil {
			return nil, 0, err
		}
		messages = append(messages, msg)
	}
	return messages, total, rows.Err()
}

func (db *PgRepository) UpdateHubMessageContent(id, content string, at time.Time) error {
	_, err := db.conn.Exec(
		"UPDATE hub_messages SET content = $2, updated_at = $3 WHERE id = $1",
		id,
		content,
		at,
	)
	return err
}

func (db *PgRepository) SoftDeleteHubMessage(id string, at time.Time) error {
	_, err := db.conn.Exec(
		"UPDATE hub_messages SET deleted = true, updated_at = $2 WHERE id = $1",
		id,
		at,
	)
	return err
}

func pairFilter(userA, userB string) sq.Or {
	return sq.Or{
		sq.Eq{"m.sender_id": userA, "m.receiver_id": userB},
		sq.Eq{"m.sender_id": userB, "m.receiver_id": userA},
	}
}

func (db *PgRepository) CreateDirectMessage(msg DirectMessage) error {
	_, err := db.conn.Exec(
		"INSERT INTO direct_messages (id, sender_id, receiver_id, content, read, deleted, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, false, false, $5, $6)",
		msg.Id,
		msg.SenderId,
		msg.ReceiverId,
		msg.Content,
		msg.CreatedAt,
		msg.CreatedAt,
	)
	return err
}

func (db *PgRepository) GetDirectMessageById(id string) (DirectMessage, error) {
	row := db.conn.QueryRow(
		"SELECT id, sender_id, receiver_id, content, read, deleted, created_at, updated_at "+
			"FROM direct_messages WHERE id = $1 LIMIT 1",
		id,
	)

	var msg DirectMessage
	err := row.Scan(
		&msg.Id,
		&msg.SenderId,
		&msg.ReceiverId,
		&msg.Content,
		&msg.Read,
		&msg.Deleted,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)
	return msg, err
}

func (db *PgRepository) ListDirectMessages(userA, userB string, limit, offset int) ([]DirectMessage, int, error) {
	countQuery, countArgs, err := db.sb.
		Select("COUNT(*)").
		From("direct_messages m").
		Where(sq.And{sq.Eq{"m.deleted": false}, pairFilter(userA, userB)}).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}

	var total int
	if err := db.conn.QueryRow(countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query, args, err := db.sb.
		Select("m.id", "m.sender_id", "m.receiver_id", "m.content", "m.read", "m.created_at", "m.updated_at",
			"s.username", "s.avatar_url", "s.role",
			"r.username", "r.avatar_url", "r.role").
		From("direct_messages m").
		Join("accounts s ON m.sender_id = s.id").
		Join("accounts r ON m.receiver_id = r.id").
		Where(sq.And{sq.Eq{"m.deleted": false}, pairFilter(userA, userB)}).
		OrderBy("m.created_at DESC", "m.id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query: %w", err)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var messages = make([]DirectMessage, 0, limit)
	for rows.Next() {
		var msg DirectMessage
		if err := rows.Scan(
			&msg.Id,
			&msg.SenderId,
			&msg.ReceiverId,
			&msg.Content,
			&msg.Read,
			&msg.CreatedAt,
			&msg.UpdatedAt,
			&msg.SenderUsername,
			&msg.SenderAvatarURL,
			&msg.SenderRole,
			&msg.ReceiverUsername,
			&msg.ReceiverAvatarURL,
			&msg.ReceiverRole,
		); err != nil {
			return nil, 0, err
		}
		messages = append(messages, msg)
	}
	return messages, total, rows.Err()
}

func (db *PgRepository) UpdateDirectMessageContent(id, content string, at time.Time) error {
	_, err := db.conn.Exec(
		"UPDATE direct_messages SET content = $2, updated_at = $3 WHERE id = $1",
		id,
		content,
		at,
	)
	return err
}

func (db *PgRepository) SoftDeleteDirectMessage(id string, at time.Time) error {
	_, err := db.conn.Exec(
		"UPDATE direct_messages SET deleted = true, updated_at = $2 WHERE id = $1",
		id,
		at,
	)
	return err
}

func (db *PgRepository) MarkDirectMessagesRead(senderId, receiverId string, at time.Time) error {
	_, err := db.conn.Exec(
		"UPDATE direct_messages SET read = true, updated_at = $3 "+
			"WHERE sender_id = $1 AND receiver_id = $2 AND read = false AND deleted = false",
		senderId,
		receiverId,
		at,
	)
	return err
}

func (db *PgRepository) CountUnreadBySender(receiverId string) ([]UnreadCount, error) {
	rows, err := db.conn.Query(
		"SELECT sender_id, COUNT(*) FROM direct_messages "+
			"WHERE receiver_id = $1 AND read = false AND deleted = false GROUP BY sender_id",
		receiverId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts = make([]UnreadCount, 0)
	for rows.Next() {
		var c UnreadCount
		if err := rows.Scan(&c.SenderId, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func (db *PgRepository) ListConversationPartners(userId string) ([]string, error) {
	rows, err := db.conn.Query(
		"SELECT DISTINCT CASE WHEN sender_id = $1 THEN receiver_id ELSE sender_id END "+
			"FROM direct_messages WHERE (sender_id = $1 OR receiver_id = $1) AND deleted = false",
		userId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var partners = make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		partners = append(partners, id)
	}
	return partners, rows.Err()
}

func (db *PgRepository) GetLatestDirectMessage(userA, userB string) (DirectMessage, error) {
	query, args, err := db.sb.
		Select("m.id", "m.sender_id", "m.receiver_id", "m.content", "m.read", "m.created_at", "m.updated_at",
			"s.username", "s.avatar_url", "s.role",
			"r.username", "r.avatar_url", "r.role").
		From("direct_messages m").
		Join("accounts s ON m.sender_id = s.id").
		Join("accounts r ON m.receiver_id = r.id").
		Where(sq.And{sq.Eq{"m.deleted": false}, pairFilter(userA, userB)}).
		OrderBy("m.created_at DESC", "m.id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return DirectMessage{}, fmt.Errorf("build query: %w", err)
	}

	row := db.conn.QueryRow(query, args...)

	var msg DirectMessage
	err = row.Scan(
		&msg.Id,
		&msg.SenderId,
		&msg.ReceiverId,
		&msg.Content,
		&msg.Read,
		&msg.CreatedAt,
		&msg.UpdatedAt,
		&msg.SenderUsername,
		&msg.SenderAvatarURL,
		&msg.SenderRole,
		&msg.ReceiverUsername,
		&msg.ReceiverAvatarURL,
		&msg.ReceiverRole,
	)
	return msg, err
}

func (db *PgRepository) HasUnreadFrom(senderId, receiverId string) (bool, error) {
	var exists bool
	err := db.conn.QueryRow(
		"SELECT EXISTS (SELECT 1 FROM direct_messages "+
			"WHERE sender_id = $1 AND receiver_id = $2 AND read = false AND deleted = false)",
		senderId,
		receiverId,
	).Scan(&exists)
	return exists, err
}

func (db *PgRepository) CreateNotification(n Notification) error {
	_, err := db.conn.Exec(
		"INSERT INTO notifications (id, recipient_id, type, message, read, related_id, related_type, "+
			"sender_id, message_id, room_id, priority, expires_at, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, false, $5, $6, $7, $8, $9, $10, $11, $12, $13)",
		n.Id,
		n.RecipientId,
		n.Type,
		n.Message,
		n.RelatedId,
		n.RelatedType,
		n.SenderId,
		n.MessageId,
		n.RoomId,
		n.Priority,
		n.ExpiresAt,
		n.CreatedAt,
		n.CreatedAt,
	)
	return err
}

const notificationColumns = "id, recipient_id, type, message, read, related_id, related_type, " +
	"sender_id, message_id, room_id, priority, expires_at, created_at, updated_at"

func scanNotification(row sq.RowScanner) (Notification, error) {
	var n Notification
	var expires sql.NullTime
	err := row.Scan(
		&n.Id,
		&n.RecipientId,
		&n.Type,
		&n.Message,
		&n.Read,
		&n.RelatedId,
		&n.RelatedType,
		&n.SenderId,
		&n.MessageId,
		&n.RoomId,
		&n.Priority,
		&expires,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if expires.Valid {
		n.ExpiresAt = &expires.Time
	}
	return n, err
}

func (db *PgRepository) GetNotificationById(id string) (Notification, error) {
	row := db.conn.QueryRow(
		"SELECT "+notificationColumns+" FROM notifications WHERE id = $1 LIMIT 1", id,
	)
	return scanNotification(row)
}

func (db *PgRepository) ListNotifications(recipientId, notificationType string, limit, offset int) ([]Notification, int, error) {
	where := sq.And{sq.Eq{"recipient_id": recipientId}}
	if notificationType != "" {
		where = append(where, sq.Eq{"type": notificationType})
	}

	countQuery, countArgs, err := db.sb.
		Select("COUNT(*)").
		From("notifications").
		Where(where).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}

	var total int
	if err := db.conn.QueryRow(countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query, args, err := db.sb.
		Select("id", "recipient_id", "type", "message", "read", "related_id", "related_type",
			"sender_id", "message_id", "room_id", "priority", "expires_at", "created_at", "updated_at").
		From("notifications").
		Where(where).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query: %w", err)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var notifications = make([]Notification, 0, limit)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		notifications = append(notifications, n)
	}
	return notifications, total, rows.Err()
}

func (db *PgRepository) CountUnreadNotifications(recipientId string) (int, error) {
	var count int
	err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND read = false",
		recipientId,
	).Scan(&count)
	return count, err
}

func (db *PgRepository) MarkNotificationRead(id string, at time.Time) error {
	_, err := db.conn.Exec(
		"UPDATE notifications SET read = true, updated_at = $2 WHERE id = $1",
		id,
		at,
	)
	return err
}

func (db *PgRepository) MarkAllNotificationsRead(recipientId string, at time.Time) error {
	_, err := db.conn.Exec(
		"UPDATE notifications SET read = true, updated_at = $2 WHERE recipient_id = $1 AND read = false",
		recipientId,
		at,
	)
	return err
}

func (db *PgRepository) MarkConversationNotificationsRead(recipientId, senderId string, at time.Time) error {
	_, err := db.conn.Exec(
		"UPDATE notifications SET read = true, updated_at = $3 "+
			"WHERE recipient_id = $1 AND sender_id = $2 AND type = 'direct_message' AND read = false",
		recipientId,
		senderId,
		at,
	)
	return err
}

func (db *PgRepository) DeleteNotification(id, recipientId string) error {
	_, err := db.conn.Exec(
		"DELETE FROM notifications WHERE id = $1 AND recipient_id = $2",
		id,
		recipientId,
	)
	return err
}

package chat

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/teris-io/shortid"

	"github.com/commhub/chatserver/internal/database"
	"github.com/commhub/chatserver/internal/types"
)

// HubRoomName identifies the singleton shared room every member
// implicitly belongs to. The (name, group-flag) pair is unique by
// convention.
const HubRoomName = "General"

// GetHubRoom returns the hub room, creating it on first access with the
// oldest administrator account as leader. Returns ErrNoAdminAvailable if
// no administrator exists yet; the directory cannot resolve that itself.
func (s *Service) GetHubRoom() (types.Room, error) {
	room, err := s.db.GetRoomByName(HubRoomName, true)
	if err == nil {
		return roomFromDB(room), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return types.Room{}, fmt.Errorf("get hub room: %w", err)
	}

	admin, err := s.db.GetFirstAdmin()
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Room{}, ErrNoAdminAvailable
		}
		return types.Room{}, fmt.Errorf("find admin for hub room: %w", err)
	}

	sid, err := shortid.Generate()
	if err != nil {
		return types.Room{}, fmt.Errorf("generate room external id: %w", err)
	}

	created, err := s.db.CreateRoom(database.CreateRoomParams{
		Id:         uuid.NewString(),
		ExternalId: sid,
		Name:       HubRoomName,
		IsGroup:    true,
		LeaderId:   admin.Id,
	})
	if err != nil {
		return types.Room{}, fmt.Errorf("create hub room: %w", err)
	}

	s.log.Printf("created hub room %q led by %q", created.Id, admin.Username)
	return roomFromDB(created), nil
}

func (s *Service) IsUserInRoom(userId, roomId string) (bool, error) {
	_, err := s.db.GetParticipant(roomId, userId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// AddUserToRoom joins a user to a room. Joining twice is a no-op that
// returns the existing membership row.
func (s *Service) AddUserToRoom(userId, roomId string) (types.RoomParticipant, error) {
	existing, err := s.db.GetParticipant(roomId, userId)
	if err == nil {
		return participantFromDB(existing), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return types.RoomParticipant{}, fmt.Errorf("check membership: %w", err)
	}

	created, err := s.db.CreateParticipant(roomId, userId, Now())
	if err != nil {
		return types.RoomParticipant{}, fmt.Errorf("create membership: %w", err)
	}
	return participantFromDB(created), nil
}

func (s *Service) RemoveUserFromRoom(userId, roomId string) error {
	return s.db.DeleteParticipant(roomId, userId)
}

// UpdateLastRead stamps the current time on the user's membership row.
// Without a membership row this is a silent no-op; callers always join
// before they read.
func (s *Service) UpdateLastRead(userId, roomId string) error {
	_, err := s.db.UpdateLastRead(roomId, userId, Now())
	return err
}

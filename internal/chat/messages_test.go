package chat

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/commhub/chatserver/internal/database"
	"github.com/commhub/chatserver/internal/types"
)

var (
	testSender = types.User{
		Id:       "11111111-1111-1111-1111-111111111111",
		Username: "alice",
		Role:     types.RoleMember,
	}
	testReceiver = types.User{
		Id:       "22222222-2222-2222-2222-222222222222",
		Username: "bob",
		Role:     types.RoleMember,
	}
	testAdmin = types.User{
		Id:       "33333333-3333-3333-3333-333333333333",
		Username: "carol",
		Role:     types.RoleAdmin,
	}
)

func hubRoomStubs(db *database.MockRepository, userId string) {
	db.On("GetRoomByName", HubRoomName, true).Return(database.Room{
		Id:       "room-1",
		Name:     HubRoomName,
		IsGroup:  true,
		LeaderId: testAdmin.Id,
	}, nil)
	db.On("GetParticipant", "room-1", userId).Return(database.RoomParticipant{
		RoomId: "room-1",
		UserId: userId,
	}, nil)
}

func TestCreateHubMessage(t *testing.T) {
	t.Run("rejects empty content", func(t *testing.T) {
		db := &database.MockRepository{}
		svc, _ := newTestService(t, db)

		_, err := svc.CreateHubMessage(testSender, "   ")
		assert.ErrorIs(t, err, ErrValidation, "expected validation error")
		db.AssertNotCalled(t, "CreateHubMessage", mock.Anything)
	})

	t.Run("persists and broadcasts", func(t *testing.T) {
		db := &database.MockRepository{}
		hubRoomStubs(db, testSender.Id)
		db.On("CreateHubMessage", mock.MatchedBy(func(m database.HubMessage) bool {
			return m.Id != "" && m.RoomId == "room-1" &&
				m.SenderId == testSender.Id && m.Content == "hello hub"
		})).Return(nil)

		svc, bc := newTestService(t, db)

		msg, err := svc.CreateHubMessage(testSender, "hello hub")
		assert.NoError(t, err, "expected no error")
		assert.Equal(t, "hello hub", msg.Content, "expected content to match")
		assert.Equal(t, testSender.Username, msg.Sender.Username, "expected sender summary")

		events := bc.roomEvents["room-1"]
		assert.Len(t, events, 1, "expected one room broadcast")
		assert.NotNil(t, events[0].MessageCreated, "expected message created event")
		db.AssertExpectations(t)
	})

	t.Run("fans out mention notifications", func(t *testing.T) {
		db := &database.MockRepository{}
		hubRoomStubs(db, testSender.Id)
		db.On("CreateHubMessage", mock.Anything).Return(nil)
		db.On("GetAccountsByIds", []string{testReceiver.Id}).Return([]database.User{
			{Id: testReceiver.Id, Username: testReceiver.Username},
		}, nil)
		db.On("CreateNotification", mock.MatchedBy(func(n database.Notification) bool {
			return n.RecipientId == testReceiver.Id &&
				n.Type == string(types.NotificationMention) &&
				n.SenderId == testSender.Id &&
				n.Priority == types.PriorityNormal
		})).Return(nil)

		svc, bc := newTestService(t, db)

		_, err := svc.CreateHubMessage(testSender, "ping @"+testReceiver.Id)
		assert.NoError(t, err, "expected no error")
		assert.Len(t, bc.userEvents[testReceiver.Id], 1, "expected notification pushed to mentioned user")
		db.AssertExpectations(t)
	})

	t.Run("never notifies a self-mention", func(t *testing.T) {
		db := &database.MockRepository{}
		hubRoomStubs(db, testSender.Id)
		db.On("CreateHubMessage", mock.Anything).Return(nil)
		db.On("GetAccountsByIds", []string{testSender.Id}).Return([]database.User{
			{Id: testSender.Id, Username: testSender.Username},
		}, nil)

		svc, _ := newTestService(t, db)

		_, err := svc.CreateHubMessage(testSender, "note to self @"+testSender.Id)
		assert.NoError(t, err, "expected no error")
		db.AssertNotCalled(t, "CreateNotification", mock.Anything)
	})

	t.Run("fanout failure does not fail the send", func(t *testing.T) {
		db := &database.MockRepository{}
		hubRoomStubs(db, testSender.Id)
		db.On("CreateHubMessage", mock.Anything).Return(nil)
		db.On("GetAccountsByIds", mock.Anything).Return([]database.User{}, sql.ErrConnDone)

		svc, _ := newTestService(t, db)

		_, err := svc.CreateHubMessage(testSender, "ping @"+testReceiver.Id)
		assert.NoError(t, err, "expected send to succeed despite fanout failure")
	})
}

func TestGetHubMessage(t *testing.T) {
	t.Run("soft-deleted row is returned with its flag set", func(t *testing.T) {
		db := &database.MockRepository{}
		db.On("GetHubMessageById", "msg-1").Return(database.HubMessage{
			Id:       "msg-1",
			RoomId:   "room-1",
			SenderId: testSender.Id,
			Content:  "since removed",
			Deleted:  true,
		}, nil)

		svc, _ := newTestService(t, db)

		msg, err := svc.GetHubMessage("msg-1")
		assert.NoError(t, err, "expected no error")
		assert.True(t, msg.Deleted, "expected delete flag retained")
		assert.Equal(t, "since removed", msg.Content, "expected content retained")
	})

	t.Run("missing row is not found", func(t *testing.T) {
		db := &database.MockRepository{}
		db.On("GetHubMessageById", "nope").Return(database.HubMessage{}, sql.ErrNoRows)

		svc, _ := newTestService(t, db)

		_, err := svc.GetHubMessage("nope")
		assert.ErrorIs(t, err, ErrNotFound, "expected not found")
	})
}

func TestUpdateHubMessage(t *testing.T) {
	existing := database.HubMessage{
		Id:       "msg-1",
		RoomId:   "room-1",
		SenderId: testSender.Id,
		Content:  "original",
	}

	t.Run("owner edits", func(t *testing.T) {
		db := &database.MockRepository{}
		db.On("GetHubMessageById", "msg-1").Return(existing, nil)
		db.On("UpdateHubMessageContent", "msg-1", "edited", mock.Anything).Return(nil)
		db.On("GetRoomByName", HubRoomName, true).Return(database.Room{
			Id:       "room-1",
			LeaderId: testAdmin.Id,
		}, nil)
		db.On("CreateNotification", mock.MatchedBy(func(n database.Notification) bool {
			return n.RecipientId == testAdmin.Id &&
				n.Type == string(types.NotificationMessageEdited) &&
				n.Priority == types.PriorityLow
		})).Return(nil)

		svc, bc := newTestService(t, db)

		msg, err := svc.UpdateHubMessage(testSender, "msg-1", "edited")
		assert.NoError(t, err, "expected no error")
		assert.Equal(t, "edited", msg.Content, "expected updated content")

		events := bc.roomEvents["room-1"]
		assert.Len(t, events, 1, "expected one room broadcast")
		assert.NotNil(t, events[0].MessageUpdated, "expected update event")
		db.AssertExpectations(t)
	})

	t.Run("non-owner member forbidden", func(t *testing.T) {
		db := &database.MockRepository{}
		db.On("GetHubMessageById", "msg-1").Return(existing, nil)

		svc, _ := newTestService(t, db)

		_, err := svc.UpdateHubMessage(testReceiver, "msg-1", "edited")
		assert.ErrorIs(t, err, ErrForbidden, "expected forbidden")
		db.AssertNotCalled(t, "UpdateHubMessageContent", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("admin may edit another member's message", func(t *testing.T) {
		db := &database.MockRepository{}
		db.On("GetHubMessageById", "msg-1").Return(existing, nil)
		db.On("UpdateHubMessageContent", "msg-1", "moderated", mock.Anything).Return(nil)
		db.On("GetRoomByName", HubRoomName, true).Return(database.Room{
			Id:       "room-1",
			LeaderId: testAdmin.Id,
		}, nil)

		svc, _ := newTestService(t, db)

		_, err := svc.UpdateHubMessage(testAdmin, "msg-1", "moderated")
		assert.NoError(t, err, "expected admin override to pass")
		// acting admin is the hub leader here, so no self-notification
		db.AssertNotCalled(t, "CreateNotification", mock.Anything)
	})

	t.Run("deleted message reads as missing", func(t *testing.T) {
		deleted := existing
		deleted.Deleted = true

		db := &database.MockRepository{}
		db.On("GetHubMessageById", "msg-1").Return(deleted, nil)

		svc, _ := newTestService(t, db)

		_, err := svc.UpdateHubMessage(testSender, "msg-1", "edited")
		assert.ErrorIs(t, err, ErrNotFound, "expected not found for deleted message")
	})

	t.Run("unknown message", func(t *testing.T) {
		db := &database.MockRepository{}
		db.On("GetHubMessageById", "nope").Return(database.HubMessage{}, sql.ErrNoRows)

		svc, _ := newTestService(t, db)

		_, err := svc.UpdateHubMessage(testSender, "nope", "edited")
		assert.ErrorIs(t, err, ErrNotFound, "expected not found")
	})
}

func TestDeleteHubMessage(t *testing.T) {
	existing := database.HubMessage{
		Id:       "msg-1",
		RoomId:   "room-1",
		SenderId: testSender.Id,
		Content:  "original",
	}

	t.Run("soft-deletes and broadcasts", func(t *testing.T) {
		db := &database.MockRepository{}
		db.On("GetHubMessageById", "msg-1").Return(existing, nil)
		db.On("SoftDeleteHubMessage", "msg-1", mock.Anything).Return(nil)
		db.On("GetRoomByName", HubRoomName, true).Return(database.Room{
			Id:       "room-1",
			LeaderId: testAdmin.Id,
		}, nil)
		db.On("CreateNotification", mock.MatchedBy(func(n database.Notification) bool {
			return n.Type == string(types.NotificationMessageDeleted)
		})).Return(nil)

		svc, bc := newTestService(t, db)

		err := svc.DeleteHubMessage(testSender, "msg-1")
		assert.NoError(t, err, "expected no error")

		events := bc.roomEvents["room-1"]
		assert.Len(t, events, 1, "expected one room broadcast")
		assert.NotNil(t, events[0].MessageDeleted, "expected delete event")
		db.AssertExpectations(t)
	})

	t.Run("double delete reads as missing", func(t *testing.T) {
		deleted := existing
		deleted.Deleted = true

		db := &database.MockRepository{}
		db.On("GetHubMessageById", "msg-1").Return(deleted, nil)

		svc, _ := newTestService(t, db)

		err := svc.DeleteHubMessage(testSender, "msg-1")
		assert.ErrorIs(t, err, ErrNotFound, "expected not found for already-deleted message")
		db.AssertNotCalled(t, "SoftDeleteHubMessage", mock.Anything, mock.Anything)
	})
}

func TestSendDirectMessage(t *testing.T) {
	t.Run("unknown receiver", func(t *testing.T) {
		db := &database.MockRepository{}
		db.On("GetAccountById", "ghost").Return(database.User{}, sql.ErrNoRows)

		svc, _ := newTestService(t, db)

		_, err := svc.SendDirectMessage(testSender, "ghost", "hi")
		assert.ErrorIs(t, err, ErrNotFound, "expected not found")
		db.AssertNotCalled(t, "CreateDirectMessage", mock.Anything)
	})

	t.Run("persists, notifies and broadcasts", func(t *testing.T) {
		db := &database.MockRepository{}
		db.On("GetAccountById", testReceiver.Id).Return(database.User{
			Id:       testReceiver.Id,
			Username: testReceiver.Username,
		}, nil)
		db.On("CreateDirectMessage", mock.MatchedBy(func(m database.DirectMessage) bool {
			return m.Id != "" && m.SenderId == testSender.Id &&
				m.ReceiverId == testReceiver.Id && m.Content == "hi bob"
		})).Return(nil)
		db.On("CreateNotification", mock.MatchedBy(func(n database.Notification) bool {
			return n.RecipientId == testReceiver.Id &&
				n.Type == string(types.NotificationDirectMessage) &&
				n.Priority == types.PriorityHigh
		})).Return(nil)

		svc, bc := newTestService(t, db)

		msg, err := svc.SendDirectMessage(testSender, testReceiver.Id, "hi bob")
		assert.NoError(t, err, "expected no error")
		assert.Equal(t, testReceiver.Id, msg.ReceiverId, "expected receiver to match")

		assert.Len(t, bc.convEvents, 1, "expected one conversation broadcast")
		assert.NotNil(t, bc.convEvents[0].MessageCreated, "expected message created event")
		assert.Len(t, bc.userEvents[testReceiver.Id], 1, "expected notification pushed to receiver")
		db.AssertExpectations(t)
	})

	t.Run("rejects empty content", func(t *testing.T) {
		db := &database.MockRepository{}
		svc, _ := newTestService(t, db)

		_, err := svc.SendDirectMessage(testSender, testReceiver.Id, "")
		assert.ErrorIs(t, err, ErrValidation, "expected validation error")
	})
}

func TestGetDirectMessage(t *testing.T) {
	t.Run("soft-deleted row is returned with its flag set", func(t *testing.T) {
		db := &database.MockRepository{}
		db.On("GetDirectMessageById", "dm-1").Return(database.DirectMessage{
			Id:         "dm-1",
			SenderId:   testSender.Id,
			ReceiverId: testReceiver.Id,
			Content:    "since removed",
			Deleted:    true,
		}, nil)

		svc, _ := newTestService(t, db)

		msg, err := svc.GetDirectMessage("dm-1")
		assert.NoError(t, err, "expected no error")
		assert.True(t, msg.Deleted, "expected delete flag retained")
		assert.Equal(t, "since removed", msg.Content, "expected content retained")
	})

	t.Run("missing row is not found", func(t *testing.T) {
		db := &database.MockRepository{}
		db.On("GetDirectMessageById", "nope").Return(database.DirectMessage{}, sql.ErrNoRows)

		svc, _ := newTestService(t, db)

		_, err := svc.GetDirectMessage("nope")
		assert.ErrorIs(t, err, ErrNotFound, "expected not found")
	})
}

func TestUpdateDirectMessage(t *testing.T) {
	existing := database.DirectMessage{
		Id:         "dm-1",
		SenderId:   testSender.Id,
		ReceiverId: testReceiver.Id,
		Content:    "original",
	}

	t.Run("sender edits", func(t *testing.T) {
		db := &database.MockRepository{}
		db.On("GetDirectMessageById", "dm-1").Return(existing, nil)
		db.On("UpdateDirectMessageContent", "dm-1", "edited", mock.Anything).Return(nil)
		db.On("CreateNotification", mock.MatchedBy(func(n database.Notification) bool {
			return n.RecipientId == testReceiver.Id &&
				n.Type == string(types.NotificationMessageEdited)
		})).Return(nil)

		svc, bc := newTestService(t, db)

		msg, err := svc.UpdateDirectMessage(testSender, "dm-1", "edited")
		assert.NoError(t, err, "expected no error")
		assert.Equal(t, "edited", msg.Content, "expected updated content")
		assert.Len(t, bc.convEvents, 1, "expected one conversation broadcast")
		db.AssertExpectations(t)
	})

	t.Run("no admin override on direct messages", func(t *testing.T) {
		db := &database.MockRepository{}
		db.On("GetDirectMessageById", "dm-1").Return(existing, nil)

		svc, _ := newTestService(t, db)

		_, err := svc.UpdateDirectMessage(testAdmin, "dm-1", "moderated")
		assert.ErrorIs(t, err, ErrForbidden, "expected forbidden even for admin")
		db.AssertNotCalled(t, "UpdateDirectMessageContent", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("receiver may not edit", func(t *testing.T) {
		db := &database.MockRepository{}
		db.On("GetDirectMessageById", "dm-1").Return(existing, nil)

		svc, _ := newTestService(t, db)

		_, err := svc.UpdateDirectMessage(testReceiver, "dm-1", "edited")
		assert.ErrorIs(t, err, ErrForbidden, "expected forbidden for receiver")
	})
}

func TestDeleteDirectMessage(t *testing.T) {
	existing := database.DirectMessage{
		Id:         "dm-1",
		SenderId:   testSender.Id,
		ReceiverId: testReceiver.Id,
		Content:    "original",
	}

	db := &database.MockRepository{}
	db.On("GetDirectMessageById", "dm-1").Return(existing, nil)
	db.On("SoftDeleteDirectMessage", "dm-1", mock.Anything).Return(nil)
	db.On("CreateNotification", mock.MatchedBy(func(n database.Notification) bool {
		return n.RecipientId == testReceiver.Id &&
			n.Type == string(types.NotificationMessageDeleted)
	})).Return(nil)

	svc, bc := newTestService(t, db)

	err := svc.DeleteDirectMessage(testSender, "dm-1")
	assert.NoError(t, err, "expected no error")
	assert.Len(t, bc.convEvents, 1, "expected one conversation broadcast")
	assert.NotNil(t, bc.convEvents[0].MessageDeleted, "expected delete event")
	db.AssertExpectations(t)
}

func TestMarkConversationRead(t *testing.T) {
	t.Run("marks messages and clears notifications", func(t *testing.T) {
		db := &database.MockRepository{}
		db.On("MarkDirectMessagesRead", testReceiver.Id, testSender.Id, mock.Anything).Return(nil)
		db.On("MarkConversationNotificationsRead", testSender.Id, testReceiver.Id, mock.Anything).Return(nil)

		svc, _ := newTestService(t, db)

		err := svc.MarkConversationRead(testSender, testReceiver.Id)
		assert.NoError(t, err, "expected no error")
		db.AssertExpectations(t)
	})

	t.Run("notification sync failure is tolerated", func(t *testing.T) {
		db := &database.MockRepository{}
		db.On("MarkDirectMessagesRead", testReceiver.Id, testSender.Id, mock.Anything).Return(nil)
		db.On("MarkConversationNotificationsRead", testSender.Id, testReceiver.Id, mock.Anything).Return(sql.ErrConnDone)

		svc, _ := newTestService(t, db)

		err := svc.MarkConversationRead(testSender, testReceiver.Id)
		assert.NoError(t, err, "expected read marking to succeed")
	})
}

func TestGetUnreadMessageCounts(t *testing.T) {
	db := &database.MockRepository{}
	db.On("CountUnreadBySender", testSender.Id).Return([]database.UnreadCount{
		{SenderId: testReceiver.Id, Count: 3},
	}, nil)

	svc, _ := newTestService(t, db)

	counts, err := svc.GetUnreadMessageCounts(testSender.Id)
	assert.NoError(t, err, "expected no error")
	assert.Len(t, counts, 1, "expected one sender bucket")
	assert.Equal(t, 3, counts[0].Count, "expected count to match")
}

func TestGetRecentConversations(t *testing.T) {
	base := time.Date(2026, time.August, 1, 12, 0, 0, 0, time.UTC)
	third := "44444444-4444-4444-4444-444444444444"

	db := &database.MockRepository{}
	db.On("ListConversationPartners", testSender.Id).Return([]string{testReceiver.Id, testAdmin.Id, third}, nil)
	db.On("GetLatestDirectMessage", testSender.Id, testReceiver.Id).Return(database.DirectMessage{
		Id:               "dm-old",
		SenderId:         testReceiver.Id,
		ReceiverId:       testSender.Id,
		Content:          "older",
		SenderUsername:   testReceiver.Username,
		ReceiverUsername: testSender.Username,
		CreatedAt:        base,
	}, nil)
	db.On("GetLatestDirectMessage", testSender.Id, testAdmin.Id).Return(database.DirectMessage{
		Id:               "dm-new",
		SenderId:         testSender.Id,
		ReceiverId:       testAdmin.Id,
		Content:          "newer",
		SenderUsername:   testSender.Username,
		ReceiverUsername: testAdmin.Username,
		CreatedAt:        base.Add(time.Hour),
	}, nil)
	// all messages with the third partner were deleted
	db.On("GetLatestDirectMessage", testSender.Id, third).Return(database.DirectMessage{}, sql.ErrNoRows)
	db.On("HasUnreadFrom", testReceiver.Id, testSender.Id).Return(true, nil)
	db.On("HasUnreadFrom", testAdmin.Id, testSender.Id).Return(false, nil)

	svc, _ := newTestService(t, db)

	summaries, err := svc.GetRecentConversations(testSender)
	assert.NoError(t, err, "expected no error")
	assert.Len(t, summaries, 2, "expected fully-deleted conversation to be skipped")

	assert.Equal(t, "dm-new", summaries[0].LastMessage.Id, "expected newest conversation first")
	assert.Equal(t, testAdmin.Username, summaries[0].Counterpart.Username, "expected counterpart to be the non-acting end")
	assert.False(t, summaries[0].HasUnread, "expected no unread for first conversation")

	assert.Equal(t, "dm-old", summaries[1].LastMessage.Id, "expected older conversation second")
	assert.Equal(t, testReceiver.Username, summaries[1].Counterpart.Username, "expected sender as counterpart")
	assert.True(t, summaries[1].HasUnread, "expected unread flag for second conversation")
}

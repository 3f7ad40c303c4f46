package chat

import (
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/commhub/chatserver/internal/database"
	"github.com/commhub/chatserver/internal/types"
)

type fakeMailer struct {
	sent []string
	err  error
}

func (f *fakeMailer) SendTaskAssignedAlert(to, taskTitle string) error {
	f.sent = append(f.sent, to)
	return f.err
}

func TestPreview(t *testing.T) {
	tcases := []struct {
		name     string
		content  string
		expected string
	}{
		{
			name:     "short content unchanged",
			content:  "hello",
			expected: "hello",
		},
		{
			name:     "exactly at the limit unchanged",
			content:  strings.Repeat("a", notificationPreviewLen),
			expected: strings.Repeat("a", notificationPreviewLen),
		},
		{
			name:     "long content truncated with ellipsis",
			content:  strings.Repeat("a", notificationPreviewLen+10),
			expected: strings.Repeat("a", notificationPreviewLen) + "...",
		},
		{
			name:     "multibyte content truncated on rune boundary",
			content:  strings.Repeat("é", notificationPreviewLen+1),
			expected: strings.Repeat("é", notificationPreviewLen) + "...",
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, preview(tc.content), "expected preview to match")
		})
	}
}

func TestCreateDomainNotification(t *testing.T) {
	params := CreateNotificationParams{
		RecipientId: testReceiver.Id,
		Type:        types.NotificationTaskAssigned,
		Message:     "Prepare the quarterly report",
		Priority:    types.PriorityNormal,
	}

	t.Run("member is forbidden", func(t *testing.T) {
		db := &database.MockRepository{}
		svc, _ := newTestService(t, db)

		err := svc.CreateDomainNotification(testSender, params)
		assert.ErrorIs(t, err, ErrForbidden, "expected forbidden for member")
		db.AssertNotCalled(t, "CreateNotification", mock.Anything)
	})

	t.Run("invalid type rejected", func(t *testing.T) {
		db := &database.MockRepository{}
		svc, _ := newTestService(t, db)

		bad := params
		bad.Type = "fax_received"
		err := svc.CreateDomainNotification(testAdmin, bad)
		assert.ErrorIs(t, err, ErrValidation, "expected validation error")
	})

	t.Run("unknown recipient", func(t *testing.T) {
		db := &database.MockRepository{}
		db.On("GetAccountById", testReceiver.Id).Return(database.User{}, sql.ErrNoRows)

		svc, _ := newTestService(t, db)

		err := svc.CreateDomainNotification(testAdmin, params)
		assert.ErrorIs(t, err, ErrNotFound, "expected not found")
	})

	t.Run("task assignment sends mail", func(t *testing.T) {
		db := &database.MockRepository{}
		db.On("GetAccountById", testReceiver.Id).Return(database.User{
			Id:           testReceiver.Id,
			EmailAddress: "bob@example.com",
		}, nil)
		db.On("CreateNotification", mock.MatchedBy(func(n database.Notification) bool {
			return n.RecipientId == testReceiver.Id &&
				n.Type == string(types.NotificationTaskAssigned) &&
				n.SenderId == testAdmin.Id && n.Id != ""
		})).Return(nil)

		svc, bc := newTestService(t, db)
		mailer := &fakeMailer{}
		svc.SetMailer(mailer)

		err := svc.CreateDomainNotification(testAdmin, params)
		assert.NoError(t, err, "expected no error")
		assert.Equal(t, []string{"bob@example.com"}, mailer.sent, "expected alert mail to recipient")
		assert.Len(t, bc.userEvents[testReceiver.Id], 1, "expected notification pushed to recipient")
		db.AssertExpectations(t)
	})

	t.Run("event reminder does not send mail", func(t *testing.T) {
		db := &database.MockRepository{}
		db.On("GetAccountById", testReceiver.Id).Return(database.User{Id: testReceiver.Id}, nil)
		db.On("CreateNotification", mock.Anything).Return(nil)

		svc, _ := newTestService(t, db)
		mailer := &fakeMailer{}
		svc.SetMailer(mailer)

		reminder := params
		reminder.Type = types.NotificationEventReminder
		err := svc.CreateDomainNotification(testAdmin, reminder)
		assert.NoError(t, err, "expected no error")
		assert.Empty(t, mailer.sent, "expected no mail for event reminder")
	})
}

func TestListNotifications(t *testing.T) {
	t.Run("rejects unknown type filter", func(t *testing.T) {
		db := &database.MockRepository{}
		svc, _ := newTestService(t, db)

		_, _, err := svc.ListNotifications(testSender, "carrier_pigeon", 1, 10)
		assert.ErrorIs(t, err, ErrValidation, "expected validation error")
	})

	t.Run("returns page info", func(t *testing.T) {
		db := &database.MockRepository{}
		db.On("ListNotifications", testSender.Id, "", 10, 0).Return([]database.Notification{
			{Id: "n-1", RecipientId: testSender.Id, Type: string(types.NotificationMention)},
		}, 25, nil)

		svc, _ := newTestService(t, db)

		notifications, info, err := svc.ListNotifications(testSender, "", 1, 10)
		assert.NoError(t, err, "expected no error")
		assert.Len(t, notifications, 1, "expected one notification on this page")
		assert.Equal(t, 3, info.TotalPages, "expected 25 rows at page size 10 to span 3 pages")
	})
}

func TestMarkNotificationRead(t *testing.T) {
	t.Run("marks unread notification", func(t *testing.T) {
		db := &database.MockRepository{}
		db.On("GetNotificationById", "n-1").Return(database.Notification{
			Id:          "n-1",
			RecipientId: testSender.Id,
		}, nil)
		db.On("MarkNotificationRead", "n-1", mock.Anything).Return(nil)

		svc, _ := newTestService(t, db)

		err := svc.MarkNotificationRead(testSender, "n-1")
		assert.NoError(t, err, "expected no error")
		db.AssertExpectations(t)
	})

	t.Run("re-marking is a no-op", func(t *testing.T) {
		db := &database.MockRepository{}
		db.On("GetNotificationById", "n-1").Return(database.Notification{
			Id:          "n-1",
			RecipientId: testSender.Id,
			Read:        true,
		}, nil)

		svc, _ := newTestService(t, db)

		err := svc.MarkNotificationRead(testSender, "n-1")
		assert.NoError(t, err, "expected no error")
		db.AssertNotCalled(t, "MarkNotificationRead", mock.Anything, mock.Anything)
	})

	t.Run("only the recipient may mark", func(t *testing.T) {
		db := &database.MockRepository{}
		db.On("GetNotificationById", "n-1").Return(database.Notification{
			Id:          "n-1",
			RecipientId: testSender.Id,
		}, nil)

		svc, _ := newTestService(t, db)

		err := svc.MarkNotificationRead(testReceiver, "n-1")
		assert.ErrorIs(t, err, ErrForbidden, "expected forbidden")
	})

	t.Run("unknown notification", func(t *testing.T) {
		db := &database.MockRepository{}
		db.On("GetNotificationById", "nope").Return(database.Notification{}, sql.ErrNoRows)

		svc, _ := newTestService(t, db)

		err := svc.MarkNotificationRead(testSender, "nope")
		assert.ErrorIs(t, err, ErrNotFound, "expected not found")
	})
}

func TestDeleteNotification(t *testing.T) {
	t.Run("recipient deletes", func(t *testing.T) {
		db := &database.MockRepository{}
		db.On("GetNotificationById", "n-1").Return(database.Notification{
			Id:          "n-1",
			RecipientId: testSender.Id,
		}, nil)
		db.On("DeleteNotification", "n-1", testSender.Id).Return(nil)

		svc, _ := newTestService(t, db)

		err := svc.DeleteNotification(testSender, "n-1")
		assert.NoError(t, err, "expected no error")
		db.AssertExpectations(t)
	})

	t.Run("non-recipient forbidden", func(t *testing.T) {
		db := &database.MockRepository{}
		db.On("GetNotificationById", "n-1").Return(database.Notification{
			Id:          "n-1",
			RecipientId: testSender.Id,
		}, nil)

		svc, _ := newTestService(t, db)

		err := svc.DeleteNotification(testReceiver, "n-1")
		assert.ErrorIs(t, err, ErrForbidden, "expected forbidden")
		db.AssertNotCalled(t, "DeleteNotification", mock.Anything, mock.Anything)
	})
}

package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleMember.Valid(), "expected member to be valid")
	assert.True(t, RoleAdmin.Valid(), "expected admin to be valid")
	assert.False(t, Role("superuser").Valid(), "expected unknown role to be invalid")
	assert.False(t, Role("").Valid(), "expected empty role to be invalid")
}

func TestNotificationTypeValid(t *testing.T) {
	for _, nt := range []NotificationType{
		NotificationDirectMessage, NotificationMention,
		NotificationMessageEdited, NotificationMessageDeleted,
		NotificationTaskAssigned, NotificationEventReminder,
		NotificationInquiryReceived,
	} {
		assert.True(t, nt.Valid(), "expected %s to be valid", nt)
	}

	assert.False(t, NotificationType("carrier_pigeon").Valid(), "expected unknown type to be invalid")
}

func TestUserPasswordNeverSerialized(t *testing.T) {
	u := User{
		Id:       "user-1",
		Username: "alice",
		Password: "plaintext",
		Role:     RoleMember,
	}

	raw, err := json.Marshal(u)
	assert.NoError(t, err, "expected no error")
	assert.NotContains(t, string(raw), "plaintext", "expected password omitted from json")
}

func TestUserSummary(t *testing.T) {
	u := User{
		Id:           "user-1",
		Username:     "alice",
		EmailAddress: "alice@example.com",
		AvatarURL:    "https://example.com/a.png",
		Role:         RoleAdmin,
	}

	s := u.Summary()
	assert.Equal(t, u.Id, s.Id, "expected id to carry over")
	assert.Equal(t, u.Username, s.Username, "expected username to carry over")
	assert.Equal(t, u.AvatarURL, s.AvatarURL, "expected avatar to carry over")
	assert.Equal(t, u.Role, s.Role, "expected role to carry over")
}

func TestPriorityOrdering(t *testing.T) {
	assert.Less(t, PriorityLow, PriorityNormal, "expected low below normal")
	assert.Less(t, PriorityNormal, PriorityHigh, "expected normal below high")
}

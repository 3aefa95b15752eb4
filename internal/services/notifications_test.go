package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationInbox(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	ctx := context.Background()

	a := f.article(t, alice, "Inbox", true)
	f.comment(t, bob, a.ID, "one")
	f.comment(t, bob, a.ID, "two")

	list, err := f.notifications.List(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "bob", list[0].Actor.Username)
	assert.Contains(t, list[0].Reason, "Inbox")
	assert.Greater(t, list[0].ID, list[1].ID)

	unread, err := f.notifications.UnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	assert.ErrorIs(t, f.notifications.MarkRead(ctx, bob.ID, list[0].ID), ErrNotFound)
	assert.ErrorIs(t, f.notifications.MarkRead(ctx, alice.ID, 999), ErrNotFound)

	require.NoError(t, f.notifications.MarkRead(ctx, alice.ID, list[0].ID))
	require.NoError(t, f.notifications.MarkRead(ctx, alice.ID, list[0].ID))
	unread, err = f.notifications.UnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	require.NoError(t, f.notifications.MarkAllRead(ctx, alice.ID))
	unread, err = f.notifications.UnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)

	empty, err := f.notifications.List(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

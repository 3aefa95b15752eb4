package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"quill/internal/models"
	"quill/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.users.Register(ctx, "  alice ", "Alice@Example.COM", "secret1")
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.NotEqual(t, "secret1", u.Password)
	assert.True(t, utils.CheckPasswordHash("secret1", u.Password))
	assert.NotEmpty(t, u.Avatar)

	got, err := f.users.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name     string
		username string
		email    string
		password string
	}{
		{"empty username", "", "a@example.com", "secret1"},
		{"short username", "ab", "a@example.com", "secret1"},
		{"long username", strings.Repeat("a", 31), "a@example.com", "secret1"},
		{"empty email", "alice", "", "secret1"},
		{"bad email", "alice", "not-an-email", "secret1"},
		{"short password", "alice", "a@example.com", "12345"},
		{"empty password", "alice", "a@example.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.users.Register(context.Background(), tt.username, tt.email, tt.password)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
	assert.Zero(t, f.count(t, &models.User{}, ""))
}

func TestRegisterDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.users.Register(ctx, "alice", "alice@example.com", "secret1")
	require.NoError(t, err)

	_, err = f.users.Register(ctx, "alice2", "ALICE@example.com", "secret2")
	require.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "email")

	_, err = f.users.Register(ctx, "alice", "other@example.com", "secret2")
	require.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "username")

	assert.Equal(t, int64(1), f.count(t, &models.User{}, ""))
}

func TestRegisterUniqueIndexIsFinal(t *testing.T) {
	f := newFixture(t)
	f.user(t, "alice")

	// Bypasses the pre-check to hit the index directly.
	err := f.db.Create(&models.User{Username: "bob", Email: "alice@example.com", Password: "x"}).Error
	require.Error(t, err)
	assert.True(t, isDuplicate(err))
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	registered, err := f.users.Register(ctx, "alice", "alice@example.com", "secret1")
	require.NoError(t, err)

	u, err := f.users.Authenticate(ctx, "ALICE@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, u.ID)

	_, wrongPass := f.users.Authenticate(ctx, "alice@example.com", "nope")
	_, unknown := f.users.Authenticate(ctx, "bob@example.com", "secret1")
	require.ErrorIs(t, wrongPass, ErrAuth)
	require.ErrorIs(t, unknown, ErrAuth)
	assert.Equal(t, wrongPass.Error(), unknown.Error())
}

func TestGetUserNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.users.Get(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, IsDomainError(err))
	assert.False(t, IsDomainError(errors.New("disk on fire")))
}

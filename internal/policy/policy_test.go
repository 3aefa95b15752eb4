package policy

import (
	"testing"

	"quill/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCanView(t *testing.T) {
	author := &models.User{ID: 1}
	other := &models.User{ID: 2}
	draft := &models.Article{ID: 10, UserID: author.ID, Published: false}
	published := &models.Article{ID: 11, UserID: author.ID, Published: true}

	tests := []struct {
		name    string
		article *models.Article
		viewer  *models.User
		want    bool
	}{
		{"draft anonymous", draft, nil, false},
		{"draft author", draft, author, true},
		{"draft other user", draft, other, false},
		{"published anonymous", published, nil, true},
		{"published author", published, author, true},
		{"published other user", published, other, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanView(tt.article, tt.viewer))
		})
	}
}

func TestCanEditAndDelete(t *testing.T) {
	author := &models.User{ID: 1}
	other := &models.User{ID: 2}
	for _, published := range []bool{true, false} {
		a := &models.Article{UserID: author.ID, Published: published}

		assert.True(t, CanEdit(a, author))
		assert.True(t, CanDelete(a, author))
		assert.False(t, CanEdit(a, other))
		assert.False(t, CanDelete(a, other))
		assert.False(t, CanEdit(a, nil))
		assert.False(t, CanDelete(a, nil))
	}
}

func TestCanCommentAndReply(t *testing.T) {
	assert.False(t, CanComment(nil))
	assert.False(t, CanReply(nil))
	assert.True(t, CanComment(&models.User{ID: 5}))
	assert.True(t, CanReply(&models.User{ID: 5}))
}

func TestCanDeleteDiscussionNodes(t *testing.T) {
	author := &models.User{ID: 3}
	c := &models.Comment{UserID: author.ID}
	r := &models.Reply{UserID: author.ID}

	assert.True(t, CanDeleteComment(c, author))
	assert.True(t, CanDeleteReply(r, author))
	assert.False(t, CanDeleteComment(c, &models.User{ID: 4}))
	assert.False(t, CanDeleteReply(r, nil))
}

package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"quill/internal/logging"
	"quill/internal/models"
	"quill/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db            *gorm.DB
	clock         *testutil.Clock
	users         *UserService
	articles      *ArticleService
	discussion    *DiscussionService
	notifications *NotificationService
	mailer        *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := testutil.NewDB(t)
	log := logging.Discard()
	clock := testutil.NewClock()
	mailer := &recordingNotifier{}

	f := &fixture{
		db:            conn,
		clock:         clock,
		users:         NewUserService(conn, log),
		articles:      NewArticleService(conn, log),
		discussion:    NewDiscussionService(conn, log, mailer),
		notifications: NewNotificationService(conn),
		mailer:        mailer,
	}
	f.articles.Clock = clock.Now
	f.discussion.Clock = clock.Now
	return f
}

// user inserts an account directly, skipping bcrypt.
func (f *fixture) user(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com", Password: "x", Avatar: "🌱"}
	require.NoError(t, f.db.Create(u).Error)
	return u
}

func (f *fixture) article(t *testing.T, author *models.User, title string, published bool) *models.Article {
	t.Helper()
	a, err := f.articles.Create(context.Background(), author, ArticleInput{Title: title, Body: "body of " + title, Published: published})
	require.NoError(t, err)
	return a
}

func (f *fixture) comment(t *testing.T, author *models.User, articleID uint, body string) *models.Comment {
	t.Helper()
	c, err := f.discussion.AddComment(context.Background(), author, articleID, body)
	require.NoError(t, err)
	return c
}

func (f *fixture) reply(t *testing.T, author *models.User, target Target, body string) *models.Reply {
	t.Helper()
	r, err := f.discussion.AddReply(context.Background(), author, target, body)
	require.NoError(t, err)
	return r
}

func (f *fixture) count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	q := f.db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingNotifier) NotifyDiscussion(recipient, actor *models.User, article *models.Article, body string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf("%s->%s@%d:%s", actor.Username, recipient.Username, article.ID, body))
}

func (r *recordingNotifier) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

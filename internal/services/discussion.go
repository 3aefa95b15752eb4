package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"quill/internal/models"
	"quill/internal/policy"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const bodyMaxLen = 1000

type TargetKind int

const (
	TargetComment TargetKind = iota + 1
	TargetReply
)

// Target names a node of a discussion tree that can receive replies.
type Target struct {
	Kind TargetKind
	ID   uint
}

func CommentTarget(id uint) Target { return Target{Kind: TargetComment, ID: id} }

func ReplyTarget(id uint) Target { return Target{Kind: TargetReply, ID: id} }

// ReplyNode is a reply with its children, oldest first.
type ReplyNode struct {
	models.Reply
	Children []*ReplyNode
}

// CommentThread is a comment with its direct replies, oldest first.
type CommentThread struct {
	models.Comment
	Replies []*ReplyNode
}

// Notifier is told about new comments and replies after they are committed.
type Notifier interface {
	NotifyDiscussion(recipient, actor *models.User, article *models.Article, body string)
}

type DiscussionService struct {
	db       *gorm.DB
	log      logrus.FieldLogger
	notifier Notifier
	Clock    func() time.Time
}

// NewDiscussionService builds the service. notifier may be nil.
func NewDiscussionService(db *gorm.DB, log logrus.FieldLogger, notifier Notifier) *DiscussionService {
	return &DiscussionService{db: db, log: log, notifier: notifier, Clock: time.Now}
}

func validateBody(body, what string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", fmt.Errorf("%w: %s must not be empty", ErrValidation, what)
	}
	if utf8.RuneCountInString(body) > bodyMaxLen {
		return "", fmt.Errorf("%w: %s must be at most %d characters", ErrValidation, what, bodyMaxLen)
	}
	return body, nil
}

// AddComment attaches a new comment to an article. It is visible immediately.
func (s *DiscussionService) AddComment(ctx context.Context, actor *models.User, articleID uint, body string) (*models.Comment, error) {
	if !policy.CanComment(actor) {
		return nil, fmt.Errorf("%w: sign in to comment", ErrPermission)
	}
	body, err := validateBody(body, "comment")
	if err != nil {
		return nil, err
	}

	var (
		article models.Article
		comment models.Comment
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("User").First(&article, articleID).Error; err != nil {
			return notFound(err, "article")
		}

		comment = models.Comment{
			ArticleID: article.ID,
			UserID:    actor.ID,
			Body:      body,
			CreatedAt: s.Clock(),
		}
		if err := tx.Create(&comment).Error; err != nil {
			return fmt.Errorf("create comment: %w", err)
		}

		return createNotification(tx, &article.User, actor, article.ID, models.NotificationTypeCommentArticle,
			fmt.Sprintf("%s commented on your article \"%s\"", actor.Username, article.Title))
	})
	if err != nil {
		return nil, err
	}

	comment.User = *actor
	s.notify(&article.User, actor, &article, body)
	return &comment, nil
}

// AddReply answers a comment or another reply. The new reply always belongs to
// the same comment as its parent; there is no depth limit.
func (s *DiscussionService) AddReply(ctx context.Context, actor *models.User, target Target, body string) (*models.Reply, error) {
	if !policy.CanReply(actor) {
		return nil, fmt.Errorf("%w: sign in to reply", ErrPermission)
	}
	body, err := validateBody(body, "reply")
	if err != nil {
		return nil, err
	}

	var (
		reply     models.Reply
		article   models.Article
		recipient models.User
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ntype models.NotificationType
		switch target.Kind {
		case TargetComment:
			var comment models.Comment
			if err := tx.Preload("User").First(&comment, target.ID).Error; err != nil {
				return notFound(err, "comment")
			}
			reply = models.Reply{CommentID: comment.ID}
			recipient = comment.User
			ntype = models.NotificationTypeReplyComment
		case TargetReply:
			var parent models.Reply
			if err := tx.Preload("User").First(&parent, target.ID).Error; err != nil {
				return notFound(err, "reply")
			}
			parentID := parent.ID
			reply = models.Reply{CommentID: parent.CommentID, ParentID: &parentID}
			recipient = parent.User
			ntype = models.NotificationTypeReplyReply
		default:
			return fmt.Errorf("%w: unknown reply target", ErrValidation)
		}

		var comment models.Comment
		if err := tx.Select("id", "article_id").First(&comment, reply.CommentID).Error; err != nil {
			return notFound(err, "comment")
		}
		if err := tx.Select("id", "title").First(&article, comment.ArticleID).Error; err != nil {
			return notFound(err, "article")
		}

		reply.UserID = actor.ID
		reply.Body = body
		reply.CreatedAt = s.Clock()
		if err := tx.Create(&reply).Error; err != nil {
			return fmt.Errorf("create reply: %w", err)
		}

		return createNotification(tx, &recipient, actor, article.ID, ntype,
			fmt.Sprintf("%s replied to you on \"%s\"", actor.Username, article.Title))
	})
	if err != nil {
		return nil, err
	}

	reply.User = *actor
	s.notify(&recipient, actor, &article, body)
	return &reply, nil
}

func (s *DiscussionService) notify(recipient, actor *models.User, article *models.Article, body string) {
	if s.notifier == nil || recipient.ID == actor.ID {
		return
	}
	s.notifier.NotifyDiscussion(recipient, actor, article, body)
}

// exists answers ErrNotFound when no row of model has the given id.
func exists(db *gorm.DB, model any, id uint, what string) error {
	var n int64
	if err := db.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return fmt.Errorf("load %s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return nil
}

// ListComments returns the comments of an article, most recent first.
func (s *DiscussionService) ListComments(ctx context.Context, articleID uint) ([]models.Comment, error) {
	if err := exists(s.db.WithContext(ctx), &models.Article{}, articleID, "article"); err != nil {
		return nil, err
	}

	var comments []models.Comment
	err := s.db.WithContext(ctx).Preload("User").
		Where("article_id = ?", articleID).
		Order("created_at DESC, id DESC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

// ListDirectReplies returns the immediate children of a comment or reply, oldest first.
func (s *DiscussionService) ListDirectReplies(ctx context.Context, target Target) ([]models.Reply, error) {
	db := s.db.WithContext(ctx)
	q := db.Preload("User")
	switch target.Kind {
	case TargetComment:
		if err := exists(db, &models.Comment{}, target.ID, "comment"); err != nil {
			return nil, err
		}
		q = q.Where("comment_id = ? AND parent_id IS NULL", target.ID)
	case TargetReply:
		if err := exists(db, &models.Reply{}, target.ID, "reply"); err != nil {
			return nil, err
		}
		q = q.Where("parent_id = ?", target.ID)
	default:
		return nil, fmt.Errorf("%w: unknown reply target", ErrValidation)
	}

	var replies []models.Reply
	if err := q.Order("created_at ASC, id ASC").Find(&replies).Error; err != nil {
		return nil, fmt.Errorf("list replies: %w", err)
	}
	return replies, nil
}

// ResolveRootArticle walks from a reply up through its parents to the comment and
// then to the article. Each parent is visited at most once. A parent that no longer
// exists ends the walk and the reply's own comment id is used.
func (s *DiscussionService) ResolveRootArticle(ctx context.Context, replyID uint) (*models.Article, error) {
	db := s.db.WithContext(ctx)

	var reply models.Reply
	if err := db.Select("id", "comment_id", "parent_id").First(&reply, replyID).Error; err != nil {
		return nil, notFound(err, "reply")
	}

	visited := map[uint]bool{reply.ID: true}
	cur := reply
	for cur.ParentID != nil {
		parentID := *cur.ParentID
		if visited[parentID] {
			return nil, fmt.Errorf("reply %d: parent chain loops at reply %d", replyID, parentID)
		}
		visited[parentID] = true

		var parent models.Reply
		err := db.Select("id", "comment_id", "parent_id").First(&parent, parentID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("load reply %d: %w", parentID, err)
		}
		if parent.CommentID != reply.CommentID {
			return nil, fmt.Errorf("reply %d: parent %d belongs to comment %d, not %d",
				cur.ID, parent.ID, parent.CommentID, reply.CommentID)
		}
		cur = parent
	}

	var comment models.Comment
	if err := db.Select("id", "article_id").First(&comment, reply.CommentID).Error; err != nil {
		return nil, notFound(err, "comment")
	}
	var article models.Article
	if err := db.Preload("User").First(&article, comment.ArticleID).Error; err != nil {
		return nil, notFound(err, "article")
	}
	return &article, nil
}

// ArticleFor returns the article that owns a comment or reply.
func (s *DiscussionService) ArticleFor(ctx context.Context, target Target) (*models.Article, error) {
	switch target.Kind {
	case TargetReply:
		return s.ResolveRootArticle(ctx, target.ID)
	case TargetComment:
		var comment models.Comment
		if err := s.db.WithContext(ctx).Select("id", "article_id").First(&comment, target.ID).Error; err != nil {
			return nil, notFound(err, "comment")
		}
		var article models.Article
		if err := s.db.WithContext(ctx).Preload("User").First(&article, comment.ArticleID).Error; err != nil {
			return nil, notFound(err, "article")
		}
		return &article, nil
	default:
		return nil, fmt.Errorf("%w: unknown reply target", ErrValidation)
	}
}

// Thread loads every comment of an article with its full reply tree.
// Comments come newest first, replies oldest first at every level.
func (s *DiscussionService) Thread(ctx context.Context, articleID uint) ([]CommentThread, error) {
	comments, err := s.ListComments(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if len(comments) == 0 {
		return []CommentThread{}, nil
	}

	ids := make([]uint, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
	}
	var replies []models.Reply
	err = s.db.WithContext(ctx).Preload("User").
		Where("comment_id IN ?", ids).
		Order("created_at ASC, id ASC").
		Find(&replies).Error
	if err != nil {
		return nil, fmt.Errorf("load replies: %w", err)
	}

	roots := buildReplyForest(replies)
	threads := make([]CommentThread, len(comments))
	for i, c := range comments {
		threads[i] = CommentThread{Comment: c, Replies: roots[c.ID]}
	}
	return threads, nil
}

// buildReplyForest links replies to their parents and returns the top-level nodes
// per comment. Input order is preserved among siblings. Nodes whose parent is
// missing or sits under another comment are left out.
func buildReplyForest(replies []models.Reply) map[uint][]*ReplyNode {
	nodes := make(map[uint]*ReplyNode, len(replies))
	for i := range replies {
		nodes[replies[i].ID] = &ReplyNode{Reply: replies[i]}
	}

	roots := make(map[uint][]*ReplyNode)
	for i := range replies {
		n := nodes[replies[i].ID]
		if n.ParentID == nil {
			roots[n.CommentID] = append(roots[n.CommentID], n)
			continue
		}
		parent, ok := nodes[*n.ParentID]
		if !ok || parent.CommentID != n.CommentID {
			continue
		}
		parent.Children = append(parent.Children, n)
	}
	return roots
}

// DeleteReply removes a reply and its whole subtree. Returns the number of replies removed.
func (s *DiscussionService) DeleteReply(ctx context.Context, actor *models.User, replyID uint) (int64, error) {
	var reply models.Reply
	if err := s.db.WithContext(ctx).First(&reply, replyID).Error; err != nil {
		return 0, notFound(err, "reply")
	}
	if !policy.CanDeleteReply(&reply, actor) {
		return 0, fmt.Errorf("%w: only the author can delete this reply", ErrPermission)
	}

	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids, err := collectSubtree(tx, reply.ID)
		if err != nil {
			return err
		}
		if err := tx.Where("id IN ?", ids).Delete(&models.Reply{}).Error; err != nil {
			return err
		}
		// foreign key cascades may remove rows before the statement reaches them
		removed = int64(len(ids))
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.log.WithFields(logrus.Fields{"reply_id": reply.ID, "removed": removed}).Info("reply subtree deleted")
	return removed, nil
}

// collectSubtree returns rootID and every descendant, level by level.
func collectSubtree(tx *gorm.DB, rootID uint) ([]uint, error) {
	ids := []uint{rootID}
	seen := map[uint]bool{rootID: true}
	frontier := []uint{rootID}
	for len(frontier) > 0 {
		var children []uint
		if err := tx.Model(&models.Reply{}).Where("parent_id IN ?", frontier).Pluck("id", &children).Error; err != nil {
			return nil, fmt.Errorf("collect replies: %w", err)
		}
		var next []uint
		for _, id := range children {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
				next = append(next, id)
			}
		}
		frontier = next
	}
	return ids, nil
}

// DeleteComment removes a comment and every reply under it. Returns the number of
// replies removed.
func (s *DiscussionService) DeleteComment(ctx context.Context, actor *models.User, commentID uint) (int64, error) {
	var comment models.Comment
	if err := s.db.WithContext(ctx).First(&comment, commentID).Error; err != nil {
		return 0, notFound(err, "comment")
	}
	if !policy.CanDeleteComment(&comment, actor) {
		return 0, fmt.Errorf("%w: only the author can delete this comment", ErrPermission)
	}

	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Reply{}).Where("comment_id = ?", comment.ID).Count(&removed).Error; err != nil {
			return err
		}
		if err := tx.Where("comment_id = ?", comment.ID).Delete(&models.Reply{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Comment{}, comment.ID).Error
	})
	if err != nil {
		return 0, err
	}

	s.log.WithFields(logrus.Fields{"comment_id": comment.ID, "replies": removed}).Info("comment deleted")
	return removed, nil
}

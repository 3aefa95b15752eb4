package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"quill/internal/models"
	"quill/internal/policy"
	"quill/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	titleMaxLen = 200
	maxTags     = 10
	tagMaxLen   = 30
	imageMaxLen = 500
)

type ArticleInput struct {
	Title         string
	Body          string
	Published     bool
	Tags          []string
	FeaturedImage string
}

// TagList joins the tags back into the form field format.
func (in ArticleInput) TagList() string {
	return strings.Join(in.Tags, ", ")
}

func (in ArticleInput) normalize() (ArticleInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return in, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if strings.ContainsAny(in.Title, "\r\n") {
		return in, fmt.Errorf("%w: title must be a single line", ErrValidation)
	}
	if utf8.RuneCountInString(in.Title) > titleMaxLen {
		return in, fmt.Errorf("%w: title must be at most %d characters", ErrValidation, titleMaxLen)
	}
	if strings.TrimSpace(in.Body) == "" {
		return in, fmt.Errorf("%w: body is required", ErrValidation)
	}

	in.FeaturedImage = strings.TrimSpace(in.FeaturedImage)
	if in.FeaturedImage != "" && (len(in.FeaturedImage) > imageMaxLen || !utils.ValidImageURL(in.FeaturedImage)) {
		return in, fmt.Errorf("%w: featured image must be an http or https URL", ErrValidation)
	}

	seen := make(map[string]bool, len(in.Tags))
	tags := make([]string, 0, len(in.Tags))
	for _, t := range in.Tags {
		t = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(t), "#"))
		if t == "" || seen[t] {
			continue
		}
		if utf8.RuneCountInString(t) > tagMaxLen {
			return in, fmt.Errorf("%w: tags must be at most %d characters", ErrValidation, tagMaxLen)
		}
		seen[t] = true
		tags = append(tags, t)
	}
	if len(tags) > maxTags {
		return in, fmt.Errorf("%w: at most %d tags", ErrValidation, maxTags)
	}
	in.Tags = tags
	return in, nil
}

// resolveTags finds or creates a Tag row for every name, keeping the input order.
func resolveTags(tx *gorm.DB, names []string) ([]models.Tag, error) {
	tags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		var tag models.Tag
		if err := tx.Where(models.Tag{Name: name}).FirstOrCreate(&tag).Error; err != nil {
			return nil, fmt.Errorf("save tag %q: %w", name, err)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// setArticleTags rewrites the article_tags rows of one article.
func setArticleTags(tx *gorm.DB, articleID uint, tags []models.Tag) error {
	if err := tx.Exec("DELETE FROM article_tags WHERE article_id = ?", articleID).Error; err != nil {
		return fmt.Errorf("clear article tags: %w", err)
	}
	for _, tag := range tags {
		err := tx.Exec("INSERT INTO article_tags (article_id, tag_id) VALUES (?, ?)", articleID, tag.ID).Error
		if err != nil {
			return fmt.Errorf("tag article: %w", err)
		}
	}
	return nil
}

// ListOptions pages a listing. A zero Limit returns every row.
type ListOptions struct {
	Limit  int
	Offset int
}

type ArticleService struct {
	db    *gorm.DB
	log   logrus.FieldLogger
	Clock func() time.Time
}

func NewArticleService(db *gorm.DB, log logrus.FieldLogger) *ArticleService {
	return &ArticleService{db: db, log: log, Clock: time.Now}
}

func (s *ArticleService) Create(ctx context.Context, actor *models.User, in ArticleInput) (*models.Article, error) {
	if actor == nil {
		return nil, fmt.Errorf("%w: sign in to write articles", ErrPermission)
	}
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}

	now := s.Clock()
	article := models.Article{
		UserID:        actor.ID,
		Title:         in.Title,
		Body:          in.Body,
		FeaturedImage: in.FeaturedImage,
		Published:     in.Published,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("User", "Tags").Create(&article).Error; err != nil {
			return fmt.Errorf("create article: %w", err)
		}
		tags, err := resolveTags(tx, in.Tags)
		if err != nil {
			return err
		}
		article.Tags = tags
		return setArticleTags(tx, article.ID, tags)
	})
	if err != nil {
		return nil, err
	}
	article.User = *actor
	return &article, nil
}

// Get loads an article with its author, ignoring visibility.
func (s *ArticleService) Get(ctx context.Context, id uint) (*models.Article, error) {
	var article models.Article
	if err := s.db.WithContext(ctx).Preload("User").Preload("Tags").First(&article, id).Error; err != nil {
		return nil, notFound(err, "article")
	}
	return &article, nil
}

// View is Get gated by policy.CanView. Reads by anyone but the author count as views.
func (s *ArticleService) View(ctx context.Context, viewer *models.User, id uint) (*models.Article, error) {
	article, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(article, viewer) {
		return nil, fmt.Errorf("%w: this article is not public", ErrPermission)
	}

	if viewer == nil || viewer.ID != article.UserID {
		err := s.db.WithContext(ctx).Model(&models.Article{}).
			Where("id = ?", article.ID).
			UpdateColumn("views", gorm.Expr("views + 1")).Error
		if err != nil {
			s.log.WithError(err).WithField("article_id", article.ID).Warn("view count not updated")
		} else {
			article.Views++
		}
	}
	return article, nil
}

// Update rewrites title, body, tags, featured image and publish flag. The author never changes and
// UpdatedAt is refreshed on every successful call.
func (s *ArticleService) Update(ctx context.Context, actor *models.User, id uint, in ArticleInput) (*models.Article, error) {
	article, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanEdit(article, actor) {
		return nil, fmt.Errorf("%w: only the author can edit this article", ErrPermission)
	}
	in, err = in.normalize()
	if err != nil {
		return nil, err
	}

	now := s.Clock()
	var tags []models.Tag
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Article{}).
			Where("id = ?", article.ID).
			Updates(map[string]any{
				"title":          in.Title,
				"body":           in.Body,
				"featured_image": in.FeaturedImage,
				"published":      in.Published,
				"updated_at":     now,
			}).Error
		if err != nil {
			return fmt.Errorf("update article: %w", err)
		}

		if tags, err = resolveTags(tx, in.Tags); err != nil {
			return err
		}
		return setArticleTags(tx, article.ID, tags)
	})
	if err != nil {
		return nil, err
	}

	article.Title = in.Title
	article.Body = in.Body
	article.FeaturedImage = in.FeaturedImage
	article.Tags = tags
	article.Published = in.Published
	article.UpdatedAt = now
	return article, nil
}

// Delete removes the article together with its comments, their replies and the
// notifications that point at it, in one transaction.
func (s *ArticleService) Delete(ctx context.Context, actor *models.User, id uint) error {
	article, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanDelete(article, actor) {
		return fmt.Errorf("%w: only the author can delete this article", ErrPermission)
	}

	var replies, comments int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		commentIDs := tx.Model(&models.Comment{}).Select("id").Where("article_id = ?", article.ID)
		res := tx.Where("comment_id IN (?)", commentIDs).Delete(&models.Reply{})
		if res.Error != nil {
			return res.Error
		}
		replies = res.RowsAffected

		res = tx.Where("article_id = ?", article.ID).Delete(&models.Comment{})
		if res.Error != nil {
			return res.Error
		}
		comments = res.RowsAffected

		if err := tx.Where("article_id = ?", article.ID).Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		if err := setArticleTags(tx, article.ID, nil); err != nil {
			return err
		}

		res = tx.Delete(&models.Article{}, article.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: article", ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"article_id": article.ID,
		"comments":   comments,
		"replies":    replies,
	}).Info("article deleted")
	return nil
}

func (s *ArticleService) ListPublished(ctx context.Context, opts ListOptions) ([]models.Article, error) {
	q := s.db.WithContext(ctx).Preload("User").Preload("Tags").
		Where("published = ?", true).
		Order("created_at DESC, id DESC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit).Offset(opts.Offset)
	}

	var articles []models.Article
	if err := q.Find(&articles).Error; err != nil {
		return nil, fmt.Errorf("list published articles: %w", err)
	}
	if err := s.fillCommentCounts(ctx, articles); err != nil {
		return nil, err
	}
	return articles, nil
}

func (s *ArticleService) CountPublished(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&models.Article{}).Where("published = ?", true).Count(&total).Error
	return total, err
}

// ListByAuthor returns drafts and published articles of one author, newest first.
func (s *ArticleService) ListByAuthor(ctx context.Context, authorID uint) ([]models.Article, error) {
	var articles []models.Article
	err := s.db.WithContext(ctx).Preload("User").Preload("Tags").
		Where("user_id = ?", authorID).
		Order("created_at DESC, id DESC").
		Find(&articles).Error
	if err != nil {
		return nil, fmt.Errorf("list articles by author: %w", err)
	}
	if err := s.fillCommentCounts(ctx, articles); err != nil {
		return nil, err
	}
	return articles, nil
}

// fillCommentCounts 批量填充文章的评论数量
func (s *ArticleService) fillCommentCounts(ctx context.Context, articles []models.Article) error {
	if len(articles) == 0 {
		return nil
	}

	ids := make([]uint, len(articles))
	for i, a := range articles {
		ids[i] = a.ID
	}

	type countResult struct {
		ArticleID uint
		Count     int
	}
	var results []countResult
	err := s.db.WithContext(ctx).Model(&models.Comment{}).
		Select("article_id, COUNT(*) as count").
		Where("article_id IN ?", ids).
		Group("article_id").
		Scan(&results).Error
	if err != nil {
		return fmt.Errorf("count comments: %w", err)
	}

	counts := make(map[uint]int, len(results))
	for _, r := range results {
		counts[r.ArticleID] = r.Count
	}
	for i := range articles {
		articles[i].CommentCount = counts[articles[i].ID]
	}
	return nil
}

package handlers

import (
	"errors"
	"fmt"
	"html/template"
	"math"
	"net/http"

	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/policy"
	"quill/internal/services"
	"quill/internal/utils"

	"github.com/gin-gonic/gin"
)

type ArticleHandler struct {
	articles   *services.ArticleService
	discussion *services.DiscussionService
	cache      *utils.RenderCache
	pageSize   int
}

func NewArticleHandler(articles *services.ArticleService, discussion *services.DiscussionService, cache *utils.RenderCache, pageSize int) *ArticleHandler {
	return &ArticleHandler{articles: articles, discussion: discussion, cache: cache, pageSize: pageSize}
}

func articleURL(id uint) string {
	return fmt.Sprintf("/articles/%d", id)
}

// bodyHTML renders an article body once per revision.
func (h *ArticleHandler) bodyHTML(a *models.Article) template.HTML {
	key := fmt.Sprintf("article:%d:%d", a.ID, a.UpdatedAt.UnixNano())
	return h.cache.Render(key, a.Body)
}

func (h *ArticleHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	total, err := h.articles.CountPublished(ctx)
	if err != nil {
		fail(c, err, "/")
		return
	}
	totalPages := int(math.Ceil(float64(total) / float64(h.pageSize)))
	if totalPages == 0 {
		totalPages = 1
	}
	page := pageParam(c, totalPages)

	articles, err := h.articles.ListPublished(ctx, services.ListOptions{
		Limit:  h.pageSize,
		Offset: (page - 1) * h.pageSize,
	})
	if err != nil {
		fail(c, err, "/")
		return
	}

	Render(c, http.StatusOK, "article/list.html", gin.H{
		"Title":       "Latest articles",
		"Articles":    articles,
		"Active":      "home",
		"CurrentPage": page,
		"TotalPages":  totalPages,
	})
}

func (h *ArticleHandler) Detail(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	viewer := middleware.CurrentUser(c)

	article, err := h.articles.View(c.Request.Context(), viewer, id)
	if errors.Is(err, services.ErrPermission) {
		middleware.AddFlash(c, middleware.FlashError, msg(err))
		c.Redirect(http.StatusFound, "/")
		return
	}
	if err != nil {
		fail(c, err, "/")
		return
	}

	threads, err := h.discussion.Thread(c.Request.Context(), article.ID)
	if err != nil {
		fail(c, err, "/")
		return
	}

	Render(c, http.StatusOK, "article/detail.html", gin.H{
		"Title":       article.Title,
		"Article":     article,
		"ArticleBody": h.bodyHTML(article),
		"Threads":     threads,
		"CanEdit":     policy.CanEdit(article, viewer),
		"CanComment":  policy.CanComment(viewer),
	})
}

func (h *ArticleHandler) ShowCreate(c *gin.Context) {
	Render(c, http.StatusOK, "article/form.html", gin.H{
		"Title":  "New article",
		"Action": "/articles/new",
		"Form":   services.ArticleInput{},
	})
}

func articleForm(c *gin.Context) services.ArticleInput {
	return services.ArticleInput{
		Title:         c.PostForm("title"),
		Body:          c.PostForm("body"),
		Published:     c.PostForm("published") != "",
		Tags:          utils.SplitTags(c.PostForm("tags")),
		FeaturedImage: c.PostForm("featured_image"),
	}
}

func editForm(a *models.Article) services.ArticleInput {
	in := services.ArticleInput{
		Title:         a.Title,
		Body:          a.Body,
		Published:     a.Published,
		FeaturedImage: a.FeaturedImage,
	}
	for _, t := range a.Tags {
		in.Tags = append(in.Tags, t.Name)
	}
	return in
}

func (h *ArticleHandler) Create(c *gin.Context) {
	user := middleware.CurrentUser(c)
	in := articleForm(c)

	article, err := h.articles.Create(c.Request.Context(), user, in)
	if errors.Is(err, services.ErrValidation) {
		Render(c, http.StatusBadRequest, "article/form.html", gin.H{
			"Title":  "New article",
			"Action": "/articles/new",
			"Form":   in,
			"Error":  msg(err),
		})
		return
	}
	if err != nil {
		fail(c, err, "/")
		return
	}

	middleware.AddFlash(c, middleware.FlashSuccess, "Article created.")
	c.Redirect(http.StatusFound, articleURL(article.ID))
}

func (h *ArticleHandler) Mine(c *gin.Context) {
	user := middleware.CurrentUser(c)

	articles, err := h.articles.ListByAuthor(c.Request.Context(), user.ID)
	if err != nil {
		fail(c, err, "/")
		return
	}
	Render(c, http.StatusOK, "article/mine.html", gin.H{
		"Title":    "My articles",
		"Articles": articles,
		"Active":   "mine",
	})
}

func (h *ArticleHandler) ShowEdit(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	user := middleware.CurrentUser(c)

	article, err := h.articles.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err, "/")
		return
	}
	if !policy.CanEdit(article, user) {
		middleware.AddFlash(c, middleware.FlashError, "Only the author can edit this article.")
		c.Redirect(http.StatusFound, "/")
		return
	}

	Render(c, http.StatusOK, "article/form.html", gin.H{
		"Title":   "Edit article",
		"Action":  fmt.Sprintf("/articles/%d/edit", article.ID),
		"Form":    editForm(article),
		"Article": article,
	})
}

func (h *ArticleHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	user := middleware.CurrentUser(c)
	in := articleForm(c)

	article, err := h.articles.Update(c.Request.Context(), user, id, in)
	if errors.Is(err, services.ErrValidation) {
		Render(c, http.StatusBadRequest, "article/form.html", gin.H{
			"Title":  "Edit article",
			"Action": fmt.Sprintf("/articles/%d/edit", id),
			"Form":   in,
			"Error":  msg(err),
		})
		return
	}
	if err != nil {
		fail(c, err, "/")
		return
	}

	middleware.AddFlash(c, middleware.FlashSuccess, "Article updated.")
	c.Redirect(http.StatusFound, articleURL(article.ID))
}

func (h *ArticleHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	user := middleware.CurrentUser(c)

	article, err := h.articles.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err, "/my-articles")
		return
	}
	if err := h.articles.Delete(c.Request.Context(), user, id); err != nil {
		fail(c, err, "/")
		return
	}
	h.cache.Delete(fmt.Sprintf("article:%d:%d", article.ID, article.UpdatedAt.UnixNano()))

	middleware.AddFlash(c, middleware.FlashSuccess, "Article deleted.")
	c.Redirect(http.StatusFound, "/my-articles")
}

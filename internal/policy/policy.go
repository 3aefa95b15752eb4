// Package policy holds the side-effect free access rules consulted before every
// mutation or restricted read. A nil actor or viewer is an anonymous visitor.
package policy

import "quill/internal/models"

func isAuthor(authorID uint, u *models.User) bool {
	return u != nil && u.ID == authorID
}

// CanView reports whether viewer may see the article. Drafts are visible to their author only.
func CanView(article *models.Article, viewer *models.User) bool {
	return article.Published || isAuthor(article.UserID, viewer)
}

func CanEdit(article *models.Article, actor *models.User) bool {
	return isAuthor(article.UserID, actor)
}

func CanDelete(article *models.Article, actor *models.User) bool {
	return isAuthor(article.UserID, actor)
}

// CanComment: any signed-in user may comment on any article,
// draft or not.
func CanComment(actor *models.User) bool {
	return actor != nil
}

func CanReply(actor *models.User) bool {
	return actor != nil
}

func CanDeleteComment(comment *models.Comment, actor *models.User) bool {
	return isAuthor(comment.UserID, actor)
}

func CanDeleteReply(reply *models.Reply, actor *models.User) bool {
	return isAuthor(reply.UserID, actor)
}

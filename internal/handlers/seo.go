package handlers

import (
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"quill/internal/middleware"
	"quill/internal/services"

	"github.com/gin-gonic/gin"
)

type SEOHandler struct {
	articles *services.ArticleService
	siteURL  string
}

func NewSEOHandler(articles *services.ArticleService, siteURL string) *SEOHandler {
	return &SEOHandler{articles: articles, siteURL: strings.TrimRight(siteURL, "/")}
}

// RobotsTxt keeps crawlers off account and form pages.
func (h *SEOHandler) RobotsTxt(c *gin.Context) {
	content := fmt.Sprintf(`User-agent: *
Allow: /

Disallow: /login
Disallow: /register
Disallow: /logout
Disallow: /my-articles
Disallow: /notifications
Disallow: /articles/new

Sitemap: %s/sitemap.xml
`, h.siteURL)

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.String(http.StatusOK, content)
}

// SitemapXML lists the front page and every published article. Drafts never appear.
func (h *SEOHandler) SitemapXML(c *gin.Context) {
	articles, err := h.articles.ListPublished(c.Request.Context(), services.ListOptions{})
	if err != nil {
		middleware.Logger(c).WithError(err).Error("sitemap")
		c.Status(http.StatusInternalServerError)
		return
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
`)
	fmt.Fprintf(&b, `  <url>
    <loc>%s/</loc>
    <lastmod>%s</lastmod>
    <changefreq>daily</changefreq>
    <priority>1.0</priority>
  </url>
`, html.EscapeString(h.siteURL), time.Now().Format("2006-01-02"))

	for _, a := range articles {
		fmt.Fprintf(&b, `  <url>
    <loc>%s</loc>
    <lastmod>%s</lastmod>
    <changefreq>weekly</changefreq>
    <priority>0.8</priority>
  </url>
`, html.EscapeString(h.siteURL+articleURL(a.ID)), a.UpdatedAt.Format("2006-01-02"))
	}
	b.WriteString("</urlset>\n")

	c.Data(http.StatusOK, "application/xml; charset=utf-8", []byte(b.String()))
}

package utils

import (
	"bytes"
	"html"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	mdParser = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			gmhtml.WithHardWraps(),
			gmhtml.WithXHTML(),
		),
	)
	articlePolicy = bluemonday.UGCPolicy()
	// discussion entries are short; no images or headings
	discussionPolicy = bluemonday.StrictPolicy()
)

func init() {
	articlePolicy.AllowImages()
	articlePolicy.AddTargetBlankToFullyQualifiedLinks(true)
	articlePolicy.RequireNoReferrerOnLinks(true)

	discussionPolicy.AllowElements("p", "br", "em", "strong", "code", "pre", "blockquote", "ul", "ol", "li", "del")
	discussionPolicy.AllowStandardURLs()
	discussionPolicy.AllowAttrs("href").OnElements("a")
	discussionPolicy.RequireNoFollowOnLinks(true)
	discussionPolicy.AddTargetBlankToFullyQualifiedLinks(true)
}

func convert(source string) ([]byte, bool) {
	var buf bytes.Buffer
	if err := mdParser.Convert([]byte(source), &buf); err != nil {
		return nil, false
	}
	return buf.Bytes(), true
}

// RenderMarkdown renders an article body: GFM, sanitized, images and links post-processed.
func RenderMarkdown(source string) template.HTML {
	out, ok := convert(source)
	if !ok {
		return template.HTML("<p>" + html.EscapeString(source) + "</p>")
	}
	return EnhanceHTMLContent(string(articlePolicy.SanitizeBytes(out)))
}

// RenderDiscussion renders a comment or reply body with the stricter policy.
func RenderDiscussion(source string) template.HTML {
	out, ok := convert(source)
	if !ok {
		return template.HTML("<p>" + html.EscapeString(source) + "</p>")
	}
	return template.HTML(discussionPolicy.SanitizeBytes(out))
}

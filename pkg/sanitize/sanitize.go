// Package sanitize strips executable markup from untrusted free text before
// validation accepts it. Both sanitizers are idempotent.
package sanitize

import (
	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicy = buildTextPolicy()
	htmlPolicy = buildHTMLPolicy()
)

func buildTextPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "i", "em", "strong", "code")
	return p
}

func buildHTMLPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"p", "br", "ul", "ol", "li", "blockquote", "pre",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"b", "i", "em", "strong", "code",
	)
	p.AllowAttrs("href", "rel", "title").OnElements("a")
	p.AllowAttrs("src", "alt", "title").OnElements("img")
	p.AllowStandardURLs()
	p.RequireNoFollowOnLinks(true)
	return p
}

// Text keeps only benign inline tags; script blocks and on* event handlers
// never survive. Non-strings pass through untouched so a text sanitizer can
// sit in front of any field.
func Text(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	return textPolicy.Sanitize(s)
}

// HTML is the stricter rich-content variant with a narrow block/inline tag
// and attribute allow-list.
func HTML(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	return htmlPolicy.Sanitize(s)
}

// TextString is Text for callers that already hold a string.
func TextString(s string) string { return textPolicy.Sanitize(s) }

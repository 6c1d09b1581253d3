// Package markdown renders post content to HTML.
package markdown

import (
	"bytes"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	md     goldmark.Markdown
	mdOnce sync.Once
)

func converter() goldmark.Markdown {
	mdOnce.Do(func() {
		// Post content comes from authenticated admins and may carry inline
		// HTML produced by the editor, so raw HTML is passed through.
		md = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		)
	})
	return md
}

// Render converts markdown source to HTML.
func Render(src string) (string, error) {
	var buf bytes.Buffer
	if err := converter().Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

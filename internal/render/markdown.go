// Package render formats message bodies for presentation adapters. The
// session core treats content as opaque text and never calls into here.
package render

import (
	"bytes"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var htmlRenderer = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// HTML converts markdown to HTML. Raw HTML in the source is not passed
// through, so bot output cannot inject markup into the host page.
func HTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := htmlRenderer.Convert([]byte(markdown), &buf); err != nil {
		return "", errors.Wrap(err, "render markdown")
	}
	return buf.String(), nil
}

// Terminal renders markdown for an ANSI terminal of the given width.
type Terminal struct {
	once     sync.Once
	width    int
	renderer *glamour.TermRenderer
	err      error
}

// NewTerminal returns a Terminal renderer wrapping at width columns.
func NewTerminal(width int) *Terminal {
	if width <= 0 {
		width = 80
	}
	return &Terminal{width: width}
}

// Render styles markdown for the terminal. If the renderer cannot be built
// the text is returned unchanged.
func (t *Terminal) Render(markdown string) string {
	t.once.Do(func() {
		t.renderer, t.err = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(t.width),
		)
	})
	if t.err != nil {
		return markdown
	}
	out, err := t.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return out
}

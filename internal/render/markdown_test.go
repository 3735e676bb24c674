package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTML(t *testing.T) {
	out, err := HTML("**Hallo** und [Link](https://example.com)")
	require.NoError(t, err)
	assert.Contains(t, out, "<strong>Hallo</strong>")
	assert.Contains(t, out, `<a href="https://example.com">Link</a>`)
}

func TestHTMLDropsRawHTML(t *testing.T) {
	out, err := HTML("hi <script>alert(1)</script>")
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")
}

func TestTerminalKeepsText(t *testing.T) {
	out := NewTerminal(40).Render("# Titel\n\nEin Absatz.")
	assert.True(t, strings.Contains(out, "Titel"))
	assert.True(t, strings.Contains(out, "Absatz"))
}

package extract

import (
	"strings"
	"testing"

	"github.com/poiesic/docquery/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_PlainText(t *testing.T) {
	blob := []byte("The quick brown fox jumps over the lazy dog.")

	result, err := Extract(blob, "notes/fox.txt", 0)
	require.NoError(t, err)
	assert.Equal(t, core.FormatPlainText, result.Format)
	assert.Equal(t, "The quick brown fox jumps over the lazy dog.", result.Text)
	assert.Equal(t, "fox", result.Title)
}

func TestExtract_EmptyInput(t *testing.T) {
	_, err := Extract(nil, "empty.txt", 0)
	assert.ErrorIs(t, err, core.ErrEmptyContent)
}

func TestExtract_QualityGate(t *testing.T) {
	_, err := Extract([]byte("too short"), "short.txt", 0)
	assert.ErrorIs(t, err, core.ErrEmptyContent)
}

func TestExtract_Markdown(t *testing.T) {
	blob := []byte("# My Document\n\nSome **bold** text with a [link](http://example.com) inside.\n\n- item one\n- item two\n")

	result, err := Extract(blob, "doc.md", 0)
	require.NoError(t, err)
	assert.Equal(t, core.FormatMarkdown, result.Format)
	assert.Equal(t, "My Document", result.Title)
	assert.NotContains(t, result.Text, "**")
	assert.NotContains(t, result.Text, "](")
	assert.Contains(t, result.Text, "Some bold text with a link inside.")
	assert.Contains(t, result.Text, "item one")
}

func TestExtract_HTML(t *testing.T) {
	blob := []byte(`<html><head><title>Page Title</title><style>body{}</style></head>
<body><script>alert(1)</script><p>First paragraph.</p><p>Second &amp; third.</p></body></html>`)

	result, err := Extract(blob, "page.html", 0)
	require.NoError(t, err)
	assert.Equal(t, core.FormatHTML, result.Format)
	assert.Equal(t, "Page Title", result.Title)
	assert.NotContains(t, result.Text, "<p>")
	assert.NotContains(t, result.Text, "alert")
	assert.Contains(t, result.Text, "First paragraph.")
	assert.Contains(t, result.Text, "Second & third.")
}

func TestExtract_FormatHintOverridesExtension(t *testing.T) {
	blob := []byte("# Heading\n\nParagraph body text goes here.")

	result, err := Extract(blob, "mislabeled.txt", core.FormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, core.FormatMarkdown, result.Format)
	assert.NotContains(t, result.Text, "#")
}

func TestExtract_Latin1Fallback(t *testing.T) {
	// 0xE9 is é in Latin-1 but invalid as a standalone UTF-8 byte
	blob := []byte("caf\xe9 conversations and other long stories")

	result, err := Extract(blob, "latin.txt", 0)
	require.NoError(t, err)
	assert.Contains(t, result.Text, "café")
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, core.FormatMarkdown, DetectFormat("readme.md"))
	assert.Equal(t, core.FormatMarkdown, DetectFormat("README.MARKDOWN"))
	assert.Equal(t, core.FormatHTML, DetectFormat("index.html"))
	assert.Equal(t, core.FormatHTML, DetectFormat("page.htm"))
	assert.Equal(t, core.FormatPlainText, DetectFormat("notes.txt"))
	assert.Equal(t, core.FormatPlainText, DetectFormat("no-extension"))
}

func TestNormalize(t *testing.T) {
	t.Run("collapses spaces and tabs", func(t *testing.T) {
		assert.Equal(t, "a b c", Normalize("a  b\t\tc"))
	})

	t.Run("collapses blank lines", func(t *testing.T) {
		assert.Equal(t, "a\n\nb", Normalize("a\n\n\n\n\nb"))
	})

	t.Run("strips control characters", func(t *testing.T) {
		assert.Equal(t, "ab", Normalize("a\x00\x08b"))
	})

	t.Run("preserves single newlines", func(t *testing.T) {
		assert.Equal(t, "line one\nline two", Normalize("line one\nline two"))
	})

	t.Run("trims surrounding whitespace", func(t *testing.T) {
		assert.Equal(t, "core", Normalize("   core   \n"))
	})
}

func TestStripMarkdown_CodeBlocks(t *testing.T) {
	text := "Before.\n```go\nfunc main() {}\n```\nAfter."
	stripped := stripMarkdown(text)
	assert.NotContains(t, stripped, "func main")
	assert.Contains(t, stripped, "Before.")
	assert.Contains(t, stripped, "After.")
}

func TestStripHTML_JoinsBlockElements(t *testing.T) {
	stripped := stripHTML("<div>one</div><div>two</div>")
	lines := strings.Split(stripped, "\n")
	assert.Equal(t, []string{"one", "two"}, lines)
}

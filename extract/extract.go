package extract

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/docquery/core"
)

// minUsefulRunes is the quality gate: extracted text shorter than this is
// treated as empty rather than indexed.
const minUsefulRunes = 16

// Result holds the output of a successful extraction.
type Result struct {
	// Text is the normalized plain text content.
	Text string

	// Format is the format the content was extracted as.
	Format core.FormatType

	// Title is a human-readable title derived from the content or locator.
	Title string
}

// Extract decodes raw document bytes and produces clean plain text.
// The format hint takes precedence; when it is zero the format is detected
// from the locator's extension, defaulting to plain text.
//
// Returns core.ErrEmptyContent when the input is empty or the extracted
// text fails the quality gate.
func Extract(blob []byte, locator string, formatHint core.FormatType) (*Result, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrEmptyContent, locator)
	}

	format := formatHint
	if format == 0 {
		format = DetectFormat(locator)
	}

	raw := decode(blob)

	var text, title string
	switch format {
	case core.FormatMarkdown:
		title = markdownTitle(raw, locator)
		text = stripMarkdown(raw)
	case core.FormatHTML:
		title = htmlTitle(raw, locator)
		text = stripHTML(raw)
	default:
		format = core.FormatPlainText
		title = titleFromLocator(locator)
		text = raw
	}

	text = Normalize(text)
	if utf8.RuneCountInString(text) < minUsefulRunes {
		return nil, fmt.Errorf("%w: %s yielded %d runes", core.ErrEmptyContent, locator, utf8.RuneCountInString(text))
	}

	return &Result{Text: text, Format: format, Title: title}, nil
}

// DetectFormat guesses the document format from the locator's extension.
// Unknown extensions are treated as plain text.
func DetectFormat(locator string) core.FormatType {
	switch strings.ToLower(filepath.Ext(locator)) {
	case ".md", ".markdown", ".mdown":
		return core.FormatMarkdown
	case ".html", ".htm", ".xhtml":
		return core.FormatHTML
	default:
		return core.FormatPlainText
	}
}

// decode interprets bytes as UTF-8, falling back to Latin-1 when the bytes
// are not valid UTF-8. Latin-1 decoding cannot fail since every byte maps
// to a code point.
func decode(blob []byte) string {
	if utf8.Valid(blob) {
		return string(blob)
	}

	runes := make([]rune, len(blob))
	for i, b := range blob {
		runes[i] = rune(b)
	}
	return string(runes)
}

// titleFromLocator derives a human-readable title from a locator path.
func titleFromLocator(locator string) string {
	filename := filepath.Base(locator)
	if ext := filepath.Ext(filename); ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}

package extract

import (
	"html"
	"regexp"
	"strings"
)

// Pre-compiled regular expressions for HTML stripping.
var (
	htmlTitleTag      = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	htmlScriptTag     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	htmlStyleTag      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	htmlNoscriptTag   = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	htmlHeadTag       = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	htmlSvgTag        = regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`)
	htmlComments      = regexp.MustCompile(`(?s)<!--.*?-->`)
	htmlOpenBlockTags = regexp.MustCompile(`(?i)<(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)[^>]*>`)
	htmlCloseBlockTag = regexp.MustCompile(`(?i)</(p|div|br|hr|h[1-6]|li|tr|blockquote|pre|table|section|article)>`)
	htmlBrTags        = regexp.MustCompile(`(?i)<br\s*/?>`)
	htmlHrTags        = regexp.MustCompile(`(?i)<hr\s*/?>`)
	htmlAllTags       = regexp.MustCompile(`<[^>]+>`)
)

// stripHTML removes HTML tags and extracts readable text content.
func stripHTML(content string) string {
	// Remove script, style, noscript, head, and svg elements entirely
	content = htmlScriptTag.ReplaceAllString(content, "")
	content = htmlStyleTag.ReplaceAllString(content, "")
	content = htmlNoscriptTag.ReplaceAllString(content, "")
	content = htmlHeadTag.ReplaceAllString(content, "")
	content = htmlSvgTag.ReplaceAllString(content, "")
	content = htmlComments.ReplaceAllString(content, "")

	// Block element boundaries become newlines so sentences from adjacent
	// elements don't run together
	content = htmlOpenBlockTags.ReplaceAllString(content, "\n")
	content = htmlCloseBlockTag.ReplaceAllString(content, "\n")
	content = htmlBrTags.ReplaceAllString(content, "\n")
	content = htmlHrTags.ReplaceAllString(content, "\n")

	content = htmlAllTags.ReplaceAllString(content, "")
	content = html.UnescapeString(content)

	// Trim each line and drop empty ones
	lines := strings.Split(content, "\n")
	var result []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

// htmlTitle extracts a title from the <title> tag, falling back to the
// locator filename.
func htmlTitle(content, locator string) string {
	matches := htmlTitleTag.FindStringSubmatch(content)
	if len(matches) > 1 {
		title := html.UnescapeString(strings.TrimSpace(matches[1]))
		if title != "" {
			return title
		}
	}
	return titleFromLocator(locator)
}

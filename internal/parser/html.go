package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTMLRenderer renders HTML email bodies as plain text for display to
// clients that only want text.
type HTMLRenderer struct {
	invisibleRegex  *regexp.Regexp
	whitespaceRegex *regexp.Regexp
	newlineRegex    *regexp.Regexp
}

// NewHTMLRenderer creates a new HTML renderer
func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{
		// Remove invisible Unicode characters (zero-width spaces, etc.)
		invisibleRegex:  regexp.MustCompile(`[\x{200B}-\x{200D}\x{FEFF}\x{00AD}\x{034F}\x{061C}\x{115F}\x{1160}\x{17B4}\x{17B5}\x{180E}\x{2060}-\x{2064}\x{206A}-\x{206F}\x{FE00}-\x{FE0F}\x{FFF0}-\x{FFF8}]+`),
		whitespaceRegex: regexp.MustCompile(`[^\S\n]+`),
		newlineRegex:    regexp.MustCompile(`\n{3,}`),
	}
}

// Render converts HTML to clean plain text
func (r *HTMLRenderer) Render(html string) (string, error) {
	if html == "" {
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	// Drop non-content elements
	doc.Find("script, style, head, meta, link").Remove()

	// Block elements become line breaks
	doc.Find("p, div, br, h1, h2, h3, h4, h5, h6, li, tr").Each(func(i int, s *goquery.Selection) {
		s.PrependHtml("\n")
	})

	text := doc.Text()

	// Remove invisible Unicode characters first
	text = r.invisibleRegex.ReplaceAllString(text, "")

	// Collapse runs of spaces and tabs, keep newlines
	text = r.whitespaceRegex.ReplaceAllString(text, " ")

	// Trim each line and drop the empty ones
	lines := strings.Split(text, "\n")
	var cleanLines []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleanLines = append(cleanLines, line)
		}
	}
	text = strings.Join(cleanLines, "\n")
	text = r.newlineRegex.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text), nil
}

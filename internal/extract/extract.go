// Package extract pulls the published map version out of an HTML page.
package extract

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/JakeFAU/map-version-watcher/internal/watcher"
)

// DefaultPattern matches the marker sentence and captures the four-digit version.
const DefaultPattern = `(?i)latest map version is (\d{4})\b`

var whitespace = regexp.MustCompile(`\s+`)

// RegexExtractor strips markup from a page and applies a regular expression
// with a single capture group to the remaining text.
type RegexExtractor struct {
	pattern *regexp.Regexp
}

// New compiles pattern into a RegexExtractor. An empty pattern selects DefaultPattern.
func New(pattern string) (*RegexExtractor, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile version pattern: %w", err)
	}
	if re.NumSubexp() != 1 {
		return nil, fmt.Errorf("version pattern must have exactly one capture group, got %d", re.NumSubexp())
	}
	return &RegexExtractor{pattern: re}, nil
}

// Extract returns the captured version or a *watcher.ParseError when the
// marker is absent.
func (e *RegexExtractor) Extract(body []byte) (string, error) {
	text, err := PlainText(body)
	if err != nil {
		return "", err
	}
	match := e.pattern.FindStringSubmatch(text)
	if match == nil {
		return "", &watcher.ParseError{}
	}
	return match[1], nil
}

// PlainText strips all markup from body and collapses whitespace runs. Text
// inside inline elements joins its neighbours; block-level elements and line
// breaks act as word boundaries. Script and style contents are dropped.
func PlainText(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript").Remove()
	var sb strings.Builder
	for _, n := range doc.Nodes {
		collectText(n, &sb)
	}
	return strings.TrimSpace(whitespace.ReplaceAllString(sb.String(), " ")), nil
}

var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Body: true, atom.Br: true, atom.Dd: true, atom.Div: true, atom.Dl: true,
	atom.Dt: true, atom.Fieldset: true, atom.Figcaption: true, atom.Figure: true,
	atom.Footer: true, atom.Form: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true, atom.Head: true, atom.Header: true,
	atom.Hr: true, atom.Li: true, atom.Main: true, atom.Nav: true, atom.Ol: true,
	atom.P: true, atom.Pre: true, atom.Section: true, atom.Table: true, atom.Td: true,
	atom.Th: true, atom.Title: true, atom.Tr: true, atom.Ul: true,
}

func collectText(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.ElementNode:
		if blockElements[n.DataAtom] {
			sb.WriteByte(' ')
			defer sb.WriteByte(' ')
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}

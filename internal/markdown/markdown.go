// Package markdown flattens the markdown that LLM evaluations are usually
// written in into plain text for fixed-font output.
package markdown

import (
	"bytes"
	stdhtml "html"
	"regexp"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

var blankLinesRe = regexp.MustCompile(`\n{3,}`)

// ToHTML renders md with the common extensions. Smartypants is off so
// scores such as 14/20 are not turned into fractions.
func ToHTML(md []byte) string {
	opts := html.RendererOptions{
		Flags: html.FlagsNone,
	}
	renderer := html.NewRenderer(opts)
	ext := parser.CommonExtensions
	p := parser.NewWithExtensions(ext)
	doc := p.Parse(md)
	return string(markdown.Render(doc, renderer))
}

// ToPlainText drops markdown markup (emphasis, headings, tables) and keeps
// the text. List items are rendered with a leading "- ".
func ToPlainText(md string) string {
	htmlContent := ToHTML([]byte(md))
	htmlContent = strings.ReplaceAll(htmlContent, "<li>", "<li>- ")
	text := stdhtml.UnescapeString(StripHTMLTags(htmlContent))
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func StripHTMLTags(htmlContent string) string {
	var result bytes.Buffer
	inTag := false

	for _, ch := range htmlContent {
		switch ch {
		case '<':
			inTag = true
		case '>':
			inTag = false
		default:
			if !inTag {
				result.WriteRune(ch)
			}
		}
	}

	return result.String()
}

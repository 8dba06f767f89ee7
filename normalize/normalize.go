// Package normalize turns raw email bodies into plain text suitable for the
// reply pipeline. Negotiation mail arrives as HTML more often than not;
// analysis prompts want readable text without markup, tracking pixels, or
// quoted signatures drowning out the actual message.
package normalize

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"
)

// Pre-compiled regexes for better performance and to avoid ReDoS with runtime compilation
var (
	scriptRe         = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRe          = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	excessiveLinesRe = regexp.MustCompile(`\n{3,}`)
)

// Normalizer converts email bodies to plain text.
type Normalizer struct {
	converter *md.Converter
}

// NewNormalizer creates an email body normalizer.
func NewNormalizer() *Normalizer {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	return &Normalizer{converter: converter}
}

// EmailBody normalizes a raw email body. HTML is converted to markdown-ish
// plain text; plain text passes through with whitespace cleanup only. Trailing
// quoted reply chains and signature blocks are trimmed conservatively.
func (n *Normalizer) EmailBody(raw string) (string, error) {
	if !looksLikeHTML(raw) {
		return trimReplyChrome(cleanText(raw)), nil
	}

	cleaned := stripNonContent(raw)

	text, err := n.converter.ConvertString(cleaned)
	if err != nil {
		// Conversion failure on malformed markup degrades to a tag strip
		// rather than losing the message.
		return trimReplyChrome(cleanText(stripTags(raw))), nil
	}

	return trimReplyChrome(cleanText(text)), nil
}

// looksLikeHTML reports whether the body is worth parsing as HTML. Plain-text
// mail with a stray angle bracket should not take the HTML path.
func looksLikeHTML(body string) bool {
	lowered := strings.ToLower(body)
	for _, marker := range []string{"<html", "<body", "<div", "<p>", "<p ", "<br", "<table", "<span"} {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// stripNonContent removes the parts of an HTML email that carry no message
// content: scripts, styles, tracking images, and hidden preheader spans.
func stripNonContent(raw string) string {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return basicHTMLCleanup(raw)
	}

	removeElements(doc, []string{"script", "style", "noscript", "head", "iframe", "form", "input", "button"})
	removeTrackingImages(doc)
	removeHiddenNodes(doc)

	if body := findElement(doc, "body"); body != nil {
		return renderNode(body)
	}
	return renderNode(doc)
}

// findElement finds the first element with the given tag name.
func findElement(n *html.Node, tag string) *html.Node {
	var result *html.Node
	var find func(*html.Node)
	find = func(node *html.Node) {
		if result != nil {
			return
		}
		if node.Type == html.ElementNode && node.Data == tag {
			result = node
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(n)
	return result
}

// removeElements removes all elements with the given tag names.
func removeElements(n *html.Node, tags []string) {
	tagSet := make(map[string]bool)
	for _, tag := range tags {
		tagSet[tag] = true
	}

	var toRemove []*html.Node
	var collect func(*html.Node)
	collect = func(node *html.Node) {
		if node.Type == html.ElementNode && tagSet[node.Data] {
			toRemove = append(toRemove, node)
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)

	for _, node := range toRemove {
		if node.Parent != nil {
			node.Parent.RemoveChild(node)
		}
	}
}

// removeTrackingImages drops 1x1 images, the standard open-tracking beacon.
func removeTrackingImages(n *html.Node) {
	var toRemove []*html.Node
	var collect func(*html.Node)
	collect = func(node *html.Node) {
		if node.Type == html.ElementNode && node.Data == "img" {
			width, height := attrValue(node, "width"), attrValue(node, "height")
			if (width == "1" || width == "0") && (height == "1" || height == "0") {
				toRemove = append(toRemove, node)
				return
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)

	for _, node := range toRemove {
		if node.Parent != nil {
			node.Parent.RemoveChild(node)
		}
	}
}

// removeHiddenNodes drops elements styled display:none, commonly used for
// preview/preheader text that duplicates the subject line.
func removeHiddenNodes(n *html.Node) {
	var toRemove []*html.Node
	var collect func(*html.Node)
	collect = func(node *html.Node) {
		if node.Type == html.ElementNode {
			style := strings.ToLower(attrValue(node, "style"))
			if strings.Contains(strings.ReplaceAll(style, " ", ""), "display:none") {
				toRemove = append(toRemove, node)
				return
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)

	for _, node := range toRemove {
		if node.Parent != nil {
			node.Parent.RemoveChild(node)
		}
	}
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// renderNode renders a node and its children back to HTML string.
func renderNode(n *html.Node) string {
	var sb strings.Builder
	html.Render(&sb, n)
	return sb.String()
}

// basicHTMLCleanup provides basic cleanup when parsing fails.
func basicHTMLCleanup(content string) string {
	content = scriptRe.ReplaceAllString(content, "")
	content = styleRe.ReplaceAllString(content, "")
	return content
}

// stripTags is the last-resort fallback: drop everything between angle
// brackets without parsing.
func stripTags(content string) string {
	var sb strings.Builder
	inTag := false
	for _, r := range content {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			sb.WriteByte(' ')
		case !inTag:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// trimReplyChrome drops a trailing "-- " signature block and a trailing
// quoted reply chain (consecutive "> " lines, optionally introduced by an
// "On ... wrote:" attribution). Only trailing blocks are touched: inline
// quotes the author is responding to line-by-line stay intact, and a body
// that would become empty is left as-is.
func trimReplyChrome(body string) string {
	lines := strings.Split(body, "\n")

	// Signature: everything from the last "-- " delimiter line onward.
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimRight(lines[i], " ") == "--" {
			lines = lines[:i]
			break
		}
	}

	// Quoted chain at the end of the message.
	end := len(lines)
	for end > 0 {
		trimmed := strings.TrimSpace(lines[end-1])
		if trimmed == "" || strings.HasPrefix(trimmed, ">") {
			end--
			continue
		}
		break
	}
	if end < len(lines) && end > 0 {
		// Drop the attribution line introducing the quote, if present.
		attribution := strings.TrimSpace(lines[end-1])
		if strings.HasPrefix(attribution, "On ") && strings.HasSuffix(attribution, "wrote:") {
			end--
		}
		lines = lines[:end]
	}

	trimmed := strings.TrimSpace(strings.Join(lines, "\n"))
	if trimmed == "" {
		return strings.TrimSpace(body)
	}
	return trimmed
}

// cleanText normalizes whitespace in the final plain text.
func cleanText(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = excessiveLinesRe.ReplaceAllString(content, "\n\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	content = strings.Join(lines, "\n")

	return strings.TrimSpace(content)
}

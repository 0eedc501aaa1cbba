package snapshot

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"
)

// MaxTextRunes caps the text captured per element.
const MaxTextRunes = 100

// Element describes one markup element of a parsed page.
type Element struct {
	ID         int               `json:"dom_id"`
	Tag        string            `json:"tag"`
	Attributes map[string]string `json:"attributes"`
	Text       string            `json:"text"`
}

// Summary is the result of one parse.
type Summary struct {
	Elements []Element
	// Chars is the total serialized size of all elements.
	Chars int
}

// Extract parses html and returns every element in document order. It never
// fails: markup that cannot be read at all yields an empty result.
func Extract(src string, logger zerolog.Logger) Summary {
	if !utf8.ValidString(src) {
		src = strings.ToValidUTF8(src, "�")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		logger.Warn().Err(err).Msg("html parse failed, using empty element list")
		return Summary{}
	}

	var sum Summary
	doc.Find("*").Each(func(i int, sel *goquery.Selection) {
		node := sel.Get(0)
		el := Element{
			ID:         i,
			Tag:        node.Data,
			Attributes: attributes(node),
			Text:       truncateRunes(visibleText(node), MaxTextRunes),
		}
		sum.Elements = append(sum.Elements, el)
		sum.Chars += Size(el)
	})

	logger.Info().
		Int("elements", len(sum.Elements)).
		Int("chars", sum.Chars).
		Msg("dom parsed")
	return sum
}

func attributes(n *html.Node) map[string]string {
	attrs := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		key := a.Key
		if a.Namespace != "" {
			key = a.Namespace + ":" + a.Key
		}
		if _, dup := attrs[key]; dup {
			continue
		}
		attrs[key] = a.Val
	}
	return attrs
}

// visibleText joins the trimmed text fragments under n, skipping script-like
// containers and comments.
func visibleText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				b.WriteString(strings.TrimSpace(c.Data))
			case html.ElementNode:
				if skipText(c.Data) {
					continue
				}
				walk(c)
			}
		}
	}
	if n.Type == html.ElementNode && skipText(n.Data) {
		return ""
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

func skipText(tag string) bool {
	switch strings.ToLower(tag) {
	case "script", "style", "noscript", "template":
		return true
	}
	return false
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}

// Marshal serializes elements compactly without HTML escaping.
func Marshal(elems []Element) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(elems); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Size is the serialized size of el in characters.
func Size(el Element) int {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(el); err != nil {
		return 0
	}
	return utf8.RuneCount(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
}

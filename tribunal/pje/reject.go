package pje

import (
	"strings"

	"golang.org/x/net/html"
)

// rejectionPhrases are the provider wordings that mean the submitted code
// was refused. Matched against the lower-cased visible text of the
// response, ordered by how often the provider uses each one.
var rejectionPhrases = []string{
	"código inválido",
	"codigo invalido",
	"código incorreto",
	"codigo incorreto",
	"invalid code",
	"incorrect code",
	"código expirado",
	"codigo expirado",
	"autenticação inválida",
}

// isOTPRejection reports whether the provider's response text contains a
// known rejection phrase. The response may be an HTML page; only its
// visible text is considered so markup noise cannot mask a phrase.
func isOTPRejection(response string) bool {
	text := strings.ToLower(response)
	if strings.Contains(text, "<") {
		text = strings.ToLower(visibleText(response))
	}
	for _, phrase := range rejectionPhrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

// visibleText extracts the rendered text of an HTML fragment, skipping
// script and style subtrees.
func visibleText(fragment string) string {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return b.String()
}

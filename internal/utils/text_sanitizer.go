// Package utils holds small helpers shared by services.
package utils

import (
	"bytes"
	"html"
	"io"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	nethtml "golang.org/x/net/html"
)

// TextSanitizer reduces user supplied free text to plain text. Issue titles,
// addresses and remediation notes end up in emails and spreadsheets, so
// markup is dropped. A lone bracketed word such as "<main>" that is never
// closed and carries no attributes is ordinary text and is kept.
type TextSanitizer struct {
	policy *bluemonday.Policy
}

func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{policy: bluemonday.StrictPolicy()}
}

// alwaysMarkup lists elements that are stripped even when bare and unclosed.
var alwaysMarkup = map[string]bool{
	"script": true, "style": true, "iframe": true, "object": true, "embed": true,
	"br": true, "hr": true, "img": true, "wbr": true, "input": true, "meta": true, "link": true,
}

// Clean strips tags, skips script and style bodies and trims the result.
// Entities produced by the policy are decoded again so "&" stays "&".
func (s *TextSanitizer) Clean(input string) string {
	if input == "" {
		return ""
	}
	if strings.Contains(input, "<") {
		input = escapeBareTags(input)
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(input)))
}

// escapeBareTags rewrites start tags that are not markup as escaped text so
// the policy keeps them.
func escapeBareTags(input string) string {
	closed := map[string]bool{}
	z := nethtml.NewTokenizer(strings.NewReader(input))
	for {
		tt := z.Next()
		if tt == nethtml.ErrorToken {
			break
		}
		if tt == nethtml.EndTagToken {
			name, _ := z.TagName()
			closed[string(name)] = true
		}
	}

	var out bytes.Buffer
	z = nethtml.NewTokenizer(strings.NewReader(input))
	for {
		tt := z.Next()
		if tt == nethtml.ErrorToken {
			if z.Err() != io.EOF {
				return input
			}
			return out.String()
		}
		raw := z.Raw()
		if tt == nethtml.StartTagToken {
			name, hasAttr := z.TagName()
			tag := string(name)
			if !hasAttr && !closed[tag] && !alwaysMarkup[tag] {
				out.WriteString(html.EscapeString(string(raw)))
				continue
			}
		}
		out.Write(raw)
	}
}

var defaultSanitizer = NewTextSanitizer()

// StripHTML removes markup from input using the shared strict policy.
func StripHTML(input string) string {
	return defaultSanitizer.Clean(input)
}

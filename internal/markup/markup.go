// Package markup scans the two inline syntaxes the index understands.
//
// Grammar:
//
//	link   := "[[" target "]]"          ; target: one or more characters, no newline
//	block  := "{{" body "}}"            ; body: one or more characters, may span lines
//
// Both constructs close at the first terminator after at least one content
// character, so neither nests. A link target is recorded verbatim, including any
// "#anchor" or "|alias" suffix. An empty construct ("[[]]", "{{}}") and an
// opener without a terminator are plain text.
package markup

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	linkOpen   = "[["
	linkClose  = "]]"
	blockOpen  = "{{"
	blockClose = "}}"
	pagesDir   = "pages/"
)

// Links returns the target of every wiki-link occurrence in text, in order.
// Duplicates are kept: each occurrence is one link.
func Links(text string) []string {
	var links []string
	for i := 0; i+len(linkOpen) <= len(text); {
		if !strings.HasPrefix(text[i:], linkOpen) {
			i++
			continue
		}
		body, end, ok := scanDelimited(text, i, linkOpen, linkClose, false)
		if !ok {
			i++
			continue
		}
		links = append(links, body)
		i = end
	}
	return links
}

// Blocks returns the raw body of every content block in text, in order.
// Bodies are returned byte-for-byte; no trimming or normalization.
func Blocks(text string) []string {
	var blocks []string
	for i := 0; i+len(blockOpen) <= len(text); {
		if !strings.HasPrefix(text[i:], blockOpen) {
			i++
			continue
		}
		body, end, ok := scanDelimited(text, i, blockOpen, blockClose, true)
		if !ok {
			i++
			continue
		}
		blocks = append(blocks, body)
		i = end
	}
	return blocks
}

// scanDelimited reads a construct starting at text[start:], which must begin with
// open. The body is the shortest non-empty run up to the first close. It returns
// the body and the index just past close.
func scanDelimited(text string, start int, open, close string, multiline bool) (string, int, bool) {
	bodyStart := start + len(open)
	if bodyStart >= len(text) || strings.HasPrefix(text[bodyStart:], close) {
		return "", 0, false
	}
	// The body holds at least one character, so the search for close begins one
	// character in. A multi-byte rune still counts as one character.
	first := bodyStart + runeLen(text[bodyStart:])
	rel := strings.Index(text[first:], close)
	if rel < 0 {
		return "", 0, false
	}
	bodyEnd := first + rel
	body := text[bodyStart:bodyEnd]
	if !multiline && strings.Contains(body, "\n") {
		return "", 0, false
	}
	return body, bodyEnd + len(close), true
}

func runeLen(s string) int {
	for i := range s {
		if i > 0 {
			return i
		}
	}
	return len(s)
}

// Hash returns the lowercase hex SHA-256 of the exact block body.
func Hash(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}

// RewriteLinks replaces every link to oldTitle with a link to newTitle and
// reports how many links were rewritten.
//
// A matching link may carry whitespace just inside its brackets and an optional
// "pages/" prefix; both are dropped. An "#anchor" and/or "|alias" suffix is kept.
// Titles match exactly and case-sensitively.
func RewriteLinks(text, oldTitle, newTitle string) (string, int) {
	if oldTitle == "" {
		return text, 0
	}
	var b strings.Builder
	count := 0
	last := 0
	for i := 0; i+len(linkOpen) <= len(text); {
		if !strings.HasPrefix(text[i:], linkOpen) {
			i++
			continue
		}
		tail, end, ok := matchTitleLink(text, i, oldTitle)
		if !ok {
			i++
			continue
		}
		b.WriteString(text[last:i])
		b.WriteString(linkOpen)
		b.WriteString(newTitle)
		b.WriteString(tail)
		b.WriteString(linkClose)
		count++
		last = end
		i = end
	}
	if count == 0 {
		return text, 0
	}
	b.WriteString(text[last:])
	return b.String(), count
}

// matchTitleLink matches "[[" ws ["pages/"] title [#anchor] [|alias] ws "]]" at
// text[start:]. The anchor runs until "]" or "|", the alias until "]".
func matchTitleLink(text string, start int, title string) (tail string, end int, ok bool) {
	i := skipSpace(text, start+len(linkOpen))
	if strings.HasPrefix(text[i:], pagesDir) {
		if tail, end, ok := matchTitleRest(text, i+len(pagesDir), title); ok {
			return tail, end, true
		}
	}
	return matchTitleRest(text, i, title)
}

func matchTitleRest(text string, i int, title string) (string, int, bool) {
	if !strings.HasPrefix(text[i:], title) {
		return "", 0, false
	}
	i += len(title)

	tailStart := i
	if i < len(text) && text[i] == '#' {
		i++
		for i < len(text) && text[i] != ']' && text[i] != '|' {
			i++
		}
	}
	if i < len(text) && text[i] == '|' {
		i++
		for i < len(text) && text[i] != ']' {
			i++
		}
	}
	tailEnd := i

	i = skipSpace(text, i)
	if !strings.HasPrefix(text[i:], linkClose) {
		return "", 0, false
	}
	return text[tailStart:tailEnd], i + len(linkClose), true
}

func skipSpace(text string, i int) int {
	for i < len(text) {
		switch text[i] {
		case ' ', '\t', '\n', '\r', '\f', '\v':
			i++
		default:
			return i
		}
	}
	return i
}

// ReplaceBlock replaces every "{{oldBody}}" in text with "{{newBody}}" and
// reports how many blocks were replaced. Matching is on exact text.
func ReplaceBlock(text, oldBody, newBody string) (string, int) {
	if oldBody == "" {
		return text, 0
	}
	target := blockOpen + oldBody + blockClose
	n := strings.Count(text, target)
	if n == 0 {
		return text, 0
	}
	return strings.ReplaceAll(text, target, blockOpen+newBody+blockClose), n
}

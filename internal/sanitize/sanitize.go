// Package sanitize strips markup from user-submitted text. Contact form
// fields are plain text: every tag is removed with bluemonday's strict
// policy and entities are decoded so the stored value is what the visitor
// typed, minus any HTML. Entity-encoded markup is stripped too.
package sanitize

import (
	"html"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// policy is the shared strict policy. bluemonday policies are safe for
// concurrent use once built.
var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// maxDecodePasses bounds strip-and-decode rounds for nested encodings.
const maxDecodePasses = 8

// maxFilenameBytes caps stored file names.
const maxFilenameBytes = 200

// Text removes all HTML from input, decodes entities, and trims
// surrounding whitespace. Stripping and decoding repeat until the value
// stops changing, so "&lt;script&gt;" cannot decode into a live tag. Input
// that never settles keeps the policy's escaped form.
func Text(input string) string {
	if input == "" {
		return ""
	}
	out := input
	for i := 0; i < maxDecodePasses; i++ {
		next := html.UnescapeString(getPolicy().Sanitize(out))
		if next == out {
			return strings.TrimSpace(out)
		}
		out = next
	}
	return strings.TrimSpace(getPolicy().Sanitize(out))
}

// Line is Text for single-line fields: newlines and tabs collapse to a
// single space so values are safe in email headers and log lines.
func Line(input string) string {
	return strings.Join(strings.Fields(Text(input)), " ")
}

// Filename reduces a client-supplied file name to a safe base name.
func Filename(name string) string {
	name = Line(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == 0x7f:
			return -1
		case strings.ContainsRune(`<>:"|?*`, r):
			return '_'
		}
		return r
	}, name)
	name = strings.Trim(name, ". ")
	if name == "" {
		return "file"
	}
	if len(name) > maxFilenameBytes {
		// Keep the tail (it carries the extension), cut on a rune boundary.
		start := len(name) - maxFilenameBytes
		for start < len(name) && !utf8.RuneStart(name[start]) {
			start++
		}
		name = name[start:]
	}
	return name
}

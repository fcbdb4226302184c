package sanitize

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "Hello there", "Hello there"},
		{"script removed", `Hi<script>alert(1)</script>`, "Hi"},
		{"tags stripped", `<b>bold</b> and <a href="javascript:x">link</a>`, "bold and link"},
		{"entities decoded", "Fish &amp; Chips", "Fish & Chips"},
		{"ampersand survives", "R&D budget", "R&D budget"},
		{"trimmed", "  spaced  ", "spaced"},
		{"newlines kept", "line one\nline two", "line one\nline two"},
		{"encoded tag stripped", "&lt;b&gt;bold&lt;/b&gt;", "bold"},
		{"encoded script stripped", "Hello &lt;script&gt;alert(1)&lt;/script&gt; world", "Hello  world"},
		{"double encoded tag stripped", "&amp;lt;b&amp;gt;hi", "hi"},
		{"mixed encodings", "Hello &lt;script&gt;alert(1)&lt;/script&gt; world &amp;lt;b&amp;gt;", "Hello  world"},
		{"less-than in prose", "a < b and 3 &lt; 4", "a < b and 3 < 4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Text(tt.input); got != tt.want {
				t.Errorf("Text(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestText_NeverYieldsMarkup(t *testing.T) {
	inputs := []string{
		"&lt;img src=x onerror=alert(1)&gt;",
		"&amp;amp;lt;script&amp;amp;gt;x&amp;amp;lt;/script&amp;amp;gt;",
		"<scr<script>ipt>alert(1)</script>",
	}
	for _, in := range inputs {
		got := Text(in)
		if strings.Contains(got, "<script") || strings.Contains(got, "<img") {
			t.Errorf("Text(%q) = %q, still contains markup", in, got)
		}
	}
}

func TestLine(t *testing.T) {
	if got := Line("Acme\r\nBcc: victim@example.com"); got != "Acme Bcc: victim@example.com" {
		t.Errorf("Line() = %q", got)
	}
}

func TestFilename(t *testing.T) {
	tests := map[string]string{
		"report.pdf":            "report.pdf",
		"../../etc/passwd":      "passwd",
		`C:\Users\me\brief.doc`: "brief.doc",
		"a<b>.txt":              "a.txt",
		"what?.png":             "what_.png",
		"...":                   "file",
		"":                      "file",
	}
	for in, want := range tests {
		if got := Filename(in); got != want {
			t.Errorf("Filename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFilename_TruncatesOnRuneBoundary(t *testing.T) {
	// 305 bytes: a plain byte cut at 200 would land inside an "é".
	name := strings.Repeat("é", 150) + "x.pdf"
	got := Filename(name)

	if !utf8.ValidString(got) {
		t.Fatalf("Filename produced invalid UTF-8: %q", got)
	}
	if len(got) > 200 {
		t.Errorf("len = %d, want <= 200", len(got))
	}
	if !strings.HasSuffix(got, ".pdf") {
		t.Errorf("extension lost: %q", got)
	}
}

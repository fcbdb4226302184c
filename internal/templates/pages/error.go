// Package pages holds the few server-rendered HTML pages. The marketing
// site itself is a separate frontend; the API only renders a plain error
// page for browser requests that miss it.
package pages

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"

	"github.com/a-h/templ"
)

// ErrorPage renders a minimal standalone error document.
func ErrorPage(code int, message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := html.EscapeString(fmt.Sprintf("%d %s", code, http.StatusText(code)))
		_, err := fmt.Fprintf(w, errorTemplate, title, title, html.EscapeString(message))
		return err
	})
}

const errorTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta name="robots" content="noindex">
<title>%s</title>
<style>
body{font-family:system-ui,sans-serif;background:#0f172a;color:#e2e8f0;display:flex;min-height:100vh;align-items:center;justify-content:center;margin:0}
main{max-width:32rem;padding:2rem;text-align:center}
h1{font-size:1.5rem;margin:0 0 1rem}
a{color:#38bdf8}
</style>
</head>
<body>
<main>
<h1>%s</h1>
<p>%s</p>
<p><a href="/">Back to home</a></p>
</main>
</body>
</html>
`

// Package templates renders the HTML pages of the web UI as templ components.
package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

const styles = `body{font-family:system-ui,sans-serif;margin:0;background:#f6f7f9;color:#1f2933}
header{background:#1f2933;color:#fff;padding:12px 24px}header a{color:#fff;margin-right:16px}
main{max-width:1100px;margin:24px auto;padding:0 24px}
table{border-collapse:collapse;width:100%;background:#fff}th,td{border:1px solid #d9dee4;padding:4px 8px;text-align:left;font-size:13px}
.MATCHED{color:#18794e}.MISMATCHED{color:#b42318}.error{background:#fee4e2;border:1px solid #b42318;padding:8px 12px}
.metrics td{font-weight:600}pre{margin:0;white-space:pre-wrap}`

// page wraps body in the shared document shell.
func page(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>%s</title><style>%s</style></head><body>`,
			templ.EscapeString(title), styles); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `<header><a href="/">Compare</a><a href="/admin/dashboard">Dashboard</a></header><main>`); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</main></body></html>`)
		return err
	})
}

// ErrorAlert renders an error box for inline display.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div class="error" role="alert"><strong>%s</strong>`,
			templ.EscapeString(message))
		if err != nil {
			return err
		}
		if action != "" {
			if _, err := fmt.Fprintf(w, `<p>%s</p>`, templ.EscapeString(action)); err != nil {
				return err
			}
		}
		_, err = fmt.Fprintf(w, `<small>Code: %s</small></div>`, templ.EscapeString(code))
		return err
	})
}

// ErrorPage renders ErrorAlert as a full page.
func ErrorPage(message, action, code string) templ.Component {
	return page("Error", ErrorAlert(message, action, code))
}

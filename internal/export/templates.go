package export

import (
	"bytes"
	"html/template"
	"strings"
	"time"
)

var noteTemplate = template.Must(template.New("note").Funcs(template.FuncMap{
	"join": strings.Join,
	"formatDate": func(t time.Time, layout string) string {
		if t.IsZero() {
			return ""
		}
		return t.Format(layout)
	},
}).Parse(pageTemplate))

// TemplateData holds data for note page rendering
type TemplateData struct {
	Title       string
	Subject     string
	Tags        []string
	Author      string
	UpdatedAt   time.Time
	ContentHTML template.HTML
}

// RenderNoteHTML renders a standalone HTML page for a note. ContentHTML is
// inserted unescaped.
func RenderNoteHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := noteTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; max-width: 800px; margin: 2rem auto; }
    h1.title { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    mark { background: #fff3a3; }
  </style>
</head>
<body>
  <h1 class="title">{{.Title}}</h1>
  <div class="meta">
    {{- if .Subject}}{{.Subject}}{{end}}
    {{- if .Tags}} | {{join .Tags ", "}}{{end}}
    {{- if .Author}} | {{.Author}}{{end}}
    {{- with formatDate .UpdatedAt "Jan 2, 2006"}} | {{.}}{{end -}}
  </div>
  <div class="content">{{.ContentHTML}}</div>
</body>
</html>`

package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var documentTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"lower": strings.ToLower,
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
	}

	templateContent, err := templateFS.ReadFile("templates/document.html")
	if err != nil {
		// Fallback to built-in template if file not found
		documentTemplate = template.Must(template.New("document").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}

	documentTemplate = template.Must(template.New("document").Funcs(funcMap).Parse(string(templateContent)))
}

// TemplateData holds data for document template rendering
type TemplateData struct {
	Title       string
	Paragraphs  []string
	Author      string
	UpdatedAt   time.Time
	Status      string
	Suggestions []Suggestion
}

// RenderDocumentHTML renders the document template with provided data
func RenderDocumentHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// splitParagraphs breaks a plain-text body on blank lines.
func splitParagraphs(body string) []string {
	normalized := strings.ReplaceAll(body, "\r\n", "\n")
	parts := strings.Split(normalized, "\n\n")
	paragraphs := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		paragraphs = append(paragraphs, trimmed)
	}
	return paragraphs
}

// fallbackTemplate is used if the embedded template fails to load
const fallbackTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Georgia, serif; line-height: 1.6; max-width: 800px; margin: 2rem auto; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    .suggestion { background: #f5f5f5; padding: 1rem; margin: 1rem 0; border-left: 3px solid #333; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  <div class="meta">{{.Author}} | {{.Status}} | {{.UpdatedAt.Format "Jan 2, 2006"}}</div>
  {{range .Paragraphs}}<p>{{.}}</p>{{end}}
  {{if .Suggestions}}
  <h2>Pending Suggestions</h2>
  {{range .Suggestions}}<div class="suggestion"><strong>{{.Kind}}</strong>: &ldquo;{{.MatchedText}}&rdquo; &rarr; &ldquo;{{.Replacement}}&rdquo;{{if .Explanation}}<br>{{.Explanation}}{{end}}</div>{{end}}
  {{end}}
</body>
</html>`

package export

import (
	"bytes"
	"html/template"

	"github.com/r-alnz/Docurate-sub000/internal/pagedoc"
)

// templateData holds data for print HTML rendering. Pages are raw editor
// HTML; they were authored in the in-app editor and are rendered for print
// only, never echoed back into the API.
type templateData struct {
	Title string
	Pages []template.HTML
}

var printTemplate = template.Must(template.New("print").Parse(printHTML))

// RenderPrintHTML splits page-delimited content and wraps each page in a
// print container with a CSS page break after it.
func RenderPrintHTML(title, content string) (string, error) {
	raw := pagedoc.SplitPages(content)
	pages := make([]template.HTML, len(raw))
	for i, p := range raw {
		pages[i] = template.HTML(p)
	}

	var buf bytes.Buffer
	if err := printTemplate.Execute(&buf, templateData{Title: title, Pages: pages}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const printHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.5; margin: 0; }
    .page { page-break-after: always; }
    .page:last-child { page-break-after: auto; }
    img { max-width: 100%; }
  </style>
</head>
<body>
{{range .Pages}}<div class="page">{{.}}</div>
{{end}}</body>
</html>`

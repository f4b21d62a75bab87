package export

import (
	"encoding/base64"
	"fmt"
	"html"
	"html/template"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/hpkns/evidenceangel/internal/angelmark"
	"github.com/hpkns/evidenceangel/internal/pkgengine"
	"github.com/hpkns/evidenceangel/internal/testcase"
)

const htmlDocumentTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
.tab { display: none; }
.tab.active { display: block; }
.tab-bar a { margin-right: 1em; }
.evidence { border: 1px solid #ccc; padding: 1em; margin: 1em 0; }
.http-pair { display: flex; gap: 1em; }
.http-pair pre { flex: 1; overflow-x: auto; background: #f4f4f4; padding: 0.5em; }
table { border-collapse: collapse; }
table td, table th { border: 1px solid #999; padding: 0.3em 0.6em; }
</style>
<script>
function showTab(id) {
  document.querySelectorAll(".tab").forEach(function(t) { t.classList.remove("active"); });
  document.getElementById(id).classList.add("active");
}
</script>
</head>
<body>
<h1>{{.Title}}</h1>
<div class="tab-bar">
{{range .Tabs}}<a href="#{{.ID}}" onclick="showTab('{{.ID}}')">{{.Label}}</a>
{{end}}
</div>
{{range .Tabs}}<div class="tab" id="{{.ID}}">{{.Body}}</div>
{{end}}
<script>showTab("{{.FirstTabID}}");</script>
</body>
</html>
`

type htmlTab struct {
	ID    string
	Label string
	Body  template.HTML
}

type htmlDocument struct {
	Title      string
	Tabs       []htmlTab
	FirstTabID string
}

func exportHTML(pkg *pkgengine.Engine, scope Scope, ids []uuid.UUID, tempPath string) error {
	tmpl, err := template.New("export").Parse(htmlDocumentTemplate)
	if err != nil {
		return &FailedError{Backend: "html", Reason: err.Error()}
	}

	doc := htmlDocument{Title: pkg.Metadata().Title}
	if scope.Kind == ScopePackage {
		tab := htmlTab{ID: "metadata", Label: "Metadata", Body: template.HTML(renderPackageMetadataHTML(pkg))}
		doc.Tabs = append(doc.Tabs, tab)
		doc.FirstTabID = tab.ID
	}
	for i, id := range ids {
		tc, ok := pkg.TestCase(id)
		if !ok {
			continue
		}
		tabID := fmt.Sprintf("tab%d", i)
		body, err := renderTestCaseHTML(pkg, tc)
		if err != nil {
			return &FailedError{Backend: "html", Reason: err.Error()}
		}
		doc.Tabs = append(doc.Tabs, htmlTab{ID: tabID, Label: tc.Metadata.Title, Body: template.HTML(body)})
		if doc.FirstTabID == "" {
			doc.FirstTabID = tabID
		}
	}

	f, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return &FailedError{Backend: "html", Reason: err.Error()}
	}
	defer f.Close()
	if err := tmpl.Execute(f, doc); err != nil {
		return &FailedError{Backend: "html", Reason: err.Error()}
	}
	return nil
}

// renderPackageMetadataHTML renders the package-level metadata tab: title,
// authors, and description. Only shown for a whole-package export; a
// single test case export has no package-level tab to confuse it with.
func renderPackageMetadataHTML(pkg *pkgengine.Engine) string {
	meta := pkg.Metadata()
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>%s</h2>\n", html.EscapeString(meta.Title))
	if meta.Description != "" {
		fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(meta.Description))
	}
	if len(meta.Authors) > 0 {
		b.WriteString("<h3>Authors</h3>\n<ul>\n")
		for _, a := range meta.Authors {
			if a.Email != "" {
				fmt.Fprintf(&b, "<li>%s &lt;%s&gt;</li>\n", html.EscapeString(a.Name), html.EscapeString(a.Email))
			} else {
				fmt.Fprintf(&b, "<li>%s</li>\n", html.EscapeString(a.Name))
			}
		}
		b.WriteString("</ul>\n")
	}
	return b.String()
}

func renderTestCaseHTML(pkg *pkgengine.Engine, tc testcase.Case) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>%s</h2>\n", html.EscapeString(tc.Metadata.Title))
	fmt.Fprintf(&b, "<p>Executed: %s</p>\n", html.EscapeString(tc.Metadata.ExecutionDatetime.Format("2006-01-02 15:04:05")))
	b.WriteString("<p>Result: ")
	switch tc.Metadata.Passed {
	case testcase.PassedTrue:
		b.WriteString("Passed")
	case testcase.PassedFalse:
		b.WriteString("Failed")
	default:
		b.WriteString("Not recorded")
	}
	b.WriteString("</p>\n")

	for _, ev := range tc.Evidence {
		b.WriteString("<div class=\"evidence\">\n")
		if ev.Caption != "" {
			fmt.Fprintf(&b, "<p><em>%s</em></p>\n", html.EscapeString(ev.Caption))
		}
		body, err := renderEvidenceHTML(pkg, ev)
		if err != nil {
			return "", err
		}
		b.WriteString(body)
		b.WriteString("</div>\n")
	}
	return b.String(), nil
}

func renderEvidenceHTML(pkg *pkgengine.Engine, ev testcase.Evidence) (string, error) {
	switch ev.Kind {
	case testcase.KindText:
		text, _, err := resolveBytes(pkg, ev.Value)
		if err != nil {
			return "", err
		}
		return "<pre>" + html.EscapeString(string(text)) + "</pre>", nil
	case testcase.KindRichText:
		source, _, err := resolveBytes(pkg, ev.Value)
		if err != nil {
			return "", err
		}
		return renderAngelMarkHTML(string(source)), nil
	case testcase.KindImage:
		data, mimeType, err := resolveBytes(pkg, ev.Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(`<img src="data:%s;base64,%s" alt="evidence image">`, mimeType, base64.StdEncoding.EncodeToString(data)), nil
	case testcase.KindFile:
		data, mimeType, err := resolveBytes(pkg, ev.Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(`<a download="%s" href="data:%s;base64,%s">%s</a>`,
			html.EscapeString(ev.OriginalFilename), mimeType,
			base64.StdEncoding.EncodeToString(data), html.EscapeString(ev.OriginalFilename)), nil
	case testcase.KindHttp:
		raw, _, err := resolveBytes(pkg, ev.Value)
		if err != nil {
			return "", err
		}
		request, response, err := testcase.DecodeHttp(raw)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(`<div class="http-pair"><pre>%s</pre><pre>%s</pre></div>`,
			html.EscapeString(string(request)), html.EscapeString(string(response))), nil
	default:
		return "", fmt.Errorf("export: unknown evidence kind %q", ev.Kind)
	}
}

// renderAngelMarkHTML renders parsed markup to semantic HTML. A source
// that fails to parse falls back to its literal text, wrapped so the
// page still shows something readable.
func renderAngelMarkHTML(source string) string {
	f, err := angelmark.Parse(source)
	if err != nil {
		return "<pre class=\"markup-unparsed\">" + html.EscapeString(source) + "</pre>" +
			"<p><small>couldn't parse as markup: " + html.EscapeString(err.Error()) + "</small></p>"
	}
	var b strings.Builder
	for _, line := range f.Lines {
		renderAngelMarkLineHTML(&b, line)
	}
	return b.String()
}

func renderAngelMarkLineHTML(b *strings.Builder, line angelmark.Line) {
	switch l := line.(type) {
	case angelmark.Heading:
		fmt.Fprintf(b, "<h%d>", l.Level)
		renderAngelMarkContentHTML(b, l.Content)
		fmt.Fprintf(b, "</h%d>\n", l.Level)
	case angelmark.Paragraph:
		b.WriteString("<p>")
		renderAngelMarkContentHTML(b, l.Content)
		b.WriteString("</p>\n")
	case angelmark.Table:
		b.WriteString("<table>\n<thead><tr>")
		for i, cell := range l.Header.Cells {
			fmt.Fprintf(b, "<th style=\"text-align:%s\">", alignmentCSS(alignmentAt(l.Alignment, i)))
			renderAngelMarkContentHTML(b, cell)
			b.WriteString("</th>")
		}
		b.WriteString("</tr></thead>\n<tbody>\n")
		for _, row := range l.Rows {
			b.WriteString("<tr>")
			for i, cell := range row.Cells {
				fmt.Fprintf(b, "<td style=\"text-align:%s\">", alignmentCSS(alignmentAt(l.Alignment, i)))
				renderAngelMarkContentHTML(b, cell)
				b.WriteString("</td>")
			}
			b.WriteString("</tr>\n")
		}
		b.WriteString("</tbody>\n</table>\n")
	}
}

func alignmentAt(alignment []angelmark.Alignment, i int) angelmark.Alignment {
	if i < 0 || i >= len(alignment) {
		return angelmark.AlignDefault
	}
	return alignment[i]
}

func alignmentCSS(a angelmark.Alignment) string {
	switch a {
	case angelmark.AlignLeft:
		return "left"
	case angelmark.AlignRight:
		return "right"
	case angelmark.AlignCenter:
		return "center"
	default:
		return "inherit"
	}
}

func renderAngelMarkContentHTML(b *strings.Builder, content []angelmark.TextContent) {
	for _, c := range content {
		switch v := c.(type) {
		case angelmark.RawText:
			b.WriteString(html.EscapeString(v.Text))
		case angelmark.Bold:
			b.WriteString("<strong>")
			renderAngelMarkContentHTML(b, v.Content)
			b.WriteString("</strong>")
		case angelmark.Italic:
			b.WriteString("<em>")
			renderAngelMarkContentHTML(b, v.Content)
			b.WriteString("</em>")
		case angelmark.Monospace:
			b.WriteString("<code>")
			renderAngelMarkContentHTML(b, v.Content)
			b.WriteString("</code>")
		}
	}
}

package report

import (
	"fmt"
	"html/template"
	"os"
)

// htmlTemplate is deliberately self-contained: one file, no assets, so it
// can be archived as a CI artifact.
const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>behold visual regression report</title>
<style>
  body { font-family: system-ui, sans-serif; margin: 2rem; color: #1a1a2e; }
  h1 { font-size: 1.4rem; }
  .summary span { display: inline-block; margin-right: 1.5rem; }
  table { border-collapse: collapse; width: 100%; margin-top: 1rem; }
  th, td { text-align: left; padding: 0.4rem 0.8rem; border-bottom: 1px solid #ddd; }
  .status-passed { color: #2e7d32; }
  .status-failed { color: #c62828; font-weight: bold; }
  .status-new { color: #1565c0; }
  .status-error { color: #ef6c00; }
  img.thumb { max-width: 320px; border: 1px solid #ccc; display: block; }
</style>
</head>
<body>
<h1>Visual regression report</h1>
<p>{{.Timestamp.Format "2006-01-02 15:04:05 MST"}}</p>
<p class="summary">
  <span>total {{.Summary.Total}}</span>
  <span class="status-passed">passed {{.Summary.Passed}}</span>
  <span class="status-failed">failed {{.Summary.Failed}}</span>
  <span class="status-new">new {{.Summary.New}}</span>
  <span class="status-error">errors {{.Summary.Skipped}}</span>
  <span>{{.Summary.DurationMs}} ms</span>
</p>
<table>
<tr><th>Identity</th><th>Viewport</th><th>Status</th><th>Diff</th><th>Detail</th></tr>
{{range .Results}}
<tr>
  <td>{{.Identity.Owner}}/{{.Identity.Variant}}</td>
  <td>{{.Viewport.Label}}</td>
  <td class="status-{{.Status}}">{{.Status}}</td>
  <td>{{if eq .Status "passed" "failed"}}{{printf "%.2f%%" .DiffPercentage}}{{end}}</td>
  <td>
    {{- if .ErrorMessage}}{{.ErrorMessage}}
    {{- else if eq .Status "failed"}}<img class="thumb" src="{{.Paths.Diff}}" alt="diff">{{end -}}
  </td>
</tr>
{{end}}
</table>
</body>
</html>
`

// WriteHTML renders the report as a standalone HTML page at path.
func (r *Report) WriteHTML(path string) error {
	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("parse report template: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create html report: %w", err)
	}
	defer f.Close()

	if err := tmpl.Execute(f, r); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}
	return nil
}

package notifier

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

// Row is one watch item in the report email.
type Row struct {
	Label        string
	Found        bool
	Median       float64
	Min          float64
	Max          float64
	TotalResults int
	Source       string
}

// Report is the data the email template renders.
type Report struct {
	Name        string
	Rows        []Row
	GeneratedAt time.Time
}

var reportTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("$%.2f", v) },
	"date":  func(t time.Time) string { return t.Format("January 2, 2006") },
}).Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
<h2>HelmetPulse price report</h2>
<p>Hi {{if .Name}}{{.Name}}{{else}}there{{end}}, here are this week's prices for your watchlist ({{date .GeneratedAt}}).</p>
<table cellpadding="6" style="border-collapse: collapse;">
<tr style="background: #f0f0f0;"><th align="left">Helmet</th><th>Median</th><th>Range</th><th>Sales</th><th>Source</th></tr>
{{range .Rows}}<tr>
<td>{{.Label}}</td>
{{if .Found}}<td>{{money .Median}}</td><td>{{money .Min}} - {{money .Max}}</td><td>{{.TotalResults}}</td><td>{{.Source}}</td>
{{else}}<td colspan="4"><em>No recent price</em></td>
{{end}}</tr>
{{end}}</table>
<p style="font-size: 12px; color: #888;">You are receiving this because you subscribed to HelmetPulse price alerts.</p>
</body>
</html>
`))

// Render produces the HTML body for one subscriber.
func Render(r Report) (string, error) {
	var buf bytes.Buffer
	if err := reportTmpl.Execute(&buf, r); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

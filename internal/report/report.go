// Package report builds self-contained HTML documents from chart and QR
// parameters. Images are embedded as base64 data URIs so the resulting
// payload needs no file access at render time.
package report

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"

	qrcode "github.com/skip2/go-qrcode"
	chart "github.com/wcharczuk/go-chart/v2"

	"inkwell/internal/pkg/errors"
)

// Params describe one report document. Zero values fall back to the
// defaults in ApplyDefaults.
type Params struct {
	Title         string    `json:"title"`
	Subtitle      string    `json:"subtitle"`
	PieValues     []float64 `json:"pie_values"`
	PieLabels     []string  `json:"pie_labels"`
	BarCategories []string  `json:"bar_categories"`
	BarValues     []float64 `json:"bar_values"`
	QRText        string    `json:"qr_text"`
	Notes         string    `json:"notes"`
}

// ApplyDefaults fills unset fields with the stock demo report.
func (p *Params) ApplyDefaults() {
	if p.Title == "" {
		p.Title = "Report"
	}
	if len(p.PieValues) == 0 {
		p.PieValues = []float64{50, 30, 20}
		p.PieLabels = []string{"A", "B", "C"}
	}
	if len(p.BarCategories) == 0 {
		p.BarCategories = []string{"Jan", "Feb"}
		p.BarValues = []float64{10, 20}
	}
	if p.QRText == "" {
		p.QRText = "https://example.com"
	}
}

// Validate rejects parameter sets the chart builders cannot draw.
func (p *Params) Validate() error {
	if len(p.PieValues) != len(p.PieLabels) {
		return errors.Validation("pie_values and pie_labels must have equal length")
	}
	if len(p.BarCategories) != len(p.BarValues) {
		return errors.Validation("bar_categories and bar_values must have equal length")
	}
	return nil
}

const tmplText = `<!doctype html>
<html>
<head>
<meta charset="utf-8"/>
<style>
  body{font-family:Arial, sans-serif; color:#222; margin:24mm;}
  .charts{display:flex;gap:8px;margin-top:8px}
  img{max-width:100%;height:auto;display:block}
</style>
</head>
<body>
  <div>
    <h1>{{.Title}}</h1>
    <div>{{.Subtitle}}</div>
  </div>

  <div class="charts">
    <div><h3>Pie</h3><img src="{{.Pie}}" width="480" height="360"/></div>
    <div><h3>Bar</h3><img src="{{.Bar}}" width="640" height="360"/></div>
  </div>

  <div style="margin-top:12px;">
    <h3>QR</h3>
    <img src="{{.QR}}" width="150" height="150"/>
  </div>

  <div style="margin-top:12px;">Notes: {{.Notes}}</div>
</body>
</html>
`

var tmpl = template.Must(template.New("report").Parse(tmplText))

type templateData struct {
	Title    string
	Subtitle string
	Pie      template.URL
	Bar      template.URL
	QR       template.URL
	Notes    string
}

// BuildHTML renders the report into a self-contained HTML document ready
// for submission.
func BuildHTML(p Params) ([]byte, error) {
	p.ApplyDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	pie, err := renderPie(p.PieValues, p.PieLabels)
	if err != nil {
		return nil, errors.Wrap(err, "report.build", "pie chart failed")
	}
	bar, err := renderBar(p.BarCategories, p.BarValues)
	if err != nil {
		return nil, errors.Wrap(err, "report.build", "bar chart failed")
	}
	qr, err := renderQR(p.QRText)
	if err != nil {
		return nil, errors.Wrap(err, "report.build", "qr code failed")
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, templateData{
		Title:    p.Title,
		Subtitle: p.Subtitle,
		Pie:      dataURI(pie),
		Bar:      dataURI(bar),
		QR:       dataURI(qr),
		Notes:    p.Notes,
	})
	if err != nil {
		return nil, errors.Wrap(err, "report.build", "template failed")
	}
	return buf.Bytes(), nil
}

func renderPie(values []float64, labels []string) ([]byte, error) {
	vals := make([]chart.Value, len(values))
	for i, v := range values {
		vals[i] = chart.Value{Value: v, Label: labels[i]}
	}

	pc := chart.PieChart{
		Width:  480,
		Height: 360,
		Values: vals,
	}

	var buf bytes.Buffer
	if err := pc.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderBar(categories []string, values []float64) ([]byte, error) {
	bars := make([]chart.Value, len(values))
	for i, v := range values {
		bars[i] = chart.Value{Value: v, Label: categories[i]}
	}

	bc := chart.BarChart{
		Width:    640,
		Height:   360,
		BarWidth: 60,
		Bars:     bars,
	}

	var buf bytes.Buffer
	if err := bc.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderQR(text string) ([]byte, error) {
	return qrcode.Encode(text, qrcode.Medium, 300)
}

func dataURI(png []byte) template.URL {
	return template.URL(fmt.Sprintf("data:image/png;base64,%s", base64.StdEncoding.EncodeToString(png)))
}

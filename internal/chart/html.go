package chart

import (
	"fmt"
	"html/template"
	"io"
)

// DefaultPlotlyURL is the script loaded by exported documents.
const DefaultPlotlyURL = "https://cdn.plot.ly/plotly-2.35.2.min.js"

// HTMLOptions controls document export.
type HTMLOptions struct {
	// Title is the page title; defaults to the first figure's title.
	Title string
	// PlotlyURL overrides DefaultPlotlyURL.
	PlotlyURL string
	// Notes are rendered as paragraphs above the charts.
	Notes []string
}

var docTpl = template.Must(template.New("doc").Parse(`<!doctype html>
<html><head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<script src="{{.PlotlyURL}}"></script>
<style>
body{font-family:system-ui,-apple-system,Segoe UI,Roboto,sans-serif;margin:24px;color:#1f2937}
.chart{width:100%;min-height:460px;margin-bottom:32px}
.muted{color:#6b7280}
</style>
</head><body>
<h1>{{.Title}}</h1>
{{range .Notes}}<p class="muted">{{.}}</p>
{{end}}{{range $i, $f := .Figures}}<div id="chart-{{$i}}" class="chart"></div>
<script>Plotly.newPlot("chart-{{$i}}", {{$f.Data}}, {{$f.Layout}}, {responsive: true});</script>
{{end}}</body></html>
`))

// WriteHTML writes a standalone HTML document showing one figure.
func WriteHTML(w io.Writer, fig *Figure, opt HTMLOptions) error {
	return WriteDocument(w, []*Figure{fig}, opt)
}

// WriteDocument writes several figures into one HTML document, in order.
func WriteDocument(w io.Writer, figs []*Figure, opt HTMLOptions) error {
	if opt.PlotlyURL == "" {
		opt.PlotlyURL = DefaultPlotlyURL
	}
	if opt.Title == "" {
		for _, f := range figs {
			if t := f.Title(); t != "" {
				opt.Title = t
				break
			}
		}
	}
	if opt.Title == "" {
		opt.Title = "FlowViz"
	}
	out := make([]*Figure, 0, len(figs))
	for _, f := range figs {
		if f == nil {
			continue
		}
		if f.Data == nil {
			cp := *f
			cp.Data = []Trace{}
			f = &cp
		}
		out = append(out, f)
	}
	data := struct {
		HTMLOptions
		Figures []*Figure
	}{opt, out}
	if err := docTpl.Execute(w, data); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

package chart

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriteHTML(t *testing.T) {
	fig, err := Bar(shopFixture(), "Product", "Sales", "v", "Sales <by> Product")
	if err != nil {
		t.Fatalf("bar: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteHTML(&buf, fig, HTMLOptions{PlotlyURL: "https://example.test/plotly.js"}); err != nil {
		t.Fatalf("WriteHTML: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`<script src="https://example.test/plotly.js"></script>`,
		"<title>Sales &lt;by&gt; Product</title>",
		`Plotly.newPlot("chart-0"`,
		`"type":"bar"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("html missing %q\n%s", want, out)
		}
	}
}

func TestWriteDocumentDefaults(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteDocument(&buf, []*Figure{{}, nil}, HTMLOptions{}); err != nil {
		t.Fatalf("WriteDocument: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, DefaultPlotlyURL) || !strings.Contains(out, "<title>FlowViz</title>") {
		t.Fatalf("defaults not applied:\n%s", out)
	}
	if strings.Count(out, "Plotly.newPlot") != 1 {
		t.Fatalf("nil figures should be skipped")
	}
}

func TestMermaid(t *testing.T) {
	ds := shopFixture()
	bar, _ := Bar(ds, "Product", "Sales", "v", "")
	md := Mermaid(bar)
	for _, want := range []string{"```mermaid", "xychart-beta", `title "Sales by Product"`, `x-axis ["cap", "ink", "pen"]`, "bar [8, 4, 15]"} {
		if !strings.Contains(md, want) {
			t.Errorf("mermaid missing %q\n%s", want, md)
		}
	}
	pie, _ := Pie(ds, "Product", "Sales", "")
	if md := Mermaid(pie); !strings.Contains(md, "pie title Sales by Product") || !strings.Contains(md, `"pen" : 15`) {
		t.Errorf("pie mermaid:\n%s", md)
	}
	hist, _ := Histogram(ds, "Sales", 10, "")
	if md := Mermaid(hist); md != "" {
		t.Errorf("histogram should not render as mermaid: %s", md)
	}
}

func TestFigureTable(t *testing.T) {
	ds := shopFixture()
	line, _ := Line(ds, "Day", []string{"Sales", "Cost"}, "")
	tbl := line.Table()
	if got := strings.Join(tbl.Names(), ","); got != "series,x,y" {
		t.Fatalf("names = %s", got)
	}
	if tbl.NumRows() != 10 {
		t.Fatalf("rows = %d, want 10", tbl.NumRows())
	}
	y, ok := tbl.NumericColumn("y")
	if !ok || y.Num[5] != 2 {
		t.Fatalf("y column = %+v", y)
	}

	hm, _ := Heatmap(ds, []string{"Sales", "Cost"}, "")
	m := hm.Table()
	if got := strings.Join(m.Names(), ","); got != "column,Sales,Cost" {
		t.Fatalf("matrix names = %s", got)
	}
	c, _ := m.NumericColumn("Sales")
	if c.Num[0] != 1 {
		t.Fatalf("diagonal = %v", c.Num[0])
	}
}

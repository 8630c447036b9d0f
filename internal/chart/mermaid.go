package chart

import (
	"fmt"
	"math"
	"strings"
)

// mermaidMaxPoints caps x-axis labels; wider charts overlap in Mermaid.
const mermaidMaxPoints = 60

// Mermaid renders bar, line and pie figures as a fenced Mermaid block for
// Markdown output. Other figures (heatmaps, histograms, boxes, scatter
// without lines) return "".
func Mermaid(fig *Figure) string {
	if fig == nil || len(fig.Data) == 0 {
		return ""
	}
	if fig.Data[0].Type == TypePie {
		return mermaidPie(fig)
	}
	return mermaidXY(fig)
}

func mermaidPie(fig *Figure) string {
	t := fig.Data[0]
	if len(t.Labels) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString(fmt.Sprintf("pie title %s\n", mermaidText(fig.Title())))
	for i, l := range t.Labels {
		if i >= len(t.Values) {
			break
		}
		v, ok := t.Values[i].(float64)
		if !ok {
			continue
		}
		sb.WriteString(fmt.Sprintf("    \"%s\" : %s\n", mermaidText(cellString(l)), formatFloat(round2(v))))
	}
	sb.WriteString("```")
	return sb.String()
}

func mermaidXY(fig *Figure) string {
	var series []Trace
	for _, t := range fig.Data {
		switch {
		case t.Type == TypeBar, t.Type == TypeScatter && strings.Contains(t.Mode, "lines"):
			series = append(series, t)
		default:
			return ""
		}
	}
	base := series[0]
	labels, horizontal := base.X, base.Orientation == "h"
	if horizontal {
		labels = base.Y
	}
	if len(labels) == 0 {
		return ""
	}
	step := 1
	if len(labels) > mermaidMaxPoints {
		step = int(math.Ceil(float64(len(labels)) / mermaidMaxPoints))
	}
	var xs []string
	for i := 0; i < len(labels); i += step {
		xs = append(xs, fmt.Sprintf("\"%s\"", mermaidText(cellString(labels[i]))))
	}

	minY, maxY := 0.0, 0.0
	var lines []string
	for _, t := range series {
		vals := t.Y
		if horizontal {
			vals = t.X
		}
		var ys []string
		for i := 0; i < len(labels); i += step {
			v := 0.0
			if i < len(vals) {
				if f, ok := vals[i].(float64); ok {
					v = f
				}
			}
			minY = math.Min(minY, v)
			maxY = math.Max(maxY, v)
			ys = append(ys, formatFloat(round2(v)))
		}
		kind := "line"
		if t.Type == TypeBar {
			kind = "bar"
		}
		lines = append(lines, fmt.Sprintf("    %s [%s]\n", kind, strings.Join(ys, ", ")))
	}

	yTitle := "Value"
	if a := fig.Layout.YAxis; a != nil && a.Title != nil && !horizontal {
		yTitle = a.Title.Text
	} else if a := fig.Layout.XAxis; horizontal && a != nil && a.Title != nil {
		yTitle = a.Title.Text
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	if horizontal {
		sb.WriteString("    horizontal\n")
	}
	sb.WriteString(fmt.Sprintf("    title \"%s\"\n", mermaidText(fig.Title())))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(xs, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"%s\" %d --> %d\n", mermaidText(yTitle), int(math.Floor(minY*1.1)), int(math.Ceil(maxY*1.1))))
	for _, l := range lines {
		sb.WriteString(l)
	}
	sb.WriteString("```")
	return sb.String()
}

func mermaidText(s string) string {
	return strings.NewReplacer("\"", "'", "\n", " ").Replace(s)
}

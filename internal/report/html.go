package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// WriteHTML renders one line chart per metric on a single page.
func WriteHTML(w io.Writer, title string, traces []Trace) error {
	if !hasSamples(traces) {
		return ErrNoData
	}

	page := components.NewPage()
	for _, m := range metrics {
		yName := m.name
		if m.unit != "" {
			yName = fmt.Sprintf("%s (%s)", m.name, m.unit)
		}
		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "360px"}),
			charts.WithTitleOpts(opts.Title{Title: m.name, Subtitle: title}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
			charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
			charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "Time (s)", NameLocation: "middle", NameGap: 25}),
			charts.WithYAxisOpts(opts.YAxis{Name: yName}),
		)
		for _, tr := range traces {
			values := m.value(tr)
			data := make([]opts.LineData, tr.Len())
			for i := range data {
				data[i] = opts.LineData{Value: []interface{}{tr.Time[i], values[i]}}
			}
			line.AddSeries(tr.VehicleID, data)
		}
		page.AddCharts(line)
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render html: %w", err)
	}
	return nil
}

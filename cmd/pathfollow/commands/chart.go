package commands

import (
	"fmt"
	"io"
	"slices"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/pathfollow/internal/follow"
)

const (
	chartWidth  = "100%"
	chartHeight = "500px"
	monthLayout = "2006-01"
	stackName   = "path"
)

// renderChart writes a standalone HTML page with the commits of report per
// month, stacked by the path the file had at each commit.
func renderChart(w io.Writer, report *follow.Report) error {
	var (
		months []string
		paths  []string
		counts = map[string]map[string]int{}
	)

	// Entries are newest first; walk oldest first so series follow the file's names in order.
	for _, entry := range slices.Backward(report.Entries) {
		month := entry.When.UTC().Format(monthLayout)
		if !slices.Contains(months, month) {
			months = append(months, month)
		}

		if !slices.Contains(paths, entry.Path) {
			paths = append(paths, entry.Path)
		}

		if counts[entry.Path] == nil {
			counts[entry.Path] = map[string]int{}
		}

		counts[entry.Path][month]++
	}

	slices.Sort(months)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "pathfollow: " + report.Path,
			Width:     chartWidth,
			Height:    chartHeight,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    report.Path,
			Subtitle: fmt.Sprintf("%d commits across %d paths", len(report.Entries), len(paths)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Month"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Commits"}),
	)
	bar.SetXAxis(months)

	for _, path := range paths {
		data := make([]opts.BarData, len(months))
		for i, month := range months {
			data[i] = opts.BarData{Value: counts[path][month]}
		}

		bar.AddSeries(path, data, charts.WithBarChartOpts(opts.BarChart{Stack: stackName}))
	}

	err := bar.Render(w)
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}

	return nil
}

package export

import (
	"fmt"
	"math"
	"os"
	"strings"

	"jira-flow/internal/stats"

	"github.com/rs/zerolog/log"
)

const maxChartPoints = 60

// CFDChart renders a Mermaid xychart-beta with one stacked line per status.
// Status order is bottom to top; long ranges are sampled per week or month.
func CFDChart(res stats.CFDResult, statuses []string) string {
	if len(res.Days) == 0 {
		return ""
	}
	if len(statuses) == 0 {
		statuses = res.Statuses()
	}

	first, last := res.Days[0].Date, res.Days[len(res.Days)-1].Date
	bucket := "day"
	if len(res.Days) > maxChartPoints {
		bucket = "week"
		if len(res.Days)/7 > maxChartPoints {
			bucket = "month"
		}
	}
	window := stats.NewWindow(first, last, bucket)

	// pick the last simulated day of every bucket
	var labels []string
	var samples []stats.CFDDay
	idx := 0
	for _, start := range window.Subdivide() {
		end := stats.SnapToEnd(start, bucket)
		for idx+1 < len(res.Days) && !res.Days[idx+1].Date.After(end) {
			idx++
		}
		labels = append(labels, fmt.Sprintf("\"%s\"", window.GenerateLabel(start)))
		samples = append(samples, res.Days[idx])
	}

	series := make([][]string, len(statuses))
	maxVal := 0
	for _, day := range samples {
		cumulative := 0
		for i, s := range statuses {
			cumulative += day.Counts[s]
			series[i] = append(series[i], fmt.Sprintf("%d", cumulative))
		}
		maxVal = max(maxVal, cumulative)
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Cumulative Flow\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Issues\" 0 --> %d\n", maxVal+int(math.Max(1, float64(maxVal)*0.1))))
	// Later lines are drawn on top, so emit the highest band first.
	for i := len(statuses) - 1; i >= 0; i-- {
		sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(series[i], ", ")))
	}
	sb.WriteString("```\n")
	if len(statuses) > 0 {
		sb.WriteString(fmt.Sprintf("\nBands (top to bottom): %s\n", strings.Join(reversed(statuses), ", ")))
	}
	return sb.String()
}

// WriteCFDChart writes the Mermaid CFD chart to path.
func WriteCFDChart(res stats.CFDResult, statuses []string, path string) error {
	chart := CFDChart(res, statuses)
	if chart == "" {
		log.Warn().Str("path", path).Msg("No CFD data, chart not written")
		return nil
	}
	if err := os.WriteFile(path, []byte(chart), 0644); err != nil {
		return fmt.Errorf("failed to write chart: %w", err)
	}
	log.Info().Str("path", path).Msg("CFD chart written")
	return nil
}

func reversed(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[len(in)-1-i] = s
	}
	return out
}

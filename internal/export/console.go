package export

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/wesleyorama2/timeit/internal/metrics"
	"github.com/wesleyorama2/timeit/internal/result"
)

const ruleWidth = 72

// ColorScheme defines the colors used for the different parts of the summary.
type ColorScheme struct {
	Title     *color.Color
	Rule      *color.Color
	Header    *color.Color
	Value     *color.Color
	Muted     *color.Color
	Success   *color.Color
	Warning   *color.Color
	Error     *color.Color
	Highlight *color.Color
}

// DefaultColorScheme returns the default color scheme.
func DefaultColorScheme() *ColorScheme {
	return &ColorScheme{
		Title:     color.New(color.Bold),
		Rule:      color.New(color.FgCyan),
		Header:    color.New(color.FgBlue, color.Bold),
		Value:     color.New(color.FgCyan),
		Muted:     color.New(color.Faint),
		Success:   color.New(color.FgGreen, color.Bold),
		Warning:   color.New(color.FgYellow, color.Bold),
		Error:     color.New(color.FgRed, color.Bold),
		Highlight: color.New(color.FgMagenta, color.Bold),
	}
}

// NoColorScheme returns a color scheme with all colors disabled.
func NoColorScheme() *ColorScheme {
	s := DefaultColorScheme()
	for _, c := range []*color.Color{s.Title, s.Rule, s.Header, s.Value, s.Muted, s.Success, s.Warning, s.Error, s.Highlight} {
		c.DisableColor()
	}
	return s
}

// EnableColors forces colors on, even when the writer is not a terminal.
func (s *ColorScheme) EnableColors() *ColorScheme {
	for _, c := range []*color.Color{s.Title, s.Rule, s.Header, s.Value, s.Muted, s.Success, s.Warning, s.Error, s.Highlight} {
		c.EnableColor()
	}
	return s
}

// ConsoleConfig contains configuration for Console.
type ConsoleConfig struct {
	Writer      io.Writer
	NoColor     bool
	ForceColors bool
	ShowMetrics bool
}

// Console prints a summary table of the run.
type Console struct {
	w           io.Writer
	colors      *ColorScheme
	showMetrics bool
}

// NewConsole creates a console exporter. Colors are used when the writer
// is a terminal and NO_COLOR is unset, unless overridden by the config.
func NewConsole(cfg ConsoleConfig) *Console {
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}

	useColors := !cfg.NoColor && os.Getenv("NO_COLOR") == ""
	if f, ok := cfg.Writer.(*os.File); !ok || !isTerminal(f) {
		useColors = false
	}

	scheme := NoColorScheme()
	if cfg.ForceColors || useColors {
		scheme = DefaultColorScheme().EnableColors()
	}

	return &Console{w: cfg.Writer, colors: scheme, showMetrics: cfg.ShowMetrics}
}

// Export implements extension.Exporter.
func (c *Console) Export(run *result.RunResult) error {
	var b strings.Builder

	c.printHeader(&b, run)
	c.printScenarios(&b, run)
	c.printDistributions(&b, run)
	if c.showMetrics {
		c.printMetrics(&b, run)
	}
	c.printOverheads(&b, run)
	c.printErrors(&b, run)

	_, err := io.WriteString(c.w, b.String())
	return err
}

func (c *Console) printHeader(b *strings.Builder, run *result.RunResult) {
	rule := c.colors.Rule.Sprint(strings.Repeat("━", ruleWidth))

	name := run.Name
	if name == "" {
		name = "timeit"
	}
	status := c.colors.Success.Sprint("Completed ✓")
	switch {
	case run.Cancelled:
		status = c.colors.Warning.Sprint("Cancelled ⚠")
	case run.Status == result.Failed:
		status = c.colors.Error.Sprint("Failed ✗")
	}

	fmt.Fprintln(b, rule)
	fmt.Fprintf(b, "%s - %s\n", c.colors.Title.Sprint(name), status)
	fmt.Fprintln(b, rule)
	fmt.Fprintf(b, "Duration:   %s\n", c.colors.Value.Sprint(formatDuration(run.Duration())))
	fmt.Fprintf(b, "Scenarios:  %s\n", c.colors.Value.Sprint(len(run.Scenarios)))
	fmt.Fprintf(b, "Run ID:     %s\n\n", c.colors.Muted.Sprint(run.ID))
}

func (c *Console) printScenarios(b *strings.Builder, run *result.RunResult) {
	if len(run.Scenarios) == 0 {
		return
	}

	headers := []string{"Scenario", "", "N", "Mean", "StdErr", "Median", "P95", "Min", "Max", "Outliers", "Overhead"}
	rows := make([][]string, 0, len(run.Scenarios))
	for i, res := range run.Scenarios {
		icon := c.colors.Success.Sprint("✓")
		if res.Status == result.Failed {
			icon = c.colors.Error.Sprint("✗")
		}
		overhead := c.colors.Muted.Sprint("baseline")
		if i > 0 {
			overhead = c.overheadColor(res.Overhead).Sprint(formatOverhead(res.Overhead))
		}
		rows = append(rows, []string{
			res.Name,
			icon,
			fmt.Sprint(len(res.Durations)),
			c.colors.Value.Sprint(formatLatency(res.Mean)),
			formatLatency(res.StdErr),
			formatLatency(res.Median),
			formatLatency(res.P95),
			formatLatency(res.Min),
			formatLatency(res.Max),
			fmt.Sprint(len(res.Outliers)),
			overhead,
		})
	}

	c.printTable(b, headers, rows)
	fmt.Fprintln(b)
}

func (c *Console) printDistributions(b *strings.Builder, run *result.RunResult) {
	var printed bool
	for _, res := range run.Scenarios {
		line := sparkline(res.Histogram)
		if line == "" {
			continue
		}
		if !printed {
			fmt.Fprintln(b, c.colors.Title.Sprint("Distribution:"))
			printed = true
		}
		note := ""
		if res.IsBimodal {
			note = " " + c.colors.Warning.Sprintf("⚠ bimodal (%d peaks)", res.PeakCount)
		}
		fmt.Fprintf(b, "  %s %s %s%s\n",
			pad(res.Name, 20),
			c.colors.Highlight.Sprint(line),
			c.colors.Muted.Sprintf("%s .. %s", formatLatency(res.Min), formatLatency(res.Max)),
			note)
	}
	if printed {
		fmt.Fprintln(b)
	}
}

func (c *Console) printMetrics(b *strings.Builder, run *result.RunResult) {
	for _, res := range run.Scenarios {
		if len(res.MetricsStats) == 0 {
			continue
		}
		fmt.Fprintf(b, "%s %s\n", c.colors.Title.Sprint("Metrics:"), res.Name)

		rows := make([][]string, 0, len(res.MetricsStats))
		for _, name := range metrics.Names(res.Metrics) {
			ms := res.MetricsStats[name]
			rows = append(rows, []string{
				name,
				c.colors.Value.Sprint(formatMetric(name, ms.Mean)),
				formatMetric(name, ms.Median),
				formatMetric(name, ms.P95),
				formatMetric(name, ms.Min),
				formatMetric(name, ms.Max),
			})
		}
		c.printTable(b, []string{"  Metric", "Mean", "Median", "P95", "Min", "Max"}, indent(rows))
		fmt.Fprintln(b)
	}
}

func (c *Console) printOverheads(b *strings.Builder, run *result.RunResult) {
	if len(run.Scenarios) < 2 || len(run.Overheads) != len(run.Scenarios) {
		return
	}
	fmt.Fprintln(b, c.colors.Title.Sprint("Overhead matrix (column vs row):"))

	headers := []string{""}
	for _, res := range run.Scenarios {
		headers = append(headers, res.Name)
	}
	rows := make([][]string, 0, len(run.Scenarios))
	for i, res := range run.Scenarios {
		row := []string{res.Name}
		for j, v := range run.Overheads[i] {
			if i == j {
				row = append(row, c.colors.Muted.Sprint("-"))
				continue
			}
			row = append(row, c.overheadColor(v).Sprint(formatOverhead(v)))
		}
		rows = append(rows, row)
	}
	c.printTable(b, headers, indent(rows))
	fmt.Fprintln(b)
}

func (c *Console) printErrors(b *strings.Builder, run *result.RunResult) {
	for _, res := range run.Scenarios {
		if res.Status != result.Failed || res.Error == "" {
			continue
		}
		fmt.Fprintf(b, "%s %s\n", c.colors.Error.Sprint("✗"), c.colors.Title.Sprint(res.Name))
		for _, line := range strings.Split(res.Error, "\n") {
			fmt.Fprintf(b, "    %s\n", line)
		}
	}
}

func (c *Console) overheadColor(pct float64) *color.Color {
	switch {
	case pct > 10:
		return c.colors.Error
	case pct > 2:
		return c.colors.Warning
	default:
		return c.colors.Success
	}
}

// printTable pads every column to its widest visible cell.
func (c *Console) printTable(b *strings.Builder, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = visibleLen(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], visibleLen(cell))
			}
		}
	}

	cells := make([]string, len(headers))
	for i, h := range headers {
		cells[i] = c.colors.Header.Sprint(pad(h, widths[i]))
	}
	fmt.Fprintln(b, strings.TrimRight(strings.Join(cells, "  "), " "))

	for _, row := range rows {
		for i := range cells {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			cells[i] = pad(cell, widths[i])
		}
		fmt.Fprintln(b, strings.TrimRight(strings.Join(cells, "  "), " "))
	}
}

func indent(rows [][]string) [][]string {
	for _, row := range rows {
		if len(row) > 0 {
			row[0] = "  " + row[0]
		}
	}
	return rows
}

func pad(s string, width int) string {
	if n := width - visibleLen(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}

func visibleLen(s string) int {
	return utf8.RuneCountInString(stripANSI(s))
}

// stripANSI removes ANSI escape codes from a string.
func stripANSI(s string) string {
	var out strings.Builder
	inEscape := false

	for i := 0; i < len(s); i++ {
		if s[i] == '\033' {
			inEscape = true
			continue
		}
		if inEscape {
			if (s[i] >= 'a' && s[i] <= 'z') || (s[i] >= 'A' && s[i] <= 'Z') {
				inEscape = false
			}
			continue
		}
		out.WriteByte(s[i])
	}
	return out.String()
}

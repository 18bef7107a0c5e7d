package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/wesleyorama2/timeit/internal/logger"
	"github.com/wesleyorama2/timeit/internal/metrics"
	"github.com/wesleyorama2/timeit/internal/result"
)

// HTML writes a standalone HTML report.
type HTML struct {
	path  string
	title string
}

// NewHTML creates an HTML exporter writing to path.
func NewHTML(path, title string) *HTML {
	if path == "" {
		path = DefaultHTMLPath
	}
	return &HTML{path: path, title: title}
}

// Export implements extension.Exporter.
func (h *HTML) Export(run *result.RunResult) error {
	html, err := GenerateHTMLString(run, h.title)
	if err != nil {
		return fmt.Errorf("failed to generate HTML: %w", err)
	}

	if dir := filepath.Dir(h.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(h.path, []byte(html), 0o644); err != nil {
		return fmt.Errorf("failed to write HTML file: %w", err)
	}
	logger.Info("HTML report written", "path", h.path)
	return nil
}

// ReportData contains all data needed to render the HTML report.
type ReportData struct {
	*result.RunResult
	Title     string
	ChartJSON template.JS
}

// chartSeries is the per-scenario chart payload.
type chartSeries struct {
	Name      string     `json:"name"`
	Durations []float64  `json:"durations"`
	Bars      []chartBar `json:"bars"`
}

type chartBar struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// GenerateHTMLString renders the report for run.
func GenerateHTMLString(run *result.RunResult, title string) (string, error) {
	if run == nil {
		return "", fmt.Errorf("result cannot be nil")
	}
	if title == "" {
		title = run.Name
	}
	if title == "" {
		title = "timeit"
	}

	tmpl, err := template.New("report").Funcs(templateFuncs()).Parse(htmlTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	chart, err := chartJSON(run)
	if err != nil {
		return "", fmt.Errorf("failed to convert chart data: %w", err)
	}

	var buf bytes.Buffer
	data := ReportData{RunResult: run, Title: title, ChartJSON: template.JS(chart)}
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// chartJSON converts durations to milliseconds and distribution bars to
// labelled counts for the charts.
func chartJSON(run *result.RunResult) (string, error) {
	series := make([]chartSeries, 0, len(run.Scenarios))
	for _, res := range run.Scenarios {
		s := chartSeries{Name: res.Name, Durations: make([]float64, len(res.Durations))}
		for i, d := range res.Durations {
			s.Durations[i] = d / float64(time.Millisecond)
		}
		for _, bar := range res.Distribution.Bars {
			s.Bars = append(s.Bars, chartBar{Label: formatLatency(bar.From), Count: bar.Count})
		}
		series = append(series, s)
	}

	data, err := json.Marshal(series)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"latency":     formatLatency,
		"duration":    formatDuration,
		"metric":      formatMetric,
		"overhead":    formatOverhead,
		"metricNames": metrics.Names,
		"failed":      func(s result.Status) bool { return s == result.Failed },
	}
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}} - timeit report</title>
    <script src="https://cdn.jsdelivr.net/npm/chart.js"></script>
    <style>
        :root {
            --bg-primary: #ffffff;
            --bg-secondary: #f8fafc;
            --text-primary: #1e293b;
            --text-muted: #94a3b8;
            --border-color: #e2e8f0;
            --accent-success: #22c55e;
            --accent-warning: #f59e0b;
            --accent-error: #ef4444;
            --shadow: 0 1px 3px rgba(0, 0, 0, 0.1);
        }
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background-color: var(--bg-secondary);
            color: var(--text-primary);
            line-height: 1.6;
        }
        .container { max-width: 1400px; margin: 0 auto; padding: 2rem; }
        .card {
            background: var(--bg-primary);
            border-radius: 12px;
            padding: 1.5rem 2rem;
            margin-bottom: 2rem;
            box-shadow: var(--shadow);
        }
        .header { display: flex; justify-content: space-between; align-items: center; }
        .meta { color: var(--text-muted); font-size: 0.875rem; }
        .status { padding: 0.5rem 1.25rem; border-radius: 8px; font-weight: 600; }
        .status.pass { color: var(--accent-success); border: 1px solid var(--accent-success); }
        .status.fail { color: var(--accent-error); border: 1px solid var(--accent-error); }
        table { width: 100%; border-collapse: collapse; font-size: 0.9rem; }
        th, td { text-align: right; padding: 0.5rem; border-bottom: 1px solid var(--border-color); }
        th:first-child, td:first-child { text-align: left; }
        .fail-text { color: var(--accent-error); }
        .warn-text { color: var(--accent-warning); }
        pre { white-space: pre-wrap; font-size: 0.85rem; }
        h2 { margin-bottom: 1rem; font-size: 1.2rem; }
        .charts { display: grid; grid-template-columns: repeat(auto-fit, minmax(480px, 1fr)); gap: 2rem; }
    </style>
</head>
<body>
<div class="container">
    <div class="card header">
        <div>
            <h1>{{.Title}}</h1>
            <div class="meta">
                Run {{.ID}} &middot; {{.StartTime.Format "2006-01-02 15:04:05"}} &middot; {{duration .Duration}}
            </div>
        </div>
        {{if failed .Status}}<div class="status fail">FAILED</div>{{else}}<div class="status pass">PASSED</div>{{end}}
    </div>

    <div class="card">
        <h2>Scenarios</h2>
        <table>
            <thead>
            <tr><th>Scenario</th><th>Status</th><th>N</th><th>Mean</th><th>StdErr</th><th>Median</th><th>P90</th><th>P95</th><th>P99</th><th>Min</th><th>Max</th><th>Outliers</th><th>Overhead</th></tr>
            </thead>
            <tbody>
            {{range $i, $s := .Scenarios}}
            <tr>
                <td>{{$s.Name}}{{if $s.IsBimodal}} <span class="warn-text">(bimodal, {{$s.PeakCount}} peaks)</span>{{end}}</td>
                <td>{{if failed $s.Status}}<span class="fail-text">failed</span>{{else}}passed{{end}}</td>
                <td>{{len $s.Durations}}</td>
                <td>{{latency $s.Mean}}</td>
                <td>{{latency $s.StdErr}}</td>
                <td>{{latency $s.Median}}</td>
                <td>{{latency $s.P90}}</td>
                <td>{{latency $s.P95}}</td>
                <td>{{latency $s.P99}}</td>
                <td>{{latency $s.Min}}</td>
                <td>{{latency $s.Max}}</td>
                <td>{{len $s.Outliers}}</td>
                <td>{{if eq $i 0}}baseline{{else}}{{overhead $s.Overhead}}{{end}}</td>
            </tr>
            {{end}}
            </tbody>
        </table>
    </div>

    <div class="card">
        <h2>Distributions</h2>
        <div class="charts">
            {{range $i, $s := .Scenarios}}<div><h3>{{$s.Name}}</h3><canvas id="dist-{{$i}}"></canvas></div>{{end}}
        </div>
    </div>

    <div class="card">
        <h2>Durations by iteration</h2>
        <canvas id="durations"></canvas>
    </div>

    {{range .Scenarios}}{{if .MetricsStats}}
    <div class="card">
        <h2>Metrics: {{.Name}}</h2>
        <table>
            <thead><tr><th>Metric</th><th>Mean</th><th>Median</th><th>P95</th><th>Min</th><th>Max</th><th>Outliers</th></tr></thead>
            <tbody>
            {{$stats := .MetricsStats}}
            {{range $name := metricNames .Metrics}}{{with index $stats $name}}
            <tr><td>{{$name}}</td><td>{{metric $name .Mean}}</td><td>{{metric $name .Median}}</td><td>{{metric $name .P95}}</td><td>{{metric $name .Min}}</td><td>{{metric $name .Max}}</td><td>{{len .Outliers}}</td></tr>
            {{end}}{{end}}
            </tbody>
        </table>
    </div>
    {{end}}{{end}}

    {{range .Scenarios}}{{if failed .Status}}{{if .Error}}
    <div class="card">
        <h2 class="fail-text">{{.Name}}</h2>
        <pre>{{.Error}}</pre>
    </div>
    {{end}}{{end}}{{end}}
</div>
<script>
    const series = {{.ChartJSON}};
    series.forEach((s, i) => {
        new Chart(document.getElementById('dist-' + i), {
            type: 'bar',
            data: { labels: s.bars ? s.bars.map(b => b.label) : [], datasets: [{ label: 'iterations', data: s.bars ? s.bars.map(b => b.count) : [] }] },
            options: { plugins: { legend: { display: false } } }
        });
    });
    new Chart(document.getElementById('durations'), {
        type: 'line',
        data: {
            labels: Array.from({ length: Math.max(0, ...series.map(s => s.durations.length)) }, (_, i) => i + 1),
            datasets: series.map(s => ({ label: s.name, data: s.durations, tension: 0.2 }))
        },
        options: { scales: { y: { title: { display: true, text: 'ms' } } } }
    });
</script>
</body>
</html>
`

// Package export provides the built-in exporters: a console summary, a JSON
// document and a standalone HTML report.
package export

import (
	"os"

	"github.com/mattn/go-isatty"

	"github.com/wesleyorama2/timeit/internal/config"
	"github.com/wesleyorama2/timeit/internal/extension"
	"github.com/wesleyorama2/timeit/internal/logger"
)

// Registered exporter names.
const (
	NameConsole = "console"
	NameJSON    = "json"
	NameHTML    = "html"
)

// Default output paths of the file exporters.
const (
	DefaultJSONPath = "timeit-results.json"
	DefaultHTMLPath = "timeit-report.html"
)

// Register adds the built-in exporters to r.
//
//	exporters:
//	  - name: console
//	    options: {metrics: true, noColor: false}
//	  - name: json
//	    options: {path: "$(TIMEIT_DIR)/results.json", dataPoints: false}
//	  - name: html
//	    options: {path: report.html, title: "Startup overhead"}
func Register(r *extension.Registry) {
	r.RegisterExporter(NameConsole, func(ctx extension.Context) (extension.Exporter, error) {
		return NewConsole(ConsoleConfig{
			Writer:      ctx.Out,
			NoColor:     ctx.Options.Bool("noColor", false),
			ForceColors: ctx.Options.Bool("forceColors", false),
			ShowMetrics: ctx.Options.Bool("metrics", true),
		}), nil
	})

	r.RegisterExporter(NameJSON, func(ctx extension.Context) (extension.Exporter, error) {
		return NewJSON(JSONConfig{
			Path:       outputPath(ctx, DefaultJSONPath),
			Writer:     ctx.Out,
			Indent:     ctx.Options.Bool("indent", true),
			DataPoints: ctx.Options.Bool("dataPoints", true),
		}), nil
	})

	r.RegisterExporter(NameHTML, func(ctx extension.Context) (extension.Exporter, error) {
		return NewHTML(outputPath(ctx, DefaultHTMLPath), ctx.Options.String("title", "")), nil
	})
}

// outputPath reads the "path" option and expands its template variables.
// "-" selects the extension output writer.
func outputPath(ctx extension.Context, def string) string {
	path := ctx.Options.String("path", def)
	if ctx.Config == nil {
		return path
	}
	expanded, err := config.Expand(path, ctx.Config.TemplateVars(""))
	if err != nil {
		logger.Warn("Unresolved template variables in exporter path", "exporter", ctx.Name, "error", err)
	}
	return expanded
}

// isTerminal reports whether f is an interactive terminal.
func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

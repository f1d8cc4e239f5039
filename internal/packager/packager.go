// Package packager turns the editor page into one self-contained HTML file
// that a static host can serve without the data service.
//
// Asset tags are matched as exact strings. Every marker is looked up in the
// original template and all replacements happen in a single pass, so inlined
// text is never searched for further markers.
package packager

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Sources is the text of every input of a run.
type Sources struct {
	Template   string
	Stylesheet string
	// Scripts maps a script's base name to its text.
	Scripts map[string]string
	Data    string
}

// Substitution records how often one marker matched the template.
type Substitution struct {
	Asset  string
	Marker string
	Count  int
}

type Report struct {
	OutputPath     string
	Bytes          int
	Substitutions  []Substitution
	FetchRewrites  int
	MissingMarkers []string
}

// dataFetchCalls are the call sites rewritten to read the embedded snapshot.
var dataFetchCalls = []string{
	"fetch('/data')",
	`fetch("/data")`,
	"fetch(`/data`)",
}

// Build checks every input exists, renders the page and writes it to
// opts.OutputPath. Nothing is written unless every check passes.
func Build(opts Options) (*Report, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	for _, p := range opts.inputs() {
		if _, err := os.Stat(opts.resolve(p)); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, &MissingInputError{Path: opts.resolve(p)}
			}
			return nil, err
		}
	}

	src, err := readSources(opts)
	if err != nil {
		return nil, err
	}

	page, report, err := Render(src, opts)
	if err != nil {
		return nil, err
	}

	out := opts.resolve(opts.OutputPath)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(out, []byte(page), 0o644); err != nil {
		return nil, fmt.Errorf("write output: %w", err)
	}
	report.OutputPath = out
	report.Bytes = len(page)
	return report, nil
}

func readSources(opts Options) (Sources, error) {
	read := func(p string) (string, error) {
		b, err := os.ReadFile(opts.resolve(p))
		if err != nil {
			return "", fmt.Errorf("read %s: %w", p, err)
		}
		return string(b), nil
	}

	var src Sources
	var err error
	if src.Template, err = read(opts.TemplatePath); err != nil {
		return src, err
	}
	if src.Stylesheet, err = read(opts.StylesheetPath); err != nil {
		return src, err
	}
	src.Scripts = make(map[string]string, len(opts.ScriptPaths))
	for _, p := range opts.ScriptPaths {
		text, err := read(p)
		if err != nil {
			return src, err
		}
		src.Scripts[filepath.Base(p)] = text
	}
	if opts.IncludeDataSnapshot {
		if src.Data, err = read(opts.DataPath); err != nil {
			return src, err
		}
	}
	return src, nil
}

// Render inlines the stylesheet, the scripts and optionally the data
// snapshot into the template. It does no I/O.
func Render(src Sources, opts Options) (string, *Report, error) {
	if err := opts.validate(); err != nil {
		return "", nil, err
	}
	report := &Report{}

	var dataBlock string
	if opts.IncludeDataSnapshot {
		data := strings.TrimSpace(src.Data)
		if !json.Valid([]byte(data)) {
			return "", nil, fmt.Errorf("data snapshot %s is not valid JSON", opts.DataPath)
		}
		// "</" inside a JSON string would close the surrounding script tag.
		data = strings.ReplaceAll(data, "</", `<\/`)
		dataBlock = fmt.Sprintf("<script>\nvar %s = %s;\n</script>\n", opts.DataVariable, data)
	}

	var pairs []string
	add := func(asset, marker, replacement string) error {
		n := strings.Count(src.Template, marker)
		report.Substitutions = append(report.Substitutions, Substitution{Asset: asset, Marker: marker, Count: n})
		if n == 0 {
			if !opts.AllowMissingMarkers {
				return &MarkerNotFoundError{Marker: marker, Asset: asset}
			}
			report.MissingMarkers = append(report.MissingMarkers, marker)
			return nil
		}
		pairs = append(pairs, marker, replacement)
		return nil
	}

	cssName := filepath.Base(opts.StylesheetPath)
	cssMarker := fmt.Sprintf(`<link rel="stylesheet" href="%s%s">`, opts.AssetPrefix, cssName)
	if err := add(cssName, cssMarker, "<style>\n"+src.Stylesheet+"\n</style>"); err != nil {
		return "", nil, err
	}

	main := opts.mainScript()
	for _, p := range opts.ScriptPaths {
		name := filepath.Base(p)
		js, ok := src.Scripts[name]
		if !ok {
			return "", nil, &MissingInputError{Path: p}
		}
		if opts.IncludeDataSnapshot {
			var n int
			js, n = rewriteDataFetches(js, opts.DataVariable)
			report.FetchRewrites += n
		}
		inline := "<script>\n" + js + "\n</script>"
		if opts.IncludeDataSnapshot && name == main {
			inline = dataBlock + inline
		}
		marker := fmt.Sprintf(`<script src="%s%s"></script>`, opts.AssetPrefix, name)
		if err := add(name, marker, inline); err != nil {
			return "", nil, err
		}
	}

	if len(pairs) == 0 {
		return src.Template, report, nil
	}
	return strings.NewReplacer(pairs...).Replace(src.Template), report, nil
}

// rewriteDataFetches swaps network reads of /data for a promise that
// resolves at once with a response-like object wrapping variable, so
// callers that go on to call res.json() keep working.
func rewriteDataFetches(js, variable string) (string, int) {
	stub := fmt.Sprintf("Promise.resolve({ ok: true, status: 200, json: () => Promise.resolve(%s) })", variable)
	total := 0
	for _, call := range dataFetchCalls {
		if n := strings.Count(js, call); n > 0 {
			total += n
			js = strings.ReplaceAll(js, call, stub)
		}
	}
	return js, total
}

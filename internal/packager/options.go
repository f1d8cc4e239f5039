package packager

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Options describes one packaging run. Relative paths are resolved against Root.
type Options struct {
	Root           string   `yaml:"root"`
	TemplatePath   string   `yaml:"template"`
	StylesheetPath string   `yaml:"stylesheet"`
	ScriptPaths    []string `yaml:"scripts"`
	// MainScript is the base name of the script that reads the data; the
	// snapshot is defined right before it. Empty means the last script.
	MainScript string `yaml:"main_script"`
	DataPath   string `yaml:"data"`

	IncludeDataSnapshot bool   `yaml:"include_data"`
	OutputPath          string `yaml:"output"`

	// AssetPrefix is the URL prefix the template uses for assets.
	AssetPrefix  string `yaml:"asset_prefix"`
	DataVariable string `yaml:"data_variable"`

	// AllowMissingMarkers downgrades a marker absent from the template from
	// an error to a warning in the Report.
	AllowMissingMarkers bool `yaml:"allow_missing_markers"`
}

func DefaultOptions() Options {
	return Options{
		Root:                ".",
		TemplatePath:        filepath.Join("templates", "index.html"),
		StylesheetPath:      filepath.Join("static", "style.css"),
		ScriptPaths:         []string{filepath.Join("static", "dragAndDrop.js"), filepath.Join("static", "script.js")},
		MainScript:          "script.js",
		DataPath:            filepath.Join("static", "data.json"),
		IncludeDataSnapshot: true,
		OutputPath:          filepath.Join("docs", "index.html"),
		AssetPrefix:         "/static/",
		DataVariable:        "inlineData",
	}
}

// LoadOptions reads a YAML manifest on top of DefaultOptions. Keys absent
// from the manifest keep their default.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("read manifest: %w", err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return opts, nil
}

func (o Options) validate() error {
	if o.TemplatePath == "" {
		return fmt.Errorf("no template configured")
	}
	if o.StylesheetPath == "" {
		return fmt.Errorf("no stylesheet configured")
	}
	if len(o.ScriptPaths) == 0 {
		return fmt.Errorf("no scripts configured")
	}
	if o.OutputPath == "" {
		return fmt.Errorf("no output path configured")
	}
	if o.IncludeDataSnapshot {
		if o.DataPath == "" {
			return fmt.Errorf("data snapshot requested but no data file configured")
		}
		if o.DataVariable == "" {
			return fmt.Errorf("data snapshot requested but no data variable configured")
		}
	}
	seen := make(map[string]bool, len(o.ScriptPaths))
	for _, p := range o.ScriptPaths {
		name := filepath.Base(p)
		if seen[name] {
			return fmt.Errorf("two scripts are named %s", name)
		}
		seen[name] = true
	}
	if o.MainScript != "" && !seen[o.MainScript] {
		return fmt.Errorf("main script %s is not in the script list", o.MainScript)
	}
	return nil
}

// inputs lists every file the run needs, in the order they are checked.
func (o Options) inputs() []string {
	paths := []string{o.TemplatePath, o.StylesheetPath}
	paths = append(paths, o.ScriptPaths...)
	if o.IncludeDataSnapshot {
		paths = append(paths, o.DataPath)
	}
	return paths
}

func (o Options) resolve(path string) string {
	if filepath.IsAbs(path) || o.Root == "" {
		return path
	}
	return filepath.Join(o.Root, path)
}

func (o Options) mainScript() string {
	if o.MainScript != "" {
		return o.MainScript
	}
	return filepath.Base(o.ScriptPaths[len(o.ScriptPaths)-1])
}

// Package dashboard renders Grafana dashboards for the GreptimeDB tables.
package dashboard

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"planthealth-sim/internal/telemetry"
)

//go:embed templates/*.tmpl
var templates embed.FS

// Tables are the table names substituted into the dashboards.
type Tables struct {
	Afflictions string
	Zones       string
	Events      string
}

// DefaultTables returns the table names the GreptimeDB writer uses.
func DefaultTables() Tables {
	return Tables{
		Afflictions: telemetry.AfflictionTableName,
		Zones:       telemetry.ZoneTableName,
		Events:      telemetry.EventTableName,
	}
}

// Render parses dashboard templates and writes rendered dashboards to outDir.
// The GreptimeDB datasource uid is read from GREPTIMEDB_DATASOURCE_UID.
func Render(outDir string) error {
	return RenderTables(outDir, DefaultTables())
}

// RenderTables is Render with explicit table names.
func RenderTables(outDir string, tables Tables) error {
	funcMap := template.FuncMap{
		"env": func(key string) (string, error) {
			v := os.Getenv(key)
			if v == "" {
				return "", fmt.Errorf("environment variable %s not set", key)
			}
			return v, nil
		},
	}

	names, err := templates.ReadDir("templates")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for _, entry := range names {
		name := entry.Name()
		t, err := template.New(name).Funcs(funcMap).ParseFS(templates, "templates/"+name)
		if err != nil {
			return err
		}
		outPath := filepath.Join(outDir, strings.TrimSuffix(name, ".tmpl"))
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		if err := t.Execute(f, tables); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}

package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"
)

const migrationUpTemplate = `-- Migration: {{.Name}}
-- Description: {{.Description}}

`

const migrationDownTemplate = `-- Migration: {{.Name}} (Rollback)

`

// versionLayout orders migrations by creation time
const versionLayout = "20060102150405"

// Migration is a pair of up and down SQL files sharing a version
type Migration struct {
	Version     uint
	Name        string
	Description string
	UpPath      string
	DownPath    string
}

// CreateMigration writes an empty migration pair stamped with the current time
func CreateMigration(migrationsDir, name, description string) (*Migration, error) {
	return createMigrationAt(migrationsDir, name, description, time.Now().UTC())
}

func createMigrationAt(migrationsDir, name, description string, at time.Time) (*Migration, error) {
	slug := sanitizeName(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(migrationsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	stamp := at.Format(versionLayout)
	version, _ := strconv.ParseUint(stamp, 10, 64)
	base := filepath.Join(migrationsDir, stamp+"_"+slug)
	mf := &Migration{
		Version:     uint(version),
		Name:        slug,
		Description: description,
		UpPath:      base + ".up.sql",
		DownPath:    base + ".down.sql",
	}

	if err := writeTemplate(mf.UpPath, migrationUpTemplate, mf); err != nil {
		return nil, fmt.Errorf("failed to create up migration: %w", err)
	}
	if err := writeTemplate(mf.DownPath, migrationDownTemplate, mf); err != nil {
		_ = os.Remove(mf.UpPath)
		return nil, fmt.Errorf("failed to create down migration: %w", err)
	}
	return mf, nil
}

// writeTemplate refuses to overwrite an existing file
func writeTemplate(path, tmplContent string, data *Migration) error {
	tmpl, err := template.New("migration").Parse(tmplContent)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer f.Close()

	return tmpl.Execute(f, data)
}

// sanitizeName lowercases a name and collapses separators into single underscores
func sanitizeName(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, c := range strings.ToLower(name) {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(c)
		case c == ' ' || c == '-' || c == '_':
			pendingSep = true
		}
	}
	return b.String()
}

// ListMigrations returns the migrations found in a directory ordered by version.
// Files not named <version>_<name>.up.sql are ignored.
func ListMigrations(migrationsDir string) ([]Migration, error) {
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		base, ok := strings.CutSuffix(entry.Name(), ".up.sql")
		if entry.IsDir() || !ok {
			continue
		}
		stamp, name, ok := strings.Cut(base, "_")
		if !ok {
			continue
		}
		version, err := strconv.ParseUint(stamp, 10, 64)
		if err != nil {
			continue
		}
		migrations = append(migrations, Migration{
			Version:  uint(version),
			Name:     name,
			UpPath:   filepath.Join(migrationsDir, entry.Name()),
			DownPath: filepath.Join(migrationsDir, base+".down.sql"),
		})
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

// PendingAfter returns the migrations newer than the applied version
func PendingAfter(migrations []Migration, applied uint) []Migration {
	var pending []Migration
	for _, m := range migrations {
		if m.Version > applied {
			pending = append(pending, m)
		}
	}
	return pending
}

package db

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"

	embeddedmigrations "github.com/terraincognita07/lifelog/migrations"
	"gorm.io/gorm"
)

var (
	migrationNamePattern = regexp.MustCompile(`^(\d+)_[a-z0-9_]+\.sql$`)
	addColumnPattern     = regexp.MustCompile(`(?i)^ALTER\s+TABLE\s+([^\s]+)\s+ADD\s+COLUMN\s+([^\s]+)\b`)
)

type migrationFile struct {
	version string
	order   int
	name    string
	body    string
}

// applyEmbeddedMigrations runs every not yet recorded migration of the
// dialect, each one inside its own transaction.
func applyEmbeddedMigrations(database *gorm.DB, dialect string) error {
	if err := ensureSchemaMigrationsTable(database, dialect); err != nil {
		return err
	}

	files, err := readMigrationFiles(embeddedmigrations.Files, dialect)
	if err != nil {
		return err
	}

	applied, err := appliedMigrationVersions(database)
	if err != nil {
		return err
	}

	for _, file := range files {
		if _, done := applied[file.version]; done {
			continue
		}
		if err := runMigration(database, file); err != nil {
			return err
		}
	}
	return nil
}

func ensureSchemaMigrationsTable(database *gorm.DB, dialect string) error {
	timestampType := "DATETIME"
	if dialect == dialectPostgres {
		timestampType = "TIMESTAMPTZ"
	}

	statement := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS schema_migrations (
  version TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  applied_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP
)`, timestampType)
	if err := database.Exec(statement).Error; err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}
	return nil
}

func readMigrationFiles(files fs.FS, dialect string) ([]migrationFile, error) {
	entries, err := fs.ReadDir(files, dialect)
	if err != nil {
		return nil, fmt.Errorf("read %s migrations: %w", dialect, err)
	}

	result := make([]migrationFile, 0, len(entries))
	owners := make(map[string]string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		matches := migrationNamePattern.FindStringSubmatch(name)
		if matches == nil {
			continue
		}

		version := matches[1]
		if previous, taken := owners[version]; taken {
			return nil, fmt.Errorf("duplicate migration version %s in %s and %s", version, previous, name)
		}
		owners[version] = name

		order, err := strconv.Atoi(version)
		if err != nil {
			return nil, fmt.Errorf("parse migration version of %s: %w", name, err)
		}
		body, err := fs.ReadFile(files, path.Join(dialect, name))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}

		result = append(result, migrationFile{version: version, order: order, name: name, body: string(body)})
	}

	slices.SortFunc(result, func(a, b migrationFile) int {
		if a.order != b.order {
			return cmp.Compare(a.order, b.order)
		}
		return strings.Compare(a.name, b.name)
	})
	return result, nil
}

func appliedMigrationVersions(database *gorm.DB) (map[string]struct{}, error) {
	var versions []string
	if err := database.Raw(`SELECT version FROM schema_migrations`).Scan(&versions).Error; err != nil {
		return nil, fmt.Errorf("load applied migration versions: %w", err)
	}

	applied := make(map[string]struct{}, len(versions))
	for _, version := range versions {
		applied[version] = struct{}{}
	}
	return applied, nil
}

func runMigration(database *gorm.DB, file migrationFile) error {
	statements := splitSQLStatements(file.body)
	if len(statements) == 0 {
		return fmt.Errorf("migration %s: %w", file.name, errors.New("no SQL statements"))
	}

	return database.Transaction(func(tx *gorm.DB) error {
		for _, statement := range statements {
			if columnAlreadyAdded(tx, statement) {
				continue
			}
			if err := tx.Exec(statement).Error; err != nil {
				return fmt.Errorf("migration %s statement %q: %w", file.name, statement, err)
			}
		}

		return tx.Exec(
			`INSERT INTO schema_migrations(version, name) VALUES (?, ?)`,
			file.version,
			file.name,
		).Error
	})
}

func splitSQLStatements(body string) []string {
	parts := strings.Split(body, ";")
	statements := make([]string, 0, len(parts))
	for _, part := range parts {
		if statement := strings.TrimSpace(part); statement != "" {
			statements = append(statements, statement)
		}
	}
	return statements
}

// columnAlreadyAdded makes ADD COLUMN statements idempotent on both dialects.
func columnAlreadyAdded(database *gorm.DB, statement string) bool {
	matches := addColumnPattern.FindStringSubmatch(statement)
	if matches == nil {
		return false
	}
	table := unquoteIdentifier(matches[1])
	column := unquoteIdentifier(matches[2])
	return database.Migrator().HasTable(table) && database.Migrator().HasColumn(table, column)
}

func unquoteIdentifier(identifier string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(identifier), "\"`[]"))
}

package application

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/pressly/goose/v3"

	"github.com/iota-uz/hookrelay/pkg/configuration"
)

// MigrationManager collects the schema filesystems modules embed and applies
// them with goose at boot.
type MigrationManager interface {
	RegisterSchema(fs ...*embed.FS)
	Run(ctx context.Context) error
}

func NewMigrationManager() MigrationManager {
	return &migrationManager{}
}

type migrationManager struct {
	schemas []*embed.FS
}

func (m *migrationManager) RegisterSchema(fs ...*embed.FS) {
	m.schemas = append(m.schemas, fs...)
}

func (m *migrationManager) Run(ctx context.Context) error {
	if len(m.schemas) == 0 {
		return nil
	}

	conf := configuration.Use()
	db, err := sql.Open("postgres", conf.Database.Opts)
	if err != nil {
		return fmt.Errorf("migrations: open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	for _, schema := range m.schemas {
		sub, err := schemaRoot(schema)
		if err != nil {
			return err
		}
		provider, err := goose.NewProvider(goose.DialectPostgres, db, sub)
		if err != nil {
			return fmt.Errorf("migrations: create provider: %w", err)
		}
		results, err := provider.Up(ctx)
		if err != nil {
			return fmt.Errorf("migrations: apply: %w", err)
		}
		for _, res := range results {
			conf.Logger().WithField("migration", res.Source.Path).Info("applied migration")
		}
	}
	return nil
}

// schemaRoot descends an embedded filesystem to the directory holding the
// .sql migration files, since modules embed them under nested paths.
func schemaRoot(fsys fs.FS) (fs.FS, error) {
	var dir string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(p, ".sql") {
			dir = path.Dir(p)
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("migrations: walk schema fs: %w", err)
	}
	if dir == "" || dir == "." {
		return fsys, nil
	}
	return fs.Sub(fsys, dir)
}

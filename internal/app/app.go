package app

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vertexcover-io/notion-cli/internal/cache"
	"github.com/vertexcover-io/notion-cli/internal/config"
	"github.com/vertexcover-io/notion-cli/internal/filter"
	"github.com/vertexcover-io/notion-cli/internal/notion"
	"github.com/vertexcover-io/notion-cli/internal/views"
)

// App wires the configuration, the API client, the saved-views store, and
// the disk cache behind the CLI commands.
type App struct {
	cfg       *config.Config
	client    *notion.Client
	views     *views.Manager
	cache     *cache.Store // nil when caching is disabled
	accountID string
}

// New assembles an App from loaded configuration and an authenticated client.
func New(cfg *config.Config, client *notion.Client, configDir string) (*App, error) {
	viewManager, err := views.NewManager(configDir)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:       cfg,
		client:    client,
		views:     viewManager,
		accountID: cfg.General.AccountID,
	}

	if cfg.Cache.Enabled {
		path := cfg.Cache.Path
		if path == "" {
			path = filepath.Join(configDir, "cache.db")
		}
		store, err := cache.NewStore(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open cache: %w", err)
		}
		a.cache = store
	}

	return a, nil
}

// Close releases the cache store.
func (a *App) Close() error {
	if a.cache != nil {
		return a.cache.Close()
	}
	return nil
}

// Views exposes the saved-views manager.
func (a *App) Views() *views.Manager {
	return a.views
}

// QueryOptions select what to fetch. View, when set, supplies defaults that
// the other fields override.
type QueryOptions struct {
	Database string
	View     string
	Filter   string
	Columns  []string
	Limit    int
}

// QueryResult is a ready-to-render table of database entries.
type QueryResult struct {
	Database string
	Columns  []string
	Rows     [][]string
}

// Query resolves the target database, compiles the filter expression against
// its schema, fetches matching entries, and extracts display values.
func (a *App) Query(ctx context.Context, opts QueryOptions) (*QueryResult, error) {
	if opts.View != "" {
		view, err := a.views.Resolve(opts.View)
		if err != nil {
			return nil, err
		}
		if opts.Database == "" {
			opts.Database = view.Database
		}
		if opts.Filter == "" {
			opts.Filter = view.Filter
		}
		if len(opts.Columns) == 0 {
			opts.Columns = view.Columns
		}
		if opts.Limit == 0 {
			opts.Limit = view.Limit
		}
	}

	if opts.Database == "" {
		opts.Database = a.cfg.General.DefaultDatabase
	}
	if opts.Database == "" {
		return nil, fmt.Errorf("no database specified")
	}
	if opts.Limit == 0 {
		opts.Limit = a.cfg.General.DefaultLimit
	}

	db, err := a.resolveDatabase(ctx, opts.Database)
	if err != nil {
		return nil, err
	}
	schema, err := db.Schema()
	if err != nil {
		return nil, err
	}

	node, err := filter.Parse(opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", err)
	}
	var queryFilter notion.Filter
	if node != nil {
		queryFilter, err = filter.NewConverter(schema).Convert(node)
		if err != nil {
			return nil, err
		}
	}

	pages, err := a.fetchEntries(ctx, db.ID, queryFilter, opts.Limit)
	if err != nil {
		return nil, err
	}

	columns := a.selectColumns(schema, opts.Columns)
	rows := make([][]string, 0, len(pages))
	for _, page := range pages {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = notion.ExtractValue(page.Properties[col])
		}
		rows = append(rows, row)
	}

	return &QueryResult{
		Database: db.Name(),
		Columns:  columns,
		Rows:     rows,
	}, nil
}

// selectColumns validates requested columns against the schema, falling back
// to every schema property in declaration order.
func (a *App) selectColumns(schema *notion.Schema, requested []string) []string {
	if len(requested) > 0 {
		var columns []string
		for _, name := range requested {
			if prop, ok := schema.Resolve(name); ok {
				columns = append(columns, prop.Name)
			}
		}
		if len(columns) > 0 {
			return columns
		}
	}

	columns := make([]string, 0, schema.Len())
	for _, prop := range schema.Properties() {
		columns = append(columns, prop.Name)
	}
	return columns
}

// resolveDatabase turns a config alias, a raw ID, or a database title into a
// database object, consulting the cache first.
func (a *App) resolveDatabase(ctx context.Context, name string) (*notion.Database, error) {
	name = a.cfg.ResolveDatabase(name)
	params := map[string]string{"database": name}

	if data, ok := a.cacheGet("get_database", params); ok {
		var db notion.Database
		if err := json.Unmarshal(data, &db); err == nil {
			return &db, nil
		}
	}

	var (
		db  *notion.Database
		err error
	)
	if looksLikeDatabaseID(name) {
		db, err = a.client.GetDatabase(ctx, name)
	} else {
		db, err = a.client.DatabaseByName(ctx, name)
	}
	if err != nil {
		return nil, err
	}

	a.cachePut("get_database", params, db)
	return db, nil
}

func (a *App) fetchEntries(ctx context.Context, databaseID string, f notion.Filter, limit int) ([]notion.Page, error) {
	params := map[string]any{
		"database": databaseID,
		"filter":   f,
		"limit":    limit,
	}

	if data, ok := a.cacheGet("query_database", params); ok {
		var pages []notion.Page
		if err := json.Unmarshal(data, &pages); err == nil {
			return pages, nil
		}
	}

	pages, err := a.client.GetEntries(ctx, databaseID, f, limit)
	if err != nil {
		return nil, err
	}

	a.cachePut("query_database", params, pages)
	return pages, nil
}

// Databases lists accessible databases, consulting the cache first.
func (a *App) Databases(ctx context.Context) ([]notion.Database, error) {
	params := map[string]string{}

	if data, ok := a.cacheGet("list_databases", params); ok {
		var databases []notion.Database
		if err := json.Unmarshal(data, &databases); err == nil {
			return databases, nil
		}
	}

	databases, err := a.client.ListDatabases(ctx)
	if err != nil {
		return nil, err
	}

	a.cachePut("list_databases", params, databases)
	return databases, nil
}

// CreateEntry adds a page to a database from simple field values.
func (a *App) CreateEntry(ctx context.Context, database string, fields map[string]string) (*notion.Page, error) {
	db, err := a.resolveDatabase(ctx, database)
	if err != nil {
		return nil, err
	}
	schema, err := db.Schema()
	if err != nil {
		return nil, err
	}

	page, err := a.client.CreatePage(ctx, db.ID, notion.BuildProperties(fields, schema))
	if err != nil {
		return nil, err
	}
	a.invalidateAfter("create_page")
	return page, nil
}

// UpdateEntry updates a page's properties from simple field values.
func (a *App) UpdateEntry(ctx context.Context, database, pageID string, fields map[string]string) (*notion.Page, error) {
	db, err := a.resolveDatabase(ctx, database)
	if err != nil {
		return nil, err
	}
	schema, err := db.Schema()
	if err != nil {
		return nil, err
	}

	page, err := a.client.UpdatePage(ctx, pageID, notion.BuildProperties(fields, schema))
	if err != nil {
		return nil, err
	}
	a.invalidateAfter("update_page")
	return page, nil
}

// DeleteEntry archives a page.
func (a *App) DeleteEntry(ctx context.Context, pageID string) error {
	if _, err := a.client.ArchivePage(ctx, pageID); err != nil {
		return err
	}
	a.invalidateAfter("archive_page")
	return nil
}

func (a *App) cacheGet(operation string, params any) ([]byte, bool) {
	if a.cache == nil {
		return nil, false
	}
	data, ok, err := a.cache.Get(a.accountID, operation, params)
	if err != nil {
		return nil, false
	}
	return data, ok
}

func (a *App) cachePut(operation string, params, payload any) {
	if a.cache == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = a.cache.Set(a.accountID, operation, params, data)
}

func (a *App) invalidateAfter(operation string) {
	if a.cache == nil {
		return
	}
	_ = a.cache.InvalidateAfterWrite(a.accountID, operation)
}

// looksLikeDatabaseID reports whether s is a 32-hex-digit database ID,
// with or without UUID dashes.
func looksLikeDatabaseID(s string) bool {
	s = strings.ReplaceAll(s, "-", "")
	if len(s) != 32 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

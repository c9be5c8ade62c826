package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/vertexcover-io/notion-cli/internal/app"
	"github.com/vertexcover-io/notion-cli/internal/config"
	"github.com/vertexcover-io/notion-cli/internal/export"
	"github.com/vertexcover-io/notion-cli/internal/notion"
	"github.com/vertexcover-io/notion-cli/internal/views"
)

const usage = `notion-cli - query Notion databases from the command line

Usage:
  notion-cli query     [--db NAME] [--view NAME] [--filter EXPR] [--columns A,B] [--limit N] [--export FILE]
  notion-cli databases
  notion-cli views list
  notion-cli views save --name NAME --db NAME [--filter EXPR] [--columns A,B] [--limit N] [--description TEXT]
  notion-cli views delete NAME
  notion-cli entries create --db NAME --set Field=Value [--set ...]
  notion-cli entries update --db NAME --id PAGE --set Field=Value [--set ...]
  notion-cli entries delete --id PAGE
  notion-cli auth setup --token TOKEN
  notion-cli auth status
`

func main() {
	log.SetFlags(0)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "query":
		err = runQuery(os.Args[2:])
	case "databases":
		err = runDatabases(os.Args[2:])
	case "views":
		err = runViews(os.Args[2:])
	case "entries":
		err = runEntries(os.Args[2:])
	case "auth":
		err = runAuth(os.Args[2:])
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

// setup loads configuration and assembles the application.
func setup() (*app.App, *config.Config, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, nil, err
	}

	cfg, err := config.LoadFrom(dir)
	if err != nil {
		log.Printf("Warning: could not load config: %v (using defaults)", err)
		cfg = config.GetDefaults()
	}

	tokens, err := config.NewTokenStore(dir)
	if err != nil {
		return nil, nil, err
	}
	token, err := tokens.Token(cfg.General.AccountID)
	if err != nil {
		return nil, nil, err
	}

	client := notion.NewClient(token,
		notion.WithTimeout(time.Duration(cfg.API.TimeoutSeconds)*time.Second))

	a, err := app.New(cfg, client, dir)
	if err != nil {
		return nil, nil, err
	}
	return a, cfg, nil
}

func runQuery(args []string) error {
	flags := flag.NewFlagSet("query", flag.ExitOnError)
	db := flags.String("db", "", "database name, alias, or ID")
	view := flags.String("view", "", "saved view name or prefix")
	filterExpr := flags.String("filter", "", "filter expression, e.g. \"status=Done, due<2025-07-10\"")
	columns := flags.StringSlice("columns", nil, "columns to show")
	limit := flags.Int("limit", 0, "maximum entries to fetch (0 = config default)")
	exportPath := flags.String("export", "", "write results to a .csv or .json file")
	if err := flags.Parse(args); err != nil {
		return err
	}

	a, _, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	result, err := a.Query(context.Background(), app.QueryOptions{
		Database: *db,
		View:     *view,
		Filter:   *filterExpr,
		Columns:  *columns,
		Limit:    *limit,
	})
	if err != nil {
		return err
	}

	if *exportPath != "" {
		if err := export.ToFile(result.Columns, result.Rows, *exportPath); err != nil {
			return err
		}
		fmt.Printf("Exported %d entries to %s\n", len(result.Rows), *exportPath)
		return nil
	}

	printTable(result.Columns, result.Rows)
	fmt.Printf("\n%d entries from %s\n", len(result.Rows), result.Database)
	return nil
}

func runDatabases(args []string) error {
	flags := flag.NewFlagSet("databases", flag.ExitOnError)
	if err := flags.Parse(args); err != nil {
		return err
	}

	a, _, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	databases, err := a.Databases(context.Background())
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(databases))
	for _, db := range databases {
		rows = append(rows, []string{db.Name(), db.ID})
	}
	printTable([]string{"Name", "ID"}, rows)
	return nil
}

func runViews(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: notion-cli views <list|save|delete>")
	}

	switch args[0] {
	case "list":
		a, _, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		rows := [][]string{}
		for _, v := range a.Views().List() {
			rows = append(rows, []string{v.Name, v.Database, v.Filter, v.Description})
		}
		printTable([]string{"Name", "Database", "Filter", "Description"}, rows)
		return nil

	case "save":
		flags := flag.NewFlagSet("views save", flag.ExitOnError)
		name := flags.String("name", "", "view name")
		db := flags.String("db", "", "database name, alias, or ID")
		filterExpr := flags.String("filter", "", "filter expression")
		columns := flags.StringSlice("columns", nil, "columns to show")
		limit := flags.Int("limit", 0, "maximum entries to fetch")
		description := flags.String("description", "", "view description")
		if err := flags.Parse(args[1:]); err != nil {
			return err
		}

		a, _, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		view, err := a.Views().Add(views.View{
			Name:        *name,
			Database:    *db,
			Columns:     *columns,
			Filter:      *filterExpr,
			Limit:       *limit,
			Description: *description,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Saved view %q\n", view.Name)
		return nil

	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("usage: notion-cli views delete NAME")
		}
		a, _, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		deleted, err := a.Views().Delete(args[1])
		if err != nil {
			return err
		}
		if !deleted {
			return &views.ViewNotFoundError{Name: args[1]}
		}
		fmt.Printf("Deleted view %q\n", args[1])
		return nil

	default:
		return fmt.Errorf("unknown views subcommand: %s", args[0])
	}
}

func runEntries(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: notion-cli entries <create|update|delete>")
	}

	switch args[0] {
	case "create":
		flags := flag.NewFlagSet("entries create", flag.ExitOnError)
		db := flags.String("db", "", "database name, alias, or ID")
		sets := flags.StringArray("set", nil, "field value as Field=Value (repeatable)")
		if err := flags.Parse(args[1:]); err != nil {
			return err
		}
		if *db == "" {
			return fmt.Errorf("--db is required")
		}
		fields, err := parseFields(*sets)
		if err != nil {
			return err
		}

		a, _, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		page, err := a.CreateEntry(context.Background(), *db, fields)
		if err != nil {
			return err
		}
		fmt.Printf("Created %s\n", page.URL)
		return nil

	case "update":
		flags := flag.NewFlagSet("entries update", flag.ExitOnError)
		db := flags.String("db", "", "database name, alias, or ID")
		id := flags.String("id", "", "page ID")
		sets := flags.StringArray("set", nil, "field value as Field=Value (repeatable)")
		if err := flags.Parse(args[1:]); err != nil {
			return err
		}
		if *db == "" || *id == "" {
			return fmt.Errorf("--db and --id are required")
		}
		fields, err := parseFields(*sets)
		if err != nil {
			return err
		}

		a, _, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		if _, err := a.UpdateEntry(context.Background(), *db, *id, fields); err != nil {
			return err
		}
		fmt.Println("Updated")
		return nil

	case "delete":
		flags := flag.NewFlagSet("entries delete", flag.ExitOnError)
		id := flags.String("id", "", "page ID")
		if err := flags.Parse(args[1:]); err != nil {
			return err
		}
		if *id == "" {
			return fmt.Errorf("--id is required")
		}

		a, _, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		if err := a.DeleteEntry(context.Background(), *id); err != nil {
			return err
		}
		fmt.Println("Archived")
		return nil

	default:
		return fmt.Errorf("unknown entries subcommand: %s", args[0])
	}
}

// parseFields splits repeated --set Field=Value flags into a field map.
func parseFields(sets []string) (map[string]string, error) {
	if len(sets) == 0 {
		return nil, fmt.Errorf("at least one --set Field=Value is required")
	}
	fields := make(map[string]string, len(sets))
	for _, s := range sets {
		name, value, ok := strings.Cut(s, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --set %q, expected Field=Value", s)
		}
		fields[name] = value
	}
	return fields, nil
}

func runAuth(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: notion-cli auth <setup|status>")
	}

	dir, err := config.Dir()
	if err != nil {
		return err
	}
	cfg, err := config.LoadFrom(dir)
	if err != nil {
		cfg = config.GetDefaults()
	}
	tokens, err := config.NewTokenStore(dir)
	if err != nil {
		return err
	}

	switch args[0] {
	case "setup":
		flags := flag.NewFlagSet("auth setup", flag.ExitOnError)
		token := flags.String("token", "", "Notion integration token")
		if err := flags.Parse(args[1:]); err != nil {
			return err
		}
		if *token == "" {
			return fmt.Errorf("--token is required")
		}
		if err := tokens.SetToken(cfg.General.AccountID, *token); err != nil {
			return err
		}
		if tokens.IsUsingFallback() {
			log.Println("Warning: no OS keyring available, token stored in encrypted file")
		}
		fmt.Println("Token saved")
		return nil

	case "status":
		token, err := tokens.Token(cfg.General.AccountID)
		if err != nil {
			return err
		}
		client := notion.NewClient(token)
		user, err := client.CurrentUser(context.Background())
		if err != nil {
			return fmt.Errorf("connection test failed: %w", err)
		}
		fmt.Printf("Connected as %s (%s)\n", user.Name, user.Type)
		return nil

	default:
		return fmt.Errorf("unknown auth subcommand: %s", args[0])
	}
}

// printTable writes rows as plain aligned text.
func printTable(columns []string, rows [][]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(columns, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

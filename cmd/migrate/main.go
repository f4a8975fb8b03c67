package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"card_bot/internal/storage"
	"card_bot/migrations"
)

func main() {
	_ = godotenv.Load()

	dbPath := flag.String("db", envOrDefault("DATABASE_PATH", "./data/bot.db"), "path to sqlite database")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: migrate [-db path] <command>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr, "  up              Migrate to the latest version")
		fmt.Fprintln(os.Stderr, "  up-one          Migrate one version up")
		fmt.Fprintln(os.Stderr, "  down            Roll back one version")
		fmt.Fprintln(os.Stderr, "  status          Show migration status")
		fmt.Fprintln(os.Stderr, "  version         Show current version")
		fmt.Fprintln(os.Stderr, "  reset           Roll back all migrations")
		fmt.Fprintln(os.Stderr, "  import <file>   Replace the history with a state.json file")
		os.Exit(1)
	}

	ctx := context.Background()
	cmd := args[0]

	if cmd == "import" {
		if len(args) < 2 {
			log.Fatal("import: state file path is required")
		}
		n, err := importState(ctx, args[1], *dbPath)
		if err != nil {
			log.Fatalf("import: %v", err)
		}
		fmt.Printf("imported %d history entries from %s\n", n, args[1])
		return
	}

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	p, err := migrations.NewProvider(db)
	if err != nil {
		log.Fatalf("%v", err)
	}

	switch cmd {
	case "up":
		_, err = p.Up(ctx)
	case "up-one":
		_, err = p.UpByOne(ctx)
	case "down":
		_, err = p.Down(ctx)
	case "status":
		err = printStatus(ctx, p)
	case "version":
		var v int64
		v, err = p.GetDBVersion(ctx)
		if err == nil {
			fmt.Printf("version %d\n", v)
		}
	case "reset":
		_, err = p.DownTo(ctx, 0)
	default:
		log.Fatalf("unknown command: %s", cmd)
	}

	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func printStatus(ctx context.Context, p *goose.Provider) error {
	statuses, err := p.Status(ctx)
	if err != nil {
		return err
	}
	for _, s := range statuses {
		fmt.Printf("%-8s %s\n", s.State, s.Source.Path)
	}
	return nil
}

// importState copies a JSON state file into the SQLite database.
// importState replaces the database state with the contents of statePath.
// The file must exist: an empty import would wipe the database.
func importState(ctx context.Context, statePath, dbPath string) (int, error) {
	if _, err := os.Stat(statePath); err != nil {
		return 0, fmt.Errorf("state file: %w", err)
	}

	src, err := storage.NewJSON(statePath)
	if err != nil {
		return 0, err
	}
	state, err := src.Load(ctx)
	if err != nil {
		return 0, err
	}

	dst, err := storage.NewSQLite(dbPath)
	if err != nil {
		return 0, err
	}
	defer func() { _ = dst.Close() }()

	if err := dst.Save(ctx, state); err != nil {
		return 0, err
	}
	return len(state.History), nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/authledger/internal/config"
)

func migrateCmd(configPath *string) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate [up|down] [steps]",
		Short: "Apply SQL migrations (postgres only)",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			steps := 0
			if len(args) >= 1 && args[0] != "" {
				action = strings.ToLower(args[0])
			}
			if len(args) >= 2 {
				if n, err := strconv.Atoi(args[1]); err == nil && n > 0 {
					steps = n
				}
			}

			var cfg *config.Config
			var err error
			if *configPath != "" {
				cfg, err = config.Load(*configPath)
				if err != nil {
					return fmt.Errorf("config load: %w", err)
				}
			} else {
				cfg = config.FromEnv()
			}

			ctx := context.Background()
			pool, err := pgxpool.New(ctx, cfg.Storage.DSN)
			if err != nil {
				return fmt.Errorf("pgxpool: %w", err)
			}
			defer pool.Close()

			switch action {
			case "up":
				files, err := listSQL(dir, "_up.sql")
				if err != nil {
					return err
				}
				sort.Strings(files) // apply in ascending order
				if steps > 0 && steps < len(files) {
					files = files[:steps]
				}
				fmt.Printf("Applying %d up migration(s)...\n", len(files))
				for _, f := range files {
					if err := execSQLFile(ctx, pool, f); err != nil {
						return fmt.Errorf("exec %s: %w", f, err)
					}
				}
				fmt.Println("Up migrations completed.")
				return nil

			case "down":
				files, err := listSQL(dir, "_down.sql")
				if err != nil {
					return err
				}
				sort.Strings(files)
				reverseInPlace(files) // run in reverse
				if steps > 0 && steps < len(files) {
					files = files[:steps] // only N most-recent downs
				}
				fmt.Printf("Applying %d down migration(s)...\n", len(files))
				for _, f := range files {
					if err := execSQLFile(ctx, pool, f); err != nil {
						return fmt.Errorf("exec %s: %w", f, err)
					}
				}
				fmt.Println("Down migrations completed.")
				return nil

			default:
				return fmt.Errorf("unknown action %q. Use: up | down [steps]", action)
			}
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "migrations/postgres", "Migrations directory (contains *_up.sql and *_down.sql)")
	return cmd
}

func listSQL(dir, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			name := e.Name()
			if strings.HasSuffix(strings.ToLower(name), strings.ToLower(suffix)) {
				out = append(out, filepath.Join(dir, name))
			}
		}
	}
	return out, nil
}

func reverseInPlace(ss []string) {
	for i, j := 0, len(ss)-1; i < j; i, j = i+1, j-1 {
		ss[i], ss[j] = ss[j], ss[i]
	}
}

func execSQLFile(ctx context.Context, pool *pgxpool.Pool, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	start := time.Now()
	if _, err := pool.Exec(ctx, string(b)); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	fmt.Printf("OK %s (%s)\n", filepath.Base(path), time.Since(start).Truncate(time.Millisecond))
	return nil
}

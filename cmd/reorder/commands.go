package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/andresuchdata/autopo-reorder/internal/catalog"
	"github.com/andresuchdata/autopo-reorder/internal/config"
	"github.com/andresuchdata/autopo-reorder/internal/domain"
	"github.com/andresuchdata/autopo-reorder/internal/export"
	"github.com/andresuchdata/autopo-reorder/internal/market"
	"github.com/andresuchdata/autopo-reorder/internal/reorder"
	"github.com/andresuchdata/autopo-reorder/internal/repository"
	"github.com/andresuchdata/autopo-reorder/internal/repository/memory"
	"github.com/andresuchdata/autopo-reorder/internal/repository/postgres"
	"github.com/andresuchdata/autopo-reorder/internal/snapshot"
	"github.com/andresuchdata/autopo-reorder/internal/storage"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

type ctxKey int

const (
	ledgerKey ctxKey = iota
	dbKey
)

// initLedger opens the ledger a command works against: a database when
// --db-url is set, otherwise an in-memory ledger loaded from --catalog.
func initLedger(c *cli.Context) error {
	if dbURL := c.String("db-url"); dbURL != "" {
		db, err := postgres.Open(c.Context, "pgx", dbURL)
		if err != nil {
			return err
		}
		repo := postgres.NewLedgerRepository(db)
		if err := repo.EnsureSchema(c.Context); err != nil {
			db.Close()
			return err
		}
		c.Context = context.WithValue(c.Context, dbKey, db)
		c.Context = context.WithValue(c.Context, ledgerKey, repository.Ledger(repo))
		return nil
	}

	path := c.String("catalog")
	if path == "" {
		return fmt.Errorf("either --db-url or --catalog is required")
	}
	file, err := catalog.Load(path)
	if err != nil {
		return err
	}
	ledger := memory.NewLedger()
	if err := catalog.Apply(c.Context, ledger, file); err != nil {
		return err
	}
	c.Context = context.WithValue(c.Context, ledgerKey, repository.Ledger(ledger))
	return nil
}

func closeLedger(c *cli.Context) error {
	// Close the database connection when done
	if db, ok := c.Context.Value(dbKey).(*postgres.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func ledgerFrom(c *cli.Context) (repository.Ledger, error) {
	ledger, ok := c.Context.Value(ledgerKey).(repository.Ledger)
	if !ok {
		return nil, fmt.Errorf("ledger not initialized")
	}
	return ledger, nil
}

func runPlan(c *cli.Context) error {
	ledger, err := ledgerFrom(c)
	if err != nil {
		return err
	}
	cfg := config.Load()

	today, err := planDate(c.String("date"))
	if err != nil {
		return err
	}

	hemisphereFlag := c.String("hemisphere")
	if hemisphereFlag == "" {
		hemisphereFlag = cfg.Market.Hemisphere
	}
	hemisphere, err := market.ParseHemisphere(strings.ToLower(strings.TrimSpace(hemisphereFlag)))
	if err != nil {
		return err
	}

	params, err := cfg.Policy.ReorderParams()
	if err != nil {
		return err
	}

	oracle := market.NewOracle(market.NewCalendar(hemisphere), market.NewStaticPromotions(c.StringSlice("on-sale")...))
	planner := reorder.NewPlanner(ledger, oracle, reorder.WithPolicy(reorder.NewPolicy(params)))

	started := time.Now()
	result, err := planner.RunConcurrent(c.Context, today, c.Int("partitions"))
	if err != nil {
		return fmt.Errorf("plan failed: %w", err)
	}
	log.Debug().
		Int("evaluated", result.Evaluated).
		Int("orders", len(result.Orders)).
		Int("escalations", len(result.Escalations)).
		Dur("duration", time.Since(started)).
		Msg("plan computed")

	return writePlan(c, today, result)
}

func planDate(raw string) (time.Time, error) {
	if raw == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	date, err := time.Parse(domain.DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q, expected YYYY-MM-DD", raw)
	}
	return date, nil
}

func writePlan(c *cli.Context, today time.Time, result *reorder.Result) error {
	out := c.App.Writer
	switch format := strings.ToLower(c.String("format")); format {
	case "csv":
		return export.WriteCSV(out, result.Orders)
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Date        string              `json:"date"`
			Orders      []domain.Order      `json:"orders"`
			Escalations []domain.Escalation `json:"escalations"`
		}{today.Format(domain.DateLayout), result.Orders, result.Escalations})
	case "table":
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SKU\tWAREHOUSE\tQUANTITY")
		for _, order := range result.Orders {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", order.Item.SKU, order.Warehouse, order.Quantity)
		}
		for _, esc := range result.Escalations {
			fmt.Fprintf(tw, "# %s@%s required on-hand %d -> %d\n", esc.SKU, esc.Warehouse, esc.From, esc.To)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown --format %q", format)
	}
}

func runSeed(c *cli.Context) error {
	ledger, err := ledgerFrom(c)
	if err != nil {
		return err
	}
	file, err := catalog.Load(c.String("catalog"))
	if err != nil {
		return err
	}

	log.Info().Int("items", len(file.Items)).Msg("Starting catalog seeding...")
	if err := catalog.Apply(c.Context, ledger, file); err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}
	log.Info().Int("stock_levels", len(file.Stock)).Msg("Catalog seeding completed successfully!")
	return nil
}

func runImportStock(c *cli.Context) error {
	ledger, err := ledgerFrom(c)
	if err != nil {
		return err
	}

	path := c.String("file")
	if key := c.String("object"); key != "" {
		if path != "" {
			return fmt.Errorf("--file and --object are mutually exclusive")
		}
		path, err = downloadSnapshot(c.Context, key)
		if err != nil {
			return err
		}
		defer os.RemoveAll(filepath.Dir(path))
	}
	if path == "" {
		return fmt.Errorf("either --file or --object is required")
	}

	levels, err := snapshot.ReadFile(path)
	if err != nil {
		return err
	}
	if err := snapshot.Import(c.Context, ledger, levels); err != nil {
		return fmt.Errorf("failed to import stock: %w", err)
	}
	log.Info().Int("levels", len(levels)).Str("source", path).Msg("stock snapshot imported")
	return nil
}

func downloadSnapshot(ctx context.Context, key string) (string, error) {
	client, err := storage.NewMinioClient(ctx, config.Load().Storage)
	if err != nil {
		return "", err
	}
	dir, err := os.MkdirTemp("", "reorder-snapshot-")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	dest := filepath.Join(dir, filepath.Base(key))
	if err := client.DownloadObject(ctx, key, dest); err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	return dest, nil
}

package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func newDBURLFlag(required bool) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: required,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "reorder",
		Usage: "Compute reorder proposals and maintain the stock ledger",
		Commands: []*cli.Command{
			{
				Name:  "plan",
				Usage: "Compute the orders for a date",
				Flags: []cli.Flag{
					newDBURLFlag(false),
					&cli.StringFlag{
						Name:  "catalog",
						Usage: "YAML catalog file to plan against instead of a database",
					},
					&cli.StringFlag{
						Name:  "date",
						Usage: "Planning date (YYYY-MM-DD), defaults to today",
					},
					&cli.StringSliceFlag{
						Name:  "on-sale",
						Usage: "SKUs currently discounted (repeat or comma separate)",
					},
					&cli.StringFlag{
						Name:    "hemisphere",
						Usage:   "Season calendar: north or south",
						EnvVars: []string{"MARKET_HEMISPHERE"},
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "Output format: table, json or csv",
						Value: "table",
					},
					&cli.IntFlag{
						Name:  "partitions",
						Usage: "Evaluate the catalog in N parallel partitions",
						Value: 1,
					},
				},
				Before: initLedger,
				After:  closeLedger,
				Action: runPlan,
			},
			{
				Name:  "seed",
				Usage: "Create the ledger schema and load a catalog file",
				Flags: []cli.Flag{
					newDBURLFlag(true),
					&cli.StringFlag{
						Name:     "catalog",
						Usage:    "YAML catalog file",
						Required: true,
					},
				},
				Before: initLedger,
				After:  closeLedger,
				Action: runSeed,
			},
			{
				Name:  "import-stock",
				Usage: "Load a CSV or XLSX stock snapshot into the ledger",
				Flags: []cli.Flag{
					newDBURLFlag(true),
					&cli.StringFlag{
						Name:  "file",
						Usage: "Local snapshot file",
					},
					&cli.StringFlag{
						Name:  "object",
						Usage: "Snapshot object key in the configured storage bucket",
					},
				},
				Before: initLedger,
				After:  closeLedger,
				Action: runImportStock,
			},
		},
	}
}

func main() {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: could not load .env file: %v", err)
	}

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

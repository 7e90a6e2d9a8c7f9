// Command report generates the calibration report from stored signals,
// positions and token outcomes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"memescope/internal/reporting"
	pgstore "memescope/internal/storage/postgres"
)

func main() {
	_ = godotenv.Load()

	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	outputDir := flag.String("output-dir", "", "Write the report file here instead of stdout")
	flag.Parse()

	if *postgresDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: --postgres-dsn (or POSTGRES_DSN) is required")
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to postgres: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	report, err := reporting.NewGenerator(pool).Generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}

	md := report.RenderMarkdown()

	if *outputDir == "" {
		fmt.Print(md)
		return
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}
	path := filepath.Join(*outputDir, "CALIBRATION_REPORT.md")
	if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Report generated: %s\n", path)
}

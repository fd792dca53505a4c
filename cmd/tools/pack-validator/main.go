// cmd/tools/pack-validator/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"assessment-workers/internal/common/config"
	"assessment-workers/internal/common/database"
	"assessment-workers/internal/common/logger"
	"assessment-workers/internal/customization"
	"assessment-workers/internal/scoring/loader"
)

func main() {
	packsDir := flag.String("packs", "", "Path to the customization packs directory (defaults to assessment.packs_dir)")
	strict := flag.Bool("strict", false, "Treat warnings as failures")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	dir := *packsDir
	if dir == "" {
		dir = cfg.Assessment.PacksDir
	}

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		fmt.Printf("Error connecting to postgres: %v\n", err)
		os.Exit(1)
	}
	defer pg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	scoringCfg, err := loader.New(pg.DB, logger.NewNoOpLogger()).LoadFresh(ctx)
	if err != nil {
		fmt.Printf("Error loading scoring config: %v\n", err)
		os.Exit(1)
	}

	packs, err := customization.LoadPacks(dir)
	if err != nil {
		fmt.Printf("Error loading packs from %s: %v\n", dir, err)
		os.Exit(1)
	}

	results := customization.ValidatePacks(scoringCfg, packs)

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	warned := false
	for _, name := range names {
		r := results[name]
		status := "OK"
		if !r.Valid {
			status = "FAILED"
		}
		fmt.Printf("%s: %s (%d errors, %d warnings)\n", name, status, len(r.Errors), len(r.Warnings))
		for _, e := range r.Errors {
			fmt.Printf("  error: %s\n", e)
		}
		for _, w := range r.Warnings {
			warned = true
			fmt.Printf("  warning: %s\n", w)
		}
	}

	if !customization.AllValid(results) {
		fmt.Println("Pack validation failed.")
		os.Exit(1)
	}
	if *strict && warned {
		fmt.Println("Pack validation passed with warnings (strict mode).")
		os.Exit(1)
	}
	fmt.Println("Pack validation passed.")
}

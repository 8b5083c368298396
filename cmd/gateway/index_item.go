package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/JMAlloway/Check-sub001/internal/config"
	"github.com/JMAlloway/Check-sub001/internal/db"
	"github.com/JMAlloway/Check-sub001/internal/logging"
	"github.com/JMAlloway/Check-sub001/internal/model"
	"github.com/JMAlloway/Check-sub001/internal/resolver"
)

// indexItem records one item's image locations in the lookup index, for
// demo deployments where no bank-side batch loader populates it.
func indexItem(args []string) {
	fs := flag.NewFlagSet("index-item", flag.ExitOnError)
	trace := fs.String("trace", "", "Trace number")
	date := fs.String("date", "", "Item date (YYYY-MM-DD)")
	front := fs.String("front", "", "Physical path of the front image")
	back := fs.String("back", "", "Physical path of the back image")
	fs.Parse(args)

	if *trace == "" || *date == "" || *front == "" || *back == "" {
		fmt.Fprintln(os.Stderr, "index-item: -trace, -date, -front and -back are required")
		os.Exit(1)
	}
	itemDate, err := time.Parse("2006-01-02", *date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "index-item: invalid date %q: want YYYY-MM-DD\n", *date)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	index := resolver.NewPostgresIndex(pool)
	if err := index.Upsert(ctx, &model.Item{
		TraceNumber: *trace,
		ItemDate:    itemDate,
		FrontPath:   *front,
		BackPath:    *back,
	}); err != nil {
		logger.Fatal().Err(err).Msg("failed to index item")
	}

	fmt.Printf("Indexed item %s@%s\n", *trace, *date)
}

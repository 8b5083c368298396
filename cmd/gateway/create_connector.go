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
	"github.com/JMAlloway/Check-sub001/internal/registry"
)

// createConnector registers a connector record directly against the
// database, for bootstrapping a deployment before the admin surface is up.
func createConnector(args []string) {
	fs := flag.NewFlagSet("create-connector", flag.ExitOnError)
	id := fs.String("id", "", "Connector ID")
	baseURL := fs.String("base-url", "", "Externally reachable base URL")
	keyID := fs.String("key-id", "", "ID of the first verification key")
	keyFile := fs.String("key-file", "", "PEM file with the RSA public verification key")
	keyValidDays := fs.Int("key-valid-days", 365, "Days until the key expires")
	lifetime := fs.Int("token-lifetime", 120, "Token lifetime in seconds")
	fs.Parse(args)

	if *id == "" || *keyID == "" || *keyFile == "" {
		fmt.Fprintln(os.Stderr, "create-connector: -id, -key-id and -key-file are required")
		os.Exit(1)
	}

	keyPEM, err := os.ReadFile(*keyFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create-connector: %v\n", err)
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

	reg := registry.New(registry.NewPostgresStore(pool), logger)
	expires := time.Now().UTC().AddDate(0, 0, *keyValidDays)
	c, err := reg.Register(ctx, *id, *baseURL, *keyID, string(keyPEM), expires, *lifetime)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to register connector")
	}

	fmt.Printf("Connector registered:\n  ID:         %s\n  Key ID:     %s\n  Key expiry: %s\n  Lifetime:   %ds\n",
		c.ID, c.ActiveKeyID, c.ActiveKeyExpiresAt.Format(time.RFC3339), c.TokenLifetimeSeconds)
}

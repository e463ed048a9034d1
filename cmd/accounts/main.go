// accounts seeds identities into the configured store's account table.
// Usage: go run ./cmd/accounts --config configs/relay.example.yaml alice bob carol
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/rickgao/chat-relay/internal/config"
	"github.com/rickgao/chat-relay/internal/store"
)

func main() {
	configPath := flag.String("config", "configs/relay.example.yaml", "path to config file")
	check := flag.Bool("check", false, "report which identities exist instead of creating them")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	identities := flag.Args()
	if len(identities) == 0 {
		fmt.Fprintln(os.Stderr, "usage: accounts [--config path] [--check] identity...")
		os.Exit(2)
	}

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Store.Driver == "memory" {
		logger.Error("memory store does not persist accounts; use sqlite or postgres")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if *check {
		for _, id := range identities {
			exists, err := st.AccountExists(ctx, id)
			if err != nil {
				logger.Error("lookup failed", "identity", id, "error", err)
				os.Exit(1)
			}
			fmt.Printf("%s\t%v\n", id, exists)
		}
		return
	}

	created, err := st.CreateAccounts(ctx, identities...)
	if err != nil {
		logger.Error("failed to create accounts", "error", err)
		os.Exit(1)
	}
	logger.Info("accounts seeded",
		"requested", len(identities),
		"created", created,
		"store", cfg.Store.Driver,
	)
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/aretw0/notely"
)

var (
	verbose          bool
	configPath       string
	endpoint         string
	realtimeEndpoint string
	apiKey           string
	adapter          string

	// mutationFailed is set by the replica when a background request fails.
	mutationFailed atomic.Bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "notely",
	Short: "A realtime notes client for a managed GraphQL backend",
	Long: `notely keeps a local replica of your notes in sync with a GraphQL backend.
Changes are applied locally first and confirmed in the background; changes made
by other clients are pushed over a realtime subscription.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: nearest notely.yaml)")
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "GraphQL endpoint URL")
	rootCmd.PersistentFlags().StringVar(&realtimeEndpoint, "realtime-endpoint", "", "Realtime websocket URL (default: derived from --endpoint)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key (or set it in the config file)")
	rootCmd.PersistentFlags().StringVar(&adapter, "adapter", "", "Backend adapter: graphql or memory")
}

// openReplica builds a replica from the config file and flags.
// Flags win over the file.
func openReplica(ctx context.Context, realtime bool) (*notely.Replica, error) {
	var cfg notely.FileConfig

	path := configPath
	if path == "" {
		if wd, err := os.Getwd(); err == nil {
			path, _ = notely.FindConfig(wd)
		}
	}
	if path != "" {
		loaded, err := notely.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		slog.Debug("loaded config", "path", path)
	}

	opts := cfg.Options()
	opts = append(opts,
		notely.WithLogger(slog.Default()),
		notely.WithRealtime(realtime),
		notely.WithMutationErrorHandler(func(err error) {
			mutationFailed.Store(true)
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}),
	)

	target := cfg.Endpoint
	if endpoint != "" {
		target = endpoint
	}
	if realtimeEndpoint != "" {
		opts = append(opts, notely.WithRealtimeEndpoint(realtimeEndpoint))
	}
	if apiKey != "" {
		opts = append(opts, notely.WithAPIKey(apiKey))
	}
	if adapter != "" {
		opts = append(opts, notely.WithAdapter(adapter))
	}

	if target == "" && adapter != "memory" && cfg.Adapter != "memory" {
		return nil, fmt.Errorf("no endpoint configured: pass --endpoint or create a notely.yaml")
	}

	return notely.New(ctx, target, opts...)
}

// finish waits for background requests and exits non-zero if any failed.
func finish(r *notely.Replica) {
	r.Wait()
	_ = r.Close()
	if mutationFailed.Load() {
		os.Exit(1)
	}
}

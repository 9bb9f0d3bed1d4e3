package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	replicalc "github.com/aretw0/notely/pkg/adapters/lifecycle"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the note list every time it changes",
	Long: `Subscribe to realtime create, update and delete events and print the
current list after each change. Press Ctrl+C to stop.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		r, err := openReplica(ctx, true)
		if err != nil {
			fatal("Failed to open replica", err)
		}
		defer r.Close()

		if err := r.Start(ctx); err != nil {
			fatal("Failed to subscribe", err)
		}
		if _, err := r.LoadAll(ctx); err != nil {
			slog.Warn("initial load failed", "error", err)
		}

		src := replicalc.NewSource(r.Watch(ctx))
		if err := src.Start(ctx); err != nil {
			fatal("Failed to start watcher", err)
		}

		fmt.Println("Watching for changes (Ctrl+C to stop)...")
		for e := range src.Events() {
			change, ok := e.(replicalc.ChangeEvent)
			if !ok {
				continue
			}
			fmt.Printf("--- %s\n", change)
			printNotes(change.State.Notes)
		}
		slog.Debug("watch stopped")
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

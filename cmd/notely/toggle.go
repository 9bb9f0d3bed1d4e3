package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var toggleCmd = &cobra.Command{
	Use:   "toggle [id]",
	Short: "Flip the completed flag of a note",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		r, err := openReplica(ctx, false)
		if err != nil {
			fatal("Failed to open replica", err)
		}

		if _, err := r.LoadAll(ctx); err != nil {
			fatal("Failed to load notes", err)
		}
		update, err := r.ToggleCompleted(ctx, args[0])
		if err != nil {
			fatal("Failed to toggle note", err)
		}
		finish(r)

		fmt.Printf("%s completed=%t\n", update.ID, update.Completed)
	},
}

func init() {
	rootCmd.AddCommand(toggleCmd)
}

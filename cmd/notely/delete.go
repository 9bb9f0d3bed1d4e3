package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		id := args[0]

		r, err := openReplica(ctx, false)
		if err != nil {
			fatal("Failed to open replica", err)
		}

		if _, err := r.LoadAll(ctx); err != nil {
			fatal("Failed to load notes", err)
		}
		if err := r.Delete(ctx, id); err != nil {
			fatal("Failed to delete note", err)
		}
		finish(r)

		fmt.Printf("Deleted %s\n", id)
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

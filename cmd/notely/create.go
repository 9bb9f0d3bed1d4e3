package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/notely"
)

var (
	createName        string
	createDescription string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a note",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		r, err := openReplica(ctx, false)
		if err != nil {
			fatal("Failed to open replica", err)
		}

		note, err := r.Create(ctx, notely.FormDraft{Name: createName, Description: createDescription})
		if err != nil {
			fatal("Failed to create note", err)
		}
		finish(r)

		fmt.Printf("Created %s\n", note.ID)
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
	createCmd.Flags().StringVarP(&createName, "name", "n", "", "Note name")
	createCmd.Flags().StringVarP(&createDescription, "description", "d", "", "Note description")
}

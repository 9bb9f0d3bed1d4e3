package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/aretw0/notely"
)

var (
	listJSON  bool
	listMatch string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes",
	Long:  `List all notes known to the backend, newest first as returned by the server.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		r, err := openReplica(ctx, false)
		if err != nil {
			fatal("Failed to open replica", err)
		}
		defer r.Close()

		notes, err := r.LoadAll(ctx)
		if err != nil {
			fatal("Failed to load notes", err)
		}

		notes, err = filterNotes(notes, listMatch)
		if err != nil {
			fatal("Invalid --match pattern", err)
		}

		if listJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(notes); err != nil {
				fatal("Failed to encode notes", err)
			}
			return
		}

		if len(notes) == 0 {
			fmt.Println("No notes.")
			return
		}
		printNotes(notes)
	},
}

// filterNotes keeps the notes whose name matches a doublestar pattern.
func filterNotes(notes []notely.Note, pattern string) ([]notely.Note, error) {
	if pattern == "" {
		return notes, nil
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, doublestar.ErrBadPattern
	}
	var out []notely.Note
	for _, n := range notes {
		ok, err := doublestar.Match(pattern, n.Name)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, n)
		}
	}
	return out, nil
}

func printNotes(notes []notely.Note) {
	for _, n := range notes {
		mark := " "
		if n.Completed {
			mark = "x"
		}
		fmt.Printf("[%s] %s: %s (%s)\n", mark, n.Name, n.Description, n.ID)
	}
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output as JSON")
	listCmd.Flags().StringVar(&listMatch, "match", "", "Only show notes whose name matches a glob (e.g. 'work/**')")
}

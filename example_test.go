package notely_test

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"

	"github.com/aretw0/notely"
	"github.com/aretw0/notely/pkg/adapters/memory"
)

// Example_basic demonstrates creating, toggling and deleting a note.
func Example_basic() {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	replica, err := notely.New(ctx, "", notely.WithAdapter("memory"), notely.WithLogger(logger))
	if err != nil {
		log.Fatal(err)
	}
	defer replica.Close()

	if _, err := replica.LoadAll(ctx); err != nil {
		log.Fatal(err)
	}

	// 1. Fill the form and submit it
	_ = replica.SetInput("name", "Groceries")
	_ = replica.SetInput("description", "milk, eggs")
	note, err := replica.Submit(ctx)
	if err != nil {
		log.Fatal(err)
	}
	replica.Wait()

	// 2. Toggle it
	if _, err := replica.ToggleCompleted(ctx, note.ID); err != nil {
		log.Fatal(err)
	}
	replica.Wait()

	for _, n := range replica.Notes() {
		fmt.Printf("%s: %s (completed=%t)\n", n.Name, n.Description, n.Completed)
	}
	fmt.Printf("draft after submit: %q\n", replica.Draft().Name)

	// 3. Validation happens before anything changes
	_, err = replica.Create(ctx, notely.FormDraft{Name: "no description"})
	fmt.Println(err)

	// Output:
	// Groceries: milk, eggs (completed=true)
	// draft after submit: ""
	// please enter a name and description (description is empty)
}

// Example_twoClients demonstrates two replicas converging through a shared backend.
func Example_twoClients() {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	backend := memory.New()

	open := func(id notely.ClientID) *notely.Replica {
		r, err := notely.New(ctx, "",
			notely.WithRemote(backend),
			notely.WithFeed(backend),
			notely.WithClientID(id),
			notely.WithLogger(logger),
		)
		if err != nil {
			log.Fatal(err)
		}
		if err := r.Start(ctx); err != nil {
			log.Fatal(err)
		}
		if _, err := r.LoadAll(ctx); err != nil {
			log.Fatal(err)
		}
		return r
	}

	laptop := open("laptop")
	defer laptop.Close()
	phone := open("phone")
	defer phone.Close()

	if _, err := laptop.Create(ctx, notely.FormDraft{Name: "Call mom", Description: "sunday"}); err != nil {
		log.Fatal(err)
	}
	laptop.Wait()

	fmt.Println("laptop:", len(laptop.Notes()), "phone:", len(phone.Notes()))
	fmt.Println("phone sees:", phone.Notes()[0].Name)

	// Output:
	// laptop: 1 phone: 1
	// phone sees: Call mom
}

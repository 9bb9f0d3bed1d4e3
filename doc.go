// Package notely is the Composition Root for the notely client.
//
// It connects the replica core (Domain Layer) with the backend adapters
// (GraphQL over HTTP and websocket, or in-memory) using the Hexagonal
// Architecture pattern.
//
// Philosophy:
//
// A notely replica is a local, ordered copy of a remote note collection.
// Local actions are applied immediately and confirmed with the backend in
// the background; changes made by other clients arrive as push events and
// are reconciled into the same list. The backend owns persistence and the
// wire protocol; the replica owns consistency of what is rendered.
//
// Features:
//
//   - **Optimistic Updates**: create, delete and toggle show up before the backend confirms them.
//   - **Echo Suppression**: a client ignores the push event of its own creations.
//   - **Immutable Snapshots**: every change replaces the list, readers never share it with the store.
//   - **Default Adapter (GraphQL)**: queries and mutations over HTTP, subscriptions over graphql-ws.
//   - **Extensible**: any backend implementing `core.RemoteAPI` and `core.EventFeed` can be plugged in.
//
// Usage:
//
//	replica, err := notely.New(ctx, "https://api.example.com/graphql",
//		notely.WithAPIKey(key),
//		notely.WithLogger(logger),
//	)
//	defer replica.Close()
//
//	_ = replica.Start(ctx)
//	notes, err := replica.LoadAll(ctx)
//	note, err := replica.Create(ctx, notely.FormDraft{Name: "Groceries", Description: "milk"})
package notely

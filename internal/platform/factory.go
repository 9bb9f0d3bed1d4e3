package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/aretw0/notely/pkg/adapters/graphql"
	"github.com/aretw0/notely/pkg/adapters/memory"
	"github.com/aretw0/notely/pkg/core"
)

// Replica is a Store together with the adapters it owns.
// Close releases the subscriptions first, then the connections.
type Replica struct {
	*core.Store
	closers []func() error
}

// Close tears down the store and every adapter opened for it.
func (r *Replica) Close() error {
	return errors.Join(r.Store.Close(), r.closeAdapters())
}

// New wires a replica for the given endpoint.
// The endpoint is adapter-specific (GraphQL URL for "graphql", ignored by
// "memory"). The realtime connection is opened here; subscriptions start
// with Replica.Start.
//
//	r, err := notely.New(ctx, "https://api.example.com/graphql", notely.WithAPIKey(key))
func New(ctx context.Context, endpoint string, opts ...Option) (*Replica, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Replica{}
	remote, feed := o.remote, o.feed

	if remote == nil || feed == nil {
		switch o.adapter {
		case "graphql":
			if err := initGraphQL(ctx, endpoint, o, logger, r, &remote, &feed); err != nil {
				_ = r.closeAdapters()
				return nil, err
			}
		case "memory":
			backend := memory.New()
			if remote == nil {
				remote = backend
			}
			if feed == nil {
				feed = backend
			}
		default:
			return nil, fmt.Errorf("unknown adapter: %s", o.adapter)
		}
	}

	errorHandler, _ := o.config["mutation_error_handler"].(func(error))
	newID, _ := o.config["id_generator"].(func() string)

	r.Store = core.NewStore(remote, feed, core.Config{
		ClientID:     o.clientID,
		Logger:       logger,
		ErrorHandler: errorHandler,
		NewID:        newID,
	})

	logger.Debug("replica ready", "adapter", o.adapter, "client_id", r.Store.ClientID())
	return r, nil
}

// initGraphQL fills in whichever of remote and feed was not injected.
func initGraphQL(ctx context.Context, endpoint string, o *options, logger *slog.Logger, r *Replica, remote *core.RemoteAPI, feed *core.EventFeed) error {
	apiKey, _ := o.config["api_key"].(string)
	retryMax := 2
	if v, ok := o.config["retry_max"].(int); ok {
		retryMax = v
	}
	pageSize, _ := o.config["page_size"].(int)

	if *remote == nil {
		client, err := graphql.NewClient(graphql.Config{
			Endpoint: endpoint,
			APIKey:   apiKey,
			Logger:   logger,
			RetryMax: retryMax,
			PageSize: pageSize,
		})
		if err != nil {
			return err
		}
		*remote = client
	}

	realtime := true
	if v, ok := o.config["realtime"].(bool); ok {
		realtime = v
	}
	if *feed != nil || !realtime {
		return nil
	}

	wsEndpoint, _ := o.config["realtime_endpoint"].(string)
	if wsEndpoint == "" {
		derived, err := RealtimeEndpoint(endpoint)
		if err != nil {
			return err
		}
		wsEndpoint = derived
	}
	ackTimeout, _ := o.config["ack_timeout"].(time.Duration)
	feedErrors, _ := o.config["feed_error_handler"].(func(error))

	f, err := graphql.DialFeed(ctx, graphql.FeedConfig{
		Endpoint:     wsEndpoint,
		APIKey:       apiKey,
		Logger:       logger,
		AckTimeout:   ackTimeout,
		ErrorHandler: feedErrors,
	})
	if err != nil {
		return fmt.Errorf("failed to open realtime feed: %w", err)
	}
	*feed = f
	r.closers = append(r.closers, f.Close)
	return nil
}

func (r *Replica) closeAdapters() error {
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// RealtimeEndpoint derives the websocket URL from a GraphQL HTTP endpoint.
func RealtimeEndpoint(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parsing endpoint: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("cannot derive realtime endpoint from %q", endpoint)
	}
	return u.String(), nil
}

// Package svcctx provides service context for dependency injection via
// context. This package is separate from server to avoid import cycles
// with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/creatorpulse/pulse/internal/accounts"
	"github.com/creatorpulse/pulse/internal/config"
	"github.com/creatorpulse/pulse/internal/docstore"
	"github.com/creatorpulse/pulse/internal/jobs"
	"github.com/creatorpulse/pulse/internal/scrape"
	"github.com/creatorpulse/pulse/internal/session"
	"github.com/creatorpulse/pulse/internal/syncer"
	"github.com/creatorpulse/pulse/internal/videostore"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Store       docstore.Store
	Accounts    *accounts.Store
	Engine      *videostore.Engine
	JobStore    *jobs.Store
	Dispatcher  *jobs.Dispatcher
	Sessions    *session.Aggregator
	Coordinator *syncer.Coordinator
	Registry    *scrape.Registry
	Config      *config.Manager
	Logger      *slog.Logger

	// WorkerSecret authorizes scheduled triggers.
	WorkerSecret string
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// StoreFrom extracts the document store from context.
func StoreFrom(ctx context.Context) docstore.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Store
	}
	return nil
}

// AccountsFrom extracts the account store from context.
func AccountsFrom(ctx context.Context) *accounts.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Accounts
	}
	return nil
}

// EngineFrom extracts the video storage engine from context.
func EngineFrom(ctx context.Context) *videostore.Engine {
	if s := ServicesFrom(ctx); s != nil {
		return s.Engine
	}
	return nil
}

// JobStoreFrom extracts the job store from context.
func JobStoreFrom(ctx context.Context) *jobs.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.JobStore
	}
	return nil
}

// DispatcherFrom extracts the job dispatcher from context.
func DispatcherFrom(ctx context.Context) *jobs.Dispatcher {
	if s := ServicesFrom(ctx); s != nil {
		return s.Dispatcher
	}
	return nil
}

// SessionsFrom extracts the session aggregator from context.
func SessionsFrom(ctx context.Context) *session.Aggregator {
	if s := ServicesFrom(ctx); s != nil {
		return s.Sessions
	}
	return nil
}

// CoordinatorFrom extracts the sync coordinator from context.
func CoordinatorFrom(ctx context.Context) *syncer.Coordinator {
	if s := ServicesFrom(ctx); s != nil {
		return s.Coordinator
	}
	return nil
}

// RegistryFrom extracts the scraper registry from context.
func RegistryFrom(ctx context.Context) *scrape.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Registry
	}
	return nil
}

// ConfigFrom extracts the config manager from context.
func ConfigFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}

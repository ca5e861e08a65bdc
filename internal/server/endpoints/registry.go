package endpoints

import (
	"github.com/creatorpulse/pulse/internal/api"
	"github.com/creatorpulse/pulse/internal/docstore"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	// StoreManager is the Docker lifecycle manager for the metricsdb
	// container; nil when the store is external or in-memory.
	StoreManager *docstore.DockerManager
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{StoreManager: cfg.StoreManager},

		// Sync endpoints
		&DispatchEndpoint{},
		&SweepEndpoint{},

		// Job endpoints
		&CreateJobEndpoint{},
		&ListJobsEndpoint{},
		&GetJobEndpoint{},
		&DeleteJobEndpoint{},

		// Session endpoints
		&CreateSessionEndpoint{},
		&GetSessionEndpoint{},

		// Account endpoints
		&ListAccountsEndpoint{},
		&GetAccountEndpoint{},
		&PutAccountEndpoint{},
	}
}

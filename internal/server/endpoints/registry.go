package endpoints

import (
	"github.com/jackzampolin/oracle/internal/api"
)

// All returns all endpoint instances.
func All() []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{},

		// Prophecy endpoints
		&GenerateProphecyEndpoint{},
		&ListPropheciesEndpoint{},
		&GetProphecyEndpoint{},
		&ProphecyInsightEndpoint{},
		&LastInsightEndpoint{},

		// Swagger/OpenAPI endpoints
		&SwaggerEndpoint{},
		&SwaggerUIEndpoint{},
	}
}

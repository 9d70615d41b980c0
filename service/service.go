// Package service holds the interface for everything app.App runs next to the
// web server.
package service

import "context"

// Service is an interface for all services that can be run in app.App.
type Service interface {
	// Run the Service until the given context.Context is done. Returning an
	// error stops all other services.
	Run(ctx context.Context) error
}

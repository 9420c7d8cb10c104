// Package api provides an HTTP API server for ingesting and querying the
// stamp collection.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8090")
	ListenAddr string
}

// Package api provides the Verso REST API server: CRUD over the song
// library, deck composition endpoints, import upload, and a websocket hub
// that keeps follower screens in sync with the operator during a
// presentation.
package api

// Config holds API server configuration.
type Config struct {
	Port              int
	DBPath            string
	RateLimitRequests int        // Requests per minute (0 = disabled)
	RateLimitBurst    int        // Burst size
	Auth              AuthConfig // Authentication configuration
	TLS               TLSConfig  // TLS configuration
	AllowedOrigins    []string   // CORS allowed origins (empty = allow all)
}

// TLSConfig holds TLS/HTTPS configuration.
type TLSConfig struct {
	Enabled  bool
	CertFile string
	KeyFile  string
}

package app

import "time"

// Config contains the HTTP-server-level runtime configuration. Subsystem
// configuration (hub client, cookies, activity) is loaded by the owning
// packages.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	ShutdownTimeout time.Duration
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("HUBGATE_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("HUBGATE_LOG_LEVEL", "info"),
		LogFormat: EnvString("HUBGATE_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("HUBGATE_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		// Read/write timeouts stay generous: WebSocket sessions live on the
		// same server.
		ReadTimeout:  EnvDuration("HUBGATE_HTTP_READ_TIMEOUT", 0),
		WriteTimeout: EnvDuration("HUBGATE_HTTP_WRITE_TIMEOUT", 0),
		IdleTimeout:  EnvDuration("HUBGATE_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("HUBGATE_HTTP_MAX_HEADER_BYTES", 1<<20),

		ShutdownTimeout: EnvDuration("HUBGATE_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

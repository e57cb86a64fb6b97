package config

import "time"

// Server defaults
const (
	DefaultPort        = "8080"
	ServerReadTimeout  = 10 * time.Second
	ServerWriteTimeout = 30 * time.Second
	ShutdownTimeout    = 30 * time.Second
)

// Conversion API timeouts and limits
const (
	ConvertTimeout = 10 * time.Second
	ListTimeout    = 5 * time.Second
	StatsTimeout   = 5 * time.Second

	// DefaultMaxBodyBytes caps the accepted document size. The converter
	// buffers the whole input, so the cap is the memory ceiling per request.
	DefaultMaxBodyBytes = 8 << 20 // 8 MB

	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// Retention and maintenance intervals
const (
	DefaultRetentionDays   = 7
	RetentionSweepInterval = 1 * time.Hour
	BadgerGCInterval       = 10 * time.Minute
)

// WebSocket configuration
const (
	WSReadBufferSize  = 1024
	WSWriteBufferSize = 1024
	WSBroadcastBuffer = 256
	WSChannelBuffer   = 10
	WSWriteDeadline   = 10 * time.Second
	WSReadDeadline    = 60 * time.Second
	WSPingInterval    = 30 * time.Second
)

package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "roomly"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRoomsServiceURL  = "http://localhost:8081"
	DefaultRoomsCallTimeout = 5 * time.Second

	// Dev-only key; production deployments must override.
	DefaultServiceTokenKey = "Hn3l9ZJlVd9qg7GxuOO2d4H0M8sYf1v0pSnm8AfUQ2k="
	DefaultServiceTokenTTL = 2 * time.Minute

	DefaultKafkaBookingTopic = "roomly.booking-events"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 100
)

// Booking status values shared by both services.
const (
	Pending   = "PENDING"
	Confirmed = "CONFIRMED"
	Cancelled = "CANCELLED"
)

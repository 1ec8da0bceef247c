package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017/?replicaSet=rs0"
	DefaultMongoDatabaseName = "nailbook"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultRedisDB = 0

	DefaultPort = "8080"

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultTimeSequence      = "08:00,10:30,13:00,15:30,18:00"
	DefaultTimeZone          = "UTC"
	DefaultServiceSlotCounts = "manicure:1,pedicure:1,gel_manicure:1,nail_art:1,gel_extension:2,acrylic_full_set:2,mani_pedi:2"
	DefaultPendingTTL        = 30 * time.Minute
	DefaultSweepSchedule     = "@every 5m"
	DefaultBulkMaxDays       = 92

	DefaultKafkaEnabled = false
)

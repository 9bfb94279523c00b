package config

import "time"

const (
	StoreBackendMongo  = "mongo"
	StoreBackendMemory = "memory"

	DateParseLenient = "lenient"
	DateParseStrict  = "strict"
)

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "autosnap"
	DefaultMongoConnTimeout  = 10 * time.Second
	DefaultStoreBackend      = StoreBackendMongo

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

	DefaultLoadingTimeout  = 20 * time.Second
	DefaultJoinConcurrency = 8
	DefaultDateParseMode   = DateParseLenient

	DefaultSentryEnvironment = "development"

	DefaultReconcileSchedule = "@every 10m"
)

package config

const EnvPrefix = "FLEETDRIVER"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Canonical env var names, shared with tests and deploy manifests.
const (
	EnvAppEnv             = "FLEETDRIVER_APP_ENV"
	EnvPort               = "FLEETDRIVER_APP_PORT"
	EnvDriverID           = "FLEETDRIVER_DRIVER_ID"
	EnvAPIBaseURL         = "FLEETDRIVER_API_BASE_URL"
	EnvAPITimeout         = "FLEETDRIVER_API_TIMEOUT"
	EnvRedisURL           = "FLEETDRIVER_REDIS_URL"
	EnvSessionStaticToken = "FLEETDRIVER_SESSION_STATIC_TOKEN"
	EnvChangeFeedPrefix   = "FLEETDRIVER_CHANGEFEED_CHANNEL_PREFIX"
	EnvChangeFeedDebounce = "FLEETDRIVER_CHANGEFEED_DEBOUNCE"
	EnvCountdownTick      = "FLEETDRIVER_COUNTDOWN_TICK_INTERVAL"
)

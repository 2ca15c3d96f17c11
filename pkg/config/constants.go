package config

// EnvPrefix is passed to envconfig; all variables already carry the full
// VALECLUB_ prefix in their tags, so the prefix itself stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names shared between Load and the tests.
const (
	EnvAppEnv   = "VALECLUB_APP_ENV"
	EnvPort     = "VALECLUB_APP_PORT"
	EnvDBDSN    = "VALECLUB_DB_DSN"
	EnvDBHost   = "VALECLUB_DB_HOST"
	EnvDBUser   = "VALECLUB_DB_USER"
	EnvDBName   = "VALECLUB_DB_NAME"
	EnvRedisURL = "VALECLUB_REDIS_URL"

	EnvJWTSecret  = "VALECLUB_JWT_SECRET"
	EnvJWTIssuer  = "VALECLUB_JWT_ISSUER"
	EnvJWTExpMins = "VALECLUB_JWT_EXPIRATION_MINUTES"

	EnvStripeAPIKey = "VALECLUB_STRIPE_API_KEY"
	EnvStripeSecret = "VALECLUB_STRIPE_SECRET"
	EnvSquareToken  = "VALECLUB_SQUARE_ACCESS_TOKEN"
	EnvSquareSecret = "VALECLUB_SQUARE_WEBHOOK_SECRET"
	EnvGCPProjectID = "VALECLUB_GCP_PROJECT_ID"
	EnvEventsTopic  = "VALECLUB_PUBSUB_EVENTS_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

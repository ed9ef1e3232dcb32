package config

const (
	EnvPrefix = "PAWFINDERZ"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres   = "postgres"
	DriverSQLite     = "sqlite"
	DefaultSQLiteDSN = "file:pawfinderz.db?cache=shared&_foreign_keys=on"

	EnvAppEnv        = "PAWFINDERZ_APP_ENV"
	EnvPort          = "PAWFINDERZ_APP_PORT"
	EnvUseSQLite     = "PAWFINDERZ_USE_SQLITE"
	EnvDBDSN         = "PAWFINDERZ_DB_DSN"
	EnvDBHost        = "PAWFINDERZ_DB_HOST"
	EnvDBUser        = "PAWFINDERZ_DB_USER"
	EnvDBName        = "PAWFINDERZ_DB_NAME"
	EnvRedisURL      = "PAWFINDERZ_REDIS_URL"
	EnvJWTSecret     = "PAWFINDERZ_JWT_SECRET"
	EnvJWTIssuer     = "PAWFINDERZ_JWT_ISSUER"
	EnvJWTExpMins    = "PAWFINDERZ_JWT_EXPIRATION_MINUTES"
	EnvGCPProjectID  = "PAWFINDERZ_GCP_PROJECT_ID"
	EnvNotifSub      = "PAWFINDERZ_PUBSUB_NOTIFICATION_SUBSCRIPTION"
	EnvWorkflowTopic = "PAWFINDERZ_PUBSUB_WORKFLOW_TOPIC"
	EnvInviteTTL     = "PAWFINDERZ_INVITATIONS_DEFAULT_TTL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Notifications NotificationsConfig
	Invitations   InvitationsConfig
	Settings      SettingsConfig
	Cron          CronConfig
	CORS          CORSConfig
	RateLimit     RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PAWFINDERZ_APP_ENV" required:"true"`
	Port         string `envconfig:"PAWFINDERZ_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PAWFINDERZ_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PAWFINDERZ_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PAWFINDERZ_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PAWFINDERZ_DB_DSN"`
	Driver string `envconfig:"PAWFINDERZ_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PAWFINDERZ_DB_HOST"`
	LegacyPort     int    `envconfig:"PAWFINDERZ_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PAWFINDERZ_DB_USER"`
	LegacyPassword string `envconfig:"PAWFINDERZ_DB_PASSWORD"`
	LegacyName     string `envconfig:"PAWFINDERZ_DB_NAME"`
	LegacySSLMode  string `envconfig:"PAWFINDERZ_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PAWFINDERZ_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PAWFINDERZ_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PAWFINDERZ_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PAWFINDERZ_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PAWFINDERZ_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PAWFINDERZ_REDIS_ADDR"`
	Password     string        `envconfig:"PAWFINDERZ_REDIS_PASSWORD"`
	DB           int           `envconfig:"PAWFINDERZ_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PAWFINDERZ_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PAWFINDERZ_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PAWFINDERZ_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PAWFINDERZ_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PAWFINDERZ_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PAWFINDERZ_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PAWFINDERZ_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PAWFINDERZ_JWT_EXPIRATION_MINUTES" required:"true"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// PasswordConfig tunes argon2id, which hashes invitation secrets.
type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PAWFINDERZ_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PAWFINDERZ_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PAWFINDERZ_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PAWFINDERZ_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PAWFINDERZ_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PAWFINDERZ_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PAWFINDERZ_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"PAWFINDERZ_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PAWFINDERZ_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"PAWFINDERZ_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PAWFINDERZ_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	WorkflowTopic            string `envconfig:"PAWFINDERZ_PUBSUB_WORKFLOW_TOPIC" default:"pf-workflow-events"`
	NotificationSubscription string `envconfig:"PAWFINDERZ_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PAWFINDERZ_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PAWFINDERZ_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PAWFINDERZ_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// NotificationsConfig drives the email job dispatcher.
type NotificationsConfig struct {
	EmailPollInterval time.Duration `envconfig:"PAWFINDERZ_NOTIFICATIONS_EMAIL_POLL_INTERVAL" default:"5s"`
	EmailBatchSize    int           `envconfig:"PAWFINDERZ_NOTIFICATIONS_EMAIL_BATCH_SIZE" default:"25"`
	EmailClaimLease   time.Duration `envconfig:"PAWFINDERZ_NOTIFICATIONS_EMAIL_CLAIM_LEASE" default:"5m"`
	DefaultFrom       string        `envconfig:"PAWFINDERZ_NOTIFICATIONS_DEFAULT_FROM" default:"no-reply@pawfinderz.local"`
	AppURL            string        `envconfig:"PAWFINDERZ_NOTIFICATIONS_APP_URL" default:"http://localhost:5173"`
}

type InvitationsConfig struct {
	DefaultTTL time.Duration `envconfig:"PAWFINDERZ_INVITATIONS_DEFAULT_TTL" default:"168h"`
}

type SettingsConfig struct {
	CacheTTL time.Duration `envconfig:"PAWFINDERZ_SETTINGS_CACHE_TTL" default:"5m"`
}

type CronConfig struct {
	Interval                 time.Duration `envconfig:"PAWFINDERZ_CRON_INTERVAL" default:"1m"`
	NotificationRetention    time.Duration `envconfig:"PAWFINDERZ_CRON_NOTIFICATION_RETENTION" default:"720h"`
	OutboxPublishedRetention time.Duration `envconfig:"PAWFINDERZ_CRON_OUTBOX_PUBLISHED_RETENTION" default:"720h"`
	OutboxDLQRetention       time.Duration `envconfig:"PAWFINDERZ_CRON_OUTBOX_DLQ_RETENTION" default:"720h"`
	EmailJobRetention        time.Duration `envconfig:"PAWFINDERZ_CRON_EMAIL_JOB_RETENTION" default:"336h"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"PAWFINDERZ_CORS_ALLOWED_ORIGINS" default:"http://localhost:5173"`
}

// RateLimitConfig throttles authenticated API traffic per user, falling back
// to the client IP when no user is known.
type RateLimitConfig struct {
	Window       time.Duration `envconfig:"PAWFINDERZ_RATE_LIMIT_WINDOW" default:"1m"`
	UserLimit    int           `envconfig:"PAWFINDERZ_RATE_LIMIT_USER" default:"120"`
	IPLimit      int           `envconfig:"PAWFINDERZ_RATE_LIMIT_IP" default:"300"`
	InviteLimit  int           `envconfig:"PAWFINDERZ_RATE_LIMIT_INVITE" default:"10"`
	InviteWindow time.Duration `envconfig:"PAWFINDERZ_RATE_LIMIT_INVITE_WINDOW" default:"1h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if strings.EqualFold(db.Driver, DriverSQLite) {
		db.DSN = DefaultSQLiteDSN
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

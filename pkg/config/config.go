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
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Ingest        IngestConfig
	CDN           CDNConfig
	GCP           GCPConfig
	GCS           GCSConfig
	Apple         AppleConfig
	Google        GoogleConfig
	Sendgrid      SendgridConfig
	PubSub        PubSubConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"DRESSING_APP_ENV" required:"true"`
	Port         string `envconfig:"DRESSING_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"DRESSING_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DRESSING_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"DRESSING_DB_DSN"`
	Driver string `envconfig:"DRESSING_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"DRESSING_DB_HOST"`
	Port     int    `envconfig:"DRESSING_DB_PORT" default:"5432"`
	User     string `envconfig:"DRESSING_DB_USER"`
	Password string `envconfig:"DRESSING_DB_PASSWORD"`
	Name     string `envconfig:"DRESSING_DB_NAME"`
	SSLMode  string `envconfig:"DRESSING_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DRESSING_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DRESSING_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DRESSING_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DRESSING_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DRESSING_REDIS_URL" required:"true"`
	Address      string        `envconfig:"DRESSING_REDIS_ADDR"`
	Password     string        `envconfig:"DRESSING_REDIS_PASSWORD"`
	DB           int           `envconfig:"DRESSING_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DRESSING_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DRESSING_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DRESSING_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DRESSING_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DRESSING_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"DRESSING_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"DRESSING_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"DRESSING_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"DRESSING_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"DRESSING_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"DRESSING_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"DRESSING_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"DRESSING_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"DRESSING_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"DRESSING_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"DRESSING_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"DRESSING_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"DRESSING_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"DRESSING_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"DRESSING_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// IngestConfig bounds the image processing endpoint.
type IngestConfig struct {
	MaxBase64Bytes   int64         `envconfig:"DRESSING_INGEST_MAX_BASE64_BYTES" default:"15728640"`
	RateLimitPerMin  int           `envconfig:"DRESSING_INGEST_RATE_LIMIT_PER_MIN" default:"10"`
	RateLimitWindow  time.Duration `envconfig:"DRESSING_INGEST_RATE_LIMIT_WINDOW" default:"1m"`
	IdempotencyTTL   time.Duration `envconfig:"DRESSING_INGEST_IDEMPOTENCY_TTL" default:"24h"`
	AllowedMimeTypes []string      `envconfig:"DRESSING_INGEST_ALLOWED_MIME_TYPES" default:"image/jpeg,image/png,image/webp,image/heic"`
}

// CDNConfig targets the third-party image CDN performing background removal
// and auto tagging.
type CDNConfig struct {
	CloudName      string        `envconfig:"DRESSING_CDN_CLOUD_NAME" required:"true"`
	APIKey         string        `envconfig:"DRESSING_CDN_API_KEY" required:"true"`
	APISecret      string        `envconfig:"DRESSING_CDN_API_SECRET" required:"true"`
	UploadFolder   string        `envconfig:"DRESSING_CDN_UPLOAD_FOLDER" default:"wardrobe"`
	RequestTimeout time.Duration `envconfig:"DRESSING_CDN_REQUEST_TIMEOUT" default:"8s"`
	BaseURL        string        `envconfig:"DRESSING_CDN_BASE_URL" default:"https://api.cloudinary.com"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"DRESSING_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"DRESSING_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"DRESSING_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName        string        `envconfig:"DRESSING_GCS_BUCKET_NAME" required:"true"`
	DownloadURLExpiry time.Duration `envconfig:"DRESSING_GCS_DOWNLOAD_URL_EXPIRY" default:"1h"`
}

// AppleConfig drives App Store receipt verification.
type AppleConfig struct {
	VerifyURL        string `envconfig:"DRESSING_APPLE_VERIFY_URL" default:"https://buy.itunes.apple.com/verifyReceipt"`
	SandboxVerifyURL string `envconfig:"DRESSING_APPLE_SANDBOX_VERIFY_URL" default:"https://sandbox.itunes.apple.com/verifyReceipt"`
	SharedSecret     string `envconfig:"DRESSING_APPLE_SHARED_SECRET"`
}

// GoogleConfig drives Play purchase verification via a service account.
type GoogleConfig struct {
	PackageName     string `envconfig:"DRESSING_GOOGLE_PACKAGE_NAME"`
	CredentialsJSON string `envconfig:"DRESSING_GOOGLE_SA_CREDENTIALS_JSON"`
	TokenURL        string `envconfig:"DRESSING_GOOGLE_TOKEN_URL" default:"https://oauth2.googleapis.com/token"`
	PublisherURL    string `envconfig:"DRESSING_GOOGLE_PUBLISHER_URL" default:"https://androidpublisher.googleapis.com"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"DRESSING_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"DRESSING_SENDGRID_FROM_EMAIL"`
}

type PubSubConfig struct {
	CleanupTopic        string `envconfig:"DRESSING_PUBSUB_CLEANUP_TOPIC"`
	CleanupSubscription string `envconfig:"DRESSING_PUBSUB_CLEANUP_SUBSCRIPTION"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"DRESSING_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"DRESSING_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

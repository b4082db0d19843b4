package config

// EnvPrefix is passed to envconfig; individual fields carry fully qualified
// names so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv     = "DRESSING_APP_ENV"
	EnvPort       = "DRESSING_APP_PORT"
	EnvDBDSN      = "DRESSING_DB_DSN"
	EnvDBHost     = "DRESSING_DB_HOST"
	EnvDBUser     = "DRESSING_DB_USER"
	EnvDBName     = "DRESSING_DB_NAME"
	EnvRedisURL   = "DRESSING_REDIS_URL"
	EnvJWTSecret  = "DRESSING_JWT_SECRET"
	EnvJWTIssuer  = "DRESSING_JWT_ISSUER"
	EnvJWTExpMins = "DRESSING_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID = "DRESSING_GCP_PROJECT_ID"
	EnvGCSBucket    = "DRESSING_GCS_BUCKET_NAME"

	EnvCDNCloudName = "DRESSING_CDN_CLOUD_NAME"
	EnvCDNAPIKey    = "DRESSING_CDN_API_KEY"
	EnvCDNAPISecret = "DRESSING_CDN_API_SECRET"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

package config

import (
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every setting the service reads at start-up. Nothing else in
// the module reads the environment.
type Config struct {
	Port           string
	Environment    string
	Domain         string
	RequestTimeout time.Duration
	CORSOrigins    []string

	StoreDriver   string
	MongoURI      string
	MongoDatabase string

	RedisAddress    string
	RedisPassword   string
	IssueLimitQueue string
	IssueDailyLimit int

	JWTSecret string

	AdminID         string
	AdminPassword   string
	AdminSessionTTL time.Duration
	AdminCanDelete  bool

	CampusCenterLat float64
	CampusCenterLng float64
	MapScale        float64

	StorageDriver      string
	SupabaseURL        string
	SupabaseServiceKey string
	StorageBucket      string
	OSSEndpoint        string
	OSSAccessKeyID     string
	OSSAccessKeySecret string
	OSSBucket          string
	OSSPublicBaseURL   string
	ImageMaxBytes      int64
	ImageMaxDimension  int

	RabbitMQURL string
}

func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		Environment:    getEnv("GO_ENV", "development"),
		Domain:         getEnv("DOMAIN", ""),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 10*time.Second),
		CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),

		StoreDriver:   getEnv("STORE_DRIVER", "mongo"),
		MongoURI:      getEnv("MONGODB_URI", ""),
		MongoDatabase: getEnv("MONGODB_DATABASE", "campusfix"),

		RedisAddress:    getEnv("REDIS_ADDRESS", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		IssueLimitQueue: getEnv("REDIS_QUEUE_FOR_ISSUE_LIMIT", "issue_limit"),
		IssueDailyLimit: getEnvInt("ISSUE_DAILY_LIMIT", 20),

		JWTSecret: getEnv("JWT_SECRET", ""),

		AdminID:         getEnv("ADMIN_ID", ""),
		AdminPassword:   getEnv("ADMIN_PASSWORD", ""),
		AdminSessionTTL: getEnvDuration("ADMIN_SESSION_TTL", 24*time.Hour),
		AdminCanDelete:  getEnvBool("ADMIN_CAN_DELETE", false),

		CampusCenterLat: getEnvFloat("CAMPUS_CENTER_LAT", 28.6692),
		CampusCenterLng: getEnvFloat("CAMPUS_CENTER_LNG", 77.2265),
		MapScale:        getEnvScale("MAP_SCALE", 0.001),

		StorageDriver:      getEnv("STORAGE_DRIVER", "none"),
		SupabaseURL:        getEnv("SUPABASE_PROJECT_URL", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
		StorageBucket:      getEnv("STORAGE_BUCKET", "issue-images"),
		OSSEndpoint:        getEnv("OSS_ENDPOINT", ""),
		OSSAccessKeyID:     getEnv("OSS_ACCESS_KEY_ID", ""),
		OSSAccessKeySecret: getEnv("OSS_ACCESS_KEY_SECRET", ""),
		OSSBucket:          getEnv("OSS_BUCKET", ""),
		OSSPublicBaseURL:   getEnv("OSS_PUBLIC_BASE_URL", ""),
		ImageMaxBytes:      int64(getEnvInt("IMAGE_MAX_BYTES", 10*1024*1024)),
		ImageMaxDimension:  getEnvInt("IMAGE_MAX_DIMENSION", 1600),

		RabbitMQURL: getEnv("RABBITMQ_URL", ""),
	}
}

// IsProduction reports whether cookies should be issued as Secure.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := getEnv(key, ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v := getEnv(key, ""); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvScale only accepts finite values above zero; anything else would
// collapse or invert the map projection.
func getEnvScale(key string, defaultValue float64) float64 {
	f := getEnvFloat(key, defaultValue)
	if !(f > 0) || math.IsInf(f, 0) {
		log.Printf("config: %s=%v is not a positive scale, using %v", key, f, defaultValue)
		return defaultValue
	}
	return f
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := getEnv(key, ""); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := getEnv(key, ""); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

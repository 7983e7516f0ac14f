package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string

	StoreDriver  string // mysql | redis | supabase | dynamodb | memory
	MySQLDSN     string
	RedisAddr    string
	RedisDB      int
	RedisPass    string
	RedisPrefix  string
	SupabaseURL  string
	SupabaseKey  string // service role key, used by the store
	SupabaseAnon string
	KVTable      string
	DynamoTable  string

	AuthMode      string // remote | supabase | jwt
	AuthJWTSecret string
	AuthRPS       int

	CORSOrigins    []string
	RequestTimeout time.Duration
	SeedLockTTL    time.Duration
	SeedWorkers    int
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""),

		StoreDriver:  strings.ToLower(env("STORE_DRIVER", "mysql")),
		MySQLDSN:     env("MYSQL_DSN", "root:root@tcp(localhost:3306)/brokerage?parseTime=true&multiStatements=true&charset=utf8mb4&loc=UTC"),
		RedisAddr:    env("REDIS_ADDR", "localhost:6379"),
		RedisPass:    env("REDIS_PASSWORD", ""),
		RedisDB:      atoi("REDIS_DB", 0),
		RedisPrefix:  env("REDIS_PREFIX", ""),
		SupabaseURL:  env("SUPABASE_URL", ""),
		SupabaseKey:  env("SUPABASE_SERVICE_ROLE_KEY", ""),
		SupabaseAnon: env("SUPABASE_ANON_KEY", ""),
		KVTable:      env("KV_TABLE", "kv_store"),
		DynamoTable:  env("DYNAMODB_TABLE", "brokerage-kv"),

		AuthMode:      strings.ToLower(env("AUTH_MODE", "remote")),
		AuthJWTSecret: env("AUTH_JWT_SECRET", ""),
		AuthRPS:       atoi("AUTH_RPS", 20),

		CORSOrigins:    list(env("CORS_ORIGINS", "*")),
		RequestTimeout: time.Duration(atoi("REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,
		SeedLockTTL:    time.Duration(atoi("SEED_LOCK_TTL_SECONDS", 120)) * time.Second,
		SeedWorkers:    atoi("SEED_WORKERS", 2),
	}
	if c.StoreDriver == "supabase" && c.SupabaseKey == "" {
		log.Warn().Msg("SUPABASE_SERVICE_ROLE_KEY is empty")
	}
	if c.AuthMode == "jwt" && c.AuthJWTSecret == "" {
		log.Warn().Msg("AUTH_JWT_SECRET is empty; admin routes will reject every token")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func list(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

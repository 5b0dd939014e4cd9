package config

import (
	"os"
	"strconv"
)

type Config struct {
	AppPort         string
	AppBaseURL      string
	FrontendBaseURL string
	Debug           bool

	StoreDriver string // postgres | memory
	DBDSN       string

	JWTSecret     string
	JWTExpiresMin int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AMQPURL string

	StorageDriver string // local | gcs
	UploadDir     string
	GCSBucket     string
	FileTokenKey  string

	PolicyFile string
	Policy     Policy
}

func Load() Config {
	expires, _ := strconv.Atoi(get("JWT_EXPIRES_MIN", "10080"))
	redisDB, _ := strconv.Atoi(get("REDIS_DB", "0"))

	cfg := Config{
		AppPort:         get("APP_PORT", "8080"),
		AppBaseURL:      get("APP_BASE_URL", "http://localhost:8080"),
		FrontendBaseURL: get("FRONTEND_BASE_URL", "http://localhost:3000"),
		Debug:           get("APP_DEBUG", "false") == "true",
		StoreDriver:     get("STORE_DRIVER", "postgres"),
		JWTSecret:       must("JWT_SECRET"),
		JWTExpiresMin:   expires,
		RedisAddr:       get("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   get("REDIS_PASSWORD", ""),
		RedisDB:         redisDB,
		AMQPURL:         get("AMQP_URL", ""),
		StorageDriver:   get("STORAGE_DRIVER", "local"),
		UploadDir:       get("UPLOAD_DIR", "./uploads"),
		GCSBucket:       get("GCS_BUCKET", ""),
		FileTokenKey:    get("FILE_TOKEN_KEY", ""),
		PolicyFile:      get("WORKFLOW_POLICY_FILE", "workflow.yaml"),
	}
	if cfg.StoreDriver == "postgres" {
		cfg.DBDSN = must("DB_DSN")
	}
	if cfg.StorageDriver == "local" && cfg.FileTokenKey == "" {
		panic("missing env: FILE_TOKEN_KEY (16/24/32 bytes, required by local storage)")
	}

	policy, err := LoadPolicy(cfg.PolicyFile)
	if err != nil {
		panic("invalid workflow policy: " + err.Error())
	}
	cfg.Policy = policy
	return cfg
}

func get(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}

package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/quatton/qseq/pkg/db"
	"github.com/quatton/qseq/pkg/kv"
	"github.com/quatton/qseq/pkg/qart"
)

// Env holds connection settings read from DB_*, S3_* and VALKEY_* variables.
type Env struct {
	DB     db.Config
	S3     qart.S3Config
	Valkey kv.ValkeyConfig
}

// LoadEnv loads .env when present, then the environment.
func LoadEnv(dotenv ...string) (*Env, error) {
	if err := godotenv.Load(dotenv...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	env := &Env{
		DB: db.DefaultConfig(),
		S3: qart.S3Config{
			Endpoint: "localhost:9000",
			Bucket:   "qseq",
			Region:   "us-east-1",
		},
		Valkey: kv.ValkeyConfig{Addr: "localhost:6379"},
	}
	if err := envconfig.Process("DB", &env.DB); err != nil {
		return nil, fmt.Errorf("failed to process DB env vars: %w", err)
	}
	if err := envconfig.Process("S3", &env.S3); err != nil {
		return nil, fmt.Errorf("failed to process S3 env vars: %w", err)
	}
	if err := envconfig.Process("VALKEY", &env.Valkey); err != nil {
		return nil, fmt.Errorf("failed to process VALKEY env vars: %w", err)
	}
	return env, nil
}

// Validate checks the settings the selected claim backend needs as well as
// the database and blob store.
func (e *Env) Validate(claimBackend string) error {
	var errs []error
	if e.DB.Host == "" || e.DB.Database == "" {
		errs = append(errs, errors.New("DB_HOST and DB_DATABASE are required"))
	}
	if e.S3.Endpoint == "" || e.S3.Bucket == "" {
		errs = append(errs, errors.New("S3_ENDPOINT and S3_BUCKET are required"))
	}
	if (e.S3.AccessKey == "") != (e.S3.SecretKey == "") {
		errs = append(errs, errors.New("S3_ACCESS_KEY and S3_SECRET_KEY must be set together"))
	}
	if claimBackend == ClaimBackendValkey && e.Valkey.Addr == "" {
		errs = append(errs, errors.New("VALKEY_ADDR is required for the valkey claim backend"))
	}
	return errors.Join(errs...)
}

func MaskSecret(secret string) string {
	if secret == "" {
		return "<not set>"
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}

func (e *Env) Print(fmtr func(string, ...any)) {
	fmtr("📋 Connections:\n")
	fmtr("  Database: %s@%s:%d/%s (sslmode=%s)\n", e.DB.User, e.DB.Host, e.DB.Port, e.DB.Database, e.DB.SSLMode)
	fmtr("  S3: %s/%s (ssl=%t, access key %s)\n", e.S3.Endpoint, e.S3.Bucket, e.S3.UseSSL, MaskSecret(e.S3.AccessKey))
	fmtr("  Valkey: %s (db %d)\n", e.Valkey.Addr, e.Valkey.DB)
}

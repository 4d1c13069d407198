// Package config loads qseq settings: pipeline options from qseq.yaml, QSEQ_*
// variables and CLI flags, and connection settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/quatton/qseq/pkg/qlog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix  = "QSEQ"
	ConfigName = "qseq"

	SequencingDirKey = "sequencing_dir"
	WorkersKey       = "workers"
	ClaimBackendKey  = "claim_backend"
	ClaimTTLKey      = "claim_ttl"
	LogLevelKey      = "log_level"
	DryRunKey        = "dry_run"
	PortKey          = "port"
)

const (
	ClaimBackendFile   = "file"
	ClaimBackendValkey = "valkey"
)

type Config struct {
	SequencingDir string        `mapstructure:"sequencing_dir"`
	Workers       int           `mapstructure:"workers"`
	ClaimBackend  string        `mapstructure:"claim_backend"`
	ClaimTTL      time.Duration `mapstructure:"claim_ttl"`
	LogLevel      string        `mapstructure:"log_level"`
	DryRun        bool          `mapstructure:"dry_run"`
	Port          int           `mapstructure:"port"`

	v *viper.Viper
}

// Load reads cfgFile, or qseq.yaml/qseq.yml in the working directory when
// cfgFile is empty. Flags, when given, override file and environment values
// for keys of the same name.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", cfgFile, err)
		}
	} else {
		for _, name := range []string{ConfigName + ".yaml", ConfigName + ".yml"} {
			if _, err := os.Stat(name); err == nil {
				v.SetConfigFile(name)
				if err := v.ReadInConfig(); err != nil {
					return nil, fmt.Errorf("reading config file %s: %w", name, err)
				}
				break
			}
		}
	}

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.v = v
	return &cfg, nil
}

// bindFlags binds flags named like config keys with dashes ("sequencing-dir").
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if bindErr := v.BindPFlag(key, f); bindErr != nil && err == nil {
			err = fmt.Errorf("binding flag %s: %w", f.Name, bindErr)
		}
	})
	return err
}

// Every key needs a default so that Unmarshal sees values set only through
// the environment.
func setDefaults(v *viper.Viper) {
	v.SetDefault(SequencingDirKey, "")
	v.SetDefault(WorkersKey, 1)
	v.SetDefault(ClaimBackendKey, ClaimBackendFile)
	v.SetDefault(ClaimTTLKey, "6h")
	v.SetDefault(LogLevelKey, "info")
	v.SetDefault(DryRunKey, false)
	v.SetDefault(PortKey, 3000)
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	if c.SequencingDir == "" {
		errs = append(errs, errors.New("sequencing_dir is required"))
	} else if info, err := os.Stat(c.SequencingDir); err != nil || !info.IsDir() {
		errs = append(errs, fmt.Errorf("sequencing_dir %s is not a directory", c.SequencingDir))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.ClaimBackend != ClaimBackendFile && c.ClaimBackend != ClaimBackendValkey {
		errs = append(errs, fmt.Errorf("claim_backend must be %q or %q, got %q", ClaimBackendFile, ClaimBackendValkey, c.ClaimBackend))
	}
	if c.ClaimTTL <= 0 {
		errs = append(errs, fmt.Errorf("claim_ttl must be positive, got %s", c.ClaimTTL))
	}
	if _, err := qlog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d is out of range", c.Port))
	}
	return errors.Join(errs...)
}

// ConfigFileUsed returns the config file that was used (if any)
func (c *Config) ConfigFileUsed() string {
	if c.v == nil {
		return ""
	}
	return c.v.ConfigFileUsed()
}

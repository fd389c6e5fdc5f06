package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tinytelemetry/mongoperf/internal/duckdb"
	"github.com/tinytelemetry/mongoperf/internal/mailer"
	"github.com/tinytelemetry/mongoperf/internal/model"
	"github.com/tinytelemetry/mongoperf/internal/mongostore"
)

const (
	envPrefix               = "MONGOPERF"
	defaultConnectTimeout   = mongostore.DefaultTimeout
	defaultArchiveRetention = duckdb.DefaultRetentionDays
	defaultSMTPPort         = 25
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	ServerConfig     string        `mapstructure:"server-config"`
	ConfigDir        string        `mapstructure:"config-dir"`
	Stats            bool          `mapstructure:"stats"`
	Flatten          bool          `mapstructure:"flatten"`
	Count            int           `mapstructure:"count"`
	Interval         int           `mapstructure:"interval"`
	Output           string        `mapstructure:"output"`
	Append           bool          `mapstructure:"append"`
	MailTo           []string      `mapstructure:"mail-to"`
	Subject          string        `mapstructure:"subject"`
	Mailx            bool          `mapstructure:"mailx"`
	Insert           string        `mapstructure:"insert"`
	StoreConfig      string        `mapstructure:"store-config"`
	BinPath          string        `mapstructure:"bin-path"`
	QuietConnect     bool          `mapstructure:"quiet-connect"`
	NoStdout         bool          `mapstructure:"no-stdout"`
	TLSInsecure      bool          `mapstructure:"tls-insecure"`
	ConnectTimeout   time.Duration `mapstructure:"connect-timeout"`
	Archive          string        `mapstructure:"archive"`
	ArchiveRetention int           `mapstructure:"archive-retention"`
	Spool            string        `mapstructure:"spool"`
	SMTPHost         string        `mapstructure:"smtp-host"`
	SMTPPort         int           `mapstructure:"smtp-port"`
	SMTPUser         string        `mapstructure:"smtp-user"`
	SMTPPassword     string        `mapstructure:"smtp-password"`
	SMTPStartTLS     bool          `mapstructure:"smtp-starttls"`
	MailFrom         string        `mapstructure:"mail-from"`
	LogFile          string        `mapstructure:"log-file"`
	Summary          bool          `mapstructure:"summary"`
	ConfigPath       string        `mapstructure:"-"` // not from config file
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("mongo-perf", pflag.ContinueOnError)
	fs.SortFlags = false

	fs.StringP("server-config", "c", "", "server connection file name, without the .yml extension (required)")
	fs.StringP("config-dir", "d", "", "directory holding server connection files (required)")
	fs.BoolP("stats", "S", false, "collect mongostat statistics")
	fs.BoolP("flatten", "f", false, "write compact single-line JSON to file and stdout")
	fs.IntP("count", "n", model.DefaultCount, "number of samples to take")
	fs.IntP("interval", "b", model.DefaultInterval, "polling interval in seconds")
	fs.StringP("output", "o", "", "write documents to this file")
	fs.BoolP("append", "a", false, "append to the output file instead of truncating it")
	fs.StringSliceP("mail-to", "t", nil, "email the documents to these addresses")
	fs.StringP("subject", "s", "", "email subject (default "+model.DefaultSubject+")")
	fs.BoolP("mailx", "u", false, "send email with the local mailx command instead of SMTP")
	fs.StringP("insert", "i", "", "insert documents into database:collection (bare -i uses "+model.DefaultStoreTarget+")")
	fs.Lookup("insert").NoOptDefVal = model.DefaultStoreTarget
	fs.StringP("store-config", "m", "", "server connection file for the insert target")
	fs.StringP("bin-path", "p", "", "directory holding the mongo binaries")
	fs.BoolP("quiet-connect", "w", false, "suppress the initial connection failure message")
	fs.BoolP("no-stdout", "z", false, "do not print documents to stdout")
	fs.BoolP("tls-insecure", "r", false, "turn off TLS certificate checking")
	fs.BoolP("version", "v", false, "print version information")

	fs.Duration("connect-timeout", defaultConnectTimeout, "MongoDB connection timeout")
	fs.String("archive", "", "archive documents into this DuckDB file")
	fs.Int("archive-retention", defaultArchiveRetention, "days to keep archived documents, 0 keeps them forever")
	fs.String("spool", "", "spool failed inserts to this file and retry them on the next run")
	fs.String("smtp-host", "", "SMTP relay host (default localhost)")
	fs.Int("smtp-port", defaultSMTPPort, "SMTP relay port")
	fs.Bool("smtp-starttls", false, "require STARTTLS on the SMTP connection")
	fs.String("mail-from", "", "email sender address (default user@host)")
	fs.String("log-file", "", "runtime log file (default $HOME/.local/state/mongo-perf/mongo-perf.log)")
	fs.Bool("summary", false, "print a run summary to stderr")
	fs.String("settings", "", "settings file (default is $HOME/.config/mongo-perf/config.yml)")
	return fs
}

func loadConfig(fs *pflag.FlagSet) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// Keys without a flag, settable from the settings file or environment.
	v.SetDefault("smtp-user", "")
	v.SetDefault("smtp-password", "")

	if err := v.BindPFlags(fs); err != nil {
		return cfg, fmt.Errorf("binding flags: %w", err)
	}

	settings, _ := fs.GetString("settings")
	if settings != "" {
		v.SetConfigFile(settings)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "mongo-perf", "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()

	for _, p := range []*string{&cfg.ConfigDir, &cfg.BinPath, &cfg.Output, &cfg.Archive, &cfg.Spool, &cfg.LogFile} {
		*p = expandHome(*p, home)
	}
	cfg.MailTo = compactList(cfg.MailTo)
	if cfg.MailFrom == "" {
		cfg.MailFrom = mailer.DefaultFrom()
	}

	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// validateConfig checks required and dependent options.
func validateConfig(cfg appConfig) error {
	if cfg.ServerConfig == "" {
		return errors.New("missing required option -c/--server-config")
	}
	if cfg.ConfigDir == "" {
		return errors.New("missing required option -d/--config-dir")
	}
	if cfg.Insert != "" && cfg.StoreConfig == "" {
		return errors.New("-i/--insert requires -m/--store-config")
	}
	if cfg.Insert != "" {
		if _, err := model.ParseStoreTarget(cfg.Insert); err != nil {
			return err
		}
	}
	if cfg.Subject != "" && len(cfg.MailTo) == 0 {
		return errors.New("-s/--subject requires -t/--mail-to")
	}
	if cfg.Mailx && len(cfg.MailTo) == 0 {
		return errors.New("-u/--mailx requires -t/--mail-to")
	}
	if cfg.Count <= 0 {
		return fmt.Errorf("invalid count: %d", cfg.Count)
	}
	if cfg.Interval <= 0 {
		return fmt.Errorf("invalid interval: %d", cfg.Interval)
	}
	if cfg.ArchiveRetention < 0 {
		return fmt.Errorf("invalid archive-retention: %d", cfg.ArchiveRetention)
	}
	if cfg.SMTPPort <= 0 || cfg.SMTPPort > 65535 {
		return fmt.Errorf("invalid smtp-port: %d", cfg.SMTPPort)
	}
	if err := checkDir("config-dir", cfg.ConfigDir); err != nil {
		return err
	}
	if cfg.BinPath != "" {
		if err := checkDir("bin-path", cfg.BinPath); err != nil {
			return err
		}
	}
	if cfg.Output != "" {
		if err := checkDir("output directory", filepath.Dir(cfg.Output)); err != nil {
			return err
		}
	}
	return nil
}

func checkDir(what, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: %s is not a directory", what, path)
	}
	return nil
}

func expandHome(path, home string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

func compactList(items []string) []string {
	var out []string
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}

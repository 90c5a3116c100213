// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"gw-audit/internal/domain"
)

// EnvPrefix prefixes every environment variable the tool reads.
const EnvPrefix = "GWAUDIT_"

// GoogleConfig selects the service account and the admin it impersonates.
type GoogleConfig struct {
	CredentialsFile string `yaml:"credentials_file" env:"CREDENTIALS_FILE" validate:"required"`
	AdminSubject    string `yaml:"admin_subject" env:"ADMIN_SUBJECT" validate:"required,email"`
	// CustomerID is resolved from the directory when empty.
	CustomerID string `yaml:"customer_id" env:"CUSTOMER_ID"`
}

// UsersConfig configures the inactive-licensed-users audit.
type UsersConfig struct {
	ProductID      string `yaml:"product_id" env:"PRODUCT_ID" validate:"required"`
	TargetSKU      string `yaml:"target_sku" env:"TARGET_SKU"`
	ReplacementSKU string `yaml:"replacement_sku" env:"REPLACEMENT_SKU"`
	InactiveDays   int    `yaml:"inactive_days" env:"INACTIVE_DAYS" validate:"min=1"`
	// RetentionDays is the audit log horizon. Zero disables the clamp.
	RetentionDays int    `yaml:"retention_days" env:"RETENTION_DAYS" validate:"min=0"`
	Action        string `yaml:"action" env:"ACTION" validate:"oneof=report suspend archive suspend_relicense"`
	DryRun        bool   `yaml:"dry_run" env:"DRY_RUN"`
	// SafetyCap limits acted-on users per run; -1 disables it.
	SafetyCap     int           `yaml:"safety_cap" env:"SAFETY_CAP" validate:"min=-1"`
	ExcludeAdmins bool          `yaml:"exclude_admins" env:"EXCLUDE_ADMINS"`
	ExcludeOUs    []string      `yaml:"exclude_ous" env:"EXCLUDE_OUS"`
	TransferTo    string        `yaml:"transfer_to" env:"TRANSFER_TO" validate:"omitempty,email"`
	PageDelay     time.Duration `yaml:"page_delay" env:"PAGE_DELAY" validate:"min=0"`
	ActionDelay   time.Duration `yaml:"action_delay" env:"ACTION_DELAY" validate:"min=0"`
}

// Mode returns the parsed action mode.
func (u UsersConfig) Mode() domain.ActionMode {
	return domain.ActionMode(u.Action)
}

// GroupsConfig configures the groups-without-owners audit.
type GroupsConfig struct {
	BatchSize  int           `yaml:"batch_size" env:"BATCH_SIZE" validate:"min=1"`
	TimeBudget time.Duration `yaml:"time_budget" env:"TIME_BUDGET" validate:"min=0"`
	PageDelay  time.Duration `yaml:"page_delay" env:"PAGE_DELAY" validate:"min=0"`
}

// CheckpointConfig selects where batch progress is kept.
type CheckpointConfig struct {
	Backend string `yaml:"backend" env:"BACKEND" validate:"oneof=memory file sqlite"`
	// Path is the JSON file or SQLite database. Unused by the memory backend.
	Path string `yaml:"path" env:"PATH" validate:"required_unless=Backend memory"`
}

// OutputConfig lists the report sinks and their settings.
type OutputConfig struct {
	Sinks         []string `yaml:"sinks" env:"SINKS" validate:"min=1,dive,oneof=console csv sheets gcs s3"`
	CSVDir        string   `yaml:"csv_dir" env:"CSV_DIR"`
	SpreadsheetID string   `yaml:"spreadsheet_id" env:"SPREADSHEET_ID"`
	GCSBucket     string   `yaml:"gcs_bucket" env:"GCS_BUCKET"`
	GCSPrefix     string   `yaml:"gcs_prefix" env:"GCS_PREFIX"`
	S3Bucket      string   `yaml:"s3_bucket" env:"S3_BUCKET"`
	S3Prefix      string   `yaml:"s3_prefix" env:"S3_PREFIX"`
	S3Region      string   `yaml:"s3_region" env:"S3_REGION"`
	S3Endpoint    string   `yaml:"s3_endpoint" env:"S3_ENDPOINT" validate:"omitempty,url"`
	S3KeyID       string   `yaml:"s3_key_id" env:"S3_KEY_ID"`
	S3Secret      string   `yaml:"s3_secret" env:"S3_SECRET"`
}

// HasSink reports whether name is among the configured sinks.
func (o OutputConfig) HasSink(name string) bool {
	for _, s := range o.Sinks {
		if s == name {
			return true
		}
	}
	return false
}

// NotifyConfig configures run summaries.
type NotifyConfig struct {
	Enabled      bool     `yaml:"enabled" env:"ENABLED"`
	Via          string   `yaml:"via" env:"VIA" validate:"oneof=none smtp gmail"`
	Recipients   []string `yaml:"recipients" env:"RECIPIENTS" validate:"dive,email"`
	From         string   `yaml:"from" env:"FROM" validate:"omitempty,email"`
	SMTPAddr     string   `yaml:"smtp_addr" env:"SMTP_ADDR" validate:"omitempty,hostname_port"`
	SMTPUsername string   `yaml:"smtp_username" env:"SMTP_USERNAME"`
	SMTPPassword string   `yaml:"smtp_password" env:"SMTP_PASSWORD"`
}

// ScheduleConfig holds the daemon's cron expressions. Empty disables an audit.
type ScheduleConfig struct {
	Users  string `yaml:"users" env:"USERS"`
	Groups string `yaml:"groups" env:"GROUPS"`
}

// Config is the complete, immutable run configuration.
type Config struct {
	Google     GoogleConfig     `yaml:"google" envPrefix:"GOOGLE_"`
	Users      UsersConfig      `yaml:"users" envPrefix:"USERS_"`
	Groups     GroupsConfig     `yaml:"groups" envPrefix:"GROUPS_"`
	Checkpoint CheckpointConfig `yaml:"checkpoint" envPrefix:"CHECKPOINT_"`
	Output     OutputConfig     `yaml:"output" envPrefix:"OUTPUT_"`
	Notify     NotifyConfig     `yaml:"notify" envPrefix:"NOTIFY_"`
	Schedule   ScheduleConfig   `yaml:"schedule" envPrefix:"SCHEDULE_"`

	ListenAddr string `yaml:"listen_addr" env:"LISTEN_ADDR"`
	// APIToken guards the run trigger endpoint. Empty disables the endpoint.
	APIToken   string `yaml:"api_token" env:"API_TOKEN"`
	LogLevel   string `yaml:"log_level" env:"LOG_LEVEL" validate:"oneof=debug info warn warning error"`
	LogFormat  string `yaml:"log_format" env:"LOG_FORMAT" validate:"oneof=text json"`

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string `yaml:"-"`
}

// Defaults returns the configuration used when nothing overrides it. Dry run
// is on by default, so a fresh install never mutates accounts.
func Defaults() *Config {
	return &Config{
		Users: UsersConfig{
			ProductID:     "Google-Apps",
			InactiveDays:  180,
			RetentionDays: 180,
			Action:        string(domain.ModeReport),
			DryRun:        true,
			SafetyCap:     50,
			ExcludeAdmins: true,
			PageDelay:     100 * time.Millisecond,
			ActionDelay:   200 * time.Millisecond,
		},
		Groups: GroupsConfig{
			BatchSize:  500,
			TimeBudget: 5 * time.Minute,
			PageDelay:  100 * time.Millisecond,
		},
		Checkpoint: CheckpointConfig{
			Backend: "file",
			Path:    "gwaudit-state/checkpoints.json",
		},
		Output: OutputConfig{
			Sinks:  []string{"console"},
			CSVDir: "reports",
		},
		Notify: NotifyConfig{Via: "none"},
		Schedule: ScheduleConfig{
			Users:  "0 6 * * *",
			Groups: "*/15 * * * *",
		},
		ListenAddr: ":8080",
		LogLevel:   "info",
		LogFormat:  "text",
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, and GWAUDIT_* environment variables, in increasing precedence, and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, &domain.ConfigError{Message: err.Error()}
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.collectWarnings()
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return &domain.ConfigError{Field: path, Message: err.Error()}
	}
	return nil
}

func (c *Config) normalize() {
	c.Users.Action = strings.ToLower(strings.TrimSpace(c.Users.Action))
	c.Users.ExcludeOUs = compactNonEmpty(c.Users.ExcludeOUs)
	c.Notify.Recipients = compactNonEmpty(c.Notify.Recipients)
	c.Notify.Via = strings.ToLower(strings.TrimSpace(c.Notify.Via))
	c.Checkpoint.Backend = strings.ToLower(strings.TrimSpace(c.Checkpoint.Backend))
	sinks := compactNonEmpty(c.Output.Sinks)
	for i := range sinks {
		sinks[i] = strings.ToLower(sinks[i])
	}
	c.Output.Sinks = sinks
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field constraints and the cross-field rules the audits
// depend on. It returns a *domain.ConfigError.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			_, field, _ := strings.Cut(fe.Namespace(), ".")
			return domain.ErrConfig(field, "failed %q validation (value %v)", fe.Tag(), fe.Value())
		}
		return &domain.ConfigError{Message: err.Error()}
	}

	if IsPlaceholder(c.Users.ProductID) {
		return domain.ErrConfig("users.product_id", "placeholder value %q", c.Users.ProductID)
	}
	mode := c.Users.Mode()
	// A set target SKU narrows the candidates in every mode.
	if c.Users.TargetSKU != "" && IsPlaceholder(c.Users.TargetSKU) {
		return domain.ErrConfig("users.target_sku", "placeholder value %q", c.Users.TargetSKU)
	}
	if mode.Relicenses() {
		if IsPlaceholder(c.Users.TargetSKU) {
			return domain.ErrConfig("users.target_sku", "must be a real SKU for action %s, got %q", mode, c.Users.TargetSKU)
		}
		if IsPlaceholder(c.Users.ReplacementSKU) {
			return domain.ErrConfig("users.replacement_sku", "must be a real SKU for action %s, got %q", mode, c.Users.ReplacementSKU)
		}
		if c.Users.TargetSKU == c.Users.ReplacementSKU {
			return domain.ErrConfig("users.replacement_sku", "must differ from users.target_sku")
		}
	}
	if c.Users.TransferTo != "" && mode != domain.ModeSuspendRelicense {
		return domain.ErrConfig("users.transfer_to", "only applies to action %s", domain.ModeSuspendRelicense)
	}

	if c.Output.HasSink("gcs") && c.Output.GCSBucket == "" {
		return domain.ErrConfig("output.gcs_bucket", "is required by the gcs sink")
	}
	if c.Output.HasSink("s3") {
		if c.Output.S3Bucket == "" {
			return domain.ErrConfig("output.s3_bucket", "is required by the s3 sink")
		}
		if c.Output.S3KeyID == "" {
			return domain.ErrConfig("output.s3_key_id", "is required by the s3 sink")
		}
		if c.Output.S3Secret == "" {
			return domain.ErrConfig("output.s3_secret", "is required by the s3 sink")
		}
	}
	if c.Output.HasSink("csv") && c.Output.CSVDir == "" {
		return domain.ErrConfig("output.csv_dir", "is required by the csv sink")
	}

	if c.Notify.Enabled {
		if c.Notify.Via == "none" {
			return domain.ErrConfig("notify.via", "must be smtp or gmail when notifications are enabled")
		}
		if c.Notify.Via == "smtp" && (c.Notify.SMTPAddr == "" || c.Notify.From == "") {
			return domain.ErrConfig("notify.smtp_addr", "smtp_addr and from are required for smtp notifications")
		}
	}
	return nil
}

// IsPlaceholder reports whether a configured identifier was never filled in.
func IsPlaceholder(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.Contains(strings.ToUpper(v), "YOUR_")
}

func (c *Config) collectWarnings() {
	if c.Users.Mode().Mutates() && !c.Users.DryRun {
		c.Warnings = append(c.Warnings, fmt.Sprintf(
			"dry run is off: action %s will modify up to %d accounts per run", c.Users.Action, c.Users.SafetyCap))
	}
	if c.Users.SafetyCap < 0 && c.Users.Mode().Mutates() {
		c.Warnings = append(c.Warnings, "safety cap disabled: every inactive candidate may be acted on in one run")
	}
	if c.Checkpoint.Backend == "memory" {
		c.Warnings = append(c.Warnings, "memory checkpoint backend: groups audit progress is lost when the process exits")
	}
	if c.Notify.Enabled && len(c.Notify.Recipients) == 0 {
		c.Warnings = append(c.Warnings, "notifications enabled without recipients; nothing will be sent")
	}
}

// RetentionWindow returns the audit log retention as a duration.
func (c *Config) RetentionWindow() time.Duration {
	return time.Duration(c.Users.RetentionDays) * 24 * time.Hour
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func compactNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		value = stripQuotes(strings.TrimSpace(value))
		// Only set if not already in the environment (env vars take precedence)
		if _, set := os.LookupEnv(key); !set {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultCanvasURL = "https://canvas.lms.unimelb.edu.au/api/v1"

	BackendDrive = "drive"
	BackendSFTP  = "sftp"
	BackendGCS   = "gcs"

	PolicyFailOpen   = "fail-open"
	PolicyFailClosed = "fail-closed"
)

type Config struct {
	// Canvas
	CanvasURL      string `yaml:"canvas_url"`
	CanvasToken    string `yaml:"canvas_api_token"`
	CanvasPageSize int    `yaml:"canvas_page_size"`

	// Destination
	Backend    string `yaml:"storage_backend"`
	DestFolder string `yaml:"dest_folder"`

	// Google Drive
	DriveCredentialsFile string `yaml:"drive_credentials_file"`
	DriveTokenFile       string `yaml:"drive_token_file"`
	DriveServiceAccount  string `yaml:"drive_service_account"`
	DriveChunkSizeMB     int    `yaml:"drive_chunk_size_mb"`

	// SFTP
	SFTPHost                  string `yaml:"sftp_host"`
	SFTPPort                  int    `yaml:"sftp_port"`
	SFTPUser                  string `yaml:"sftp_user"`
	SFTPPass                  string `yaml:"sftp_pass"`
	SFTPDir                   string `yaml:"sftp_dir"`
	SFTPInsecureIgnoreHostKey bool   `yaml:"sftp_insecure_ignore_hostkey"`
	SFTPKnownHosts            string `yaml:"sftp_known_hosts"`

	// Google Cloud Storage
	GCSBucket string `yaml:"gcs_bucket"`
	GCSPrefix string `yaml:"gcs_prefix"`

	// Run
	LedgerPath    string        `yaml:"ledger_path"`
	HTTPTimeout   time.Duration `yaml:"http_timeout"`
	FileTimeout   time.Duration `yaml:"file_timeout"`
	RetryAttempts int           `yaml:"retry_attempts"`
	ExistsPolicy  string        `yaml:"exists_policy"`

	// envErr is the first environment value that did not parse.
	envErr *ConfigError
}

// ConfigError reports an unusable configuration. It is raised before any network call.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

func defaults() Config {
	return Config{
		CanvasURL:      DefaultCanvasURL,
		CanvasPageSize: 50,

		Backend:    BackendDrive,
		DestFolder: "Canvas Files",

		DriveCredentialsFile: "credentials.json",
		DriveTokenFile:       "token.json",
		DriveChunkSizeMB:     8,

		SFTPPort:                  22,
		SFTPDir:                   "/inbound",
		SFTPInsecureIgnoreHostKey: false,

		LedgerPath:    "canvasdrive.db",
		HTTPTimeout:   2 * time.Minute,
		FileTimeout:   10 * time.Minute,
		RetryAttempts: 1,
		ExistsPolicy:  PolicyFailOpen,
	}
}

// Load builds a Config from defaults and environment variables.
func Load() Config {
	return overlayEnv(defaults())
}

// LoadFile reads a YAML file over the defaults; environment variables still win.
// An empty path is the same as Load.
func LoadFile(path string) (Config, error) {
	cfg := defaults()
	if path == "" {
		return overlayEnv(cfg), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return overlayEnv(cfg), nil
}

func overlayEnv(c Config) Config {
	var env envParser
	out := Config{
		// Canvas
		CanvasURL:      strings.TrimRight(getenv("CANVAS_URL", c.CanvasURL), "/"),
		CanvasToken:    getenv("CANVAS_API_TOKEN", c.CanvasToken),
		CanvasPageSize: env.int("CANVAS_PAGE_SIZE", c.CanvasPageSize),

		// Destination
		Backend:    strings.ToLower(getenv("STORAGE_BACKEND", c.Backend)),
		DestFolder: getenv("DEST_FOLDER", c.DestFolder),

		// Google Drive
		DriveCredentialsFile: getenv("DRIVE_CREDENTIALS_FILE", c.DriveCredentialsFile),
		DriveTokenFile:       getenv("DRIVE_TOKEN_FILE", c.DriveTokenFile),
		DriveServiceAccount:  getenv("DRIVE_SERVICE_ACCOUNT", c.DriveServiceAccount),
		DriveChunkSizeMB:     env.int("DRIVE_CHUNK_SIZE_MB", c.DriveChunkSizeMB),

		// SFTP
		SFTPHost:                  getenv("SFTP_HOST", c.SFTPHost),
		SFTPPort:                  env.int("SFTP_PORT", c.SFTPPort),
		SFTPUser:                  getenv("SFTP_USER", c.SFTPUser),
		SFTPPass:                  getenv("SFTP_PASS", c.SFTPPass),
		SFTPDir:                   getenv("SFTP_DIR", c.SFTPDir),
		SFTPInsecureIgnoreHostKey: env.bool("SFTP_INSECURE_IGNORE_HOSTKEY", c.SFTPInsecureIgnoreHostKey),
		SFTPKnownHosts:            getenv("SFTP_KNOWN_HOSTS", c.SFTPKnownHosts),

		// Google Cloud Storage
		GCSBucket: getenv("GCS_BUCKET", c.GCSBucket),
		GCSPrefix: getenv("GCS_PREFIX", c.GCSPrefix),

		// Run
		LedgerPath:    lookupenv("LEDGER_PATH", c.LedgerPath),
		HTTPTimeout:   env.duration("HTTP_TIMEOUT", c.HTTPTimeout),
		FileTimeout:   env.duration("FILE_TIMEOUT", c.FileTimeout),
		RetryAttempts: env.int("RETRY_ATTEMPTS", c.RetryAttempts),
		ExistsPolicy:  strings.ToLower(getenv("EXISTS_POLICY", c.ExistsPolicy)),
	}
	out.envErr = env.err
	return out
}

// Validate checks everything that can be checked without touching the network.
func (c Config) Validate() error {
	if c.envErr != nil {
		return c.envErr
	}
	if strings.TrimSpace(c.CanvasToken) == "" {
		return &ConfigError{Field: "CANVAS_API_TOKEN", Reason: "is required"}
	}
	if !strings.HasPrefix(c.CanvasURL, "http://") && !strings.HasPrefix(c.CanvasURL, "https://") {
		return &ConfigError{Field: "CANVAS_URL", Reason: "must start with http:// or https://"}
	}
	if c.CanvasPageSize < 0 {
		return &ConfigError{Field: "CANVAS_PAGE_SIZE", Reason: "must not be negative"}
	}
	if c.RetryAttempts < 1 {
		return &ConfigError{Field: "RETRY_ATTEMPTS", Reason: "must be at least 1"}
	}
	if c.HTTPTimeout < 0 || c.FileTimeout < 0 {
		return &ConfigError{Field: "HTTP_TIMEOUT/FILE_TIMEOUT", Reason: "must not be negative"}
	}

	switch c.ExistsPolicy {
	case PolicyFailOpen, PolicyFailClosed:
	default:
		return &ConfigError{Field: "EXISTS_POLICY", Reason: fmt.Sprintf("unknown policy %q", c.ExistsPolicy)}
	}

	switch c.Backend {
	case BackendDrive:
		if c.DriveServiceAccount == "" && c.DriveCredentialsFile == "" {
			return &ConfigError{Field: "DRIVE_CREDENTIALS_FILE", Reason: "client secrets or DRIVE_SERVICE_ACCOUNT required"}
		}
		if c.DriveChunkSizeMB < 0 {
			return &ConfigError{Field: "DRIVE_CHUNK_SIZE_MB", Reason: "must not be negative"}
		}
	case BackendSFTP:
		if c.SFTPHost == "" || c.SFTPUser == "" {
			return &ConfigError{Field: "SFTP_HOST/SFTP_USER", Reason: "are required for the sftp backend"}
		}
		if c.SFTPPort <= 0 || c.SFTPPort > 65535 {
			return &ConfigError{Field: "SFTP_PORT", Reason: "out of range"}
		}
		if !c.SFTPInsecureIgnoreHostKey && c.SFTPKnownHosts == "" {
			return &ConfigError{Field: "SFTP_KNOWN_HOSTS", Reason: "required unless SFTP_INSECURE_IGNORE_HOSTKEY=true"}
		}
	case BackendGCS:
		if c.GCSBucket == "" {
			return &ConfigError{Field: "GCS_BUCKET", Reason: "is required for the gcs backend"}
		}
	default:
		return &ConfigError{Field: "STORAGE_BACKEND", Reason: fmt.Sprintf("unknown backend %q", c.Backend)}
	}
	return nil
}

// FailClosed reports whether a lookup backend error should block the upload.
func (c Config) FailClosed() bool {
	return c.ExistsPolicy == PolicyFailClosed
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

// lookupenv is getenv for settings where an empty value means "off".
func lookupenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok {
		return strings.TrimSpace(v)
	}
	return def
}

// envParser reads typed variables. A value that does not parse keeps the
// default and is remembered for Validate.
type envParser struct {
	err *ConfigError
}

func (p *envParser) fail(k, v, want string) {
	if p.err == nil {
		p.err = &ConfigError{Field: k, Reason: fmt.Sprintf("%q is not %s", v, want)}
	}
}

func (p *envParser) int(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(k, v, "an integer")
		return def
	}
	return n
}

func (p *envParser) bool(k string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(k, v, "a boolean")
		return def
	}
	return b
}

// duration accepts Go durations ("90s", "2m") or bare seconds.
func (p *envParser) duration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(k, v, "a duration")
		return def
	}
	return d
}

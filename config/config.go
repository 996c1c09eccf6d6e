// Package config reads the authpanel runtime configuration from the environment.
package config

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

//go:embed version
var version string

//go:embed name
var name string

type LogLevel string

const (
	Debug  LogLevel = "debug"
	Info   LogLevel = "info"
	Notice LogLevel = "notice"
	Warn   LogLevel = "warn"
	Error  LogLevel = "error"
)

const (
	defaultAPIURL        = "http://localhost:3000"
	defaultAPITimeout    = 10 * time.Second
	defaultPort          = 2096
	defaultSessionMaxAge = 60 // minutes
	defaultHealthCron    = "@every 30s"
	defaultAuditDays     = 90
)

func GetVersion() string {
	return strings.TrimSpace(version)
}

func GetName() string {
	return strings.TrimSpace(name)
}

func GetLogLevel() LogLevel {
	if IsDebug() {
		return Debug
	}
	logLevel := os.Getenv("AUTHPANEL_LOG_LEVEL")
	if logLevel == "" {
		return Info
	}
	return LogLevel(logLevel)
}

func IsDebug() bool {
	return os.Getenv("AUTHPANEL_DEBUG") == "true"
}

// GetAPIURL returns the base URL of the remote admin API without a trailing slash.
func GetAPIURL() string {
	apiURL := os.Getenv("AUTHPANEL_API_URL")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	return strings.TrimRight(apiURL, "/")
}

func GetAPITimeout() time.Duration {
	return getDuration("AUTHPANEL_API_TIMEOUT", defaultAPITimeout)
}

func GetListen() string {
	return os.Getenv("AUTHPANEL_LISTEN")
}

func GetPort() int {
	return getInt("AUTHPANEL_PORT", defaultPort)
}

// GetBasePath returns the path the console is mounted on, always with leading and trailing slash.
func GetBasePath() string {
	basePath := os.Getenv("AUTHPANEL_BASE_PATH")
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	if !strings.HasSuffix(basePath, "/") {
		basePath += "/"
	}
	return basePath
}

// GetHomeURL is where the browser is sent after logging out.
func GetHomeURL() string {
	home := os.Getenv("AUTHPANEL_HOME_URL")
	if home == "" {
		return "/"
	}
	return home
}

// GetCertFile and GetKeyFile name the TLS key pair; both empty serves plain HTTP.
func GetCertFile() string {
	return os.Getenv("AUTHPANEL_CERT_FILE")
}

func GetKeyFile() string {
	return os.Getenv("AUTHPANEL_KEY_FILE")
}

func GetWebDomain() string {
	return os.Getenv("AUTHPANEL_WEB_DOMAIN")
}

// GetSessionSecret returns the secret the session cookie keys are derived from.
// An empty value makes the web server generate a random one per process.
func GetSessionSecret() string {
	return os.Getenv("AUTHPANEL_SESSION_SECRET")
}

// GetSessionMaxAge returns the session lifetime in minutes.
func GetSessionMaxAge() int {
	return getInt("AUTHPANEL_SESSION_MAX_AGE", defaultSessionMaxAge)
}

func GetHealthCron() string {
	schedule := os.Getenv("AUTHPANEL_HEALTH_CRON")
	if schedule == "" {
		return defaultHealthCron
	}
	return schedule
}

// GetAuditRetentionDays returns how long audit entries are kept.
func GetAuditRetentionDays() int {
	days := getInt("AUTHPANEL_AUDIT_RETENTION_DAYS", defaultAuditDays)
	if days <= 0 {
		return defaultAuditDays
	}
	return days
}

func GetLogFolder() string {
	logFolderPath := os.Getenv("AUTHPANEL_LOG_FOLDER")
	if logFolderPath == "" {
		logFolderPath = "/var/log"
	}
	return logFolderPath
}

func GetDBFolderPath() string {
	dbFolderPath := os.Getenv("AUTHPANEL_DB_FOLDER")
	if dbFolderPath == "" {
		dbFolderPath = "/etc/authpanel"
	}
	return dbFolderPath
}

func GetDBPath() string {
	return fmt.Sprintf("%s/%s.db", GetDBFolderPath(), GetName())
}

// GetStateFolder holds the CLI token file.
func GetStateFolder() string {
	stateFolder := os.Getenv("AUTHPANEL_STATE_FOLDER")
	if stateFolder != "" {
		return stateFolder
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".authpanel"
	}
	return filepath.Join(home, ".authpanel")
}

// Validate checks the values that would otherwise only fail on first use.
func Validate() error {
	u, err := url.Parse(GetAPIURL())
	if err != nil {
		return fmt.Errorf("api url %q is not valid: %v", GetAPIURL(), err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api url %q must use http or https", GetAPIURL())
	}
	if port := GetPort(); port <= 0 || port > 65535 {
		return fmt.Errorf("port is not a valid port: %d", port)
	}
	if GetSessionMaxAge() <= 0 {
		return fmt.Errorf("session max age must be positive: %d", GetSessionMaxAge())
	}
	if GetAPITimeout() <= 0 {
		return fmt.Errorf("api timeout must be positive: %v", GetAPITimeout())
	}
	return nil
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

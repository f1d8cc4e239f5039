package config

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"rowbook/internal/document/model"
	"rowbook/pkg/logger"

	"github.com/joho/godotenv"
)

// Config holds the data service settings. Every field can be set from the
// environment or from a .env file in the working directory.
type Config struct {
	Host  string
	Port  string
	Debug bool

	// TemplatesDir holds index.html.
	TemplatesDir string
	// StaticDir holds the stylesheet, the scripts and the document file.
	StaticDir string
	DataFile  string

	MissingPolicy model.MissingPolicy
	MaxBodyBytes  int64
	CORSOrigin    string
	WatchDocument bool
}

// Load reads .env and builds a Config from the environment. The returned
// error only reports that .env could not be loaded; the Config is always
// usable. Variables already set in the environment win over .env.
func Load() (*Config, error) {
	err := godotenv.Load()
	return FromEnv(), err
}

// FromEnv builds a Config from the current environment only.
func FromEnv() *Config {
	return &Config{
		Host:          getEnv("HOST", "0.0.0.0"),
		Port:          getEnv("PORT", "5000"),
		Debug:         getEnvBool("DEBUG", false),
		TemplatesDir:  getEnv("TEMPLATES_DIR", "templates"),
		StaticDir:     getEnv("STATIC_DIR", "static"),
		DataFile:      getEnv("DATA_FILE", "data.json"),
		MissingPolicy: getEnvPolicy("MISSING_DOCUMENT_POLICY", model.PolicyFallback),
		MaxBodyBytes:  getEnvInt("MAX_BODY_BYTES", 10<<20),
		CORSOrigin:    getEnv("CORS_ORIGIN", "*"),
		WatchDocument: getEnvBool("WATCH_DOCUMENT", true),
	}
}

// Addr is the listen address built from Host and Port.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// PagePath is the path of the page template.
func (c *Config) PagePath() string {
	return filepath.Join(c.TemplatesDir, "index.html")
}

// DocumentPath is the path of the persisted document.
func (c *Config) DocumentPath() string {
	return filepath.Join(c.StaticDir, c.DataFile)
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		switch strings.ToLower(value) {
		case "yes", "on":
			return true
		case "no", "off":
			return false
		}
		logger.Sugar.Warnf("Invalid boolean for %s: %q, using %v", key, value, defaultValue)
		return defaultValue
	}
	return b
}

func getEnvInt(key string, defaultValue int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n <= 0 {
		logger.Sugar.Warnf("Invalid integer for %s: %q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvPolicy(key string, defaultValue model.MissingPolicy) model.MissingPolicy {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	p, err := model.ParseMissingPolicy(value)
	if err != nil {
		logger.Sugar.Warnf("%v, using %s", err, defaultValue)
		return defaultValue
	}
	return p
}

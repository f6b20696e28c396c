// Package config implements the YAML config file parser
package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/binsize/binsize/config/logger"
)

// DefaultPollInterval is the default interval for scanning the watched
// directory for new archives.
const DefaultPollInterval = 5 * time.Second

// DefaultUploadWorkers is the default number of concurrent archive uploads.
const DefaultUploadWorkers = 4

// Config is the config root object
type Config struct {
	// Product is the product name expected in archive filenames.
	Product string        `yaml:"product"`
	Storage Storage       `yaml:"storage"`
	Watch   Watch         `yaml:"watch"`
	HTTP    HTTP          `yaml:"http"`
	Log     logger.Config `yaml:"log"`

	// Set to current version by main
	Version string `yaml:"-"`
}

// Storage selects and configures the simpleblob storage backend that
// archives are uploaded to.
type Storage struct {
	Type    string                 `yaml:"type"`    // e.g. "fs", "s3", "memory"
	Options map[string]interface{} `yaml:"options"` // backend specific
}

// Watch configures the archive watch daemon.
type Watch struct {
	Dir           string        `yaml:"dir"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	UploadWorkers int           `yaml:"upload_workers"`
	// AllowAnyName uploads any *.size.gz file, even when its name does not
	// follow the product__timestamp convention.
	AllowAnyName bool `yaml:"allow_any_name"`
}

// HTTP configures the HTTP server with Prometheus metrics and status page
type HTTP struct {
	Address string `yaml:"address"` // Address like ":8000"
}

// Check validates a Config instance
func (c Config) Check() error {
	if err := c.Log.Check(); err != nil {
		return err
	}
	if c.Watch.PollInterval < 100*time.Millisecond {
		return fmt.Errorf("watch.poll_interval: too short interval")
	}
	if c.Watch.UploadWorkers < 1 {
		return fmt.Errorf("watch.upload_workers: must be at least 1")
	}
	if c.HTTP.Address != "" {
		if _, _, err := net.SplitHostPort(c.HTTP.Address); err != nil {
			return fmt.Errorf("http.address: %v", err)
		}
	}
	return nil
}

// String returns the config as a YAML string with secrets masked. It is
// safe to log and to show on the status page.
func (c Config) String() string {
	c.Storage = c.Storage.maskSecrets()
	y, err := yaml.Marshal(c)
	if err != nil {
		logrus.Panicf("YAML marshal of config failed: %v", err) // Should never happen
	}
	return string(y)
}

// maskSecrets returns a copy of the storage config with credential option
// values replaced, since options can carry e.g. an S3 secret_key.
func (s Storage) maskSecrets() Storage {
	if s.Options == nil {
		return s
	}
	masked := make(map[string]interface{}, len(s.Options))
	for k, v := range s.Options {
		if isSecretOption(k) {
			v = "***"
		}
		masked[k] = v
	}
	s.Options = masked
	return s
}

func isSecretOption(key string) bool {
	key = strings.ToLower(key)
	for _, w := range []string{"secret", "password", "token", "credential", "access_key"} {
		if strings.Contains(key, w) {
			return true
		}
	}
	return false
}

// LoadYAML loads config from YAML. Any set value overwrites any existing value,
// but omitted keys are untouched.
func (c *Config) LoadYAML(yamlContents []byte, expandEnv bool) error {
	if expandEnv {
		yamlContents = []byte(os.ExpandEnv(string(yamlContents)))
	}
	return yaml.UnmarshalStrict(yamlContents, c)
}

// LoadYAMLFile loads config from a YAML file. Any set value overwrites any existing value,
// but omitted keys are untouched.
func (c *Config) LoadYAMLFile(fpath string, expandEnv bool) error {
	contents, err := os.ReadFile(fpath)
	if err != nil {
		return errors.Wrap(err, "open yaml file")
	}
	return c.LoadYAML(contents, expandEnv)
}

// Default returns a Config with default settings
func Default() Config {
	return Config{
		Log: logger.DefaultConfig,
		Watch: Watch{
			PollInterval:  DefaultPollInterval,
			UploadWorkers: DefaultUploadWorkers,
		},
	}
}

package logger

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	LogLevels  = []string{"debug", "info", "warning", "error", "fatal"}
	LogFormats = []string{"human", "logfmt", "json"}
)

// Config configures logging
type Config struct {
	Level  string `yaml:"level"`  // One of LogLevels
	Format string `yaml:"format"` // One of LogFormats
}

// DefaultConfig defines the default configuration
var DefaultConfig = Config{
	Level:  "info",
	Format: "human",
}

// FlagConfig captures flag values. It defaults to zero values, so that a
// flag left unset does not override the config file when merged.
var FlagConfig = Config{}

// StringVarFlagFunc has the signature of flag.StringVar
type StringVarFlagFunc func(*string, string, string, string)

// RegisterFlagsWith registers the log flags through the given function,
// allowing use with different flag packages, like Cobra.
func RegisterFlagsWith(stringVar StringVarFlagFunc) {
	stringVar(&FlagConfig.Level, "log-level", "", "Log level "+
		addDefaults(DefaultConfig.Level, LogLevels))
	stringVar(&FlagConfig.Format, "log-format", "", "Log format "+
		addDefaults(DefaultConfig.Format, LogFormats))
}

// Check validates a Config instance
func (c Config) Check() error {
	if _, err := logrus.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("log.level: must be one of: %s", strings.Join(LogLevels, ", "))
	}
	if !inList(LogFormats, c.Format) {
		return fmt.Errorf("log.format: must be one of: %s", strings.Join(LogFormats, ", "))
	}
	return nil
}

// Merge returns the Config with any value set in o taking precedence.
// This is how flag overrides are applied on top of the config file.
func (c Config) Merge(o Config) Config {
	if o.Level != "" {
		c.Level = o.Level
	}
	if o.Format != "" {
		c.Format = o.Format
	}
	return c
}

// Configure configures logrus according to Config
func Configure(c Config) {
	var formatter logrus.Formatter
	switch c.Format {
	case "json":
		formatter = &logrus.JSONFormatter{}
	case "logfmt":
		formatter = &logrus.TextFormatter{
			DisableColors: true, // this sets logfmt
		}
	case "human":
		formatter = &ComponentFormatter{
			Parent: &logrus.TextFormatter{},
		}
	}
	logrus.SetFormatter(formatter)

	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		// Should have been validated before calling this
		logrus.Warnf("Ignoring invalid log level: %s", c.Level)
	} else {
		logrus.SetLevel(level)
	}
}

func addDefaults(def string, options []string) string {
	return fmt.Sprintf("(default: %s; options: %s)", def, strings.Join(options, ", "))
}

func inList(list []string, item string) bool {
	for _, v := range list {
		if item == v {
			return true
		}
	}
	return false
}

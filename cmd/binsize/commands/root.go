package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/PowerDNS/simpleblob"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/binsize/binsize/config"
	"github.com/binsize/binsize/config/logger"
	"github.com/binsize/binsize/storage"
)

var (
	configFile string
	debug      bool
	logConfig  bool
	timeout    time.Duration
	conf       config.Config
)

var (
	// These are set by Execute
	rootCtx    context.Context
	rootCancel context.CancelFunc
)

const (
	TimeoutExitCode = 75 // picked EX_TEMPFAIL from sysexits.h

	defaultConfigFile = "binsize.yaml"
)

func applyTimeout() {
	if timeout <= 0 {
		return
	}
	logrus.WithField("timeout", timeout).Info("Setting command timeout")
	go func() {
		time.Sleep(timeout)
		logrus.Warn("Timeout reached")
		t := time.AfterFunc(10*time.Second, func() {
			logrus.Error("Shutdown took too long, forcing exit")
			os.Exit(TimeoutExitCode)
		})
		rootCancel()
		t.Stop()
		logrus.Error("Exiting due to timeout")
		os.Exit(TimeoutExitCode)
	}()
}

var rootHelp = `This tool inspects, diffs and syncs binary size snapshot archives
`

var rootCmd = &cobra.Command{
	Use:   "binsize",
	Short: "This tool inspects, diffs and syncs binary size snapshot archives",
	Long:  rootHelp,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		conf = config.Default()
		conf.Version = version
		err := conf.LoadYAMLFile(configFile, true)
		if err != nil {
			// Local inspection commands work fine without a config file,
			// only an explicitly requested one must exist.
			if !os.IsNotExist(errors.Cause(err)) || cmd.Flags().Changed("config") {
				logrus.Fatalf("Load config file %q: %v", configFile, err)
			}
		}
		if err := conf.Check(); err != nil {
			logrus.Fatalf("Config file error: %v", err)
		}

		conf.Log = conf.Log.Merge(logger.FlagConfig)
		if debug {
			conf.Log.Level = "debug"
		}
		logger.Configure(conf.Log)
		logrus.WithField("version", version).Debug("Running")
		if logConfig {
			logrus.Infof("Effective configuration:\n%s\n", conf.String())
		}
		applyTimeout()
	},
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", defaultConfigFile, "Config file")
	rootCmd.PersistentFlags().BoolVar(&logConfig, "log-config", false, "Log the evaluated configuration on startup")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0,
		fmt.Sprintf("Timeout for command execution (exit code %d)", TimeoutExitCode))
	logger.RegisterFlagsWith(rootCmd.PersistentFlags().StringVar)
}

func Execute() {
	rootCtx, rootCancel = context.WithCancel(context.Background())
	defer rootCancel()
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, context.Canceled) && timeout > 0 {
			logrus.Error("Context cancelled, likely due to timeout")
			os.Exit(TimeoutExitCode)
		}
		logrus.WithError(err).Error("Error")
		os.Exit(1)
	}
}

// storageBackend initialises the configured storage backend.
func storageBackend(ctx context.Context) (simpleblob.Interface, error) {
	return storage.New(ctx, conf.Storage)
}

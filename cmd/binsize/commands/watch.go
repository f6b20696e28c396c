package commands

import (
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/wojas/go-healthz"

	"github.com/binsize/binsize/status"
	"github.com/binsize/binsize/watcher"
)

var onlyOnce bool

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolVar(&onlyOnce, "only-once", false, "Only do a single scan and exit")
}

func runWatch(args []string) error {
	if len(args) > 0 {
		conf.Watch.Dir = args[0]
	}
	if conf.Watch.Dir == "" {
		return errors.New("no watch directory configured, pass one as argument or set watch.dir")
	}

	st, err := storageBackend(rootCtx)
	if err != nil {
		return err
	}
	logrus.WithField("storage_type", conf.Storage.Type).Info("Storage backend initialised")

	w := watcher.New(st, conf, logrus.StandardLogger())

	if onlyOnce {
		return w.RunOnce(rootCtx)
	}

	w.RegisterHealth()
	healthz.AddBuildInfo()
	if hostname, err := os.Hostname(); err == nil {
		healthz.SetMeta("hostname", hostname)
	}
	healthz.SetMeta("version", version)

	status.StartHTTPServer(conf, w)

	return w.Run(rootCtx)
}

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch a directory for new archives and upload them to storage",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runWatch(args); err != nil {
			logrus.WithError(err).Fatal("Error")
		}
	},
}

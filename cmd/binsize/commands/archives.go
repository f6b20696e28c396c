package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/PowerDNS/simpleblob"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/binsize/binsize/sizefile"
)

func init() {
	rootCmd.AddCommand(archivesCmd)

	archivesCmd.AddCommand(archivesListCmd)
	archivesListCmd.Flags().StringP("prefix", "p", "", "Prefix filter")
	archivesListCmd.Flags().BoolP("long", "l", false, "Add extra information, like size")
	archivesListCmd.Flags().BoolP("time", "t", false, "Sort by archive time")

	archivesCmd.AddCommand(archivesRemoveCmd)

	archivesCmd.AddCommand(archivesGetCmd)
	archivesGetCmd.Flags().StringP("output", "o", "",
		"Output filename, if not the same as the remote name")

	archivesCmd.AddCommand(archivesPutCmd)
	archivesPutCmd.Flags().Bool("force", false, "Force the use of an invalid archive name")
	archivesPutCmd.Flags().IntP("jobs", "j", 4, "Number of concurrent uploads")
}

var archivesCmd = &cobra.Command{
	Use:   "archives",
	Short: "Remote archive operations (list, get, put, remove)",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var archivesListCmd = &cobra.Command{
	Use:          "list",
	Short:        "List remote archives",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(rootCtx, time.Minute)
		defer cancel()

		st, err := storageBackend(ctx)
		if err != nil {
			return err
		}

		prefix, err := cmd.Flags().GetString("prefix")
		if err != nil {
			return err
		}
		long, err := cmd.Flags().GetBool("long")
		if err != nil {
			return err
		}
		byTime, err := cmd.Flags().GetBool("time")
		if err != nil {
			return err
		}

		list, err := st.List(ctx, prefix)
		if err != nil {
			return err
		}
		if byTime {
			sortByTime(list)
		}

		for _, blob := range list {
			if long {
				fmt.Printf("%12d\t%s\n", blob.Size, blob.Name)
			} else {
				fmt.Printf("%s\n", blob.Name)
			}
		}
		return nil
	},
}

var archivesRemoveCmd = &cobra.Command{
	Use:          "remove <name>",
	Short:        "Remove a remote archive",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(rootCtx, time.Minute)
		defer cancel()

		st, err := storageBackend(ctx)
		if err != nil {
			return err
		}

		return st.Delete(ctx, args[0])
	},
}

var archivesGetCmd = &cobra.Command{
	Use:          "get <name>",
	Short:        "Download an archive",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(rootCtx, time.Minute)
		defer cancel()

		outName, err := cmd.Flags().GetString("output")
		if err != nil {
			return err
		}
		if outName == "" {
			outName = args[0]
		}

		st, err := storageBackend(ctx)
		if err != nil {
			return err
		}
		data, err := st.Load(ctx, args[0])
		if err != nil {
			return err
		}

		return os.WriteFile(outName, data, 0666)
	},
}

var archivesPutCmd = &cobra.Command{
	Use:          "put <file>...",
	Short:        "Upload one or more archives",
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(rootCtx, 10*time.Minute)
		defer cancel()

		force, err := cmd.Flags().GetBool("force")
		if err != nil {
			return err
		}
		jobs, err := cmd.Flags().GetInt("jobs")
		if err != nil {
			return err
		}

		for _, fpath := range args {
			name := filepath.Base(fpath)
			if _, err := sizefile.ParseArchiveName(name); err != nil {
				if !force {
					return fmt.Errorf(
						"invalid archive name (use --force to skip this check): %v", err)
				}
				logrus.WithError(err).Warn("Invalid archive name forced")
			}
		}

		st, err := storageBackend(ctx)
		if err != nil {
			return err
		}

		eg, ctx := errgroup.WithContext(ctx)
		eg.SetLimit(jobs)
		for _, fpath := range args {
			fpath := fpath
			eg.Go(func() error {
				data, err := os.ReadFile(fpath)
				if err != nil {
					return err
				}
				name := filepath.Base(fpath)
				if err := st.Store(ctx, name, data); err != nil {
					return fmt.Errorf("store %s: %w", name, err)
				}
				logrus.WithField("filename", name).Info("Archive uploaded")
				return nil
			})
		}
		return eg.Wait()
	},
}

func sortByTime(list simpleblob.BlobList) {
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		na, errA := sizefile.ParseArchiveName(a.Name)
		nb, errB := sizefile.ParseArchiveName(b.Name)
		// Invalid names are sorted by name
		if errA != nil && errB != nil {
			return a.Name < b.Name
		}
		// Invalid names come before valid names
		if errA != nil {
			return true
		}
		if errB != nil {
			return false
		}
		// Valid names are sorted by timestamp
		return na.Timestamp.Before(nb.Timestamp)
	})
}

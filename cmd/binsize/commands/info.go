package commands

import (
	"fmt"
	"sort"

	"github.com/c2h5oh/datasize"
	"github.com/spf13/cobra"

	"github.com/binsize/binsize/sizefile"
)

func init() {
	rootCmd.AddCommand(infoCmd)
}

var infoCmd = &cobra.Command{
	Use:          "info <archive>",
	Short:        "Print a summary of a size archive",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := sizefile.LoadFile(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Archive: %s\n", info.SizePath)
		if len(info.Metadata) > 0 {
			fmt.Println("\nMetadata:")
			keys := make([]string, 0, len(info.Metadata))
			for k := range info.Metadata {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Printf("  %s: %v\n", k, info.Metadata[k])
			}
		}

		counts := make(map[string]int)
		aliased := 0
		for i := range info.RawSymbols {
			counts[info.RawSymbols[i].SectionName]++
			if info.RawSymbols[i].Group != 0 {
				aliased++
			}
		}

		fmt.Println("\nSections:")
		for _, ss := range info.SectionSizes {
			fmt.Printf("  %-20s %12d  (%s, %d symbols)\n",
				ss.Name, ss.Size,
				datasize.ByteSize(ss.Size).HumanReadable(),
				counts[ss.Name])
		}
		fmt.Printf("\nTotal: %s in %d symbols (%d in alias groups)\n",
			datasize.ByteSize(info.TotalSize()).HumanReadable(),
			len(info.RawSymbols), aliased)
		return nil
	},
}

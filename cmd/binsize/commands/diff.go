package commands

import (
	"fmt"

	"github.com/c2h5oh/datasize"
	"github.com/spf13/cobra"

	"github.com/binsize/binsize/sizediff"
	"github.com/binsize/binsize/sizefile"
)

func init() {
	rootCmd.AddCommand(diffCmd)
	diffCmd.Flags().IntP("max", "n", 20, "Maximum number of changed symbols to show, 0 for all")
}

var diffCmd = &cobra.Command{
	Use:          "diff <before> <after>",
	Short:        "Compare two size archives",
	Args:         cobra.ExactArgs(2),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		maxSymbols, err := cmd.Flags().GetInt("max")
		if err != nil {
			return err
		}

		before, err := sizefile.LoadFile(args[0])
		if err != nil {
			return err
		}
		after, err := sizefile.LoadFile(args[1])
		if err != nil {
			return err
		}

		res := sizediff.Diff(before, after)

		fmt.Println("Sections:")
		for _, s := range res.Sections {
			fmt.Printf("  %-20s %12d -> %-12d %s\n",
				s.Name, s.Before, s.After, formatDelta(s.Diff()))
		}
		fmt.Printf("Total: %s\n", formatDelta(res.TotalDiff()))

		if len(res.Symbols) == 0 {
			fmt.Println("\nNo symbol changes.")
			return nil
		}
		fmt.Printf("\nChanged symbols (%d):\n", len(res.Symbols))
		for i, d := range res.Symbols {
			if maxSymbols > 0 && i >= maxSymbols {
				fmt.Printf("  ... and %d more\n", len(res.Symbols)-i)
				break
			}
			fmt.Printf("  %-10s %-10s %s\n", formatDelta(d.Diff()), d.SectionName, d.FullName)
		}
		return nil
	},
}

// formatDelta renders a signed byte delta like "+1.2KB" or "-300B".
func formatDelta(v int64) string {
	sign := "+"
	if v < 0 {
		sign = "-"
		v = -v
	}
	return sign + datasize.ByteSize(v).HumanReadable()
}

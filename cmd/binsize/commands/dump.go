package commands

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/binsize/binsize/sizefile"
)

func init() {
	rootCmd.AddCommand(dumpCmd)
	dumpCmd.Flags().StringP("section", "s", "", "Only output symbols of this section")
}

var dumpCmd = &cobra.Command{
	Use:          "dump <archive>",
	Short:        "Dump archive symbols for debugging",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		section, err := cmd.Flags().GetString("section")
		if err != nil {
			return err
		}

		info, err := sizefile.LoadFile(args[0])
		if err != nil {
			return err
		}

		// Buffered output speeds things up
		out := bufio.NewWriter(os.Stdout)
		defer out.Flush()

		for i := range info.RawSymbols {
			sym := &info.RawSymbols[i]
			if section != "" && sym.SectionName != section {
				continue
			}
			line := fmt.Sprintf("%-10s %#012x %8d", sym.SectionName, sym.Address, sym.Size)
			if sym.Padding > 0 {
				line += fmt.Sprintf(" (pad %d)", sym.Padding)
			}
			line += "  " + sym.FullName
			if n := len(info.Aliases(i)); n > 0 {
				line += fmt.Sprintf("  [%d aliases]", n)
			}
			if sym.Flags != 0 {
				line += "  " + sym.Flags.String()
			}
			if sym.SourcePath != "" {
				line += "  " + sym.SourcePath
			}
			fmt.Fprintln(out, line)
		}
		return nil
	},
}

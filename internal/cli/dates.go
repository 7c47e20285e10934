// internal/cli/dates.go
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zyniel/westie/internal/daterange"
	"github.com/zyniel/westie/internal/ui"
)

var datesCmd = &cobra.Command{
	Use:   "dates <text>",
	Short: "Resolve a date range the way the harvester does",
	Long: `Parses a tile date text such as "12-14 Avril 2024" and prints the
resolved range. Useful to check a tile that the harvester rejected.`,
	Example: `  westie dates "12-14 Avril 2024"
  westie dates "28 Décembre 2024 - 2 Janvier 2025"`,
	Args:        cobra.MinimumNArgs(1),
	Annotations: map[string]string{annotationNoApp: "true"},
	RunE:        runDates,
}

func init() {
	rootCmd.AddCommand(datesCmd)
}

func runDates(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")

	r, err := daterange.Parse(text)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s   %s\n", ui.Bold("pattern"), r.Pattern)
	fmt.Fprintf(out, "%s     %s  (%s)\n", ui.Bold("start"), r.Start.Format("2006-01-02"), daterange.Format(r.Start))
	fmt.Fprintf(out, "%s       %s  (%s)\n", ui.Bold("end"), r.End.Format("2006-01-02"), daterange.Format(r.End))
	return nil
}

// internal/cli/help.go
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/zyniel/westie/internal/config"
	"github.com/zyniel/westie/internal/ui"
)

const (
	helpWidth     = 80
	minFlagColumn = 26

	sectionFlags       = "Flags"
	sectionGlobalFlags = "Global Flags"
)

// flagSection is one titled block of flags in the help output.
type flagSection struct {
	title string
	flags []*pflag.Flag
}

// renderHelp prints the help of cmd to its output stream. Flags are printed
// in the sections set by config.SetFlagGroup; whatever has no section falls
// under Flags or Global Flags.
func renderHelp(cmd *cobra.Command, _ []string) {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "\n%s\n", ui.Bold(ui.ColorCyan+cmd.CommandPath()))
	if cmd.Short != "" {
		fmt.Fprintln(w, cmd.Short)
	}
	if cmd.Long != "" {
		fmt.Fprintf(w, "\n%s\n", wrapText(cmd.Long, helpWidth))
	}

	writeUsageLines(w, cmd)
	if cmd.HasExample() {
		writeHeading(w, "Examples")
		writeExamples(w, cmd.Example)
	}
	if cmd.HasAvailableSubCommands() {
		writeHeading(w, "Commands")
		writeCommands(w, cmd)
	}
	writeFlagSections(w, flagSections(cmd))

	if cmd.HasAvailableSubCommands() {
		fmt.Fprintf(w, "\n%sRun \"%s <command> --help\" for details on a command.%s\n",
			ui.ColorDim, cmd.CommandPath(), ui.ColorReset)
	}
	fmt.Fprintln(w)
}

// renderUsage is the short form shown after a usage error.
func renderUsage(cmd *cobra.Command) error {
	w := cmd.ErrOrStderr()
	writeUsageLines(w, cmd)
	fmt.Fprintf(w, "\n%sRun \"%s --help\" for the full list of flags.%s\n",
		ui.ColorDim, cmd.CommandPath(), ui.ColorReset)
	return nil
}

func writeHeading(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s%s%s\n", ui.ColorBold+ui.ColorWhite, title, ui.ColorReset)
}

func writeUsageLines(w io.Writer, cmd *cobra.Command) {
	writeHeading(w, "Usage")
	if cmd.Runnable() {
		fmt.Fprintf(w, "  %s%s%s\n", ui.ColorCyan, cmd.UseLine(), ui.ColorReset)
	}
	if cmd.HasAvailableSubCommands() {
		fmt.Fprintf(w, "  %s%s <command>%s [flags]\n", ui.ColorCyan, cmd.CommandPath(), ui.ColorReset)
	}
}

// writeExamples prints "#" lines as dimmed captions and the rest as commands.
// A blank line in the example starts a new group.
func writeExamples(w io.Writer, example string) {
	for _, line := range strings.Split(example, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			fmt.Fprintln(w)
		case strings.HasPrefix(line, "#"):
			fmt.Fprintf(w, "  %s%s%s\n", ui.ColorDim, line, ui.ColorReset)
		default:
			fmt.Fprintf(w, "  %s$ %s%s\n", ui.ColorGreen, line, ui.ColorReset)
		}
	}
}

func writeCommands(w io.Writer, cmd *cobra.Command) {
	var cmds []*cobra.Command
	width := 0
	for _, c := range cmd.Commands() {
		if !c.IsAvailableCommand() || c.Name() == "help" {
			continue
		}
		cmds = append(cmds, c)
		width = max(width, len(c.Name()))
	}
	for _, c := range cmds {
		fmt.Fprintf(w, "  %s%-*s%s  %s\n", ui.ColorCyan, width, c.Name(), ui.ColorReset, c.Short)
	}
}

// flagSections buckets the visible flags of cmd, local and inherited, into
// the configured groups and drops empty sections.
func flagSections(cmd *cobra.Command) []flagSection {
	byGroup := make(map[string][]*pflag.Flag)
	collect := func(fs *pflag.FlagSet, fallback string) {
		fs.VisitAll(func(f *pflag.Flag) {
			if f.Hidden {
				return
			}
			group := config.FlagGroup(f)
			if group == "" {
				group = fallback
			}
			byGroup[group] = append(byGroup[group], f)
		})
	}
	collect(cmd.LocalFlags(), sectionFlags)
	collect(cmd.InheritedFlags(), sectionGlobalFlags)

	order := append(append([]string{}, config.FlagGroups...), sectionFlags, sectionGlobalFlags)
	var sections []flagSection
	for _, title := range order {
		if flags := byGroup[title]; len(flags) > 0 {
			sections = append(sections, flagSection{title: title, flags: flags})
		}
	}
	return sections
}

func writeFlagSections(w io.Writer, sections []flagSection) {
	width := minFlagColumn
	for _, s := range sections {
		for _, f := range s.flags {
			width = max(width, len(flagSignature(f)))
		}
	}

	for _, s := range sections {
		writeHeading(w, s.title)
		for _, f := range s.flags {
			fmt.Fprintf(w, "  %s%-*s%s  %s%s%s\n",
				ui.ColorGreen, width, flagSignature(f), ui.ColorReset,
				ui.ColorDim, flagDescription(f), ui.ColorReset)
		}
	}
}

// flagSignature renders "-o, --output string" or "    --json".
func flagSignature(f *pflag.Flag) string {
	sig := "    --" + f.Name
	if f.Shorthand != "" {
		sig = "-" + f.Shorthand + ", --" + f.Name
	}
	if varname, _ := pflag.UnquoteUsage(f); varname != "" {
		sig += " " + varname
	}
	return sig
}

func flagDescription(f *pflag.Flag) string {
	_, usage := pflag.UnquoteUsage(f)
	switch f.DefValue {
	case "", "false", "0", "[]":
		return usage
	}
	return fmt.Sprintf("%s (default %s)", usage, f.DefValue)
}

// wrapText reflows each paragraph of text to width. List items ("-", "*" or
// "•") and lines of an indented block stay on their own line.
func wrapText(text string, width int) string {
	var paragraphs []string
	for _, para := range strings.Split(text, "\n\n") {
		var out []string
		var line string
		flush := func() {
			if line != "" {
				out = append(out, line)
				line = ""
			}
		}

		for _, raw := range strings.Split(para, "\n") {
			trimmed := strings.TrimSpace(raw)
			if trimmed == "" {
				continue
			}
			if isListItem(trimmed) || strings.HasPrefix(raw, "  ") {
				flush()
				out = append(out, trimmed)
				continue
			}
			for _, word := range strings.Fields(trimmed) {
				switch {
				case line == "":
					line = word
				case len(line)+1+len(word) > width:
					flush()
					line = word
				default:
					line += " " + word
				}
			}
		}
		flush()

		if len(out) > 0 {
			paragraphs = append(paragraphs, strings.Join(out, "\n"))
		}
	}
	return strings.Join(paragraphs, "\n\n")
}

func isListItem(line string) bool {
	return strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") || strings.HasPrefix(line, "• ")
}

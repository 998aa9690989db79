package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Ngone6325/graft"
)

// entry is one row of the inspect output.
type entry struct {
	Requested      string `json:"requested"`
	Implementation string `json:"implementation"`
	Lifetime       string `json:"lifetime"`
	Open           bool   `json:"open,omitempty"`
	Consolidator   string `json:"consolidator,omitempty"`
}

func newInspectCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "List the registrations produced by bootstrap",
		Long: `List every registration in the container after bootstrap, newest first per
requested type, followed by the open generic registrations.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries := collect(a.container)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			return writeTable(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print registrations as JSON")
	return cmd
}

// collect flattens the container's registrations in a stable order.
func collect(c *graft.Container) []entry {
	consolidators := make(map[string]string)
	for target, impl := range c.Consolidators() {
		consolidators[target.String()] = impl.String()
	}

	var entries []entry
	for requested, regs := range c.Registrations() {
		for _, r := range regs {
			entries = append(entries, toEntry(requested.String(), r, consolidators))
		}
	}
	slices.SortStableFunc(entries, func(x, y entry) int {
		return strings.Compare(x.Requested, y.Requested)
	})

	for _, r := range c.OpenRegistrations() {
		entries = append(entries, toEntry(r.Requested.String(), r, consolidators))
	}
	return entries
}

func toEntry(requested string, r graft.Registration, consolidators map[string]string) entry {
	impl := "factory"
	if r.Factory == nil {
		impl = r.Implementation.String()
	}
	return entry{
		Requested:      requested,
		Implementation: impl,
		Lifetime:       r.Lifetime.String(),
		Open:           r.Open(),
		Consolidator:   consolidators[requested],
	}
}

func writeTable(out io.Writer, entries []entry) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "REQUESTED\tIMPLEMENTATION\tLIFETIME\tNOTES")
	for _, e := range entries {
		var notes []string
		if e.Open {
			notes = append(notes, "open")
		}
		if e.Consolidator != "" {
			notes = append(notes, "consolidated by "+e.Consolidator)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Requested, e.Implementation, e.Lifetime, strings.Join(notes, ", "))
	}
	return w.Flush()
}

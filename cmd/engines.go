package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/websearch/internal/provider"
	"github.com/sells-group/websearch/internal/registry"
)

var enginesCmd = &cobra.Command{
	Use:   "engines",
	Short: "List the available search engines and their paging setup",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("search"); err != nil {
			return err
		}
		reg, err := buildRegistry(cfg)
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		if format == "json" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(engineDefinitions(reg))
		}
		formatEnginesList(os.Stdout, engineDefinitions(reg))
		return nil
	},
}

func init() {
	enginesCmd.Flags().String("format", "table", "output format (table, json)")
	rootCmd.AddCommand(enginesCmd)
}

// engineDefinitions returns the definition behind every registered engine.
func engineDefinitions(reg *registry.Registry) []provider.Definition {
	names := reg.Names()
	defs := make([]provider.Definition, 0, len(names))
	for _, name := range names {
		e, err := reg.Get(name)
		if err != nil {
			continue
		}
		defs = append(defs, e.Provider().Definition())
	}
	return defs
}

// formatEnginesList writes a tabular list of engines to w.
func formatEnginesList(out io.Writer, defs []provider.Definition) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tVERSION\tPER_PAGE\tPAGE_MODE\tQUERY_URL")
	_, _ = fmt.Fprintln(w, "----\t-------\t--------\t---------\t---------")
	for _, d := range defs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", d.Name, d.Version, d.ResultsPerPage, d.PageMode, d.QueryURL)
	}
	_ = w.Flush()
}

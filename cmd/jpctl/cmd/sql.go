package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/jpapi/internal/catalog"
	"github.com/good-yellow-bee/jpapi/internal/query"
)

var (
	sqlEntitiesFile string
	sqlLookup       string
	sqlLegacyOffset bool
	sqlStrict       bool
)

var sqlCmd = &cobra.Command{
	Use:   "sql <entity> [key=value ...]",
	Short: "Print the statement generated for a request",
	Long: `Build the statement and named parameters the server would run for the
given entity and request parameters, without touching any database.

Values go through the same sanitizing as request parameters.

Examples:
  jpctl sql people_groups countries=us|ca window1040=y limit=10
  jpctl sql countries --lookup by_id id=af
  jpctl sql resources --lookup by_language_id id=AAR`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := catalog.Load(sqlEntitiesFile)
		if err != nil {
			return err
		}
		opts := query.Options{LegacyPageOffset: sqlLegacyOffset, StrictNumbers: sqlStrict}
		return printStatement(cmd.OutOrStdout(), cat, args[0], sqlLookup, args[1:], opts, GetOutput())
	},
}

func init() {
	sqlCmd.Flags().StringVar(&sqlEntitiesFile, "entities", "", "entity metadata file (default: built-in)")
	sqlCmd.Flags().StringVar(&sqlLookup, "lookup", "", "named lookup instead of the filtered list")
	sqlCmd.Flags().BoolVar(&sqlLegacyOffset, "legacy-page-offset", false, "use the page*limit-1 offset")
	sqlCmd.Flags().BoolVar(&sqlStrict, "strict-numbers", false, "reject non-numeric range values")
	rootCmd.AddCommand(sqlCmd)
}

func printStatement(w io.Writer, cat *catalog.Catalog, name, lookup string, pairs []string, opts query.Options, format string) error {
	entity, ok := cat.Get(name)
	if !ok {
		return fmt.Errorf("unknown entity %q (known: %s)", name, strings.Join(cat.Names(), ", "))
	}

	raw := make(map[string][]string, len(pairs))
	for _, pair := range pairs {
		k, v, found := strings.Cut(pair, "=")
		if !found || k == "" {
			return fmt.Errorf("expected key=value, got %q", pair)
		}
		raw[k] = append(raw[k], v)
	}
	params := query.Sanitize(raw)

	g := query.NewGenerator(entity, params, opts)
	var (
		desc query.Descriptor
		err  error
	)
	if lookup != "" {
		desc, err = g.Lookup(lookup)
	} else {
		desc, err = g.FindAllWithFilters()
	}
	if err != nil {
		return err
	}

	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Statement string         `json:"statement"`
			Params    map[string]any `json:"params"`
		}{desc.Statement, desc.Params})
	}

	fmt.Fprintln(w, desc.Statement)
	names := make([]string, 0, len(desc.Params))
	for n := range desc.Params {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(w, "  :%s = %v\n", n, desc.Params[n])
	}
	return nil
}

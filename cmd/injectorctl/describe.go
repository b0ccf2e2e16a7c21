package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/jingyiliu/injector"
)

func newDescribeCmd(opts *rootOptions) *cobra.Command {
	var (
		format string
		warmup bool
	)

	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Describe the demo container registry",
		Long: `Describe every builder of the demo container.

Formats:
  table  one row per builder (default)
  tree   the dependency listing printed by PrintGraph
  dot    Graphviz source, e.g. injectorctl describe -f dot | dot -Tsvg`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			c, cleanup, err := opts.container(cmd.Context(), out)
			if err != nil {
				return err
			}
			defer func() { _ = cleanup() }()

			if warmup {
				if err := c.Warmup(cmd.Context()); err != nil {
					return err
				}
			}

			switch format {
			case "table":
				renderTable(cmd, c)
			case "tree":
				c.FprintGraph(out)
			case "dot":
				c.FprintGraphDOT(out)
			default:
				return fmt.Errorf("unknown format %q (want table, tree or dot)", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table, tree or dot")
	cmd.Flags().BoolVar(&warmup, "warmup", false, "build singletons before describing")
	return cmd
}

func renderTable(cmd *cobra.Command, c *injector.Container) {
	info := c.Graph()

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleRounded)
	t.SetTitle("injector registry")
	t.AppendHeader(table.Row{"Contract", "Concrete", "Lifetime", "Ranking", "Metadata", "Dependencies", "Status"})

	for _, svc := range info.Services {
		status := "registered"
		switch {
		case svc.Obsolete:
			status = text.FgRed.Sprint("obsolete")
		case svc.Instantiated:
			status = text.FgGreen.Sprint("built")
		}
		deps := append(slices.Clone(svc.Dependencies), bracket(svc.Collections)...)
		t.AppendRow(table.Row{
			svc.Contract, svc.Concrete, svc.Lifetime, svc.Ranking, svc.Metadata,
			strings.Join(deps, "\n"), status,
		})
	}
	for _, missing := range info.Missing {
		t.AppendRow(table.Row{missing, "", "", "", "", "", text.FgYellow.Sprint("missing")})
	}

	t.AppendFooter(table.Row{"", "", "", "", "", "builders", len(info.Services)})
	t.Render()
}

// bracket marks collection dependencies as "[]T".
func bracket(elems []string) []string {
	out := make([]string, 0, len(elems))
	for _, e := range elems {
		out = append(out, "[]"+e)
	}
	return out
}

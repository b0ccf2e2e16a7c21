package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jingyiliu/injector"
)

func newDemoCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run the bundled resolution scenarios",
		Long: `Run the bundled scenarios against a demo container:

  - a transient report service sharing a singleton logger
  - three plugins ranked 5, 1 and 3 resolved as a collection
  - a scoped unit of work shared by a nested scope and disposed with its root scope`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			c, cleanup, err := opts.container(cmd.Context(), out)
			if err != nil {
				return err
			}

			runErr := runDemo(cmd, c, out)
			if err := cleanup(); err != nil && runErr == nil {
				runErr = err
			}
			return runErr
		},
	}
}

func runDemo(cmd *cobra.Command, c *injector.Container, out io.Writer) error {
	ctx := cmd.Context()

	_, _ = fmt.Fprintln(out, "== report service ==")
	first, err := injector.Resolve[ReportService](ctx, c)
	if err != nil {
		return err
	}
	second, err := injector.Resolve[ReportService](ctx, c)
	if err != nil {
		return err
	}
	first.Generate("q1")
	second.Generate("q2")
	_, _ = fmt.Fprintf(out, "  distinct services: %v, shared logger: %v\n",
		first != second, first.(*reportService).log == second.(*reportService).log)

	_, _ = fmt.Fprintln(out, "== ranked plugins ==")
	plugins, err := injector.Resolve[[]Plugin](ctx, c)
	if err != nil {
		return err
	}
	for i, p := range plugins {
		_, _ = fmt.Fprintf(out, "  %d. %s\n", i+1, p.Name())
	}

	_, _ = fmt.Fprintln(out, "== unit of work ==")
	root, err := c.BeginScope()
	if err != nil {
		return err
	}
	uow, err := injector.Resolve[*UnitOfWork](ctx, root)
	if err != nil {
		return err
	}
	child, err := root.BeginScope()
	if err != nil {
		return err
	}
	nested, err := injector.Resolve[*UnitOfWork](ctx, child)
	if err != nil {
		return err
	}
	repo, err := injector.Resolve[*Repository[Invoice]](ctx, child)
	if err != nil {
		return err
	}
	repo.Log.Log("invoice repository ready")
	_, _ = fmt.Fprintf(out, "  child scope shares unit of work %d: %v\n", uow.ID, uow == nested)

	if err := child.Dispose(); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "  after child dispose, disposed=%v\n", uow.disposed.Load())
	if err := root.Dispose(); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "  after root dispose, disposed=%v\n", uow.disposed.Load())
	return nil
}

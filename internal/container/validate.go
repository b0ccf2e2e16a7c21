package container

import (
	"cmp"
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/jingyiliu/injector/internal/errs"
	"github.com/jingyiliu/injector/internal/graph"
	"github.com/jingyiliu/injector/internal/lifetime"
	"github.com/jingyiliu/injector/internal/registry"
	"github.com/jingyiliu/injector/internal/typeinfo"
)

// Info is a read-only view of one registered builder.
type Info struct {
	Contract     reflect.Type
	Concrete     reflect.Type
	Lifetime     lifetime.Kind
	Ranking      int
	Metadata     string
	Condition    string
	Dependencies []reflect.Type
	Collections  []reflect.Type
	Obsolete     bool
	// Unsatisfied names the dependencies an obsolete builder waits for.
	Unsatisfied  []reflect.Type
	Built        bool
}

// Registrations describes every builder in registration order.
func (c *Container) Registrations() []Info {
	builders := c.registry.All()
	out := make([]Info, 0, len(builders))
	for _, b := range builders {
		d := b.Description()
		info := Info{
			Contract:     d.Contract(),
			Concrete:     d.Concrete(),
			Lifetime:     lifetime.KindOf(b.Lifetime()),
			Ranking:      d.Ranking(),
			Metadata:     d.Metadata().Name(),
			Dependencies: b.Dependencies(),
			Obsolete:     b.Obsolete(),
			Unsatisfied:  b.Unsatisfied(),
			Built:        lifetime.Built(b.Lifetime()),
		}
		if cond := b.Condition(); cond != nil {
			info.Condition = cond.String()
		}
		if plan, ok := c.Plan(b); ok {
			info.Collections = plan.Collections()
		}
		out = append(out, info)
	}
	return out
}

// Graph snapshots the contract dependency graph. Collection injection points
// add collection edges. Contracts a generic family can supply on demand count
// as present.
func (c *Container) Graph() *graph.Graph {
	g := graph.New()
	for _, b := range c.registry.All() {
		var edges []graph.Edge
		for _, dep := range b.Dependencies() {
			edges = append(edges, graph.Edge{To: typeinfo.Name(dep), Kind: graph.Single})
			if _, ok := c.genericFor(dep); ok && !c.registry.Has(dep) {
				g.Provide(typeinfo.Name(dep))
			}
		}
		if plan, ok := c.Plan(b); ok {
			for _, elem := range plan.Collections() {
				edges = append(edges, graph.Edge{To: typeinfo.Name(elem), Kind: graph.Collection})
			}
		}
		g.AddBuilder(typeinfo.Name(b.Description().Contract()), edges...)
	}
	return g
}

// Validate reports contracts that are depended on but never registered, and
// dependency cycles between contracts.
func (c *Container) Validate() error {
	g := c.Graph()

	var problems []string
	if missing := g.Missing(); len(missing) > 0 {
		problems = append(problems, "missing dependencies: "+strings.Join(missing, ", "))
	}
	for _, path := range g.Cycles() {
		problems = append(problems, "circular dependency: "+strings.Join(path, " -> "))
	}

	if len(problems) == 0 {
		return nil
	}
	return errs.Newf(errs.CodeValidationFailed, "%s", strings.Join(problems, "; "))
}

// Warmup builds every container-lifetime builder, dependencies first.
func (c *Container) Warmup(ctx context.Context) error {
	g := c.Graph()
	order, err := g.Order()
	if err != nil {
		return errs.New(errs.CodeValidationFailed, "cannot order container instances", err)
	}

	rank := make(map[string]int, len(order))
	for i, id := range order {
		rank[id] = i
	}

	var pending []*registry.ObjectBuilder
	for _, b := range c.registry.All() {
		if lifetime.KindOf(b.Lifetime()) == lifetime.Container && !b.Obsolete() {
			pending = append(pending, b)
		}
	}

	slices.SortStableFunc(pending, func(a, b *registry.ObjectBuilder) int {
		return cmp.Compare(rank[typeinfo.Name(a.Description().Contract())], rank[typeinfo.Name(b.Description().Contract())])
	})

	for _, b := range pending {
		ictx, err := c.Root(ctx, c.scope)
		if err != nil {
			return err
		}
		if _, err := b.Build(ictx, nil); err != nil {
			return fmt.Errorf("warming up %s: %w", b, err)
		}
	}
	return nil
}

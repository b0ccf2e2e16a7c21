package injector

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/jingyiliu/injector/internal/typeinfo"
)

type GraphInfo struct {
	Services []ServiceInfo
	Missing  []string
}

// ServiceInfo describes one registered builder.
type ServiceInfo struct {
	Contract     string
	Concrete     string
	Lifetime     string
	Ranking      int
	Metadata     string
	Condition    string
	Dependencies []string
	Dependents   []string
	Collections  []string
	Instantiated bool
	Obsolete     bool
	// WaitingFor lists the unregistered dependencies that made the builder
	// obsolete.
	WaitingFor   []string
}

// Graph describes every builder in registration order.
func (c *Container) Graph() GraphInfo {
	graph := c.internal.Graph()
	infos := c.internal.Registrations()
	services := make([]ServiceInfo, 0, len(infos))

	for _, info := range infos {
		contract := typeinfo.Name(info.Contract)
		services = append(
			services, ServiceInfo{
				Contract:     contract,
				Concrete:     typeinfo.Name(info.Concrete),
				Lifetime:     info.Lifetime.String(),
				Ranking:      info.Ranking,
				Metadata:     info.Metadata,
				Condition:    info.Condition,
				Dependencies: typeNames(info.Dependencies),
				Dependents:   graph.Dependents(contract),
				Collections:  typeNames(info.Collections),
				Instantiated: info.Built,
				Obsolete:     info.Obsolete,
				WaitingFor:   typeNames(info.Unsatisfied),
			},
		)
	}

	return GraphInfo{Services: services, Missing: graph.Missing()}
}

func (c *Container) PrintGraph() {
	c.FprintGraph(os.Stdout)
}

func (c *Container) FprintGraph(w io.Writer) {
	info := c.Graph()

	if len(info.Services) == 0 {
		_, _ = fmt.Fprintln(w, "(empty container)")
		return
	}

	for _, svc := range info.Services {
		status := "○"
		switch {
		case svc.Obsolete:
			status = "✗"
		case svc.Instantiated:
			status = "●"
		}

		label := fmt.Sprintf("%s %s [%s]", status, svc.Contract, svc.Lifetime)
		if svc.Concrete != svc.Contract {
			label += " = " + svc.Concrete
		}
		if len(svc.Dependencies) > 0 {
			label += " ← " + strings.Join(svc.Dependencies, ", ")
		}
		if len(svc.WaitingFor) > 0 {
			label += " (waiting for " + strings.Join(svc.WaitingFor, ", ") + ")"
		}
		_, _ = fmt.Fprintln(w, label)
	}

	for _, missing := range info.Missing {
		_, _ = fmt.Fprintf(w, "? %s (missing)\n", missing)
	}
}

func (c *Container) SprintGraph() string {
	var sb strings.Builder
	c.FprintGraph(&sb)
	return sb.String()
}

func (c *Container) PrintGraphDOT() {
	c.FprintGraphDOT(os.Stdout)
}

func (c *Container) FprintGraphDOT(w io.Writer) {
	info := c.Graph()

	_, _ = fmt.Fprintln(w, "digraph dependencies {")
	_, _ = fmt.Fprintln(w, "  rankdir=LR;")
	_, _ = fmt.Fprintln(w, "  node [shape=box];")

	seen := make(map[string]bool, len(info.Services))
	for _, svc := range info.Services {
		if seen[svc.Contract] {
			continue
		}
		seen[svc.Contract] = true

		style := ""
		if svc.Instantiated {
			style = ", style=filled, fillcolor=lightblue"
		}
		_, _ = fmt.Fprintf(w, "  %q [label=%q%s];\n", svc.Contract, escapeLabel(svc.Contract), style)
	}
	for _, missing := range info.Missing {
		_, _ = fmt.Fprintf(w, "  %q [label=%q, style=dashed];\n", missing, escapeLabel(missing))
	}

	_, _ = fmt.Fprintln(w)

	for _, svc := range info.Services {
		for _, dep := range svc.Dependencies {
			_, _ = fmt.Fprintf(w, "  %q -> %q;\n", svc.Contract, dep)
		}
	}

	_, _ = fmt.Fprintln(w, "}")
}

func (c *Container) SprintGraphDOT() string {
	var sb strings.Builder
	c.FprintGraphDOT(&sb)
	return sb.String()
}

func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, "*", "")
	if idx := strings.LastIndex(s, "/"); idx != -1 {
		s = s[idx+1:]
	}
	return s
}

func typeNames(types []reflect.Type) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, typeinfo.Name(t))
	}
	return out
}

package main

import (
	"bufio"
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type BenchmarkResult struct {
	Name       string  `json:"name"`
	Framework  string  `json:"framework"`
	Category   string  `json:"category"`
	Scenario   string  `json:"scenario"`
	Iterations int64   `json:"iterations"`
	NsPerOp    float64 `json:"ns_per_op"`
	BytesPerOp int64   `json:"bytes_per_op"`
	AllocsOp   int64   `json:"allocs_per_op"`
}

type CategoryResults struct {
	Category string
	Results  []BenchmarkResult
}

var frameworkColors = map[string]text.Colors{
	"Injector":           {text.FgGreen},
	"InjectorReflective": {text.FgGreen},
	"InjectorCompiled":   {text.FgCyan},
	"InjectorScoped":     {text.FgHiGreen},
	"InjectorValidated":  {text.FgHiGreen},
	"Do":                 {text.FgYellow},
	"Dig":                {text.FgMagenta},
	"Fx":                 {text.FgBlue},
}

var categoryOrder = []string{
	"Provide_Simple", "Provide_Chain",
	"Invoke_Singleton", "Invoke_Chain",
	"Transient_Chain",
	"Collection_10",
	"Scope_10", "Scope_50", "ScopeWithWork_10",
}

var categoryTitles = map[string]string{
	"Provide_Simple":   "Registration (simple)",
	"Provide_Chain":    "Registration (dependency chain)",
	"Invoke_Singleton": "Resolution (singleton)",
	"Invoke_Chain":     "Resolution (singleton chain)",
	"Transient_Chain":  "Resolution (transient chain)",
	"Collection_10":    "Collections (10 builders)",
	"Scope_10":         "Scope dispose (10 services)",
	"Scope_50":         "Scope dispose (50 services)",
	"ScopeWithWork_10": "Scope dispose with work (10 services, 1ms each)",
}

func main() {
	benchDir := ".."
	exportJSON := false
	for _, arg := range os.Args[1:] {
		if arg == "--json" {
			exportJSON = true
			continue
		}
		benchDir = arg
	}

	fmt.Println(text.Bold.Sprint("injector benchmark suite"))
	fmt.Println(text.Faint.Sprint("Running benchmarks..."))
	fmt.Println()

	cmd := exec.Command("go", "test", "-bench=.", "-benchmem", "-count=3", "-benchtime=100ms")
	cmd.Dir = benchDir
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "Benchmark failed: %s\n", string(exitErr.Stderr))
		}
		os.Exit(1)
	}

	results := parseResults(output)
	grouped := groupByCategory(results)

	for _, cat := range grouped {
		printCategory(cat)
	}
	printSummary(grouped)

	if exportJSON {
		if err := writeJSON(results); err != nil {
			fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
			os.Exit(1)
		}
	}
}

func parseResults(output []byte) []BenchmarkResult {
	benchPattern := regexp.MustCompile(`^Benchmark(\w+)-\d+\s+(\d+)\s+([\d.]+) ns/op\s+(\d+) B/op\s+(\d+) allocs/op`)
	namePattern := regexp.MustCompile(`^([^_]+)_([^_]+)_(\w+)$`)

	seen := make(map[string][]BenchmarkResult)
	var order []string

	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		matches := benchPattern.FindStringSubmatch(scanner.Text())
		if matches == nil {
			continue
		}

		name := matches[1]
		iterations, _ := strconv.ParseInt(matches[2], 10, 64)
		nsPerOp, _ := strconv.ParseFloat(matches[3], 64)
		bytesPerOp, _ := strconv.ParseInt(matches[4], 10, 64)
		allocsOp, _ := strconv.ParseInt(matches[5], 10, 64)

		var category, scenario, framework string
		if parts := namePattern.FindStringSubmatch(name); parts != nil {
			category, scenario, framework = parts[1], parts[2], parts[3]
		} else if parts := strings.Split(name, "_"); len(parts) >= 2 {
			framework = parts[len(parts)-1]
			category = parts[0]
			scenario = strings.Join(parts[1:len(parts)-1], "_")
		}

		if _, ok := seen[name]; !ok {
			order = append(order, name)
		}
		seen[name] = append(seen[name], BenchmarkResult{
			Name:       name,
			Framework:  framework,
			Category:   category,
			Scenario:   scenario,
			Iterations: iterations,
			NsPerOp:    nsPerOp,
			BytesPerOp: bytesPerOp,
			AllocsOp:   allocsOp,
		})
	}

	results := make([]BenchmarkResult, 0, len(order))
	for _, name := range order {
		runs := seen[name]

		var totalNs float64
		var totalBytes, totalAllocs int64
		for _, r := range runs {
			totalNs += r.NsPerOp
			totalBytes += r.BytesPerOp
			totalAllocs += r.AllocsOp
		}
		count := float64(len(runs))

		avg := runs[0]
		avg.NsPerOp = totalNs / count
		avg.BytesPerOp = int64(float64(totalBytes) / count)
		avg.AllocsOp = int64(float64(totalAllocs) / count)
		results = append(results, avg)
	}
	return results
}

func groupByCategory(results []BenchmarkResult) []CategoryResults {
	groups := make(map[string][]BenchmarkResult)
	var extra []string
	for _, r := range results {
		key := r.Category + "_" + r.Scenario
		if _, ok := groups[key]; !ok && !slices.Contains(categoryOrder, key) {
			extra = append(extra, key)
		}
		groups[key] = append(groups[key], r)
	}

	var ordered []CategoryResults
	for _, key := range append(slices.Clone(categoryOrder), extra...) {
		rs, ok := groups[key]
		if !ok {
			continue
		}
		slices.SortFunc(rs, func(a, b BenchmarkResult) int {
			switch {
			case a.NsPerOp < b.NsPerOp:
				return -1
			case a.NsPerOp > b.NsPerOp:
				return 1
			default:
				return 0
			}
		})
		ordered = append(ordered, CategoryResults{Category: key, Results: rs})
	}
	return ordered
}

func printCategory(cat CategoryResults) {
	title, ok := categoryTitles[cat.Category]
	if !ok {
		title = strings.ReplaceAll(cat.Category, "_", " ")
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"Framework", "Time/op", "B/op", "Allocs/op", "Relative"})

	if len(cat.Results) == 0 {
		t.AppendRow(table.Row{"no results"})
		t.Render()
		fmt.Println()
		return
	}

	fastest := cat.Results[0].NsPerOp
	for i, r := range cat.Results {
		relative := "fastest"
		if i > 0 && fastest > 0 {
			relative = fmt.Sprintf("%.1fx slower", r.NsPerOp/fastest)
		}
		name := r.Framework
		if colors, ok := frameworkColors[r.Framework]; ok {
			name = colors.Sprint(r.Framework)
		}
		t.AppendRow(table.Row{name, formatNs(r.NsPerOp), r.BytesPerOp, r.AllocsOp, relative})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	t.Render()
	fmt.Println()
}

func formatNs(ns float64) string {
	if ns >= 1_000_000 {
		return fmt.Sprintf("%.2f ms", ns/1_000_000)
	}
	if ns >= 1_000 {
		return fmt.Sprintf("%.2f µs", ns/1_000)
	}
	return fmt.Sprintf("%.0f ns", ns)
}

func printSummary(groups []CategoryResults) {
	wins := make(map[string]int)
	for _, cat := range groups {
		if len(cat.Results) > 0 {
			wins[cat.Results[0].Framework]++
		}
	}

	type frameworkWins struct {
		name string
		wins int
	}
	var sorted []frameworkWins
	for name, count := range wins {
		sorted = append(sorted, frameworkWins{name, count})
	}
	slices.SortFunc(sorted, func(a, b frameworkWins) int {
		return cmp.Compare(b.wins, a.wins)
	})

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Summary")
	t.AppendHeader(table.Row{"#", "Framework", "Wins"})
	for i, fw := range sorted {
		t.AppendRow(table.Row{i + 1, fw.name, fmt.Sprintf("%d/%d", fw.wins, len(groups))})
	}
	t.AppendFooter(table.Row{"", "Compared", "injector, samber/do, uber/dig, uber/fx"})
	t.Render()
	fmt.Println()
}

func writeJSON(results []BenchmarkResult) error {
	output := struct {
		Benchmarks []BenchmarkResult `json:"benchmarks"`
	}{
		Benchmarks: results,
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile("benchmark_results.json", data, 0o644); err != nil {
		return err
	}
	fmt.Println(text.Faint.Sprint("Results exported to benchmark_results.json"))
	return nil
}

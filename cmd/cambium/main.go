// Command cambium is a thin demonstration host for the cambium planner
// and executor: it builds a small in-memory registry of sample
// converters and exposes "list", "plan", and "convert" subcommands.
// Robust CLI argument parsing, format sniffing, and plugin loading are
// a real host's concerns, not this binary's — it exists to exercise the
// core library end to end, not to be that host.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/cambium/cambium"
	"github.com/cambium/cambium/budget"
	"github.com/cambium/cambium/executor"
	"github.com/cambium/cambium/observe"
	"github.com/cambium/cambium/planner"
	"github.com/cambium/cambium/registry"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: cambium <list|plan|convert> [args]")
		os.Exit(1)
	}

	reg := registry.New()
	for _, conv := range sampleConverters() {
		if err := reg.Register(conv); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	var err error
	switch os.Args[1] {
	case "list":
		err = runList(reg)
	case "plan":
		err = runPlan(reg, os.Args[2:])
	case "convert":
		err = runConvert(reg, os.Args[2:])
	default:
		err = fmt.Errorf("unknown subcommand %q", os.Args[1])
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runList(reg *registry.Registry) error {
	table := tablewriter.NewTable(os.Stdout)
	table.Header([]string{"id", "requires", "produces", "in", "out"})
	for _, conv := range reg.Iter() {
		decl := conv.Decl()
		table.Append([]string{
			decl.ID,
			describeFormat(decl.Requires),
			describeFormat(decl.Produces),
			decl.InputCardinality.String(),
			decl.OutputCardinality.String(),
		})
	}
	return table.Render()
}

func runPlan(reg *registry.Registry, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: cambium plan <from-format> <to-format>")
	}
	from, to := args[0], args[1]

	source := cambium.PropertiesOf(cambium.Kv(cambium.KeyFormat, cambium.String(from)))
	target := cambium.NewPattern(cambium.Eq(cambium.KeyFormat, cambium.String(to)))

	p := planner.New(reg, planner.PlannerOptions{}, observe.NewOutputFormatter(os.Stdout))
	plan, err := p.Plan(source, target, cambium.One, cambium.One)
	if err != nil {
		return err
	}
	fmt.Print(plan.Explain())
	return nil
}

func runConvert(reg *registry.Registry, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: cambium convert <from-format> <to-format> <path>")
	}
	from, to, path := args[0], args[1], args[2]

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	source := cambium.PropertiesOf(cambium.Kv(cambium.KeyFormat, cambium.String(from)))
	target := cambium.NewPattern(cambium.Eq(cambium.KeyFormat, cambium.String(to)))

	handler := observe.NewOutputFormatter(os.Stdout)
	p := planner.New(reg, planner.PlannerOptions{}, handler)
	plan, err := p.Plan(source, target, cambium.One, cambium.One)
	if err != nil {
		return err
	}

	exec := executor.NewBounded(handler)
	mb := budget.New(64 << 20) // 64 MiB demo budget
	out, err := exec.Execute(context.Background(), plan, reg, cambium.Single(data, source), mb)
	if err != nil {
		return err
	}
	item, _ := out.AsSingle()
	_, err = os.Stdout.Write(item.Bytes)
	return err
}

func describeFormat(p cambium.PropertyPattern) string {
	var parts []string
	for _, c := range p.Constraints() {
		parts = append(parts, c.String())
	}
	if len(parts) == 0 {
		return "any"
	}
	return strings.Join(parts, ",")
}

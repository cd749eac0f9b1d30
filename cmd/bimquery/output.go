package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"

	bimquery "github.com/kailas-cloud/bimquery/pkg/sdk"
)

var (
	green  = color.New(color.FgGreen)
	cyan   = color.New(color.FgCyan)
	yellow = color.New(color.FgYellow)
	faint  = color.New(color.Faint)
)

func printModel(w io.Writer, m bimquery.ModelInfo) {
	green.Fprintf(w, "Loaded %s\n", m.Name)
	fmt.Fprintf(w, "  elements: %d (skipped %d)\n", m.Elements, m.Skipped)
	fmt.Fprintf(w, "  meshes:   %d\n", m.Meshes)
	fmt.Fprintf(w, "  took:     %s\n", m.Duration.Round(time.Millisecond))

	classes := make([]string, 0, len(m.Classes))
	for c := range m.Classes {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	for _, c := range classes {
		fmt.Fprintf(w, "  %-24s %d\n", c, m.Classes[c])
	}
}

func printSchema(w io.Writer, s bimquery.Summary) {
	cyan.Fprintln(w, "Classes:")
	for _, c := range s.Classes {
		fmt.Fprintf(w, "  %s\n", c)
	}
	cyan.Fprintln(w, "Property sets:")
	for _, ps := range s.Psets {
		fmt.Fprintf(w, "  %s: %s\n", ps.Pset, strings.Join(ps.Props, ", "))
	}
	if s.Truncated {
		yellow.Fprintln(w, "  (truncated)")
	}
	cyan.Fprintln(w, "Fields:")
	fmt.Fprintf(w, "  %s\n", strings.Join(s.Fields, ", "))
}

func printSpec(w io.Writer, s bimquery.Spec) {
	classes := "any"
	if len(s.Classes) > 0 {
		classes = strings.Join(s.Classes, ", ")
	}
	fmt.Fprintf(w, "classes: %s\n", classes)
	for _, c := range s.Conditions {
		fmt.Fprintf(w, "  %s %s %v\n", c.Field, c.Op, c.Value)
	}
	if s.Limit > 0 {
		fmt.Fprintf(w, "limit: %d\n", s.Limit)
	}
}

func printResult(w io.Writer, res bimquery.Result) {
	for _, e := range res.Elements {
		fmt.Fprintf(w, "#%-8d %-20s %s", e.ExpressID, e.IfcClass, e.Name)
		if e.Tag != "" {
			faint.Fprintf(w, " [%s]", e.Tag)
		}
		fmt.Fprintln(w)
	}
	green.Fprintf(w, "%d element(s)\n", res.Total())
	if res.Cached {
		faint.Fprintln(w, "plan served from cache")
	}
	if res.Tokens > 0 {
		faint.Fprintf(w, "planner tokens: %d\n", res.Tokens)
	}
}

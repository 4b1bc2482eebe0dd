// Command usecheck reports use conflicts and missing optional imports of the modules in a
// snapshot file or a cluster namespace.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/go-logr/logr"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	"sigs.k8s.io/yaml"

	"github.com/bayleafwalker/bindery-usecheck/internal/analysis"
	"github.com/bayleafwalker/bindery-usecheck/internal/registry"
	"github.com/bayleafwalker/bindery-usecheck/internal/report"
)

func main() {
	var opts registry.SourceOptions
	var module string
	var output string
	var timeout time.Duration

	flag.StringVar(&opts.Snapshot, "snapshot", "", "YAML or JSON file of ModuleManifest and PackageWire objects (default: read the cluster)")
	flag.StringVar(&opts.Kubeconfig, "kubeconfig", registry.DefaultKubeconfig(), "absolute path to the kubeconfig file")
	flag.StringVar(&opts.Namespace, "namespace", "default", "namespace to analyze")
	flag.StringVar(&module, "module", "", "analyze one module (ModuleManifest name or symbolicName/version) instead of all")
	flag.StringVar(&output, "output", "table", "output format: table, json or yaml")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "overall timeout")

	zopts := zap.Options{}
	zopts.BindFlags(flag.CommandLine)
	flag.Parse()

	logger := zap.New(zap.UseFlagOptions(&zopts), zap.WriteTo(os.Stderr))
	ctx, cancel := context.WithTimeout(logr.NewContext(context.Background(), logger), timeout)
	defer cancel()

	if err := run(ctx, opts, module, output, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "usecheck: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts registry.SourceOptions, module, output string, w io.Writer) error {
	src, err := registry.OpenSource(opts)
	if err != nil {
		return err
	}
	store := registry.NewStore(src, nil)
	a := analysis.New(store, store)

	var reports []report.Module
	var runErr error
	if module != "" {
		ref, err := store.Lookup(ctx, module)
		if err != nil {
			return err
		}
		m, err := report.Build(ctx, a, ref)
		if err != nil {
			return err
		}
		reports = []report.Module{m}
	} else {
		// Per-module failures are printed after the results of the other modules.
		reports, runErr = report.All(ctx, a)
		var me *analysis.ModuleError
		if runErr != nil && !errors.As(runErr, &me) {
			return runErr
		}
	}

	if err := write(w, output, reports); err != nil {
		return err
	}
	return runErr
}

func write(w io.Writer, output string, reports []report.Module) error {
	switch output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	case "yaml":
		raw, err := yaml.Marshal(reports)
		if err != nil {
			return err
		}
		_, err = w.Write(raw)
		return err
	case "table":
		return writeTable(w, reports)
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}

func writeTable(w io.Writer, reports []report.Module) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODULE\tFINDING\tPACKAGE\tDETAIL\tSUGGESTION")
	for _, r := range reports {
		for _, c := range r.UseConflicts {
			detail := fmt.Sprintf("%s via %s uses %s", c.ImportRange, c.Module, c.UsedRange)
			if c.WiredProvider != "" {
				detail = fmt.Sprintf("%s via %s wired to %s %s", c.ImportRange, c.Module, c.WiredProvider, c.WiredVersion)
			}
			suggestion := "-"
			if c.Suggestion != "" {
				suggestion = c.Suggestion + " " + c.SuggestionTarget
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Module, c.Kind, c.Package, detail, suggestion)
		}
		for _, m := range r.MissingOptionalImports {
			detail := m.VersionRange + " " + m.Reason
			if m.Candidate != "" {
				detail += " (candidate " + m.Candidate + ")"
			}
			suggestion := m.Suggestion
			if suggestion == "" {
				suggestion = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Module, "MissingOptionalImport", m.Package, detail, suggestion)
		}
	}
	return tw.Flush()
}

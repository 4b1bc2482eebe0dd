// Command usecheck-client queries a usecheck-server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"sigs.k8s.io/yaml"

	"github.com/bayleafwalker/bindery-usecheck/internal/rpc"
)

func main() {
	var target string
	var module string
	var timeout time.Duration
	flag.StringVar(&target, "target", "127.0.0.1:50051", "gRPC server address")
	flag.StringVar(&module, "module", "", "module to analyze (ModuleManifest name or symbolicName/version); empty lists affected modules")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "call timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		panic(fmt.Errorf("dial %s: %w", target, err))
	}
	defer conn.Close()

	c := rpc.NewClient(conn)
	var out any
	if module == "" {
		withConflicts, cerr := c.FindBundlesWithUseConflicts(ctx)
		withMissing, merr := c.FindBundlesWithMissingOptionalImports(ctx)
		for _, err := range []error{cerr, merr} {
			if err != nil {
				fmt.Fprintf(os.Stderr, "usecheck-client: %v\n", err)
			}
		}
		out = map[string][]string{
			"useConflicts":           withConflicts,
			"missingOptionalImports": withMissing,
		}
	} else {
		conflicts, err := c.FindUseConflicts(ctx, module)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FindUseConflicts: %v\n", err)
			os.Exit(1)
		}
		missing, err := c.FindMissingOptionalImports(ctx, module)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FindMissingOptionalImports: %v\n", err)
			os.Exit(1)
		}
		conflicts.MissingOptionalImports = missing.MissingOptionalImports
		out = conflicts
	}

	raw, err := yaml.Marshal(out)
	if err != nil {
		panic(err)
	}
	os.Stdout.Write(raw)
}

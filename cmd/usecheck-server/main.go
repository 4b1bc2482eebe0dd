// Command usecheck-server hosts the bindery.usecheck.v1.Analyzer gRPC service.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"

	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/bayleafwalker/bindery-usecheck/internal/registry"
	"github.com/bayleafwalker/bindery-usecheck/internal/rpc"
)

func main() {
	var listenAddr string
	var opts registry.SourceOptions

	flag.StringVar(&listenAddr, "listen", ":50051", "address to listen on")
	flag.StringVar(&opts.Snapshot, "snapshot", "", "serve a YAML or JSON snapshot instead of a cluster namespace")
	flag.StringVar(&opts.Kubeconfig, "kubeconfig", registry.DefaultKubeconfig(), "absolute path to the kubeconfig file")
	flag.StringVar(&opts.Namespace, "namespace", "default", "namespace to analyze")

	zopts := zap.Options{Development: true}
	zopts.BindFlags(flag.CommandLine)
	flag.Parse()

	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&zopts)))
	logger := ctrl.Log.WithName("usecheck-server")

	src, err := registry.OpenSource(opts)
	if err != nil {
		logger.Error(err, "unable to open source")
		os.Exit(1)
	}

	lis, err := net.Listen("tcp", listenAddr)
	if err != nil {
		panic(fmt.Errorf("listen %s: %w", listenAddr, err))
	}

	grpcServer, _ := rpc.NewGRPCServer(&rpc.Server{Source: src}, logger)
	logger.Info("serving", "address", lis.Addr().String(), "snapshot", opts.Snapshot, "namespace", opts.Namespace)
	if err := grpcServer.Serve(lis); err != nil {
		panic(fmt.Errorf("grpc serve: %w", err))
	}
}

package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
	"sigs.k8s.io/controller-runtime/pkg/client"

	binderyv1alpha1 "github.com/bayleafwalker/bindery-usecheck/api/v1alpha1"
)

// SourceOptions selects where the CLI and the gRPC host read manifests from. Snapshot wins
// over the cluster.
type SourceOptions struct {
	// Snapshot is a YAML or JSON file of ModuleManifest and PackageWire objects.
	Snapshot string
	// Kubeconfig is used when Snapshot is empty.
	Kubeconfig string
	Namespace  string
}

// DefaultKubeconfig returns ~/.kube/config, or $KUBECONFIG when there is no home directory.
func DefaultKubeconfig() string {
	if home := homedir.HomeDir(); home != "" {
		return filepath.Join(home, ".kube", "config")
	}
	return os.Getenv("KUBECONFIG")
}

// OpenSource returns the Source described by opts.
func OpenSource(opts SourceOptions) (Source, error) {
	if opts.Snapshot != "" {
		f, err := os.Open(opts.Snapshot)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		src, err := LoadSnapshot(f)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", opts.Snapshot, err)
		}
		return src, nil
	}
	if opts.Namespace == "" {
		return nil, errors.New("namespace is required when reading from a cluster")
	}
	config, err := clientcmd.BuildConfigFromFlags("", opts.Kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("build kubeconfig: %w", err)
	}
	scheme := runtime.NewScheme()
	utilruntime.Must(binderyv1alpha1.AddToScheme(scheme))
	c, err := client.New(config, client.Options{Scheme: scheme})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return ClusterSource{Reader: c, Namespace: opts.Namespace}, nil
}

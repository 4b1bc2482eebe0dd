package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	utilyaml "k8s.io/apimachinery/pkg/util/yaml"
	"sigs.k8s.io/controller-runtime/pkg/client"

	binderyv1alpha1 "github.com/bayleafwalker/bindery-usecheck/api/v1alpha1"
)

// ErrUnsupportedObject is returned by LoadSnapshot for documents that are neither a
// ModuleManifest, a PackageWire nor a list of them.
var ErrUnsupportedObject = errors.New("unsupported snapshot object")

// Source supplies the objects a Store is built from.
//
// ListManifests returns modules in registry enumeration order.
type Source interface {
	ListManifests(ctx context.Context) ([]binderyv1alpha1.ModuleManifest, error)
	ListWires(ctx context.Context) ([]binderyv1alpha1.PackageWire, error)
}

// ClusterSource reads the objects of one namespace through a controller-runtime client.
//
// Manifests are enumerated by creation time, then name, which approximates install order.
type ClusterSource struct {
	Reader    client.Reader
	Namespace string
}

func (s ClusterSource) ListManifests(ctx context.Context) ([]binderyv1alpha1.ModuleManifest, error) {
	var list binderyv1alpha1.ModuleManifestList
	if err := s.Reader.List(ctx, &list, client.InNamespace(s.Namespace)); err != nil {
		return nil, fmt.Errorf("list modulemanifests in %q: %w", s.Namespace, err)
	}
	items := list.Items
	sort.SliceStable(items, func(i, j int) bool {
		ti, tj := items[i].CreationTimestamp, items[j].CreationTimestamp
		if !ti.Equal(&tj) {
			return ti.Before(&tj)
		}
		return items[i].Name < items[j].Name
	})
	return items, nil
}

func (s ClusterSource) ListWires(ctx context.Context) ([]binderyv1alpha1.PackageWire, error) {
	var list binderyv1alpha1.PackageWireList
	if err := s.Reader.List(ctx, &list, client.InNamespace(s.Namespace)); err != nil {
		return nil, fmt.Errorf("list packagewires in %q: %w", s.Namespace, err)
	}
	return list.Items, nil
}

// StaticSource serves a fixed set of objects, in the order given.
type StaticSource struct {
	Manifests []binderyv1alpha1.ModuleManifest
	Wires     []binderyv1alpha1.PackageWire
}

func (s *StaticSource) ListManifests(context.Context) ([]binderyv1alpha1.ModuleManifest, error) {
	return s.Manifests, nil
}

func (s *StaticSource) ListWires(context.Context) ([]binderyv1alpha1.PackageWire, error) {
	return s.Wires, nil
}

// LoadSnapshot decodes a multi-document YAML or JSON stream of ModuleManifest and PackageWire
// objects. Lists, as printed by kubectl get -o yaml, are flattened. Document order is kept as
// the enumeration order.
func LoadSnapshot(r io.Reader) (*StaticSource, error) {
	dec := utilyaml.NewYAMLOrJSONDecoder(r, 4096)
	out := &StaticSource{}
	for doc := 0; ; doc++ {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, fmt.Errorf("decode snapshot document %d: %w", doc, err)
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
			continue
		}

		u := &unstructured.Unstructured{}
		if err := u.UnmarshalJSON(raw); err != nil {
			return nil, fmt.Errorf("decode snapshot document %d: %w", doc, err)
		}
		if u.IsList() {
			err := u.EachListItem(func(obj runtime.Object) error {
				item, ok := obj.(*unstructured.Unstructured)
				if !ok {
					return fmt.Errorf("%w: %T", ErrUnsupportedObject, obj)
				}
				return out.add(item)
			})
			if err != nil {
				return nil, fmt.Errorf("snapshot document %d: %w", doc, err)
			}
			continue
		}
		if err := out.add(u); err != nil {
			return nil, fmt.Errorf("snapshot document %d: %w", doc, err)
		}
	}
}

func (s *StaticSource) add(u *unstructured.Unstructured) error {
	gvk := u.GroupVersionKind()
	if gvk.Group != binderyv1alpha1.GroupVersion.Group {
		return fmt.Errorf("%w: %s %s", ErrUnsupportedObject, gvk, u.GetName())
	}
	switch gvk.Kind {
	case "ModuleManifest":
		var mm binderyv1alpha1.ModuleManifest
		if err := runtime.DefaultUnstructuredConverter.FromUnstructured(u.Object, &mm); err != nil {
			return fmt.Errorf("convert modulemanifest %s: %w", u.GetName(), err)
		}
		s.Manifests = append(s.Manifests, mm)
	case "PackageWire":
		var pw binderyv1alpha1.PackageWire
		if err := runtime.DefaultUnstructuredConverter.FromUnstructured(u.Object, &pw); err != nil {
			return fmt.Errorf("convert packagewire %s: %w", u.GetName(), err)
		}
		s.Wires = append(s.Wires, pw)
	default:
		return fmt.Errorf("%w: %s %s", ErrUnsupportedObject, gvk, u.GetName())
	}
	return nil
}

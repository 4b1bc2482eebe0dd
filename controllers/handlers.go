package controllers

import (
	"context"

	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	binderyv1alpha1 "github.com/bayleafwalker/bindery-usecheck/api/v1alpha1"
)

// enqueueNamespaceManifests returns an event handler that enqueues every ModuleManifest in the
// namespace of the changed object. Wiring and use checks of one module read the whole namespace.
func enqueueNamespaceManifests(c client.Reader) handler.EventHandler {
	return handler.EnqueueRequestsFromMapFunc(func(ctx context.Context, obj client.Object) []reconcile.Request {
		var list binderyv1alpha1.ModuleManifestList
		if err := c.List(ctx, &list, client.InNamespace(obj.GetNamespace())); err != nil {
			log.FromContext(ctx).Error(err, "failed to list modulemanifests for fan-out", "namespace", obj.GetNamespace())
			return nil
		}
		out := make([]reconcile.Request, 0, len(list.Items))
		for i := range list.Items {
			mm := &list.Items[i]
			out = append(out, reconcile.Request{NamespacedName: types.NamespacedName{Namespace: mm.Namespace, Name: mm.Name}})
		}
		return out
	})
}

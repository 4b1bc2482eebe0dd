package controllers

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/builder"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/predicate"

	binderyv1alpha1 "github.com/bayleafwalker/bindery-usecheck/api/v1alpha1"
	"github.com/bayleafwalker/bindery-usecheck/internal/metadata"
	"github.com/bayleafwalker/bindery-usecheck/internal/registry"
	"github.com/bayleafwalker/bindery-usecheck/internal/resolver"
)

const managedByWiring = "bindery-wiring"

var (
	reNonDNS = regexp.MustCompile(`[^a-z0-9-]+`)
)

// WiringReconciler plays the module resolver in-cluster: it resolves every ModuleManifest of a
// namespace and records the imports of one module as PackageWires owned by that module.
//
// A module that is already Resolved keeps its wires until it is refreshed (annotation
// bindery.platform/refresh=true) or stops resolving; wires it would newly gain are recorded as
// stale until then.
//
// RBAC:
// +kubebuilder:rbac:groups=bindery.platform,resources=modulemanifests,verbs=get;list;watch;patch
// +kubebuilder:rbac:groups=bindery.platform,resources=modulemanifests/status,verbs=get;update;patch
// +kubebuilder:rbac:groups=bindery.platform,resources=packagewires,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=bindery.platform,resources=packagewires/status,verbs=get;update;patch
// +kubebuilder:rbac:groups="",resources=events,verbs=create;patch;update
type WiringReconciler struct {
	client.Client
	Scheme   *runtime.Scheme
	Resolver resolver.Resolver
	Recorder record.EventRecorder
}

func (r *WiringReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	binderyControllerReconcileTotal.WithLabelValues("Wiring").Inc()

	logger := log.FromContext(ctx).WithValues(
		"controller", "Wiring",
		"namespace", req.Namespace,
		"moduleManifest", req.Name,
	)
	ctx = log.IntoContext(ctx, logger)

	var mm binderyv1alpha1.ModuleManifest
	if err := r.Get(ctx, req.NamespacedName, &mm); err != nil {
		if client.IgnoreNotFound(err) == nil {
			return ctrl.Result{}, nil
		}
		binderyControllerReconcileErrorTotal.WithLabelValues("Wiring").Inc()
		return ctrl.Result{}, err
	}
	if !mm.DeletionTimestamp.IsZero() {
		// Owned wires are garbage-collected with the manifest.
		return ctrl.Result{}, nil
	}

	if r.Resolver == nil {
		r.Resolver = resolver.NewDefault()
	}

	store := registry.NewStore(registry.ClusterSource{Reader: r.Client, Namespace: req.Namespace}, r.Resolver)
	ref := registry.RefOf(&mm)
	logger = logger.WithValues("module", ref.String())

	start := time.Now()
	plan, err := store.Plan(ctx)
	wiringResolutionDuration.Observe(time.Since(start).Seconds())
	if err == nil {
		_, err = store.ManifestOf(ctx, ref)
	}
	if err != nil {
		if !errors.Is(err, registry.ErrDuplicateModule) && !errors.Is(err, metadata.ErrManifestParse) {
			logger.Error(err, "failed to resolve namespace")
			binderyControllerReconcileErrorTotal.WithLabelValues("Wiring").Inc()
			return ctrl.Result{}, err
		}
		// Configuration errors: the module cannot be wired until its manifest is fixed.
		if _, derr := r.pruneWires(ctx, &mm, nil); derr != nil {
			logger.Error(derr, "failed to delete wires of invalid module")
			return ctrl.Result{}, derr
		}
		msg := fmt.Sprintf("InvalidManifest: %v", err)
		prev := mm.Status.Phase
		if perr := r.patchPhase(ctx, &mm, binderyv1alpha1.ModulePhaseUnresolved, msg); perr != nil {
			logger.Error(perr, "failed to patch modulemanifest status")
		}
		logger.Info("manifest invalid; marking module unresolved", "reason", err.Error())
		if prev != binderyv1alpha1.ModulePhaseUnresolved {
			r.recordEventf(&mm, corev1.EventTypeWarning, "InvalidManifest", "%s", msg)
		}
		return ctrl.Result{}, nil
	}

	unresolvedCount := 0
	modules, err := store.ListModules(ctx)
	if err != nil {
		return ctrl.Result{}, err
	}
	for _, m := range modules {
		if !plan.Resolved(m) {
			unresolvedCount++
		}
	}
	wiringUnresolvedModules.WithLabelValues(req.Namespace).Set(float64(unresolvedCount))

	resolved := plan.Resolved(ref)
	refresh := !resolved ||
		mm.Status.Phase != binderyv1alpha1.ModulePhaseResolved ||
		mm.Annotations[binderyv1alpha1.AnnotationRefresh] == "true"

	existing, err := r.listWires(ctx, &mm)
	if err != nil {
		logger.Error(err, "failed to list existing packagewires")
		binderyControllerReconcileErrorTotal.WithLabelValues("Wiring").Inc()
		return ctrl.Result{}, err
	}

	createdCount, updatedCount := 0, 0
	desiredNames := map[string]struct{}{}
	for _, w := range plan.WiresOf(ref) {
		providerName, err := store.ObjectName(ctx, w.Provider)
		if err != nil {
			return ctrl.Result{}, err
		}
		spec := binderyv1alpha1.PackageWireSpec{
			Package:  w.Package,
			Importer: mm.Name,
			Provider: binderyv1alpha1.ProviderRef{
				ModuleManifestName: providerName,
				PackageVersion:     w.ProviderVersion.String(),
			},
		}
		name := stableWireName(mm.Name, w.Package)
		desiredNames[name] = struct{}{}
		logger.V(1).Info("desired wire", "packageWire", name, "package", w.Package, "provider", providerName, "optional", w.Optional)

		cur, ok := existing[name]
		switch {
		case !ok:
			// A resolved module only picks up new wires when it is refreshed.
			if err := r.createWire(ctx, &mm, name, spec, !refresh); err != nil {
				logger.Error(err, "failed to create packagewire", "packageWire", name)
				return ctrl.Result{}, err
			}
			createdCount++
		case refresh && (cur.Spec != spec || cur.Status.Stale):
			if err := r.updateWire(ctx, &mm, cur, spec); err != nil {
				logger.Error(err, "failed to update packagewire", "packageWire", name)
				return ctrl.Result{}, err
			}
			updatedCount++
		}
	}

	deletedCount := 0
	if refresh {
		deletedCount, err = r.pruneWires(ctx, &mm, desiredNames)
		if err != nil {
			logger.Error(err, "failed to delete stale packagewires")
			return ctrl.Result{}, err
		}
	}
	if createdCount > 0 {
		wiringWiresCreatedTotal.Add(float64(createdCount))
	}
	if updatedCount > 0 {
		wiringWiresUpdatedTotal.Add(float64(updatedCount))
	}
	if deletedCount > 0 {
		wiringWiresDeletedTotal.Add(float64(deletedCount))
	}
	logger.Info("applied wires", "created", createdCount, "updated", updatedCount, "deleted", deletedCount, "refresh", refresh)
	if createdCount+updatedCount+deletedCount > 0 {
		r.recordEventf(&mm, corev1.EventTypeNormal, "WiresApplied", "Wires applied (created=%d updated=%d deleted=%d)", createdCount, updatedCount, deletedCount)
	}

	if _, ok := mm.Annotations[binderyv1alpha1.AnnotationRefresh]; ok {
		before := mm.DeepCopy()
		delete(mm.Annotations, binderyv1alpha1.AnnotationRefresh)
		if err := r.Patch(ctx, &mm, client.MergeFrom(before)); err != nil {
			logger.Error(err, "failed to clear refresh annotation")
			return ctrl.Result{}, err
		}
	}

	prevPhase := mm.Status.Phase
	phase, message := binderyv1alpha1.ModulePhaseResolved, resolvedMessage(plan, ref)
	if !resolved {
		phase, message = binderyv1alpha1.ModulePhaseUnresolved, summarizeUnresolved(plan, ref)
	}
	if perr := r.patchPhase(ctx, &mm, phase, message); perr != nil {
		logger.Error(perr, "failed to patch modulemanifest status")
		return ctrl.Result{}, perr
	}
	if prevPhase != phase {
		// Avoid spamming; emit only on transitions.
		eventType := corev1.EventTypeNormal
		if phase == binderyv1alpha1.ModulePhaseUnresolved {
			eventType = corev1.EventTypeWarning
		}
		r.recordEventf(&mm, eventType, string(phase), "%s", message)
	}
	return ctrl.Result{}, nil
}

func (r *WiringReconciler) recordEventf(obj client.Object, eventType, reason, messageFmt string, args ...any) {
	if r.Recorder == nil || obj == nil {
		return
	}
	r.Recorder.Eventf(obj, eventType, reason, messageFmt, args...)
}

func (r *WiringReconciler) SetupWithManager(mgr ctrl.Manager) error {
	// Resolution of one module depends on every manifest in its namespace, but not on status.
	return ctrl.NewControllerManagedBy(mgr).
		Named("wiring").
		For(&binderyv1alpha1.ModuleManifest{}, builder.WithPredicates(predicate.Or[client.Object](
			predicate.GenerationChangedPredicate{},
			predicate.AnnotationChangedPredicate{},
		))).
		Owns(&binderyv1alpha1.PackageWire{}).
		Watches(
			&binderyv1alpha1.ModuleManifest{},
			enqueueNamespaceManifests(mgr.GetClient()),
			builder.WithPredicates(predicate.GenerationChangedPredicate{}),
		).
		Complete(r)
}

// listWires returns the PackageWires this controller manages for mm, by name.
func (r *WiringReconciler) listWires(ctx context.Context, mm *binderyv1alpha1.ModuleManifest) (map[string]*binderyv1alpha1.PackageWire, error) {
	var list binderyv1alpha1.PackageWireList
	if err := r.List(ctx, &list,
		client.InNamespace(mm.Namespace),
		client.MatchingLabels{binderyv1alpha1.LabelManagedBy: managedByWiring},
	); err != nil {
		return nil, err
	}
	out := make(map[string]*binderyv1alpha1.PackageWire, len(list.Items))
	for i := range list.Items {
		w := &list.Items[i]
		if w.Spec.Importer == mm.Name {
			out[w.Name] = w
		}
	}
	return out, nil
}

// pruneWires deletes the managed wires of mm that are not in keep.
func (r *WiringReconciler) pruneWires(ctx context.Context, mm *binderyv1alpha1.ModuleManifest, keep map[string]struct{}) (int, error) {
	existing, err := r.listWires(ctx, mm)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for name, w := range existing {
		if _, ok := keep[name]; ok {
			continue
		}
		if err := r.Delete(ctx, w); err != nil && !apierrors.IsNotFound(err) {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

func (r *WiringReconciler) createWire(ctx context.Context, mm *binderyv1alpha1.ModuleManifest, name string, spec binderyv1alpha1.PackageWireSpec, stale bool) error {
	wire := &binderyv1alpha1.PackageWire{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: mm.Namespace,
			Labels:    map[string]string{binderyv1alpha1.LabelManagedBy: managedByWiring},
		},
		Spec: spec,
	}
	if err := controllerutil.SetControllerReference(mm, wire, r.Scheme); err != nil {
		return err
	}
	if err := r.Create(ctx, wire); err != nil {
		return err
	}
	if !stale {
		return nil
	}
	before := wire.DeepCopy()
	wire.Status.Stale = true
	wire.Status.Message = "Pending refresh of " + mm.Name
	return r.Status().Patch(ctx, wire, client.MergeFrom(before))
}

func (r *WiringReconciler) updateWire(ctx context.Context, mm *binderyv1alpha1.ModuleManifest, wire *binderyv1alpha1.PackageWire, spec binderyv1alpha1.PackageWireSpec) error {
	before := wire.DeepCopy()
	wire.Spec = spec
	if err := controllerutil.SetControllerReference(mm, wire, r.Scheme); err != nil {
		return err
	}
	if err := r.Patch(ctx, wire, client.MergeFrom(before)); err != nil {
		return err
	}
	if !wire.Status.Stale && wire.Status.Message == "" {
		return nil
	}
	before = wire.DeepCopy()
	wire.Status = binderyv1alpha1.PackageWireStatus{}
	return r.Status().Patch(ctx, wire, client.MergeFrom(before))
}

func (r *WiringReconciler) patchPhase(ctx context.Context, mm *binderyv1alpha1.ModuleManifest, phase binderyv1alpha1.ModulePhase, message string) error {
	before := mm.DeepCopy()
	mm.Status.ObservedGeneration = mm.Generation
	mm.Status.Phase = phase
	mm.Status.Message = message
	return r.Status().Patch(ctx, mm, client.MergeFrom(before))
}

func resolvedMessage(plan resolver.Plan, ref metadata.ModuleRef) string {
	wires := plan.WiresOf(ref)
	optional := 0
	for _, u := range plan.Diagnostics.UnresolvedOptional {
		if u.Importer == ref {
			optional++
		}
	}
	if optional > 0 {
		return fmt.Sprintf("Resolved with %d wires (%d optional imports unwired)", len(wires), optional)
	}
	return fmt.Sprintf("Resolved with %d wires", len(wires))
}

func summarizeUnresolved(plan resolver.Plan, ref metadata.ModuleRef) string {
	parts := make([]string, 0)
	for _, u := range plan.Diagnostics.UnresolvedRequired {
		if u.Importer != ref {
			continue
		}
		if u.Package == "" {
			parts = append(parts, u.Reason)
			continue
		}
		parts = append(parts, fmt.Sprintf("imports %s %s (%s)", u.Package, u.Range, u.Reason))
	}
	for _, v := range plan.Diagnostics.UsesViolations {
		if v.Importer != ref {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s uses %s from %s but the module is wired to %s", v.Via, v.Package, v.ViaProvider, v.ImporterProvider))
	}
	if len(parts) == 0 {
		return "Unresolved"
	}
	return summarize(parts)
}

// stableWireName returns a DNS-safe object name for the wire of pkg imported by importer.
func stableWireName(importer, pkg string) string {
	base := fmt.Sprintf("pw-%s-%s", importer, strings.ReplaceAll(pkg, ".", "-"))
	base = strings.ToLower(base)
	base = reNonDNS.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-")
	// Distinct packages may sanitize to the same name; the hash keeps them apart.
	h := sha1.Sum([]byte(importer + "\x00" + pkg))
	suffix := "-" + hex.EncodeToString(h[:])[:8]
	if trimTo := 253 - len(suffix); len(base) > trimTo {
		base = strings.Trim(base[:trimTo], "-")
	}
	return base + suffix
}

package controllers

import (
	"context"
	"errors"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/builder"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/event"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/predicate"

	binderyv1alpha1 "github.com/bayleafwalker/bindery-usecheck/api/v1alpha1"
	"github.com/bayleafwalker/bindery-usecheck/internal/analysis"
	"github.com/bayleafwalker/bindery-usecheck/internal/metadata"
	"github.com/bayleafwalker/bindery-usecheck/internal/registry"
	"github.com/bayleafwalker/bindery-usecheck/internal/report"
	"github.com/bayleafwalker/bindery-usecheck/internal/resolver"
)

// DefaultUseCheckInterval is how often a module is re-analyzed without any watched change.
const DefaultUseCheckInterval = 5 * time.Minute

// UseCheckReconciler analyzes each ModuleManifest for use conflicts and missing optional imports
// and reports the findings on its status.
//
// RBAC:
// +kubebuilder:rbac:groups=bindery.platform,resources=modulemanifests,verbs=get;list;watch
// +kubebuilder:rbac:groups=bindery.platform,resources=modulemanifests/status,verbs=get;update;patch
// +kubebuilder:rbac:groups=bindery.platform,resources=packagewires,verbs=get;list;watch
// +kubebuilder:rbac:groups="",resources=events,verbs=create;patch;update
type UseCheckReconciler struct {
	client.Client
	Scheme   *runtime.Scheme
	Resolver resolver.Resolver
	Recorder record.EventRecorder
	// RequeueInterval defaults to DefaultUseCheckInterval.
	RequeueInterval time.Duration
}

func (r *UseCheckReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	binderyControllerReconcileTotal.WithLabelValues("UseCheck").Inc()

	logger := log.FromContext(ctx).WithValues(
		"controller", "UseCheck",
		"namespace", req.Namespace,
		"moduleManifest", req.Name,
	)
	ctx = log.IntoContext(ctx, logger)

	interval := r.RequeueInterval
	if interval <= 0 {
		interval = DefaultUseCheckInterval
	}

	var mm binderyv1alpha1.ModuleManifest
	if err := r.Get(ctx, req.NamespacedName, &mm); err != nil {
		if client.IgnoreNotFound(err) == nil {
			useCheckConflicts.DeleteLabelValues(req.Namespace, req.Name)
			useCheckMissingOptionalImports.DeleteLabelValues(req.Namespace, req.Name)
			return ctrl.Result{}, nil
		}
		binderyControllerReconcileErrorTotal.WithLabelValues("UseCheck").Inc()
		return ctrl.Result{}, err
	}
	if !mm.DeletionTimestamp.IsZero() {
		return ctrl.Result{}, nil
	}

	store := registry.NewStore(registry.ClusterSource{Reader: r.Client, Namespace: req.Namespace}, r.Resolver)
	ref := registry.RefOf(&mm)

	start := time.Now()
	rep, err := report.Build(ctx, analysis.New(store, store), ref)
	useCheckAnalysisDuration.Observe(time.Since(start).Seconds())

	hadConflicts := meta.IsStatusConditionFalse(mm.Status.Conditions, binderyv1alpha1.ConditionUseConflictsFree)

	if err != nil {
		if !errors.Is(err, metadata.ErrManifestParse) && !errors.Is(err, registry.ErrDuplicateModule) {
			logger.Error(err, "use check failed")
			binderyControllerReconcileErrorTotal.WithLabelValues("UseCheck").Inc()
			return ctrl.Result{}, err
		}
		// Retrying does not help until the manifests change.
		if perr := r.patchStatus(ctx, &mm, report.Module{}, analysisFailedConditions(err)...); perr != nil {
			logger.Error(perr, "failed to patch modulemanifest status")
			return ctrl.Result{}, perr
		}
		logger.Info("manifest cannot be analyzed", "reason", err.Error())
		r.recordEventf(&mm, corev1.EventTypeWarning, "AnalysisFailed", "%v", err)
		return ctrl.Result{RequeueAfter: interval}, nil
	}

	useCheckConflicts.WithLabelValues(req.Namespace, req.Name).Set(float64(len(rep.UseConflicts)))
	useCheckMissingOptionalImports.WithLabelValues(req.Namespace, req.Name).Set(float64(len(rep.MissingOptionalImports)))

	conflictsCond := useConflictsCondition(rep)
	if perr := r.patchStatus(ctx, &mm, rep, conflictsCond, optionalImportsCondition(rep)); perr != nil {
		logger.Error(perr, "failed to patch modulemanifest status")
		return ctrl.Result{}, perr
	}
	logger.Info("use check complete",
		"module", ref.String(),
		"useConflicts", len(rep.UseConflicts),
		"missingOptionalImports", len(rep.MissingOptionalImports),
	)

	// Emit only on transitions.
	switch {
	case conflictsCond.Status == metav1.ConditionFalse && !hadConflicts:
		r.recordEventf(&mm, corev1.EventTypeWarning, "UseConflictsDetected", "%s", conflictsCond.Message)
	case conflictsCond.Status == metav1.ConditionTrue && hadConflicts:
		r.recordEventf(&mm, corev1.EventTypeNormal, "UseConflictsCleared", "No use conflicts remain")
	}
	return ctrl.Result{RequeueAfter: interval}, nil
}

func (r *UseCheckReconciler) patchStatus(ctx context.Context, mm *binderyv1alpha1.ModuleManifest, rep report.Module, conds ...metav1.Condition) error {
	before := mm.DeepCopy()
	now := metav1.Now()
	mm.Status.UseConflicts = rep.UseConflicts
	mm.Status.MissingOptionalImports = rep.MissingOptionalImports
	mm.Status.LastCheckedTime = &now
	for _, c := range conds {
		setManifestCondition(mm, c)
	}
	return r.Status().Patch(ctx, mm, client.MergeFrom(before))
}

func (r *UseCheckReconciler) recordEventf(obj client.Object, eventType, reason, messageFmt string, args ...any) {
	if r.Recorder == nil || obj == nil {
		return
	}
	r.Recorder.Eventf(obj, eventType, reason, messageFmt, args...)
}

// specOrPhaseChanged passes manifest updates that change what the analyzer sees: the spec, or
// the phase written by the wiring controller.
var specOrPhaseChanged = predicate.Funcs{
	UpdateFunc: func(e event.UpdateEvent) bool {
		if e.ObjectOld == nil || e.ObjectNew == nil {
			return false
		}
		if e.ObjectOld.GetGeneration() != e.ObjectNew.GetGeneration() {
			return true
		}
		oldMM, ok := e.ObjectOld.(*binderyv1alpha1.ModuleManifest)
		if !ok {
			return false
		}
		newMM, ok := e.ObjectNew.(*binderyv1alpha1.ModuleManifest)
		if !ok {
			return false
		}
		return oldMM.Status.Phase != newMM.Status.Phase
	},
}

func (r *UseCheckReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		Named("usecheck").
		For(&binderyv1alpha1.ModuleManifest{}, builder.WithPredicates(specOrPhaseChanged)).
		Watches(
			&binderyv1alpha1.ModuleManifest{},
			enqueueNamespaceManifests(mgr.GetClient()),
			builder.WithPredicates(specOrPhaseChanged),
		).
		Watches(
			&binderyv1alpha1.PackageWire{},
			enqueueNamespaceManifests(mgr.GetClient()),
		).
		Complete(r)
}

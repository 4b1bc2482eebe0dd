package controllers

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	binderyControllerReconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bindery_controller_reconcile_total",
			Help: "Number of reconciliations by controller.",
		},
		[]string{"controller"},
	)
	binderyControllerReconcileErrorTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bindery_controller_reconcile_error_total",
			Help: "Number of reconciliation errors by controller.",
		},
		[]string{"controller"},
	)

	wiringUnresolvedModules = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bindery_wiring_unresolved_modules",
			Help: "Number of modules the resolver could not resolve in the last Wiring reconcile of a namespace.",
		},
		[]string{"namespace"},
	)
	wiringWiresCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bindery_wiring_wires_created_total",
			Help: "Total number of PackageWires created by the Wiring controller.",
		},
	)
	wiringWiresUpdatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bindery_wiring_wires_updated_total",
			Help: "Total number of PackageWires updated by the Wiring controller.",
		},
	)
	wiringWiresDeletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bindery_wiring_wires_deleted_total",
			Help: "Total number of PackageWires deleted by the Wiring controller.",
		},
	)
	wiringResolutionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bindery_wiring_resolution_duration_seconds",
			Help:    "Time taken to resolve the modules of a namespace.",
			Buckets: prometheus.DefBuckets,
		},
	)

	useCheckConflicts = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bindery_usecheck_conflicts",
			Help: "Number of use conflicts found for a module in its last UseCheck reconcile.",
		},
		[]string{"namespace", "modulemanifest"},
	)
	useCheckMissingOptionalImports = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bindery_usecheck_missing_optional_imports",
			Help: "Number of unwired optional imports of a module in its last UseCheck reconcile.",
		},
		[]string{"namespace", "modulemanifest"},
	)
	useCheckAnalysisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bindery_usecheck_analysis_duration_seconds",
			Help:    "Time taken to analyze one module.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	metrics.Registry.MustRegister(
		binderyControllerReconcileTotal,
		binderyControllerReconcileErrorTotal,
		wiringUnresolvedModules,
		wiringWiresCreatedTotal,
		wiringWiresUpdatedTotal,
		wiringWiresDeletedTotal,
		wiringResolutionDuration,
		useCheckConflicts,
		useCheckMissingOptionalImports,
		useCheckAnalysisDuration,
	)
}

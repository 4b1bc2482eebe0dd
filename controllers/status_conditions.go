package controllers

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	binderyv1alpha1 "github.com/bayleafwalker/bindery-usecheck/api/v1alpha1"
	"github.com/bayleafwalker/bindery-usecheck/internal/report"
)

const maxSummaryItems = 4

func setManifestCondition(mm *binderyv1alpha1.ModuleManifest, condition metav1.Condition) {
	if mm == nil {
		return
	}
	condition.ObservedGeneration = mm.Generation
	meta.SetStatusCondition(&mm.Status.Conditions, condition)
}

func useConflictsCondition(r report.Module) metav1.Condition {
	if len(r.UseConflicts) == 0 {
		return metav1.Condition{
			Type:    binderyv1alpha1.ConditionUseConflictsFree,
			Status:  metav1.ConditionTrue,
			Reason:  "NoUseConflicts",
			Message: "No use conflicts found",
		}
	}
	parts := make([]string, 0, len(r.UseConflicts))
	for _, c := range r.UseConflicts {
		parts = append(parts, fmt.Sprintf("%s via %s (%s)", c.Package, c.Module, c.Kind))
	}
	return metav1.Condition{
		Type:    binderyv1alpha1.ConditionUseConflictsFree,
		Status:  metav1.ConditionFalse,
		Reason:  "UseConflictsFound",
		Message: summarize(parts),
	}
}

func optionalImportsCondition(r report.Module) metav1.Condition {
	if len(r.MissingOptionalImports) == 0 {
		return metav1.Condition{
			Type:    binderyv1alpha1.ConditionOptionalImportsSatisfied,
			Status:  metav1.ConditionTrue,
			Reason:  "AllOptionalImportsWired",
			Message: "Every optional import is wired",
		}
	}
	parts := make([]string, 0, len(r.MissingOptionalImports))
	for _, m := range r.MissingOptionalImports {
		parts = append(parts, fmt.Sprintf("%s (%s)", m.Package, m.Reason))
	}
	return metav1.Condition{
		Type:    binderyv1alpha1.ConditionOptionalImportsSatisfied,
		Status:  metav1.ConditionFalse,
		Reason:  "MissingOptionalImports",
		Message: summarize(parts),
	}
}

func analysisFailedConditions(err error) []metav1.Condition {
	msg := err.Error()
	return []metav1.Condition{
		{Type: binderyv1alpha1.ConditionUseConflictsFree, Status: metav1.ConditionUnknown, Reason: "AnalysisFailed", Message: msg},
		{Type: binderyv1alpha1.ConditionOptionalImportsSatisfied, Status: metav1.ConditionUnknown, Reason: "AnalysisFailed", Message: msg},
	}
}

// summarize keeps messages human-readable and bounded.
func summarize(parts []string) string {
	if len(parts) <= maxSummaryItems {
		return strings.Join(parts, "; ")
	}
	out := append([]string{}, parts[:maxSummaryItems]...)
	out = append(out, fmt.Sprintf("...and %d more", len(parts)-maxSummaryItems))
	return strings.Join(out, "; ")
}

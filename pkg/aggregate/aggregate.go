// Package aggregate rolls rule results into the build-level verdict that
// gates promotion.
package aggregate

import (
	"time"

	"github.com/dukex/lineforge/pkg/models"
)

// Summary groups results for display.
type Summary struct {
	PassCount int `json:"passCount"`
	FailCount int `json:"failCount"`
	// FailuresByWorkUnit keeps result order within each group.
	FailuresByWorkUnit map[string][]models.ValidationResult `json:"failuresByWorkUnit"`
	// WorkUnitOrder lists the keys of FailuresByWorkUnit in first-seen order.
	WorkUnitOrder []string `json:"workUnitOrder"`
}

// Aggregate builds the status of a draft build from its results.
func Aggregate(buildID, itemID string, results []models.ValidationResult) models.BuildValidationStatus {
	return aggregate(buildID, itemID, true, results, time.Now())
}

// AggregateBuild is Aggregate with the draft flag taken from build.
func AggregateBuild(build *models.LineBuild, results []models.ValidationResult, now time.Time) models.BuildValidationStatus {
	return aggregate(build.ID, build.ItemID, build.IsDraft(), results, now)
}

func aggregate(buildID, itemID string, isDraft bool, results []models.ValidationResult, now time.Time) models.BuildValidationStatus {
	status := models.BuildValidationStatus{
		BuildID:     buildID,
		ItemID:      itemID,
		IsDraft:     isDraft,
		LastChecked: now,
		Results:     make([]models.ValidationResult, len(results)),
	}

	copy(status.Results, results)

	for _, r := range results {
		if r.Pass {
			continue
		}

		status.FailureCount++

		switch r.RuleType {
		case models.RuleKindStructured:
			status.HasStructuredFailures = true
		case models.RuleKindSemantic:
			status.HasSemanticFailures = true
		}
	}

	return status
}

// Summarize counts results and groups the failing ones by work unit.
func Summarize(results []models.ValidationResult) Summary {
	s := Summary{
		FailuresByWorkUnit: map[string][]models.ValidationResult{},
		WorkUnitOrder:      []string{},
	}

	for _, r := range results {
		if r.Pass {
			s.PassCount++

			continue
		}

		s.FailCount++

		if _, seen := s.FailuresByWorkUnit[r.WorkUnitID]; !seen {
			s.WorkUnitOrder = append(s.WorkUnitOrder, r.WorkUnitID)
		}

		s.FailuresByWorkUnit[r.WorkUnitID] = append(s.FailuresByWorkUnit[r.WorkUnitID], r)
	}

	return s
}

// CanPromote reports whether status allows the draft to become active.
func CanPromote(status models.BuildValidationStatus) bool {
	return status.IsDraft && !status.HasStructuredFailures && !status.HasSemanticFailures
}

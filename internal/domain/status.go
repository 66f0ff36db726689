package domain

import "strings"

// CoverageStatus classifies how long on-hand stock lasts against the forecast.
type CoverageStatus string

const (
	CoverageSufficient CoverageStatus = "sufficient"
	CoverageCritical   CoverageStatus = "critical"
	CoverageLow        CoverageStatus = "low"
	CoverageAdequate   CoverageStatus = "adequate"
)

var coverageStatusLabels = map[CoverageStatus]string{
	CoverageSufficient: "Sufficient",
	CoverageCritical:   "Critical",
	CoverageLow:        "Low",
	CoverageAdequate:   "Adequate",
}

// Label returns a human-readable label for the status.
func (s CoverageStatus) Label() string {
	if label, ok := coverageStatusLabels[s]; ok {
		return label
	}

	return "Unknown"
}

// ParseCoverageStatus returns the status for a given label (case-insensitive).
func ParseCoverageStatus(label string) (CoverageStatus, bool) {
	s := CoverageStatus(strings.ToLower(strings.TrimSpace(label)))
	_, ok := coverageStatusLabels[s]

	return s, ok
}

// Priority is the reporting bucket of a ranked item.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

package asset

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/railinspect/backend/internal/domain/shared"
)

// MaintenanceEntry is one immutable record in a product's maintenance history
type MaintenanceEntry struct {
	ID              uuid.UUID
	Sequence        int
	Date            time.Time
	Type            string
	Inspector       string
	Notes           string
	Issues          []string
	Recommendations string
	Priority        Priority // empty for imported entries without one
}

func (e MaintenanceEntry) clone() MaintenanceEntry {
	e.Issues = slices.Clone(e.Issues)
	return e
}

// Inspection is a completed inspection form ready to be recorded
type Inspection struct {
	Condition       Condition
	Status          Status
	Type            string
	Inspector       string
	Date            time.Time
	Notes           string
	Issues          []string
	Recommendations string
	NextMaintenance time.Time
	Priority        Priority
}

// Validate checks the inspection against the form rules
func (in Inspection) Validate() error {
	if !in.Condition.IsValid() {
		return shared.NewDomainError("INVALID_CONDITION", "Condition must be one of Excellent, Good, Fair, Poor or Critical")
	}
	if !in.Status.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", "Status is not a recognised operational status")
	}
	if !slices.Contains(FormMaintenanceTypes(), in.Type) {
		return shared.NewDomainError("INVALID_MAINTENANCE_TYPE", "Maintenance type is not recognised")
	}
	if strings.TrimSpace(in.Inspector) == "" {
		return shared.NewDomainError("INVALID_INSPECTOR", "Inspector name is required")
	}
	if in.Date.IsZero() {
		return shared.NewDomainError("INVALID_INSPECTION_DATE", "Inspection date is required")
	}
	if in.Priority != "" && !in.Priority.IsValid() {
		return shared.NewDomainError("INVALID_PRIORITY", "Priority must be one of Low, Medium, High or Critical")
	}
	for _, issue := range in.Issues {
		if !IsCommonIssue(issue) {
			return shared.NewDomainError("INVALID_ISSUE", "Unknown issue: "+issue)
		}
	}
	return nil
}

// Entry converts the inspection into a history entry
func (in Inspection) Entry() MaintenanceEntry {
	priority := in.Priority
	if priority == "" {
		priority = DefaultPriority
	}
	return MaintenanceEntry{
		ID:              uuid.New(),
		Date:            in.Date,
		Type:            in.Type,
		Inspector:       strings.TrimSpace(in.Inspector),
		Notes:           in.Notes,
		Issues:          NormalizeIssues(in.Issues),
		Recommendations: in.Recommendations,
		Priority:        priority,
	}
}

// NormalizeIssues drops duplicates and blanks, keeping the order of first selection
func NormalizeIssues(issues []string) []string {
	out := make([]string, 0, len(issues))
	for _, issue := range issues {
		issue = strings.TrimSpace(issue)
		if issue == "" || slices.Contains(out, issue) {
			continue
		}
		out = append(out, issue)
	}
	return out
}

// ToggleIssue adds the issue when absent and removes it when present
func ToggleIssue(issues []string, issue string) []string {
	if i := slices.Index(issues, issue); i >= 0 {
		return slices.Delete(slices.Clone(issues), i, i+1)
	}
	return append(slices.Clone(issues), issue)
}

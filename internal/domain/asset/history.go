package asset

import "strings"

// FilterAll selects every maintenance type
const FilterAll = "all"

// HistoryFilter narrows a maintenance history by free text and type
type HistoryFilter struct {
	Search string
	Type   string
}

// Matches reports whether the entry passes the filter: the search text must
// occur (case-insensitively) in the notes or the inspector name, and the type
// must match exactly unless the filter type is empty or "all".
func (f HistoryFilter) Matches(e MaintenanceEntry) bool {
	if f.Type != "" && f.Type != FilterAll && e.Type != f.Type {
		return false
	}
	if f.Search == "" {
		return true
	}
	needle := strings.ToLower(f.Search)
	return strings.Contains(strings.ToLower(e.Notes), needle) ||
		strings.Contains(strings.ToLower(e.Inspector), needle)
}

// Apply returns the matching entries in their original order
func (f HistoryFilter) Apply(entries []MaintenanceEntry) []MaintenanceEntry {
	out := make([]MaintenanceEntry, 0, len(entries))
	for _, e := range entries {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// MaintenanceTypes returns the distinct entry types in first-seen order
func MaintenanceTypes(entries []MaintenanceEntry) []string {
	seen := make(map[string]struct{}, len(entries))
	out := make([]string, 0)
	for _, e := range entries {
		if _, ok := seen[e.Type]; ok {
			continue
		}
		seen[e.Type] = struct{}{}
		out = append(out, e.Type)
	}
	return out
}

// HistoryStats summarises a maintenance history
type HistoryStats struct {
	Total       int
	Preventive  int
	Repairs     int
	Inspections int
}

// ComputeStats counts entries by kind. Only the exact "Repair" type counts
// as a repair; emergency repairs and corrective work are left out.
func ComputeStats(entries []MaintenanceEntry) HistoryStats {
	stats := HistoryStats{Total: len(entries)}
	for _, e := range entries {
		switch e.Type {
		case TypePreventiveMaintenance:
			stats.Preventive++
		case TypeInspection:
			stats.Inspections++
		case TypeRepair:
			stats.Repairs++
		}
	}
	return stats
}

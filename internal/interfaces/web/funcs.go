package web

import (
	"html/template"
	"slices"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const dateLayout = "2006-01-02"

// FuncMap returns the helpers available to every template
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"formatDate":     FormatDate,
		"specLabel":      SpecLabel,
		"statusClass":    StatusClass,
		"conditionClass": ConditionClass,
		"priorityClass":  PriorityClass,
		"join":           strings.Join,
		"contains": func(list []string, item string) bool {
			return slices.Contains(list, item)
		},
		"navClass": func(active, item string) string {
			if active == item {
				return "nav-link active"
			}
			return "nav-link"
		},
	}
}

// FormatDate renders a YYYY-MM-DD date as "15 January 2024".
// Values in any other layout are returned unchanged, empty ones as "N/A".
func FormatDate(value string) string {
	if value == "" {
		return "N/A"
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return value
	}
	return t.Format("2 January 2006")
}

// SpecLabel turns a camelCase specification key into a title,
// e.g. "operatingVoltage" becomes "Operating Voltage".
func SpecLabel(key string) string {
	var b strings.Builder
	prev := rune(0)
	for _, r := range key {
		if unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev)) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
		prev = r
	}
	// Casers hold state and are not shared between goroutines
	return cases.Title(language.English).String(strings.ReplaceAll(b.String(), "_", " "))
}

// StatusClass is the badge style of an operational status
func StatusClass(status string) string {
	switch status {
	case "Operational":
		return "badge green"
	case "Under Maintenance":
		return "badge yellow"
	case "Out of Service":
		return "badge red"
	case "Repair Required":
		return "badge orange"
	default:
		return "badge gray"
	}
}

// ConditionClass is the badge style of a condition rating
func ConditionClass(condition string) string {
	switch condition {
	case "Excellent":
		return "badge green"
	case "Good":
		return "badge blue"
	case "Fair":
		return "badge yellow"
	case "Poor":
		return "badge orange"
	case "Critical":
		return "badge red"
	default:
		return "badge gray"
	}
}

// PriorityClass is the badge style of a maintenance priority
func PriorityClass(priority string) string {
	switch priority {
	case "Critical":
		return "badge red"
	case "High":
		return "badge orange"
	case "Medium":
		return "badge yellow"
	case "Low":
		return "badge green"
	default:
		return "badge gray"
	}
}

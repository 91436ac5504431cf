package asset

import "slices"

// Condition is the inspected physical condition of an asset
type Condition string

// Condition values offered on the inspection form
const (
	ConditionExcellent Condition = "Excellent"
	ConditionGood      Condition = "Good"
	ConditionFair      Condition = "Fair"
	ConditionPoor      Condition = "Poor"
	ConditionCritical  Condition = "Critical"
)

// Conditions returns all condition values in form order
func Conditions() []Condition {
	return []Condition{ConditionExcellent, ConditionGood, ConditionFair, ConditionPoor, ConditionCritical}
}

// IsValid checks if the condition is one of the known values
func (c Condition) IsValid() bool {
	return slices.Contains(Conditions(), c)
}

// String returns the string representation
func (c Condition) String() string {
	return string(c)
}

// Status is the operational status of an asset
type Status string

// Status values
const (
	StatusOperational      Status = "Operational"
	StatusUnderMaintenance Status = "Under Maintenance"
	StatusOutOfService     Status = "Out of Service"
	StatusRepairRequired   Status = "Repair Required"
)

// Statuses returns all status values in form order
func Statuses() []Status {
	return []Status{StatusOperational, StatusUnderMaintenance, StatusOutOfService, StatusRepairRequired}
}

// IsValid checks if the status is one of the known values
func (s Status) IsValid() bool {
	return slices.Contains(Statuses(), s)
}

// String returns the string representation
func (s Status) String() string {
	return string(s)
}

// Priority ranks the urgency of follow-up work
type Priority string

// Priority values
const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// DefaultPriority is preselected on the inspection form
const DefaultPriority = PriorityMedium

// Priorities returns all priority values in ascending order
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}
}

// IsValid checks if the priority is one of the known values
func (p Priority) IsValid() bool {
	return slices.Contains(Priorities(), p)
}

// String returns the string representation
func (p Priority) String() string {
	return string(p)
}

// Maintenance types offered on the inspection form. Imported history may carry
// other free-form types (for example "Repair").
const (
	TypePreventiveMaintenance = "Preventive Maintenance"
	TypeCorrectiveMaintenance = "Corrective Maintenance"
	TypeEmergencyRepair       = "Emergency Repair"
	TypeInspection            = "Inspection"
	TypeCalibration           = "Calibration"

	// TypeRepair only appears in imported history
	TypeRepair = "Repair"
)

// FormMaintenanceTypes returns the maintenance types an inspector can record
func FormMaintenanceTypes() []string {
	return []string{
		TypePreventiveMaintenance,
		TypeCorrectiveMaintenance,
		TypeEmergencyRepair,
		TypeInspection,
		TypeCalibration,
	}
}

// CommonIssues returns the issue tags offered on the inspection form
func CommonIssues() []string {
	return []string{
		"Wear and Tear",
		"Corrosion",
		"Electrical Fault",
		"Mechanical Failure",
		"Software Issue",
		"Environmental Damage",
		"Calibration Required",
		"Component Replacement",
	}
}

// IsCommonIssue checks if the tag is one of the offered issues
func IsCommonIssue(issue string) bool {
	return slices.Contains(CommonIssues(), issue)
}

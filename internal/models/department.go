package models

import "strings"

// Department types that make a department eligible for issue routing. Both
// spellings exist in production data.
var MaintenanceTypes = []string{"maintenance", "maintainance"}

// IsMaintenanceType reports whether t is a maintenance department type.
func IsMaintenanceType(t string) bool {
	t = strings.ToLower(strings.TrimSpace(t))
	for _, m := range MaintenanceTypes {
		if t == m {
			return true
		}
	}
	return false
}

type Department struct {
	ID   int64  `json:"department_id" db:"department_id"`
	Name string `json:"name" db:"name"`
	Type string `json:"type" db:"type"`
}

// DepartmentPatch lists the updatable department columns.
type DepartmentPatch struct {
	Name *string `json:"name"`
	Type *string `json:"type"`
}

// Empty reports whether the patch changes nothing.
func (p DepartmentPatch) Empty() bool {
	return p.Name == nil && p.Type == nil
}

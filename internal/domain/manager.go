package domain

import "strings"

// ManagerAssignment links an advertising manager to either a single item or
// a whole bundle, effective from StartDate. Item-level assignments win over
// bundle-level ones.
type ManagerAssignment struct {
	ItemID    *int64 `json:"item_id" db:"item_id"`
	BundleID  *int64 `json:"bundle_id" db:"bundle_id"`
	Name      string `json:"name" db:"name"`
	StartDate string `json:"start_date" db:"start_date"`
}

// ResolveManager picks the manager label for an item: the per-item value if
// set, else the most recent per-bundle value, else ManagerUnset. The unset
// marker is explicit so "known unassigned" stays distinguishable from a row
// that was never written.
func ResolveManager(itemLevel, bundleLevel string) string {
	if name := strings.TrimSpace(itemLevel); name != "" && name != ManagerUnset {
		return name
	}
	if name := strings.TrimSpace(bundleLevel); name != "" && name != ManagerUnset {
		return name
	}
	return ManagerUnset
}

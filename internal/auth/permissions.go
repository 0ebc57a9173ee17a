package auth

import "strings"

type StaffPermission string

const (
	PermAnalytics StaffPermission = "analytics"
	PermReports   StaffPermission = "reports"
)

var apiPermissionMap = map[string]StaffPermission{
	"/api/merchant/analytics":         PermAnalytics,
	"/api/merchant/analytics/export":  PermReports,
	"/api/merchant/analytics/exports": PermReports,
	"/ws/merchant/exports":            PermReports,
}

// GetPermissionForAPI returns the permission guarding path, picking the
// longest matching prefix. Keys may be prefixed with an HTTP method
// ("POST /api/..."), which wins over a method-less key of equal length.
func GetPermissionForAPI(path string, method string) *StaffPermission {
	method = strings.ToUpper(strings.TrimSpace(method))

	var bestPath string
	var bestPerm *StaffPermission
	var bestMethodSpecific bool

	for key, perm := range apiPermissionMap {
		keyPath := key
		methodSpecific := false
		if strings.Contains(key, " ") {
			parts := strings.SplitN(key, " ", 2)
			keyMethod := strings.ToUpper(strings.TrimSpace(parts[0]))
			keyPath = strings.TrimSpace(parts[1])
			methodSpecific = true
			if method == "" || method != keyMethod {
				continue
			}
		}

		if !strings.HasPrefix(path, keyPath) {
			continue
		}

		if bestPerm == nil || len(keyPath) > len(bestPath) || (len(keyPath) == len(bestPath) && methodSpecific && !bestMethodSpecific) {
			bestPath = keyPath
			bestMethodSpecific = methodSpecific
			permCopy := perm
			bestPerm = &permCopy
		}
	}

	return bestPerm
}

// HasPermission reports whether granted contains perm. Staff rows may store
// the legacy "all" wildcard.
func HasPermission(granted []string, perm StaffPermission) bool {
	for _, p := range granted {
		if p == string(perm) || p == "all" {
			return true
		}
	}
	return false
}

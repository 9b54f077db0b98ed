package config

// legacyPermissionModes maps permission mode names accepted for backwards
// compatibility to the value the current CLI expects.
var legacyPermissionModes = map[string]string{
	"acceptAll": "bypassPermissions",
	"prompt":    "default",
}

// NormalizePermissionMode rewrites a legacy permission mode name to its
// current CLI equivalent, passing anything else through unchanged.
func NormalizePermissionMode(mode string) string {
	if current, ok := legacyPermissionModes[mode]; ok {
		return current
	}

	return mode
}

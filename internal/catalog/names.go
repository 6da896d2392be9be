package catalog

import "strings"

// maxDisplayNameLen is the maximum length of cleaned display names,
// sized so dropdown labels stay readable with a date prefix attached.
const maxDisplayNameLen = 55

// CleanDisplayName converts a results file stem into a readable comparison
// label. Transformations, in order:
//
//   - drop the "_results" suffix
//   - an 8-digit date prefix (YYYYMMDD_) becomes "YYYY-MM-DD: "
//   - "_vs_" becomes " vs "
//   - remaining underscores become spaces
//   - the result is truncated to 55 characters with an ellipsis
func CleanDisplayName(stem string) string {
	name := strings.ReplaceAll(stem, "_results", "")

	var date string
	if prefix, rest, ok := strings.Cut(name, "_"); ok && isDatePrefix(prefix) {
		date = prefix[:4] + "-" + prefix[4:6] + "-" + prefix[6:8]
		name = rest
	}

	name = strings.ReplaceAll(name, "_vs_", " vs ")
	name = strings.ReplaceAll(name, "_", " ")

	if date != "" {
		name = date + ": " + name
	}

	if len(name) > maxDisplayNameLen {
		name = name[:maxDisplayNameLen-3] + "..."
	}
	return name
}

// ShortName strips the date prefix and "_results" suffix but keeps the
// underscore form. Used for plot titles and export filenames.
func ShortName(stem string) string {
	if prefix, rest, ok := strings.Cut(stem, "_"); ok && isDatePrefix(prefix) {
		return strings.ReplaceAll(rest, "_results", "")
	}
	return strings.ReplaceAll(stem, "_results", "")
}

func isDatePrefix(s string) bool {
	if len(s) != 8 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

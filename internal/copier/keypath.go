package copier

import "strings"

// JoinKey joins an object-key prefix and a relative path into a destination
// key: forward slashes only, no leading slash, no duplicate separators.
// Empty segments (from doubled or trailing slashes) are dropped.
func JoinKey(prefix, relPath string) string {
	raw := strings.Split(prefix, "/")
	raw = append(raw, strings.Split(relPath, "/")...)

	segments := make([]string, 0, len(raw))

	for _, seg := range raw {
		if seg != "" {
			segments = append(segments, seg)
		}
	}

	return strings.Join(segments, "/")
}

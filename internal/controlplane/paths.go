package controlplane

import "strings"

// pathSegments splits the request path after the given prefix into its
// "/"-separated parts, dropping empty ones from a trailing slash.
func pathSegments(path, prefix string) []string {
	rest := strings.TrimPrefix(path, prefix)
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

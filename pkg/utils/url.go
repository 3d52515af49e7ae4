package utils

import "strings"

// StaticURL rewrites a catalog-relative asset path into a fully qualified
// URL under the configured static mount. Values that are already absolute
// URLs are returned unchanged, so re-applying it is safe.
func StaticURL(cfg Config, path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	path = strings.TrimPrefix(path, "/")
	return cfg.BaseURL + cfg.StaticPath + "/" + path
}

package site

// StaticDirectoryPath is the path to static assets from the project root.
const StaticDirectoryPath = "internal/site/static"

// StaticPath returns the URL path for a static asset.
func StaticPath(path string) string {
	return "/static/" + path
}

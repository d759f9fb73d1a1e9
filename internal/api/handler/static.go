package handler

import (
	"net/http"
	"path"
	"strings"
)

// servedExtensions are the dashboard file types exposed by DataFiles.
var servedExtensions = map[string]bool{
	".json":  true,
	".patch": true,
}

// DataFiles serves dashboard files from dataDir. Directory listings, hidden
// files and other file types (such as embedded databases) are not served.
func DataFiles(dataDir string) http.Handler {
	fileServer := http.FileServer(http.Dir(dataDir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := path.Base(r.URL.Path)
		if !servedExtensions[path.Ext(name)] || strings.HasPrefix(name, ".") {
			respondError(w, http.StatusNotFound, "not found")
			return
		}
		w.Header().Set("Cache-Control", "no-cache")
		fileServer.ServeHTTP(w, r)
	})
}

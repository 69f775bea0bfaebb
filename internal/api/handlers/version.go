package handlers

import (
	"net/http"
	"runtime"
)

type versionResponse struct {
	Version     string `json:"version"`
	Commit      string `json:"commit,omitempty"`
	GoVersion   string `json:"go_version"`
	Environment string `json:"environment"`
}

// Version reports what build is running. The values come from ldflags
// via the server main.
func Version(version, commit, environment string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, versionResponse{
			Version:     version,
			Commit:      commit,
			GoVersion:   runtime.Version(),
			Environment: environment,
		})
	}
}

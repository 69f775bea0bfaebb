package handlers

import (
	"net/http"

	"github.com/creatorlens/backend/internal/apierr"
	"github.com/creatorlens/backend/internal/categorize"
)

// CategorizeStarter launches a background tagging job.
type CategorizeStarter interface {
	Start(opts categorize.Options) string
}

type startCategorizationRequest struct {
	BatchSize int     `json:"batchSize"`
	Limit     int     `json:"limit"`
	IDs       []int64 `json:"ids"`
	Force     bool    `json:"force"`
}

// StartCategorization kicks off an async tagging batch and returns the
// job id at once. Progress lands in system_logs under that id.
func StartCategorization(starter CategorizeStarter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req startCategorizationRequest
		if apiErr := decodeJSON(r, &req); apiErr != nil {
			apierr.WriteErrorWithContext(w, r, apiErr)
			return
		}
		if req.BatchSize < 0 || req.Limit < 0 {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("batchSize", "must not be negative"))
			return
		}

		jobID := starter.Start(categorize.Options{
			BatchSize: req.BatchSize,
			Limit:     req.Limit,
			IDs:       req.IDs,
			Force:     req.Force,
		})
		writeJSON(w, r, http.StatusAccepted, map[string]string{"job_id": jobID})
	}
}

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/creatorlens/backend/internal/apierr"
	"github.com/creatorlens/backend/internal/db"
	"github.com/creatorlens/backend/internal/logger"
	"github.com/creatorlens/backend/internal/utils"
)

// maxNicheLen caps the free-text niche label coming from the dashboard.
const maxNicheLen = 100

// CreatorAdder registers a creator for tracking.
type CreatorAdder interface {
	AddCreator(ctx context.Context, username, igUserID, niche string) (db.InstagramCreator, error)
}

type addCreatorRequest struct {
	Username string `json:"username"`
	IgUserID string `json:"ig_user_id"`
	Niche    string `json:"niche"`
}

type creatorResponse struct {
	ID             int64    `json:"id"`
	IgUserID       string   `json:"ig_user_id"`
	Username       string   `json:"username"`
	FullName       *string  `json:"full_name,omitempty"`
	FollowersCount int64    `json:"followers_count"`
	FollowingCount int64    `json:"following_count"`
	MediaCount     int64    `json:"media_count"`
	Niche          *string  `json:"niche,omitempty"`
	ReviewStatus   *string  `json:"review_status,omitempty"`
	ProfilePicURL  *string  `json:"profile_pic_url,omitempty"`
	Enabled        bool     `json:"enabled"`
	EngagementRate *float64 `json:"engagement_rate,omitempty"`
}

func toCreatorResponse(c db.InstagramCreator) creatorResponse {
	return creatorResponse{
		ID:             c.ID,
		IgUserID:       c.IgUserID,
		Username:       c.Username,
		FullName:       nullString(c.FullName),
		FollowersCount: c.FollowersCount,
		FollowingCount: c.FollowingCount,
		MediaCount:     c.MediaCount,
		Niche:          nullString(c.Niche),
		ReviewStatus:   nullString(c.ReviewStatus),
		ProfilePicURL:  nullString(c.ProfilePicUrl),
		Enabled:        c.Enabled,
		EngagementRate: nullFloat(c.EngagementRate),
	}
}

// AddInstagramCreator registers one creator by hand. The scraper picks
// the new row up on its next pass; the handler answers as soon as the
// profile row exists.
func AddInstagramCreator(adder CreatorAdder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addCreatorRequest
		if apiErr := decodeJSON(r, &req); apiErr != nil {
			apierr.WriteErrorWithContext(w, r, apiErr)
			return
		}
		if strings.TrimSpace(req.Username) == "" {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationMissingField("username"))
			return
		}
		niche := utils.TruncateString(strings.TrimSpace(req.Niche), maxNicheLen)

		creator, err := adder.AddCreator(r.Context(), req.Username, strings.TrimSpace(req.IgUserID), niche)
		if err != nil {
			var apiErr *apierr.Error
			if errors.As(err, &apiErr) {
				apierr.WriteErrorWithContext(w, r, apiErr)
				return
			}
			logger.ErrorContext(r.Context(), "add creator failed", "username", req.Username, "error", err)
			apierr.WriteErrorWithContext(w, r, apierr.SystemInternal("add creator failed"))
			return
		}
		writeJSON(w, r, http.StatusCreated, toCreatorResponse(creator))
	}
}

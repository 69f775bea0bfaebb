package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/creatorlens/backend/internal/apierr"
	"github.com/creatorlens/backend/internal/categorize"
)

type fakeStarter struct {
	jobID string
	got   categorize.Options
	calls int
}

func (f *fakeStarter) Start(opts categorize.Options) string {
	f.calls++
	f.got = opts
	return f.jobID
}

func categorizeReq(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/api/categorization/start", strings.NewReader(body))
}

func TestStartCategorization(t *testing.T) {
	starter := &fakeStarter{jobID: "a9b8c7d6-0000-4000-8000-123456789abc"}
	rr := httptest.NewRecorder()

	StartCategorization(starter)(rr, categorizeReq(`{"batchSize":50,"limit":10,"ids":[4,9],"force":true}`))

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rr.Code, rr.Body.String())
	}
	var out map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["job_id"] != starter.jobID {
		t.Fatalf("expected job id %s, got %s", starter.jobID, out["job_id"])
	}
	if starter.got.BatchSize != 50 || starter.got.Limit != 10 || !starter.got.Force {
		t.Fatalf("options not passed through: %+v", starter.got)
	}
	if len(starter.got.IDs) != 2 || starter.got.IDs[0] != 4 {
		t.Fatalf("ids not passed through: %v", starter.got.IDs)
	}
}

func TestStartCategorization_DefaultsPassZero(t *testing.T) {
	starter := &fakeStarter{jobID: "job"}
	rr := httptest.NewRecorder()

	StartCategorization(starter)(rr, categorizeReq(`{}`))

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rr.Code)
	}
	if starter.got.BatchSize != 0 {
		t.Fatalf("zero batch size is the service default marker, got %d", starter.got.BatchSize)
	}
}

func TestStartCategorization_NegativeBatchSize(t *testing.T) {
	starter := &fakeStarter{}
	rr := httptest.NewRecorder()

	StartCategorization(starter)(rr, categorizeReq(`{"batchSize":-5}`))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if apiErr := decodeAPIError(t, rr); apiErr.Code != apierr.ErrValidationInvalidValue {
		t.Fatalf("expected invalid value code, got %s", apiErr.Code)
	}
	if starter.calls != 0 {
		t.Fatalf("invalid input must not start a job")
	}
}

func TestStartCategorization_InvalidJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	StartCategorization(&fakeStarter{})(rr, categorizeReq(`{"batchSize":"twenty"}`))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

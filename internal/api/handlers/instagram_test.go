package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/creatorlens/backend/internal/apierr"
	"github.com/creatorlens/backend/internal/db"
)

type fakeAdder struct {
	creator db.InstagramCreator
	err     error
	calls   int

	gotUsername string
	gotIgUserID string
	gotNiche    string
}

func (f *fakeAdder) AddCreator(ctx context.Context, username, igUserID, niche string) (db.InstagramCreator, error) {
	f.calls++
	f.gotUsername = username
	f.gotIgUserID = igUserID
	f.gotNiche = niche
	return f.creator, f.err
}

func creatorReq(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/api/instagram/creator", strings.NewReader(body))
}

func TestAddInstagramCreator(t *testing.T) {
	adder := &fakeAdder{creator: db.InstagramCreator{
		ID:             3,
		IgUserID:       "8241002215",
		Username:       "inked.iris",
		FollowersCount: 52100,
		Enabled:        true,
	}}
	rr := httptest.NewRecorder()

	AddInstagramCreator(adder)(rr, creatorReq(`{"username":"inked.iris","ig_user_id":"8241002215","niche":"  alt fashion  "}`))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var out creatorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Username != "inked.iris" || out.IgUserID != "8241002215" {
		t.Fatalf("unexpected body: %+v", out)
	}
	if adder.gotNiche != "alt fashion" {
		t.Fatalf("niche should arrive trimmed, got %q", adder.gotNiche)
	}
}

func TestAddInstagramCreator_MissingUsername(t *testing.T) {
	adder := &fakeAdder{}
	rr := httptest.NewRecorder()

	AddInstagramCreator(adder)(rr, creatorReq(`{"ig_user_id":"8241002215"}`))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if apiErr := decodeAPIError(t, rr); apiErr.Code != apierr.ErrValidationMissingField {
		t.Fatalf("expected missing field code, got %s", apiErr.Code)
	}
	if adder.calls != 0 {
		t.Fatalf("missing username must not reach the service")
	}
}

func TestAddInstagramCreator_Conflict(t *testing.T) {
	adder := &fakeAdder{err: apierr.ResourceConflict("creator already tracked")}
	rr := httptest.NewRecorder()

	AddInstagramCreator(adder)(rr, creatorReq(`{"username":"inked.iris","ig_user_id":"8241002215"}`))

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	if apiErr := decodeAPIError(t, rr); apiErr.Code != apierr.ErrResourceConflict {
		t.Fatalf("expected conflict code, got %s", apiErr.Code)
	}
}

func TestAddInstagramCreator_InvalidUsernamePassthrough(t *testing.T) {
	adder := &fakeAdder{err: apierr.InstagramInvalidUsername("username may only contain letters, digits, dots and underscores")}
	rr := httptest.NewRecorder()

	AddInstagramCreator(adder)(rr, creatorReq(`{"username":"bad name!"}`))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if apiErr := decodeAPIError(t, rr); apiErr.Code != apierr.ErrInstagramInvalidUsername {
		t.Fatalf("expected invalid username code, got %s", apiErr.Code)
	}
}

func TestAddInstagramCreator_NicheTruncated(t *testing.T) {
	adder := &fakeAdder{}
	rr := httptest.NewRecorder()
	long := strings.Repeat("x", maxNicheLen+40)

	AddInstagramCreator(adder)(rr, creatorReq(`{"username":"inked.iris","niche":"`+long+`"}`))

	if len(adder.gotNiche) != maxNicheLen {
		t.Fatalf("expected niche capped at %d, got %d", maxNicheLen, len(adder.gotNiche))
	}
}

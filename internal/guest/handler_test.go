package guest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/gatepass/gatepass/internal/pass"
	"github.com/gatepass/gatepass/internal/shared"
	"github.com/gatepass/gatepass/internal/token"
)

type stubIdentity struct {
	userID string
}

func (s stubIdentity) Verify(tok string) (string, error) {
	if tok == "" || s.userID == "" {
		return "", shared.ErrUnauthorized
	}
	return s.userID, nil
}

func newTestRouter(repo *stubRepo, id stubIdentity) chi.Router {
	codec, _ := token.New("guest-secret")
	svc := NewService(repo, codec, "https://pass.example.com")
	h := NewHandler(nil, svc, id)
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func postJSON(t *testing.T, r chi.Router, path, bearer, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandleIssueSuccess(t *testing.T) {
	repo := &stubRepo{inviter: &pass.Credential{ID: "crd-owner", OrgID: "org-1", Type: pass.TypeMember}}
	r := newTestRouter(repo, stubIdentity{userID: "user-1"})

	from := time.Now().UTC().Format(time.RFC3339)
	to := time.Now().UTC().Add(24 * time.Hour).Format(time.RFC3339)
	rec := postJSON(t, r, "/api/guest-passes", "id-token",
		`{"guestName":"Ana","validFrom":"`+from+`","validTo":"`+to+`"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var got Issued
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.NotEmpty(t, got.CredentialID)
	require.NotEmpty(t, got.GuestToken)
	require.Contains(t, got.GuestURL, got.GuestToken[:16])
}

func TestHandleIssueRequiresAuth(t *testing.T) {
	r := newTestRouter(&stubRepo{}, stubIdentity{})
	rec := postJSON(t, r, "/api/guest-passes", "", `{}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleIssueRejectsEightDayWindow(t *testing.T) {
	repo := &stubRepo{inviter: &pass.Credential{ID: "crd-owner", OrgID: "org-1"}}
	r := newTestRouter(repo, stubIdentity{userID: "user-1"})

	from := time.Now().UTC().Format(time.RFC3339)
	to := time.Now().UTC().Add(8 * 24 * time.Hour).Format(time.RFC3339)
	rec := postJSON(t, r, "/api/guest-passes", "id-token",
		`{"guestName":"Ana","validFrom":"`+from+`","validTo":"`+to+`"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var problem map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.NotEmpty(t, problem["error"])
}

func TestHandleIssueRejectsMalformedBody(t *testing.T) {
	repo := &stubRepo{inviter: &pass.Credential{ID: "crd-owner", OrgID: "org-1"}}
	r := newTestRouter(repo, stubIdentity{userID: "user-1"})

	for _, body := range []string{
		`{`,
		`{"guestName":"Ana"}`,
		`{"guestName":"Ana","validFrom":"yesterday","validTo":"tomorrow"}`,
	} {
		rec := postJSON(t, r, "/api/guest-passes", "id-token", body)
		require.Equal(t, http.StatusBadRequest, rec.Code, "body %s", body)
	}
}

func TestHandleIssueNoEligibleCredential(t *testing.T) {
	r := newTestRouter(&stubRepo{}, stubIdentity{userID: "user-1"})
	from := time.Now().UTC().Format(time.RFC3339)
	to := time.Now().UTC().Add(time.Hour).Format(time.RFC3339)
	rec := postJSON(t, r, "/api/guest-passes", "id-token",
		`{"guestName":"Ana","validFrom":"`+from+`","validTo":"`+to+`"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleIssueMethodNotAllowed(t *testing.T) {
	r := newTestRouter(&stubRepo{}, stubIdentity{userID: "user-1"})
	req := httptest.NewRequest(http.MethodGet, "/api/guest-passes", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

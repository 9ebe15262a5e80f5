package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"orbit/api/internal/auth"
	"orbit/api/internal/roster"
	"golang.org/x/crypto/bcrypt"
)

func newTestServer(t *testing.T) (*httptest.Server, *Service) {
	t.Helper()
	svc := newTestService(t, nil, nil, nil)
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	server := httptest.NewServer(NewHTTPServer(svc, "*").Handler())
	t.Cleanup(server.Close)
	return server, svc
}

func loginToken(t *testing.T, server *httptest.Server) string {
	t.Helper()
	resp, err := http.Post(server.URL+"/api/login", "application/json", strings.NewReader(`{"email":"dewi@example.com"}`))
	if err != nil {
		t.Fatalf("login request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return body.Token
}

func authedGet(t *testing.T, server *httptest.Server, token, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, server.URL+path, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request %s failed: %v", path, err)
	}
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}
}

func TestReadyEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/ready")
	if err != nil {
		t.Fatalf("ready request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("ready status = %d", resp.StatusCode)
	}

	var body struct {
		OK     bool                      `json:"ok"`
		Checks map[string]map[string]any `json:"checks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode ready body: %v", err)
	}
	if !body.OK || body.Checks["catalogue"]["status"] != "ok" {
		t.Errorf("unexpected ready body: %+v", body)
	}
}

func TestReadyReportsEmptyCatalogue(t *testing.T) {
	svc := newTestService(t, &fakeLoader{}, nil, nil)
	server := httptest.NewServer(NewHTTPServer(svc, "*").Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/ready")
	if err != nil {
		t.Fatalf("ready request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("ready status = %d, want 503", resp.StatusCode)
	}
}

func TestLoginEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Post(server.URL+"/api/login", "application/json", strings.NewReader(`{"email":"dewi@example.com"}`))
	if err != nil {
		t.Fatalf("login request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}

	var body struct {
		Token string `json:"token"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode login body: %v", err)
	}
	if body.Token == "" || body.Name != "Dewi" || body.Email != "dewi@example.com" {
		t.Errorf("unexpected login body: %+v", body)
	}
}

func TestLoginRejectionPassesMessageThrough(t *testing.T) {
	svc := New(testConfig(), &fakeLoader{items: testItems()},
		&fakeRoster{verdict: roster.Verdict{Success: false, Message: roster.FallbackMessage}}, nil, nil)
	server := httptest.NewServer(NewHTTPServer(svc, "*").Handler())
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/login", "application/json", strings.NewReader(`{"email":"nobody@example.com"}`))
	if err != nil {
		t.Fatalf("login request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("login status = %d, want 401", resp.StatusCode)
	}

	var body struct {
		Code  string `json:"code"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Code != "LOGIN_REJECTED" || body.Error != roster.FallbackMessage {
		t.Errorf("unexpected error body: %+v", body)
	}
}

func TestSessionEndpointWithoutToken(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/session")
	if err != nil {
		t.Fatalf("session request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("session status = %d", resp.StatusCode)
	}

	var body struct {
		Authenticated bool `json:"authenticated"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode session body: %v", err)
	}
	if body.Authenticated {
		t.Error("anonymous request must not be authenticated")
	}
}

func TestSessionEndpointWithToken(t *testing.T) {
	server, _ := newTestServer(t)
	token := loginToken(t, server)

	resp := authedGet(t, server, token, "/api/session")
	defer resp.Body.Close()

	var body struct {
		Authenticated bool   `json:"authenticated"`
		Name          string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode session body: %v", err)
	}
	if !body.Authenticated || body.Name != "Dewi" {
		t.Errorf("unexpected session body: %+v", body)
	}
}

func TestGatedRoutesRejectBadTokens(t *testing.T) {
	server, _ := newTestServer(t)

	expired, err := auth.IssueToken([]byte(testConfig().JWTSecret), auth.Claims{
		Email: "dewi@example.com",
		Name:  "Dewi",
		Exp:   time.Now().Add(-time.Minute).Unix(),
	})
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	resp := authedGet(t, server, expired, "/api/programs")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expired token: status = %d, want 401", resp.StatusCode)
	}

	resp = authedGet(t, server, "not.a-token", "/api/programs")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("malformed token: status = %d, want 401", resp.StatusCode)
	}
}

func TestProgramsRequiresAuth(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/programs")
	if err != nil {
		t.Fatalf("programs request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("programs without token: status = %d, want 401", resp.StatusCode)
	}
}

func TestProgramsWithToken(t *testing.T) {
	server, _ := newTestServer(t)
	token := loginToken(t, server)

	resp := authedGet(t, server, token, "/api/programs")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("programs status = %d", resp.StatusCode)
	}

	var body struct {
		Programs []struct {
			ID       string `json:"id"`
			Name     string `json:"name"`
			Category string `json:"category"`
		} `json:"programs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode programs body: %v", err)
	}
	if len(body.Programs) != 2 {
		t.Fatalf("expected 2 programs, got %d", len(body.Programs))
	}
	if body.Programs[0].Name != "SCRATCH" || body.Programs[0].Category != "Block Coding" {
		t.Errorf("unexpected first program: %+v", body.Programs[0])
	}
}

func TestLevelsAndUnitsRoutes(t *testing.T) {
	server, _ := newTestServer(t)
	token := loginToken(t, server)

	resp := authedGet(t, server, token, "/api/programs/B2C_PYTHON/levels")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("levels status = %d", resp.StatusCode)
	}

	var levelsBody struct {
		Levels []struct {
			ID string `json:"id"`
		} `json:"levels"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&levelsBody); err != nil {
		t.Fatalf("decode levels body: %v", err)
	}
	if len(levelsBody.Levels) != 2 || levelsBody.Levels[0].ID != "Trial Class" {
		t.Errorf("unexpected levels: %+v", levelsBody.Levels)
	}

	// Level ids may contain spaces and arrive percent-encoded.
	resp = authedGet(t, server, token, "/api/programs/B2C_PYTHON/levels/Trial%20Class/units")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("units status = %d", resp.StatusCode)
	}

	var unitsBody struct {
		Groups []struct {
			Unit  string            `json:"unit"`
			Items []json.RawMessage `json:"items"`
		} `json:"groups"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&unitsBody); err != nil {
		t.Fatalf("decode units body: %v", err)
	}
	if len(unitsBody.Groups) != 1 || unitsBody.Groups[0].Unit != "Trial" {
		t.Errorf("unexpected groups: %+v", unitsBody.Groups)
	}
}

func TestUnknownProgramIs404(t *testing.T) {
	server, _ := newTestServer(t)
	token := loginToken(t, server)

	resp := authedGet(t, server, token, "/api/programs/B2C_COBOL/levels")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown program: status = %d, want 404", resp.StatusCode)
	}
}

func TestSessionByCodeRoute(t *testing.T) {
	server, _ := newTestServer(t)
	token := loginToken(t, server)

	resp := authedGet(t, server, token, "/api/sessions/PY-101")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("session status = %d", resp.StatusCode)
	}

	var body struct {
		Session struct {
			SubTopicTitle string `json:"sub_topic_title"`
		} `json:"session"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode session body: %v", err)
	}
	if body.Session.SubTopicTitle != "Variables" {
		t.Errorf("unexpected session: %+v", body.Session)
	}

	resp = authedGet(t, server, token, "/api/sessions/NOPE")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown session: status = %d, want 404", resp.StatusCode)
	}
}

func TestSearchRoute(t *testing.T) {
	server, _ := newTestServer(t)
	token := loginToken(t, server)

	resp := authedGet(t, server, token, "/api/search?q=loops")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search status = %d", resp.StatusCode)
	}

	var body struct {
		Results []struct {
			Code string `json:"code"`
		} `json:"results"`
		Total int `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode search body: %v", err)
	}
	if body.Total != 1 || body.Results[0].Code != "PY-102" {
		t.Errorf("unexpected search body: %+v", body)
	}

	resp = authedGet(t, server, token, "/api/search?q=loops&limit=abc")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("bad limit: status = %d, want 422", resp.StatusCode)
	}
}

func TestSearchRejectsNegativePagination(t *testing.T) {
	server, _ := newTestServer(t)
	token := loginToken(t, server)

	resp := authedGet(t, server, token, "/api/search?q=loops&offset=-1")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("negative offset: status = %d, want 422", resp.StatusCode)
	}

	resp = authedGet(t, server, token, "/api/search?q=loops&limit=-1")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("negative limit: status = %d, want 422", resp.StatusCode)
	}

	// The connection must survive: the same client issues a normal request
	// right after.
	resp = authedGet(t, server, token, "/api/search?q=loops")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("follow-up search: status = %d, want 200", resp.StatusCode)
	}
}

func TestResolveRoute(t *testing.T) {
	server, _ := newTestServer(t)
	token := loginToken(t, server)

	resp := authedGet(t, server, token, "/api/resolve?url="+
		"https%3A%2F%2Fyoutu.be%2Fxyz789")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("resolve status = %d", resp.StatusCode)
	}

	var body ResolvedLink
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode resolve body: %v", err)
	}
	if body.Embed != "https://www.youtube.com/embed/xyz789?autoplay=1" {
		t.Errorf("embed = %q", body.Embed)
	}

	resp = authedGet(t, server, token, "/api/resolve")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("missing url: status = %d, want 422", resp.StatusCode)
	}
}

func TestRefreshEndpointGuard(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("ops-token"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt failed: %v", err)
	}

	cfg := testConfig()
	cfg.AdminTokenHash = string(hash)
	svc := New(cfg, &fakeLoader{items: testItems()}, &fakeRoster{}, nil, nil)
	server := httptest.NewServer(NewHTTPServer(svc, "*").Handler())
	defer server.Close()

	// Missing header.
	resp, err := http.Post(server.URL+"/api/catalogue/refresh", "application/json", nil)
	if err != nil {
		t.Fatalf("refresh request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("refresh without token: status = %d, want 401", resp.StatusCode)
	}

	// Correct token.
	req, err := http.NewRequest(http.MethodPost, server.URL+"/api/catalogue/refresh", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("x-orbit-admin-token", "ops-token")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("refresh request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("refresh with token: status = %d, want 200", resp.StatusCode)
	}
	if svc.ItemCount() != 4 {
		t.Errorf("refresh did not load the catalogue: %d items", svc.ItemCount())
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	server, _ := newTestServer(t)
	token := loginToken(t, server)

	resp := authedGet(t, server, token, "/api/does-not-exist")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestCORSAndRequestIDHeaders(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("missing CORS header")
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Errorf("missing request id header")
	}
}

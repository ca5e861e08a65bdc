package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/creatorpulse/pulse/internal/accounts"
	"github.com/creatorpulse/pulse/internal/config"
	"github.com/creatorpulse/pulse/internal/scrape"
	"github.com/creatorpulse/pulse/internal/server/endpoints"
)

const testWorkerSecret = "sweep-me"

// newTestServer boots a server on the in-memory store and exposes its
// handler through httptest.
func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	srv, err := New(Config{
		Store:        config.StoreConfig{Mode: "memory"},
		Queue:        config.QueueConfig{ConcurrencyLimit: 4, MaxAttempts: 3},
		WorkerSecret: testWorkerSecret,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := srv.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func doJSON(t *testing.T, method, url string, headers map[string]string, body, out any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp
}

func asUser(userID string) map[string]string {
	return map[string]string{"X-User-ID": userID}
}

func asWorker() map[string]string {
	return map[string]string{"Authorization": "Bearer " + testWorkerSecret}
}

func TestHealthAndReady(t *testing.T) {
	_, ts := newTestServer(t)

	var health endpoints.HealthResponse
	resp := doJSON(t, http.MethodGet, ts.URL+"/health", nil, nil, &health)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if health.Status != "ok" {
		t.Errorf("health.Status = %q, want %q", health.Status, "ok")
	}

	var ready endpoints.HealthResponse
	resp = doJSON(t, http.MethodGet, ts.URL+"/ready", nil, nil, &ready)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("ready status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if ready.Store != "ok" {
		t.Errorf("ready.Store = %q, want %q", ready.Store, "ok")
	}
}

func TestRequireInitBeforeBootstrap(t *testing.T) {
	srv, err := New(Config{Store: config.StoreConfig{Mode: "memory"}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/jobs", nil, nil, nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusServiceUnavailable)
	}
}

func TestDispatchRequiresCredentials(t *testing.T) {
	_, ts := newTestServer(t)

	body := endpoints.DispatchRequest{Platform: "tiktok", AccountID: "acct-1"}
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/sync/dispatch", nil, body, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

func TestSweepRejectsUserIdentity(t *testing.T) {
	_, ts := newTestServer(t)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/sync/sweep", asUser("user-1"), struct{}{}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}

	var sweep endpoints.SweepResponse
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/sync/sweep", asWorker(), struct{}{}, &sweep)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("worker sweep status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestDispatchAccountSync(t *testing.T) {
	srv, ts := newTestServer(t)

	mock := scrape.NewMockScraper()
	mock.Videos = []scrape.RawVideo{
		{Platform: "tiktok", AccountID: "acct-1", ProviderVideoID: "v1", Title: "one", Views: 100},
		{Platform: "tiktok", AccountID: "acct-1", ProviderVideoID: "v2", Title: "two", Views: 250},
	}
	srv.Registry().Register("tiktok", mock)

	acct := accounts.Account{
		Platform: "tiktok", AccountID: "acct-1", Handle: "@creator",
		OrgID: "org-1", ProjectID: "proj-1", IsActive: true,
	}
	resp := doJSON(t, http.MethodPut, ts.URL+"/api/accounts", asUser("user-1"), acct, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put account status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var out endpoints.DispatchResponse
	body := endpoints.DispatchRequest{
		Platform: "tiktok", AccountID: "acct-1", OrgID: "org-1", ProjectID: "proj-1",
	}
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/sync/dispatch", asUser("user-1"), body, &out)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dispatch status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if !out.Success {
		t.Fatalf("dispatch failed: %s", out.Error)
	}
	if out.VideosAdded != 2 {
		t.Errorf("VideosAdded = %d, want 2", out.VideosAdded)
	}
	if out.Saved != 2 {
		t.Errorf("Saved = %d, want 2", out.Saved)
	}

	var got accounts.Account
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/accounts/tiktok/acct-1", nil, nil, &got)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get account status = %d", resp.StatusCode)
	}
	if got.TotalVideos != 2 || got.TotalViews != 350 {
		t.Errorf("totals = %d videos / %d views, want 2 / 350", got.TotalVideos, got.TotalViews)
	}
}

func TestDispatchValidation(t *testing.T) {
	_, ts := newTestServer(t)

	tests := []struct {
		name string
		req  endpoints.DispatchRequest
	}{
		{"no target", endpoints.DispatchRequest{OrgID: "org-1"}},
		{"account without platform", endpoints.DispatchRequest{AccountID: "acct-1"}},
		{"video without platform", endpoints.DispatchRequest{VideoURL: "https://example.com/v/1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, http.MethodPost, ts.URL+"/api/sync/dispatch", asUser("u"), tt.req, nil)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
			}
		})
	}
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	srv, ts := newTestServer(t)

	mock := scrape.NewMockScraper()
	mock.Videos = []scrape.RawVideo{
		{Platform: "tiktok", AccountID: "acct-1", ProviderVideoID: "v1", Views: 10},
	}
	srv.Registry().Register("tiktok", mock)

	for i := 1; i <= 3; i++ {
		acct := accounts.Account{
			Platform: "tiktok", AccountID: fmt.Sprintf("acct-%d", i),
			OrgID: "org-1", ProjectID: "proj-1", IsActive: true,
		}
		doJSON(t, http.MethodPut, ts.URL+"/api/accounts", asUser("u"), acct, nil)
	}

	var created endpoints.CreateSessionResponse
	req := endpoints.CreateSessionRequest{OrgID: "org-1", ProjectID: "proj-1"}
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/sessions", asWorker(), req, &created)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create session status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	if created.TotalAccounts != 3 {
		t.Fatalf("TotalAccounts = %d, want 3", created.TotalAccounts)
	}
	if len(created.JobIDs) != 3 {
		t.Fatalf("len(JobIDs) = %d, want 3", len(created.JobIDs))
	}

	// All three jobs dispatched immediately at concurrency 4.
	srv.Dispatcher().Wait()

	deadline := time.Now().Add(2 * time.Second)
	for {
		var got endpoints.GetSessionResponse
		resp = doJSON(t, http.MethodGet, ts.URL+"/api/sessions/"+created.SessionID, nil, nil, &got)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("get session status = %d", resp.StatusCode)
		}
		if got.Session.Status == "completed" {
			if got.Session.CompletedAccounts != 3 {
				t.Errorf("CompletedAccounts = %d, want 3", got.Session.CompletedAccounts)
			}
			if len(got.Accounts) != 3 {
				t.Errorf("len(Accounts) = %d, want 3", len(got.Accounts))
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("session not completed: %+v", got.Session)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestJobsCRUDOverHTTP(t *testing.T) {
	srv, ts := newTestServer(t)

	mock := scrape.NewMockScraper()
	srv.Registry().Register("tiktok", mock)

	acct := accounts.Account{Platform: "tiktok", AccountID: "acct-1", IsActive: true}
	doJSON(t, http.MethodPut, ts.URL+"/api/accounts", asUser("u"), acct, nil)

	var created endpoints.CreateJobResponse
	body := endpoints.DispatchRequest{Platform: "tiktok", AccountID: "acct-1"}
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/jobs", asWorker(), body, &created)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create job status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	srv.Dispatcher().Wait()

	var listed endpoints.ListJobsResponse
	doJSON(t, http.MethodGet, ts.URL+"/api/jobs?status=completed", nil, nil, &listed)
	if len(listed.Jobs) != 1 {
		t.Fatalf("completed jobs = %d, want 1", len(listed.Jobs))
	}
	if listed.Jobs[0].ID != created.ID {
		t.Errorf("job ID = %q, want %q", listed.Jobs[0].ID, created.ID)
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/jobs/"+created.ID, nil, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("get job status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/jobs/"+created.ID, nil, nil, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete job status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/jobs/"+created.ID, nil, nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get deleted job status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

package credential

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPMatcherResolveSuccess(t *testing.T) {
	t.Parallel()

	var gotBody resolveRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/v1/credentials/resolve" {
			t.Errorf("path = %s, want /v1/credentials/resolve", r.URL.Path)
		}

		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resolveResponse{
			Results: []resolveResult{
				{Code: "valid_id", Resolved: true, Verified: true, Label: "Valid ID"},
				{Code: "transcript", Resolved: true, Verified: false},
			},
		})
	}))
	defer server.Close()

	m, err := NewHTTPMatcher(server.URL)
	if err != nil {
		t.Fatalf("NewHTTPMatcher() error = %v", err)
	}

	got, err := m.Resolve(context.Background(), "student-1", []string{"valid_id", "transcript", "essay"})
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}

	if gotBody.StudentID != "student-1" {
		t.Fatalf("request.student_id = %q, want %q", gotBody.StudentID, "student-1")
	}
	if len(gotBody.RequirementCodes) != 3 {
		t.Fatalf("request.requirement_codes = %v, want 3 codes", gotBody.RequirementCodes)
	}

	if res := got["valid_id"]; !res.Resolved || !res.Verified || res.Label != "Valid ID" {
		t.Fatalf("valid_id resolution = %+v", res)
	}
	if res := got["transcript"]; !res.Resolved || res.Verified {
		t.Fatalf("transcript resolution = %+v", res)
	}

	// Omitted by the service, so unresolved.
	if res := got["essay"]; res.Resolved {
		t.Fatalf("essay resolution = %+v, want unresolved", res)
	}
}

func TestHTTPMatcherResolveServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("matcher unavailable"))
	}))
	defer server.Close()

	m, err := NewHTTPMatcher(server.URL)
	if err != nil {
		t.Fatalf("NewHTTPMatcher() error = %v", err)
	}

	if _, err := m.Resolve(context.Background(), "student-1", []string{"valid_id"}); err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestHTTPMatcherResolveEmptyCodes(t *testing.T) {
	t.Parallel()

	m, err := NewHTTPMatcher("http://matcher.internal")
	if err != nil {
		t.Fatalf("NewHTTPMatcher() error = %v", err)
	}

	got, err := m.Resolve(context.Background(), "student-1", nil)
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Resolve() = %v, want empty map", got)
	}
}

func TestNewHTTPMatcherValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewHTTPMatcher(""); err == nil {
		t.Fatal("expected error for empty base url")
	}
	if _, err := NewHTTPMatcher("::bad::"); err == nil {
		t.Fatal("expected error for invalid base url")
	}
	if _, err := NewHTTPMatcherWithClient("http://matcher.internal", nil); err == nil {
		t.Fatal("expected error for nil client")
	}
}

func TestResolutionDisplayLabel(t *testing.T) {
	t.Parallel()

	if got := (Resolution{Label: "Valid ID"}).DisplayLabel("valid_id"); got != "Valid ID" {
		t.Fatalf("DisplayLabel() = %q, want %q", got, "Valid ID")
	}
	if got := (Resolution{}).DisplayLabel("valid_id"); got != "valid_id" {
		t.Fatalf("DisplayLabel() = %q, want fallback code", got)
	}
}

package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/helpdeskhq/helpdesk-service/internal/config"
	"github.com/helpdeskhq/helpdesk-service/internal/domain"
)

func testClient(url string) *Client {
	return NewClient(config.ClassifierConfig{
		URL:            url,
		APIKey:         "test-key",
		TimeoutSeconds: 1,
	}, nil, zap.NewNop())
}

func TestClassifySuccess(t *testing.T) {
	var gotKey string
	var gotBody classifyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/classify" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotKey = r.Header.Get("x-classifier-key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(Classification{
			Department:       domain.DepartmentNetwork,
			Priority:         domain.TicketPriorityHigh,
			EstimatedMinutes: 90,
		})
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	result, err := client.Classify(context.Background(), "VPN down", "Cannot reach internal hosts")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if gotKey != "test-key" {
		t.Fatalf("expected api key header, got %q", gotKey)
	}
	if gotBody.Title != "VPN down" || gotBody.Message != "Cannot reach internal hosts" {
		t.Fatalf("unexpected request body %+v", gotBody)
	}
	if result.Department != domain.DepartmentNetwork || result.Priority != domain.TicketPriorityHigh || result.EstimatedMinutes != 90 {
		t.Fatalf("unexpected classification %+v", result)
	}
}

func TestClassifyNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Classify(context.Background(), "t", "m")
	if err != ErrUnavailable {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestClassifyMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not-json"))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Classify(context.Background(), "t", "m")
	if err != ErrUnavailable {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestClassifyRejectsOutOfTaxonomyValues(t *testing.T) {
	cases := []Classification{
		{Department: "finance", Priority: domain.TicketPriorityLow, EstimatedMinutes: 10},
		{Department: domain.DepartmentSoftware, Priority: "urgent", EstimatedMinutes: 10},
		{Department: domain.DepartmentSoftware, Priority: domain.TicketPriorityLow, EstimatedMinutes: 0},
		{Department: domain.DepartmentSoftware, Priority: domain.TicketPriorityLow, EstimatedMinutes: -5},
	}

	for _, payload := range cases {
		payload := payload
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(payload)
		}))
		_, err := testClient(srv.URL).Classify(context.Background(), "t", "m")
		srv.Close()
		if err != ErrUnavailable {
			t.Fatalf("payload %+v: expected ErrUnavailable, got %v", payload, err)
		}
	}
}

func TestClassifyTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Classify(context.Background(), "t", "m")
	if err != ErrUnavailable {
		t.Fatalf("expected ErrUnavailable on timeout, got %v", err)
	}
}

func TestClassifyNoBaseURL(t *testing.T) {
	_, err := testClient("").Classify(context.Background(), "t", "m")
	if err != ErrUnavailable {
		t.Fatalf("expected ErrUnavailable without base url, got %v", err)
	}
}

func TestCacheKeySeparatesTitleAndMessage(t *testing.T) {
	// "ab" + "c" must not collide with "a" + "bc".
	if cacheKey("ab", "c") == cacheKey("a", "bc") {
		t.Fatal("cache key must separate title and message")
	}
	if cacheKey("t", "m") != cacheKey("t", "m") {
		t.Fatal("cache key must be stable")
	}
}

package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/liftlog/liftlog/internal/stats"
)

func TestEndRestSendsAPIKey(t *testing.T) {
	sessionID, exerciseID, setID := uuid.New(), uuid.New(), uuid.New()
	wantPath := "/api/v1/sessions/" + sessionID.String() +
		"/exercises/" + exerciseID.String() +
		"/sets/" + setID.String() + "/rest/end"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != wantPath {
			t.Errorf("path = %q, want %q", r.URL.Path, wantPath)
		}
		if got := r.Header.Get("X-API-Key"); got != "secret" {
			t.Errorf("X-API-Key = %q, want secret", got)
		}
		rest := 45
		json.NewEncoder(w).Encode(map[string]any{
			"id":              setID,
			"actual_rest_sec": rest,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	set, err := c.EndRest(context.Background(), sessionID, exerciseID, setID)
	if err != nil {
		t.Fatalf("EndRest: %v", err)
	}
	if set.ActualRestSec == nil || *set.ActualRestSec != 45 {
		t.Errorf("ActualRestSec = %v, want 45", set.ActualRestSec)
	}
}

func TestAPIErrorSurfacesStatusAndMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "rest window already ended"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.EndRest(context.Background(), uuid.New(), uuid.New(), uuid.New())
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusConflict {
		t.Errorf("StatusCode = %d, want 409", apiErr.StatusCode)
	}
	if apiErr.Message != "rest window already ended" {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestOverviewRangeQuery(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("start_date"); got != start.Format(time.RFC3339) {
			t.Errorf("start_date = %q", got)
		}
		if got := q.Get("end_date"); got != end.Format(time.RFC3339) {
			t.Errorf("end_date = %q", got)
		}
		json.NewEncoder(w).Encode(stats.Overview{WorkoutCount: 3, TotalVolume: 1200})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	overview, err := c.Overview(context.Background(), 1, start, end)
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if overview.WorkoutCount != 3 || overview.TotalVolume != 1200 {
		t.Errorf("overview = %+v", overview)
	}
}

package actions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func newTestClient(baseURL string) *Client {
	return NewClient(Config{
		BaseURL:        baseURL,
		TimeoutSeconds: 5,
		AuthEndpoint:   "/auth/google",
	})
}

func TestSendEmailSuccess(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/gmail/send" {
			t.Errorf("path = %q, want /gmail/send", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q", ct)
		}
		var payload EmailRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload.To != "a@b.com" || payload.Subject != "Hi" || payload.Body != "Hello" {
			t.Errorf("unexpected payload: %+v", payload)
		}
		json.NewEncoder(w).Encode(map[string]string{"messageId": "m-123"})
	}))
	defer ts.Close()

	res := newTestClient(ts.URL).SendEmail(context.Background(), EmailRequest{
		To: "a@b.com", Subject: "Hi", Body: "Hello",
	})
	if !res.OK {
		t.Fatalf("result not OK: %s", res.Message)
	}
	if !strings.Contains(res.Message, "a@b.com") || !strings.Contains(res.Message, "m-123") {
		t.Errorf("message lacks detail: %q", res.Message)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("outbound calls = %d, want exactly 1", got)
	}
}

func TestSendEmailUnauthorized(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no valid credentials", http.StatusUnauthorized)
	}))
	defer ts.Close()

	res := newTestClient(ts.URL).SendEmail(context.Background(), EmailRequest{
		To: "a@b.com", Subject: "Hi", Body: "Hello",
	})
	if res.OK {
		t.Fatal("expected failure result")
	}
	if !strings.Contains(res.Message, "/auth/google") {
		t.Errorf("401 result should point the user at the auth endpoint, got %q", res.Message)
	}
}

func TestSendEmailRemoteFailureNoRetry(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "backend exploded", http.StatusInternalServerError)
	}))
	defer ts.Close()

	res := newTestClient(ts.URL).SendEmail(context.Background(), EmailRequest{
		To: "a@b.com", Subject: "Hi", Body: "Hello",
	})
	if res.OK {
		t.Fatal("expected failure result")
	}
	if !strings.Contains(res.Message, "500") || !strings.Contains(res.Message, "backend exploded") {
		t.Errorf("failure message should carry status and remote text, got %q", res.Message)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("outbound calls = %d, want exactly 1 (no retry)", got)
	}
}

func TestSendEmailTransportFailure(t *testing.T) {
	// Closed server: connection refused must fold into a displayable result.
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close()

	res := newTestClient(ts.URL).SendEmail(context.Background(), EmailRequest{
		To: "a@b.com", Subject: "Hi", Body: "Hello",
	})
	if res.OK {
		t.Fatal("expected failure result")
	}
	if !strings.Contains(res.Message, "not confirmed") {
		t.Errorf("transport failure should flag unconfirmed action, got %q", res.Message)
	}
}

func TestCreateEventSuccessWithLink(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/calendar/event" {
			t.Errorf("path = %q, want /calendar/event", r.URL.Path)
		}
		var payload EventRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload.Timezone != "America/Mazatlan" {
			t.Errorf("timezone = %q", payload.Timezone)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"eventId":  "ev-1",
			"htmlLink": "https://calendar.example/ev-1",
		})
	}))
	defer ts.Close()

	res := newTestClient(ts.URL).CreateEvent(context.Background(), EventRequest{
		Summary:       "Standup",
		StartDatetime: "2025-12-10T10:00:00-07:00",
		EndDatetime:   "2025-12-10T10:30:00-07:00",
		Timezone:      "America/Mazatlan",
	})
	if !res.OK {
		t.Fatalf("result not OK: %s", res.Message)
	}
	for _, want := range []string{"Standup", "2025-12-10T10:00:00-07:00", "https://calendar.example/ev-1"} {
		if !strings.Contains(res.Message, want) {
			t.Errorf("message %q missing %q", res.Message, want)
		}
	}
}

func TestCreateEventUnauthorized(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	res := newTestClient(ts.URL).CreateEvent(context.Background(), EventRequest{
		Summary:       "Standup",
		StartDatetime: "2025-12-10T10:00:00-07:00",
		EndDatetime:   "2025-12-10T10:30:00-07:00",
	})
	if res.OK || !strings.Contains(res.Message, "/auth/google") {
		t.Errorf("401 should produce authorize instruction, got %+v", res)
	}
}

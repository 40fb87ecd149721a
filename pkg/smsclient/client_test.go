package smsclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSendSMS_PostsMessageWithAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sms-key" {
			t.Errorf("expected bearer auth, got %q", got)
		}
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("undecodable payload: %v", err)
		}
		if payload["to"] != "+254712345678" {
			t.Errorf("unexpected recipient %q", payload["to"])
		}
		if payload["from"] != "FINSENSE" {
			t.Errorf("unexpected sender id %q", payload["from"])
		}
		json.NewEncoder(w).Encode(map[string]string{"message_id": "msg-1", "status": "queued"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sms-key", "FINSENSE")
	if err := client.SendSMS(context.Background(), "+254712345678", "Your payment is on the way"); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestSendSMS_GatewayErrorIsSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid destination number"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sms-key", "FINSENSE")
	err := client.SendSMS(context.Background(), "bad-number", "hello")
	if err == nil {
		t.Fatal("expected an error for a rejected message")
	}
	if !strings.Contains(err.Error(), "invalid destination number") {
		t.Fatalf("expected the gateway error to be surfaced, got %v", err)
	}
}

package email

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSendListUpdate(t *testing.T) {
	var received postmarkEmail
	var gotToken string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Postmark-Server-Token")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"MessageID": "test-id"}`))
	}))
	defer server.Close()

	client := NewClient("test-token", "noreply@example.com", "https://comprai.test", WithAPIURL(server.URL))

	err := client.SendListUpdate("ana@example.com", "Mercado", "Bruno")
	if err != nil {
		t.Fatalf("send list update: %v", err)
	}

	if gotToken != "test-token" {
		t.Errorf("server token = %q, want %q", gotToken, "test-token")
	}
	if received.To != "ana@example.com" {
		t.Errorf("To = %q, want %q", received.To, "ana@example.com")
	}
	if received.From != "noreply@example.com" {
		t.Errorf("From = %q, want %q", received.From, "noreply@example.com")
	}
	if !strings.Contains(received.Subject, "Mercado") {
		t.Errorf("Subject = %q, want list name in subject", received.Subject)
	}
	if !strings.Contains(received.TextBody, "Bruno") {
		t.Errorf("TextBody = %q, want actor name in body", received.TextBody)
	}
}

func TestSendShareInvite(t *testing.T) {
	var received postmarkEmail

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"MessageID": "test-id"}`))
	}))
	defer server.Close()

	client := NewClient("test-token", "noreply@example.com", "https://comprai.test", WithAPIURL(server.URL))

	err := client.SendShareInvite("bob@example.com", "Churrasco", "AB23CD")
	if err != nil {
		t.Fatalf("send share invite: %v", err)
	}

	if !strings.Contains(received.TextBody, "AB23CD") {
		t.Errorf("TextBody = %q, want share code in body", received.TextBody)
	}
	if !strings.Contains(received.TextBody, "/join/AB23CD") {
		t.Errorf("TextBody = %q, want join link in body", received.TextBody)
	}
}

func TestSendNotConfigured(t *testing.T) {
	client := NewClient("", "noreply@example.com", "https://comprai.test")

	err := client.SendListUpdate("ana@example.com", "Mercado", "Bruno")
	if err == nil {
		t.Fatal("expected error for unconfigured client")
	}
}

func TestSendAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewClient("test-token", "noreply@example.com", "https://comprai.test", WithAPIURL(server.URL))

	err := client.SendListUpdate("ana@example.com", "Mercado", "Bruno")
	if err == nil {
		t.Fatal("expected error for API failure")
	}
}

func TestConfigured(t *testing.T) {
	if !NewClient("token", "from@test.com", "https://test.com").Configured() {
		t.Error("expected Configured() = true")
	}
	if NewClient("", "from@test.com", "https://test.com").Configured() {
		t.Error("expected Configured() = false")
	}
}

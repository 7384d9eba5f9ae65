package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"realty-backend/internal/inquiry"
	"realty-backend/internal/matching"
)

func TestNewBrevoClientRequiresConfig(t *testing.T) {
	if NewBrevoClient(BrevoConfig{APIKey: "k", SenderEmail: "noreply@homes.example"}) != nil {
		t.Fatalf("expected nil client without a notify address")
	}
}

func TestSendInquiryNotification(t *testing.T) {
	var got brevoSendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("api-key") != "k" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"messageId":"<m1@brevo>"}`))
	}))
	defer srv.Close()

	c := NewBrevoClient(BrevoConfig{
		APIKey:      "k",
		SenderEmail: "noreply@homes.example",
		NotifyEmail: "sales@homes.example",
		Sandbox:     true,
		Endpoint:    srv.URL,
	})
	id, err := c.SendInquiryNotification(context.Background(), inquiry.Inquiry{
		ID:     "i1",
		Name:   "Arun <script>",
		Phone:  "9876543210",
		Source: "wizard",
		Preferences: &matching.RawPreferences{
			Budget:    "50-75-lakhs",
			Locations: []string{"Kokapet", "Narsingi"},
		},
	})
	if err != nil || id != "<m1@brevo>" {
		t.Fatalf("send = %q, %v", id, err)
	}
	if got.To[0].Email != "sales@homes.example" || got.Headers["X-Sib-Sandbox"] != "drop" {
		t.Fatalf("unexpected payload %+v", got)
	}
	if !strings.Contains(got.HtmlContent, "Kokapet, Narsingi") || strings.Contains(got.HtmlContent, "<script>") {
		t.Fatalf("unexpected html %q", got.HtmlContent)
	}
	if got.Subject != "New wizard inquiry - Arun <script>" {
		t.Fatalf("unexpected subject %q", got.Subject)
	}
}

func TestSendInquiryNotificationErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"invalid sender"}`))
	}))
	defer srv.Close()

	c := NewBrevoClient(BrevoConfig{APIKey: "k", SenderEmail: "a@b.example", NotifyEmail: "c@d.example", Endpoint: srv.URL})
	if _, err := c.SendInquiryNotification(context.Background(), inquiry.Inquiry{Name: "x", Source: "contact"}); err == nil || !strings.Contains(err.Error(), "status=400") {
		t.Fatalf("expected status error, got %v", err)
	}
}

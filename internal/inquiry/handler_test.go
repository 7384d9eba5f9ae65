package inquiry

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"realty-backend/internal/validation"
	"realty-backend/internal/zoho"
)

func newTestRouter(crm CRM) (http.Handler, *fakeRepo) {
	repo := newFakeRepo()
	h := NewHandler(NewService(repo, crm, nil, time.UTC, quietLogger()), validation.New(), quietLogger())
	r := chi.NewRouter()
	r.Post("/api/contact", h.Contact)
	r.Post("/api/zoho/submit-form", h.SubmitForm)
	r.Patch("/api/admin/inquiries/{id}/status", h.AdminUpdateStatus)
	return r, repo
}

func TestSubmitFormDegradesWhenCRMFails(t *testing.T) {
	router, repo := newTestRouter(&fakeCRM{err: zoho.ErrUnauthorized})
	rr := httptest.NewRecorder()
	body := `{"name":"Arun","phone":"98765-43210","budget":"under-50-lakhs","possession":"3-6"}`
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/zoho/submit-form", strings.NewReader(body)))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		ID        string `json:"id"`
		CRMSynced bool   `json:"crmSynced"`
	}
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.CRMSynced || repo.items[resp.ID].Preferences == nil {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestContactValidation(t *testing.T) {
	router, _ := newTestRouter(nil)
	cases := []string{
		`{"name":"","phone":"9876543210"}`,
		`{"name":"Arun","phone":"12"}`,
		`{"name":"Arun","phone":"9876543210","email":"nope"}`,
		`{"name":"Arun","phone":"9876543210","budget":"a-lot"}`,
		`{"name":"Arun","phone":"9876543210","source":"billboard"}`,
		`{"name":"Arun","phone":"9876543210","unknown":true}`,
	}
	for _, body := range cases {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(body)))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, rr.Code)
		}
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(`{"name":"Arun","phone":"9876543210","message":"Call me"}`)))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
}

func TestAdminUpdateStatusRejectsUnknownStatus(t *testing.T) {
	router, _ := newTestRouter(nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPatch, "/api/admin/inquiries/x/status", strings.NewReader(`{"status":"won"}`)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

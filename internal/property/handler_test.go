package property

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"realty-backend/internal/validation"
)

func newTestRouter(repo *fakeRepo) http.Handler {
	svc, _ := newTestService(repo)
	h := NewHandler(svc, NewBackfiller(repo, fakeResolver{}, 2, quietLogger()), validation.New(), quietLogger())
	r := chi.NewRouter()
	r.Get("/api/all-properties-db", h.List)
	r.Get("/api/property/{id}", h.Get)
	r.Get("/api/radius-search", h.RadiusSearch)
	r.Get("/api/property-wizard/matches", h.WizardMatches)
	r.Post("/api/property-wizard/matches", h.WizardMatches)
	r.Post("/api/admin/properties", h.AdminCreate)
	r.Post("/api/admin/properties/backfill", h.AdminBackfill)
	r.Get("/api/admin/properties/backfill", h.AdminBackfillStatus)
	return r
}

func TestGetUnknownPropertyIs404(t *testing.T) {
	router := newTestRouter(&fakeRepo{})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/property/not-an-id", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestListRejectsBadPrice(t *testing.T) {
	router := newTestRouter(&fakeRepo{})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/all-properties-db?minPrice=lots", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestListPassesFilterToRepository(t *testing.T) {
	repo := &fakeRepo{items: []Property{{ID: "1", ProjectName: "One"}}}
	router := newTestRouter(repo)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/all-properties-db?location=Gachibowli&minPrice=5000000&maxPrice=10000000", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if _, ok := repo.lastFilter["$and"]; !ok {
		t.Fatalf("expected combined filter, got %#v", repo.lastFilter)
	}
	var page ListPage
	if err := json.NewDecoder(rr.Body).Decode(&page); err != nil || page.Total != 1 {
		t.Fatalf("unexpected body %+v %v", page, err)
	}
}

func TestRadiusSearchValidatesInput(t *testing.T) {
	router := newTestRouter(&fakeRepo{})
	for _, target := range []string{"/api/radius-search", "/api/radius-search?locations=Gachibowli&radius=500"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rr.Code)
		}
	}

	repo := &fakeRepo{items: []Property{{ID: "g", ProjectName: "G", Latitude: gachibowli.Lat, Longitude: gachibowli.Lng}}}
	router = newTestRouter(repo)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/radius-search?locations=Gachibowli&radius=exact", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var res RadiusResult
	json.NewDecoder(rr.Body).Decode(&res)
	if res.RadiusKm != 0.1 || len(res.Items) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestWizardMatchesGetAndPost(t *testing.T) {
	repo := &fakeRepo{items: []Property{
		{ID: "cheap", Location: "Kokapet", Configurations: []Configuration{{BHK: "2", BasePrice: 4_000_000}}},
		{ID: "dear", Location: "Kokapet", Configurations: []Configuration{{BHK: "4", BasePrice: 25_000_000}}},
	}}
	router := newTestRouter(repo)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/property-wizard/matches?budget=under-50-lakhs", nil))
	var res MatchResult
	json.NewDecoder(rr.Body).Decode(&res)
	if rr.Code != http.StatusOK || res.Total != 1 || res.Items[0].ID != "cheap" {
		t.Fatalf("GET: code=%d res=%+v", rr.Code, res)
	}

	rr = httptest.NewRecorder()
	body := strings.NewReader(`{"budget":"above-2-crore","possession":"","configuration":"4 BHK","locations":["Kokapet"]}`)
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/property-wizard/matches", body))
	res = MatchResult{}
	json.NewDecoder(rr.Body).Decode(&res)
	if rr.Code != http.StatusOK || res.Total != 1 || res.Items[0].ID != "dear" {
		t.Fatalf("POST: code=%d res=%+v", rr.Code, res)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/property-wizard/matches?possession=someday", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown timeline, got %d", rr.Code)
	}
}

func TestAdminCreateValidates(t *testing.T) {
	router := newTestRouter(&fakeRepo{})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/admin/properties", strings.NewReader(`{"projectName":""}`)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/admin/properties",
		strings.NewReader(`{"projectName":"Nova","location":"Kokapet","configurations":[{"type":"3 BHK","basePrice":12000000}]}`)))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestAdminBackfillRunsDetachedFromRequest(t *testing.T) {
	repo := &fakeRepo{items: []Property{{ID: "a", Location: "Atlantis"}}}
	router := newTestRouter(repo)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/admin/properties/backfill", nil))
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rr.Code)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		rr = httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/admin/properties/backfill", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		var status backfillStatus
		if err := json.NewDecoder(rr.Body).Decode(&status); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !status.Running && status.Last != nil {
			if status.Last.Scanned != 1 || status.Last.Unresolved != 1 {
				t.Fatalf("unexpected report %+v", status.Last)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("backfill never finished: %+v", status)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

package blog

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

func newTestRouter() http.Handler {
	h := NewHandler(NewService(newFakeRepo(), time.UTC), validation.New(), quietLogger())
	r := chi.NewRouter()
	r.Get("/api/blog", h.PublicList)
	r.Get("/api/blog/{slug}", h.PublicGetBySlug)
	r.Post("/api/admin/blog", h.AdminCreate)
	r.Delete("/api/admin/blog/{id}", h.AdminDelete)
	return r
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rr
}

func TestBlogHandlers(t *testing.T) {
	router := newTestRouter()

	body := `{"title":"RERA Basics","content":"...","tags":["legal"],"published":true}`
	rr := do(router, http.MethodPost, "/api/admin/blog", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var created Post
	json.NewDecoder(rr.Body).Decode(&created)

	if rr := do(router, http.MethodPost, "/api/admin/blog", body); rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate slug, got %d", rr.Code)
	}
	if rr := do(router, http.MethodPost, "/api/admin/blog", `{"content":"no title"}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}

	rr = do(router, http.MethodGet, "/api/blog?tag=legal&limit=5", "")
	var page struct {
		Items []Post `json:"items"`
		Total int64  `json:"total"`
		Limit int64  `json:"limit"`
	}
	json.NewDecoder(rr.Body).Decode(&page)
	if rr.Code != http.StatusOK || page.Total != 1 || page.Limit != 5 {
		t.Fatalf("unexpected list response %d %+v", rr.Code, page)
	}

	if rr := do(router, http.MethodGet, "/api/blog/rera-basics", ""); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr := do(router, http.MethodDelete, "/api/admin/blog/"+created.ID, ""); rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d", rr.Code)
	}
	if rr := do(router, http.MethodGet, "/api/blog/rera-basics", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rr.Code)
	}
}

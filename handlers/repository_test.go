package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetAllRepositoriesParsesQuery(t *testing.T) {
	app := newTestApp(t, boss)

	w := app.do(httptest.NewRequest(http.MethodGet, "/api/all-repositories?search=Report&cursor=40&per_page=5", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	q := app.repo.query
	if q.Search != "Report" || q.Cursor != 40 || q.PerPage != 5 {
		t.Fatalf("unexpected query %+v", q)
	}
}

func TestGetAllRepositoriesRejectsBadPaging(t *testing.T) {
	app := newTestApp(t, boss)

	for _, target := range []string{
		"/api/all-repositories?cursor=-1",
		"/api/all-repositories?per_page=0",
		"/api/all-repositories?per_page=ten",
	} {
		if w := app.do(httptest.NewRequest(http.MethodGet, target, nil)); w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, w.Code)
		}
	}
}

func TestGetMyRepository(t *testing.T) {
	app := newTestApp(t, alice)

	w := app.do(httptest.NewRequest(http.MethodGet, "/api/my-repository", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body := w.Body.String(); body != `{"code":200,"message":"success","data":{"folders":[],"files":[]}}` {
		t.Fatalf("unexpected body %s", body)
	}
}

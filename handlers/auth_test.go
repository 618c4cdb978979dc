package handlers

import (
	"net/http"
	"testing"

	"filerepo/services"
)

func TestRegisterCreatesPendingUser(t *testing.T) {
	app := newTestApp(t, services.Identity{})

	w := app.doJSON(http.MethodPost, "/api/register", `{"full_name":"Carol","email":"carol@example.com","password":"longenough"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if app.auth.registered.Email != "carol@example.com" || app.auth.registered.FullName != "Carol" {
		t.Fatalf("unexpected register input %+v", app.auth.registered)
	}
}

func TestRegisterDuplicateEmailIsConflict(t *testing.T) {
	app := newTestApp(t, services.Identity{})
	app.auth.err = &services.AppError{HTTPCode: http.StatusConflict, Message: "email already registered"}

	if w := app.doJSON(http.MethodPost, "/api/register", `{"full_name":"C","email":"c@example.com","password":"longenough"}`); w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestLogin(t *testing.T) {
	app := newTestApp(t, services.Identity{})

	if w := app.doJSON(http.MethodPost, "/api/login", `not json`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	w := app.doJSON(http.MethodPost, "/api/login", `{"email":"a@example.com","password":"secret123"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var out services.LoginOutput
	decodeEnvelope(t, w, &out)
	if out.Token != "signed" {
		t.Fatalf("expected token, got %+v", out)
	}

	app.auth.err = &services.AppError{HTTPCode: http.StatusForbidden, Message: "account is pending approval"}
	if w := app.doJSON(http.MethodPost, "/api/login", `{"email":"a@example.com","password":"secret123"}`); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestLogoutAcknowledges(t *testing.T) {
	app := newTestApp(t, alice)
	if w := app.doJSON(http.MethodPost, "/api/logout", ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

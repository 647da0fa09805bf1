package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
)

func TestServeHealthCheck(t *testing.T) {
	cfg := &Config{port: 8080, maxNickname: 24}
	errs := make(chan error, 1)

	mux := httprouter.New()
	mux.GET("/healthz", serveHealthCheck(cfg, errs))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "Ok\n" {
		t.Errorf("unexpected body: %q", rec.Body.String())
	}
}

func TestServeVersion(t *testing.T) {
	cfg := &Config{port: 8080, maxNickname: 24}
	errs := make(chan error, 1)

	mux := httprouter.New()
	mux.GET("/version", serveVersion(cfg, errs))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/version", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "velha v"+releaseVersion+"\n" {
		t.Errorf("unexpected body: %q", rec.Body.String())
	}
}

func TestQRHandler(t *testing.T) {
	cfg := &Config{port: 8080, maxNickname: 24}
	store := newRoomStore()
	room := store.createRoom("Room", "c1", "Alice")

	mux := httprouter.New()
	mux.GET("/qr/:roomid", qrHandler(cfg, store))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/qr/"+room.ID, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("expected image/png, got %q", ct)
	}
	if rec.Body.Len() == 0 {
		t.Error("expected PNG payload")
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/qr/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown room, got %d", rec.Code)
	}
}

func TestHumanReadableSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{999, "999 B"},
		{1000, "1.0 kB"},
		{1500000, "1.5 MB"},
	}

	for _, test := range tests {
		if got := humanReadableSize(test.in); got != test.want {
			t.Errorf("humanReadableSize(%d) = %q, want %q", test.in, got, test.want)
		}
	}
}

func TestRealIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.10:1234"

	if got := realIP(r); got != "192.0.2.10:1234" {
		t.Errorf("expected remote addr, got %q", got)
	}

	r.Header.Set("X-Real-IP", "203.0.113.7")
	if got := realIP(r); got != "203.0.113.7:1234" {
		t.Errorf("expected header ip, got %q", got)
	}
}

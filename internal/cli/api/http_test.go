package api

import (
	"AssiScan/internal/cli/auth"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPostJSON_SendsToken_And_ParsesBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(CookieName)
		if err != nil || c.Value != "tok123" {
			t.Errorf("auth cookie missing, got %v", r.Header.Get("Cookie"))
		}
		var m map[string]any
		if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
			t.Errorf("bad json: %v", err)
		}
		if m["x"] != float64(1) {
			t.Errorf("unexpected payload: %#v", m)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer ts.Close()

	resp, body, err := PostJSON(context.Background(), ts.URL+"/api", map[string]any{"x": 1}, "tok123")
	if err != nil {
		t.Fatalf("PostJSON err: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	if strings.TrimSpace(string(body)) != `{"ok":true}` {
		t.Fatalf("body: %s", string(body))
	}
}

func TestPostJSON_JSONMarshalError(t *testing.T) {
	// chan в payload вызовет ошибку json.Marshal
	_, _, err := PostJSON(context.Background(), "http://example.invalid", map[string]any{"c": make(chan int)}, "")
	if err == nil {
		t.Fatalf("expected marshal error")
	}
}

func TestGetAndDelete_NoTokenNoCookie(t *testing.T) {
	var methods []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		if r.Header.Get("Cookie") != "" {
			t.Errorf("unexpected cookie: %s", r.Header.Get("Cookie"))
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	if _, _, err := Get(context.Background(), ts.URL, ""); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, _, err := Delete(context.Background(), ts.URL, ""); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if strings.Join(methods, ",") != "GET,DELETE" {
		t.Fatalf("methods: %v", methods)
	}
}

func TestPostMultipart_SendsFieldsAndFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "card.png")
	if err := os.WriteFile(p, []byte("png-bytes"), 0o600); err != nil {
		t.Fatal(err)
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
			return
		}
		if r.FormValue("id") != "7" || r.FormValue("type") != "form138" {
			t.Errorf("fields: %v", r.MultipartForm.Value)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("file: %v", err)
			return
		}
		defer f.Close()
		if hdr.Filename != "card.png" {
			t.Errorf("filename: %s", hdr.Filename)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	resp, _, err := PostMultipart(context.Background(), ts.URL, map[string]string{"id": "7", "type": "form138"}, "file", p, "tok")
	if err != nil {
		t.Fatalf("post multipart: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}

	if _, _, err := PostMultipart(context.Background(), ts.URL, nil, "file", filepath.Join(dir, "missing.png"), ""); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestPersistAuthFromResponse_SaveAndNoCookie(t *testing.T) {
	store := auth.FileStore{Path: filepath.Join(t.TempDir(), "token")}

	resp := &http.Response{Header: http.Header{}}
	resp.Header.Add("Set-Cookie", (&http.Cookie{Name: CookieName, Value: "tok-abc"}).String())
	if err := PersistAuthFromResponse(resp, store); err != nil {
		t.Fatalf("persist: %v", err)
	}
	tok, err := store.Load()
	if err != nil || tok != "tok-abc" {
		t.Fatalf("token not saved, got %q err=%v", tok, err)
	}

	if err := PersistAuthFromResponse(&http.Response{Header: http.Header{}}, store); err != ErrNoAuthCookie {
		t.Fatalf("expected ErrNoAuthCookie, got %v", err)
	}
}

func TestStatusError_Message(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusConflict}
	err := StatusError(resp, []byte(`{"status":"error","error":"DUPLICATE_ENTRY","message":"Record already exists for Juan."}`))
	if err == nil || !strings.Contains(err.Error(), "409: Record already exists for Juan.") {
		t.Fatalf("unexpected: %v", err)
	}

	err = StatusError(&http.Response{StatusCode: http.StatusUnauthorized}, []byte("unauthorized\n"))
	if !strings.Contains(err.Error(), "401: unauthorized") {
		t.Fatalf("unexpected: %v", err)
	}

	err = StatusError(&http.Response{StatusCode: http.StatusBadGateway}, nil)
	if !strings.Contains(err.Error(), "Bad Gateway") {
		t.Fatalf("unexpected: %v", err)
	}
}

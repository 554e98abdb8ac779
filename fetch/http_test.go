package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestHTTPGetParsesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		if r.Header.Get("X-Api-Key") != "k" {
			t.Errorf("default header missing")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(`{"users":[{"id":1}]}`))
	}))
	defer srv.Close()

	h := NewHTTP(Config{BaseURL: srv.URL + "/", Header: http.Header{"X-Api-Key": {"k"}}})
	resp, err := h.Get(context.Background(), "/users", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.StatusCode != 200 || resp.Header.Get("ETag") != `"v1"` {
		t.Fatalf("resp = %+v", resp)
	}
	if got := resp.Body.String(); got != `{"users":[{"id":1}]}` {
		t.Fatalf("body = %s", got)
	}
}

func TestHTTPNonJSONBodyIsString(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	resp, err := NewHTTP(Config{BaseURL: srv.URL}).Get(context.Background(), "x", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if s, ok := resp.Body.AsString(); !ok || s != "hello" {
		t.Fatalf("body = %v", resp.Body)
	}
}

func TestHTTPInvalidUTF8BodyIsNormalized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte("\xff\xfea"))
	}))
	defer srv.Close()

	resp, err := NewHTTP(Config{BaseURL: srv.URL}).Get(context.Background(), "x", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if s, ok := resp.Body.AsString(); !ok || s != "\uFFFDa" {
		t.Fatalf("body = %q", s)
	}
}

func TestHTTPNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewHTTP(Config{BaseURL: srv.URL}).Get(context.Background(), "/a", nil)
	var fe *Error
	if !errors.As(err, &fe) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if fe.StatusCode != 500 || fe.Endpoint != "/a" {
		t.Fatalf("err = %+v", fe)
	}
	if !strings.Contains(err.Error(), "500") {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestHTTPNotModified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotModified)
	}))
	defer srv.Close()
	h := NewHTTP(Config{BaseURL: srv.URL})

	resp, err := h.Get(context.Background(), "/a", http.Header{HeaderIfNoneMatch: {`"v1"`}})
	if err != nil {
		t.Fatalf("conditional 304: %v", err)
	}
	if !resp.NotModified() {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	if _, err := h.Get(context.Background(), "/a", nil); !IsError(err) {
		t.Fatalf("unconditional 304 should fail, got %v", err)
	}
}

func TestHTTPTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewHTTP(Config{BaseURL: srv.URL, Timeout: 20 * time.Millisecond}).Get(context.Background(), "/slow", nil)
	var fe *Error
	if !errors.As(err, &fe) || fe.StatusCode != 0 {
		t.Fatalf("expected transport *Error, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestHTTPBodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`"0123456789"`))
	}))
	defer srv.Close()

	_, err := NewHTTP(Config{BaseURL: srv.URL, MaxBodyBytes: 4}).Get(context.Background(), "/", nil)
	if !errors.Is(err, errBodyTooLarge) {
		t.Fatalf("expected body too large, got %v", err)
	}
}

func TestHTTPAbsoluteEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`1`))
	}))
	defer srv.Close()

	resp, err := NewHTTP(Config{BaseURL: "http://unused.invalid"}).Get(context.Background(), srv.URL+"/n", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if n, ok := resp.Body.AsNumber(); !ok || n != 1 {
		t.Fatalf("body = %v", resp.Body)
	}
}

func TestHTTPRecordsSpans(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	h := NewHTTP(Config{BaseURL: srv.URL, TracerProvider: tp})

	if _, err := h.Get(context.Background(), "/ok", nil); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := h.Get(context.Background(), "/bad", nil); err == nil {
		t.Fatalf("expected error")
	}

	spans := sr.Ended()
	if len(spans) != 2 {
		t.Fatalf("recorded %d spans, want 2", len(spans))
	}
	ok, bad := spans[0], spans[1]
	if ok.Name() != "fetch GET" || ok.Status().Code == codes.Error {
		t.Fatalf("ok span = %s %v", ok.Name(), ok.Status())
	}
	found := false
	for _, kv := range ok.Attributes() {
		if kv.Key == attribute.Key("http.response.status_code") && kv.Value.AsInt64() == 200 {
			found = true
		}
	}
	if !found {
		t.Fatalf("status attribute missing: %v", ok.Attributes())
	}
	if bad.Status().Code != codes.Error {
		t.Fatalf("bad span status = %v", bad.Status())
	}
}

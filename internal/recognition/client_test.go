package recognition

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPRecognizer_Success(t *testing.T) {
	var gotReq recognizeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer k3y" {
			t.Errorf("Authorization = %q", auth)
		}
		json.NewDecoder(r.Body).Decode(&gotReq)
		fmt.Fprint(w, `{"intent":"order_status","confidence":0.87,"reply":"Your order is on its way"}`)
	}))
	defer srv.Close()

	r := NewHTTPRecognizer(HTTPConfig{
		Endpoint: srv.URL,
		APIKey:   "k3y",
		Timeout:  5 * time.Second,
		Logger:   testLogger(),
	})

	ev, err := r.Recognize(context.Background(), "where is my order", testSession())
	if err != nil {
		t.Fatal(err)
	}
	if gotReq.Text != "where is my order" {
		t.Errorf("request text = %q", gotReq.Text)
	}
	if gotReq.Session != "+15551112222" {
		t.Errorf("request session = %q", gotReq.Session)
	}
	if ev.Intent != "order_status" || ev.Confidence != 0.87 {
		t.Errorf("unexpected event: %+v", ev)
	}
	if ev.Text != "where is my order" {
		t.Errorf("event text = %q", ev.Text)
	}
}

func TestHTTPRecognizer_ClientErrorNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"empty text"}`)
	}))
	defer srv.Close()

	r := NewHTTPRecognizer(HTTPConfig{Endpoint: srv.URL, Timeout: 5 * time.Second, Logger: testLogger()})

	_, err := r.Recognize(context.Background(), "", testSession())
	if err == nil {
		t.Fatal("expected an error for HTTP 400")
	}
	if calls != 1 {
		t.Errorf("client errors must not be retried, got %d calls", calls)
	}
}

func TestHTTPRecognizer_ServerErrorRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"intent":"greeting","confidence":1}`)
	}))
	defer srv.Close()

	r := NewHTTPRecognizer(HTTPConfig{Endpoint: srv.URL, Timeout: 5 * time.Second, Logger: testLogger()})

	ev, err := r.Recognize(context.Background(), "hello", testSession())
	if err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("expected a retry after 503, got %d calls", calls)
	}
	if ev.Intent != "greeting" {
		t.Errorf("intent = %q", ev.Intent)
	}
}

func TestHTTPRecognizer_InvalidResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json")
	}))
	defer srv.Close()

	r := NewHTTPRecognizer(HTTPConfig{Endpoint: srv.URL, Timeout: 5 * time.Second, Logger: testLogger()})

	if _, err := r.Recognize(context.Background(), "hi", testSession()); err == nil {
		t.Fatal("expected a decode error")
	}
}

package stockapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	logx "stockmon/pkg/logx"
)

func newTestClient(url string) *Client {
	return New(Config{BaseURL: url, CityCode: "110"}, logx.Nop())
}

func TestFetchSumsBothCountFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("goodsId"); got != "977249178" {
			t.Errorf("unexpected goodsId %q", got)
		}
		if got := r.URL.Query().Get("cityCode"); got != "110" {
			t.Errorf("unexpected cityCode %q", got)
		}
		w.Write([]byte(`{
			"code": "0000",
			"data": {"bareMetal": {"modelsList": [
				{"articleAmount": 3, "articleAmountNew": 2, "MODEL_DESC": "M1", "COLOR_DESC": "Black", "TERM_PRICE": 5999},
				{"articleAmount": null, "articleAmountNew": 4, "MODEL_DESC": "M1", "COLOR_DESC": "White", "TERM_PRICE": "6999"},
				{"MODEL_DESC": "M2", "COLOR_DESC": "Blue"}
			]}}
		}`))
	}))
	defer srv.Close()

	r, err := newTestClient(srv.URL).Fetch(context.Background(), "977249178")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if r.TotalStock != 9 {
		t.Fatalf("expected total 9, got %d", r.TotalStock)
	}
	if len(r.Variants) != 3 {
		t.Fatalf("expected 3 variants, got %d", len(r.Variants))
	}
	if r.Variants[0].Stock != 5 || r.Variants[0].Price != "5999" {
		t.Fatalf("unexpected first variant: %+v", r.Variants[0])
	}
	if r.Variants[1].Stock != 4 || r.Variants[1].Price != "6999" {
		t.Fatalf("unexpected second variant: %+v", r.Variants[1])
	}
	if r.Variants[2].Stock != 0 {
		t.Fatalf("missing counts must read as zero: %+v", r.Variants[2])
	}
}

func TestFetchDegradedResponseIsZeroStock(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"error code", `{"code": "9999", "data": null}`},
		{"no data", `{"code": "0000"}`},
		{"no bare metal", `{"code": "0000", "data": {}}`},
		{"empty models", `{"code": "0000", "data": {"bareMetal": {"modelsList": []}}}`},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(tc.body))
		}))
		r, err := newTestClient(srv.URL).Fetch(context.Background(), "p1")
		srv.Close()
		if err != nil {
			t.Fatalf("%s: expected degraded reading, got error %v", tc.name, err)
		}
		if r.TotalStock != 0 || len(r.Variants) != 0 {
			t.Fatalf("%s: expected empty reading, got %+v", tc.name, r)
		}
	}
}

func TestFetchTransportFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Fetch(context.Background(), "p1")
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
	if fe.ProductID != "p1" {
		t.Fatalf("unexpected product in error: %q", fe.ProductID)
	}
}

func TestFetchMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Fetch(context.Background(), "p1")
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Timeout: 20 * time.Millisecond}, logx.Nop())
	_, err := c.Fetch(context.Background(), "p1")
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError on timeout, got %v", err)
	}
}

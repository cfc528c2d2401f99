package feedhist

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"BarFlow/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func TestFetchCandlesParsesColumns(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stock/candle" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotQuery = map[string]string{
			"symbol":     r.URL.Query().Get("symbol"),
			"resolution": r.URL.Query().Get("resolution"),
			"token":      r.URL.Query().Get("token"),
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"s": "ok",
			"t": []int64{1696946400, 1696946460},
			"o": []float64{450.10, 450.50},
			"h": []float64{450.60, 450.80},
			"l": []float64{450.00, 450.40},
			"c": []float64{450.50, 450.70},
			"v": []float64{150, 75},
		})
	}))
	defer srv.Close()

	src := New(srv.URL, "secret", time.Second, testLogger(t))
	bars, err := src.FetchCandles(context.Background(), "spy", "1min",
		time.Unix(1696946400, 0), time.Unix(1696946520, 0))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if gotQuery["symbol"] != "SPY" || gotQuery["resolution"] != "1" || gotQuery["token"] != "secret" {
		t.Fatalf("unexpected query params: %v", gotQuery)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	b := bars[0]
	if b.Symbol != "SPY" || b.Interval != "1min" {
		t.Fatalf("bad key fields: %+v", b)
	}
	if b.Open != 450.10 || b.High != 450.60 || b.Low != 450.00 || b.Close != 450.50 || b.Volume != 150 {
		t.Fatalf("bad OHLCV: %+v", b)
	}
	if !b.Bucket.Equal(time.Unix(1696946400, 0)) {
		t.Fatalf("bad bucket: %v", b.Bucket)
	}
}

func TestFetchCandlesNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"s":"no_data"}`))
	}))
	defer srv.Close()

	src := New(srv.URL, "k", time.Second, testLogger(t))
	bars, err := src.FetchCandles(context.Background(), "AAPL", "5min",
		time.Unix(100, 0), time.Unix(200, 0))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(bars) != 0 {
		t.Fatalf("expected no bars, got %d", len(bars))
	}
}

func TestFetchCandlesUnevenColumns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"s":"ok","t":[1,2],"o":[1.0],"h":[1.0,2.0],"l":[1.0,2.0],"c":[1.0,2.0],"v":[1,2]}`))
	}))
	defer srv.Close()

	src := New(srv.URL, "k", time.Second, testLogger(t))
	if _, err := src.FetchCandles(context.Background(), "AAPL", "1min",
		time.Unix(100, 0), time.Unix(200, 0)); err == nil {
		t.Fatal("expected error for uneven columns")
	}
}

func TestFetchCandlesRejectsUnknownInterval(t *testing.T) {
	src := New("http://localhost", "k", time.Second, testLogger(t))
	if _, err := src.FetchCandles(context.Background(), "AAPL", "2min",
		time.Unix(100, 0), time.Unix(200, 0)); err == nil {
		t.Fatal("expected error for unsupported interval")
	}
}

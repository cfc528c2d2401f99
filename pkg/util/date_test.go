package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestBucketStartMinute(t *testing.T) {
	ts := time.Date(2024, 1, 1, 9, 30, 45, 120000, time.UTC)
	got := BucketStart(ts, "1min")
	want := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestBucketStartUnknownIntervalFallsBackToMinute(t *testing.T) {
	ts := time.Date(2024, 1, 1, 9, 30, 45, 0, time.UTC)
	if got := BucketStart(ts, "3min"); got.Second() != 0 || got.Minute() != 30 {
		t.Fatalf("unexpected bucket %v", got)
	}
}

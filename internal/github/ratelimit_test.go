package github

import (
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestParseRateLimit(t *testing.T) {
	t.Run("parses valid headers", func(t *testing.T) {
		resetTime := time.Now().Add(10 * time.Minute).Unix()
		resp := &http.Response{
			Header: http.Header{
				"X-Ratelimit-Limit":     []string{"5000"},
				"X-Ratelimit-Remaining": []string{"42"},
				"X-Ratelimit-Reset":     []string{fmt.Sprintf("%d", resetTime)},
			},
		}

		info := ParseRateLimit(resp)
		if info == nil {
			t.Fatal("expected non-nil RateLimitInfo")
		}
		if info.Limit != 5000 {
			t.Errorf("expected Limit=5000, got %d", info.Limit)
		}
		if info.Remaining != 42 {
			t.Errorf("expected Remaining=42, got %d", info.Remaining)
		}
		if info.Reset.Unix() != resetTime {
			t.Errorf("expected Reset=%d, got %d", resetTime, info.Reset.Unix())
		}
	})

	t.Run("returns nil for nil response", func(t *testing.T) {
		info := ParseRateLimit(nil)
		if info != nil {
			t.Error("expected nil for nil response")
		}
	})

	t.Run("returns nil for missing headers", func(t *testing.T) {
		resp := &http.Response{
			Header: http.Header{},
		}
		info := ParseRateLimit(resp)
		if info != nil {
			t.Error("expected nil for missing headers")
		}
	})

	t.Run("handles partial headers", func(t *testing.T) {
		resp := &http.Response{
			Header: http.Header{
				"X-Ratelimit-Remaining": []string{"50"},
			},
		}
		info := ParseRateLimit(resp)
		if info == nil {
			t.Fatal("expected non-nil RateLimitInfo")
		}
		if info.Remaining != 50 {
			t.Errorf("expected Remaining=50, got %d", info.Remaining)
		}
	})
}

func TestLow(t *testing.T) {
	tests := []struct {
		name      string
		remaining int
		want      bool
	}{
		{"below threshold", 50, true},
		{"at threshold", 100, false},
		{"above threshold", 500, false},
		{"zero remaining", 0, true},
		{"just below threshold", 99, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := &RateLimitInfo{Remaining: tt.remaining}
			if got := info.Low(); got != tt.want {
				t.Errorf("Low() with remaining=%d: got %v, want %v",
					tt.remaining, got, tt.want)
			}
		})
	}

	t.Run("nil info is not low", func(t *testing.T) {
		var info *RateLimitInfo
		if info.Low() {
			t.Error("nil RateLimitInfo should not report low")
		}
	})
}

func TestWaitDuration(t *testing.T) {
	t.Run("future reset time", func(t *testing.T) {
		info := &RateLimitInfo{
			Reset: time.Now().Add(30 * time.Second),
		}
		d := info.WaitDuration()
		if d < 25*time.Second || d > 35*time.Second {
			t.Errorf("expected ~30s, got %s", d)
		}
	})

	t.Run("past reset time returns zero", func(t *testing.T) {
		info := &RateLimitInfo{
			Reset: time.Now().Add(-10 * time.Second),
		}
		d := info.WaitDuration()
		if d != 0 {
			t.Errorf("expected 0, got %s", d)
		}
	})

	t.Run("nil info returns zero", func(t *testing.T) {
		var info *RateLimitInfo
		d := info.WaitDuration()
		if d != 0 {
			t.Errorf("expected 0, got %s", d)
		}
	})
}

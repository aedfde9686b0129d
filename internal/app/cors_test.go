package app

import (
	"testing"
	"time"
)

func TestOriginAllowlist(t *testing.T) {
	allow := newOriginAllowlist([]string{
		"jadegdziechce.pl",
		"*.jadegdziechce.pl",
		"localhost:*",
	})

	cases := []struct {
		origin string
		want   bool
	}{
		{"https://jadegdziechce.pl", true},
		{"https://mapa.jadegdziechce.pl", true},
		{"http://localhost:3000", true},
		{"https://evil.pl", false},
		{"https://jadegdziechce.pl.evil.com", false},
		{"http://remotehost:3000", false},
		// Raw hosts without a scheme still match.
		{"jadegdziechce.pl", true},
	}
	for _, tc := range cases {
		if got := allow.Allow(tc.origin); got != tc.want {
			t.Errorf("Allow(%q) = %v, want %v", tc.origin, got, tc.want)
		}
	}
}

func TestParseTimezoneLocation(t *testing.T) {
	if _, err := parseTimezoneLocation("Europe/Warsaw"); err != nil {
		t.Fatalf("IANA zone rejected: %v", err)
	}
	loc, err := parseTimezoneLocation("+02:00")
	if err != nil {
		t.Fatalf("offset zone rejected: %v", err)
	}
	_, offset := time.Now().In(loc).Zone()
	if offset != 2*3600 {
		t.Errorf("offset = %d, want %d", offset, 2*3600)
	}
	if _, err := parseTimezoneLocation("Mars/Olympus"); err == nil {
		t.Error("expected error for unknown zone")
	}
}

func TestHumanizeDuration(t *testing.T) {
	if got := humanizeDuration(45 * time.Second); got != "45s" {
		t.Errorf("got %q", got)
	}
	if got := humanizeDuration(90 * time.Minute); got != "1h0m0s" {
		t.Errorf("got %q", got)
	}
}

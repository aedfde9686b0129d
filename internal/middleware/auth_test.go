package middleware

import "testing"

func TestNormalizeToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc.def.ghi":   "abc.def.ghi",
		"bearer abc.def.ghi":   "abc.def.ghi",
		"  Bearer abc.def.ghi": "abc.def.ghi",
		"abc.def.ghi":          "abc.def.ghi",
		"":                     "",
	}
	for raw, want := range cases {
		if got := NormalizeToken(raw); got != want {
			t.Errorf("NormalizeToken(%q) = %q, want %q", raw, got, want)
		}
	}
}

package main

import "testing"

func TestMaskAPIKey(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{"", "<redacted>"},
		{"short", "<redacted>"},
		{"abcdefghijk", "<redacted>"},
		{"abcdefghijkl", "abcd...ijkl"},
		{"0123456789abcdefXYZ", "0123...fXYZ"},
	}
	for _, tc := range tests {
		if got := maskAPIKey(tc.in); got != tc.want {
			t.Errorf("maskAPIKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

package valueobjects

import (
	"errors"
	"testing"
)

func TestNormalizeKennitala(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"120389-4569", "1203894569"},
		{"1203894569", "1203894569"},
		{" 120389 4569 ", "1203894569"},
	}
	for _, tc := range cases {
		got, err := NormalizeKennitala(tc.in)
		if err != nil {
			t.Fatalf("NormalizeKennitala(%q) failed: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("NormalizeKennitala(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeKennitalaRejectsMalformedInput(t *testing.T) {
	for _, in := range []string{"", "12038945", "120389456912", "120389-456a", "12.03.89"} {
		if _, err := NormalizeKennitala(in); !errors.Is(err, ErrInvalidKennitala) {
			t.Fatalf("NormalizeKennitala(%q) must fail with ErrInvalidKennitala, got %v", in, err)
		}
	}
}

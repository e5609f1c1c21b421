package audit

import (
	"strings"
	"testing"
)

func TestMaskKennitala(t *testing.T) {
	got := MaskKennitala("1203894569")
	if got != "120389-****" {
		t.Fatalf("MaskKennitala = %q, want %q", got, "120389-****")
	}
	if strings.Contains(got, "4569") {
		t.Fatalf("masked kennitala leaks the person part: %q", got)
	}
	if MaskKennitala("123") != "******-****" {
		t.Fatalf("short input must be fully masked")
	}
}

func TestMaskHash(t *testing.T) {
	hash := strings.Repeat("ab", 32)
	got := MaskHash(hash)
	if got != "abab…baba" {
		t.Fatalf("MaskHash = %q", got)
	}
	if len(MaskHash("short")) != len("short") {
		t.Fatalf("short digests are star-masked at full length")
	}
}

func TestMaskActor(t *testing.T) {
	if got := MaskActor("member-aaaa-bbbb"); got != "member-a…" {
		t.Fatalf("MaskActor = %q", got)
	}
	if got := MaskActor("short"); got != "short" {
		t.Fatalf("short uids pass through, got %q", got)
	}
}

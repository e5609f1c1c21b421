// Package audit holds the masking helpers shared by both services' audit
// logs. Audit details never carry a full kennitala, a raw token, or a full
// token hash.
package audit

import "strings"

// MaskKennitala renders the first six digits and masks the rest.
// Anything shorter than six digits is fully masked.
func MaskKennitala(kennitala string) string {
	kennitala = strings.TrimSpace(kennitala)
	if len(kennitala) < 6 {
		return "******-****"
	}
	return kennitala[:6] + "-****"
}

// MaskHash keeps the first and last four characters of a digest.
func MaskHash(hash string) string {
	hash = strings.TrimSpace(hash)
	if len(hash) <= 8 {
		return strings.Repeat("*", len(hash))
	}
	return hash[:4] + "…" + hash[len(hash)-4:]
}

// MaskActor renders an audit actor from a member UID. UIDs are opaque and
// may be long; keep a recognisable prefix only.
func MaskActor(memberUID string) string {
	memberUID = strings.TrimSpace(memberUID)
	if len(memberUID) <= 8 {
		return memberUID
	}
	return memberUID[:8] + "…"
}

// Package eventsservice implements the Events side of the voting subsystem.
//
// The module gates one-time voting token issuance on verified identity,
// membership, and election eligibility, registers token hashes with the
// Elections service over S2S, and exposes the member/admin reset surface.
// Business rules live in application/domain layers; infrastructure stays
// behind ports and adapters.
package eventsservice

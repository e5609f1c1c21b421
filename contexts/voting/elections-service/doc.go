// Package electionsservice implements the Elections side of the voting
// subsystem: the election aggregate and its state machine, S2S token
// registration, anonymous ballot recording, tabulation (plurality, approval,
// STV, nomination committee), and post-election anonymisation.
package electionsservice

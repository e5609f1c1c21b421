package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RequestTokenRequest struct {
	ElectionID string `json:"election_id"`
}

type RequestTokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

type MyStatusResponse struct {
	HasToken  bool   `json:"has_token"`
	Used      bool   `json:"used"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

type ResetRequest struct {
	Scope      string `json:"scope"`
	ElectionID string `json:"election_id,omitempty"`
	Confirm    string `json:"confirm,omitempty"`
}

type ResetResponse struct {
	TokensDeleted int64 `json:"tokens_deleted"`
}

type TokenStatsResponse struct {
	ElectionID string `json:"election_id"`
	Issued     int64  `json:"issued"`
	Used       int64  `json:"used"`
}

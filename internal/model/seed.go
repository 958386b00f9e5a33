package model

// SeedStatusResponse represents response for GET /seed/status and POST /seed/unlock
type SeedStatusResponse struct {
	Generating bool `json:"generating"`
	Available  bool `json:"available"`
	HasWallet  bool `json:"hasWallet"`
}

// SeedPhraseResponse represents response for GET /seed/phrase
type SeedPhraseResponse struct {
	Mnemonic string `json:"mnemonic"`
}

// RevokeResponse represents response for POST /seed/revoke
type RevokeResponse struct {
	Revoked bool `json:"revoked"`
}

package model

// CWTFile represents .cwt file structure
type CWTFile struct {
	Network    string `json:"network"`
	Address    string `json:"address"`
	QR         string `json:"QR"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	CipherText string `json:"cipherText"`
}

// WalletData represents decrypted wallet data
type WalletData struct {
	Mnemonic  []byte `json:"mnemonic"` // BIP-39 phrase (stored as base64 in JSON)
	CreatedAt string `json:"createdAt"`
}

// WalletResponse represents response for GET /wallet
type WalletResponse struct {
	Network string `json:"network"`
	Address string `json:"address"`
	QR      string `json:"QR"`
}

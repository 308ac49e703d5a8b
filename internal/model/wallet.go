package model

// KeyFile represents the encrypted .skw key file structure
type KeyFile struct {
	Network    string `json:"network"`
	Address    string `json:"address"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	CipherText string `json:"cipherText"`
}

// SigningKeyData represents the decrypted key file payload.
// PrivateKey is the full 64-byte ed25519 signing key (base64 in JSON).
type SigningKeyData struct {
	PrivateKey []byte `json:"privateKey"`
	CreatedAt  string `json:"createdAt"`
}

package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// MasterKeySize is the required master key length (AES-256).
const MasterKeySize = 32

// secretSize is the raw entropy of a generated signing secret. 32 bytes
// gives 256 bits, sized for use as an HMAC-SHA256 key.
const secretSize = 32

// previewEdge is how many characters of the encoded secret survive on
// each side of the preview ellipsis.
const previewEdge = 4

var ErrInvalidMasterKey = errors.New("vault master key must be 32 bytes")

// Vault encrypts and decrypts per-service signing secrets with
// AES-256-GCM under a process-wide master key.
type Vault struct {
	aead cipher.AEAD
}

// New builds a vault from a raw 32-byte master key.
func New(masterKey []byte) (*Vault, error) {
	if len(masterKey) != MasterKeySize {
		return nil, ErrInvalidMasterKey
	}
	block, err := aes.NewCipher(masterKey)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return &Vault{aead: aead}, nil
}

// GenerateSecret produces a fresh signing secret and its display
// preview. The preview is derived once here and persisted alongside the
// ciphertext; it is never recomputed from ciphertext on read.
func (v *Vault) GenerateSecret() (secret, preview string, err error) {
	raw := make([]byte, secretSize)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("generate secret: %w", err)
	}
	secret = base64.RawURLEncoding.EncodeToString(raw)
	return secret, Preview(secret), nil
}

// Preview derives the safe display form of a secret: its first and last
// few characters around an ellipsis. Far too short to reconstruct the
// secret.
func Preview(secret string) string {
	if len(secret) <= previewEdge*2 {
		return secret
	}
	return secret[:previewEdge] + "..." + secret[len(secret)-previewEdge:]
}

// Encrypt seals a plaintext secret and returns a base64-encoded
// nonce||ciphertext payload for storage.
func (v *Vault) Encrypt(secret string) (string, error) {
	// GCM requires a unique nonce per encryption under the same key.
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	ciphertext := v.aead.Seal(nil, nonce, []byte(secret), nil)
	payload := append(nonce, ciphertext...)
	return base64.RawStdEncoding.EncodeToString(payload), nil
}

// Decrypt opens a previously encrypted secret. Failure here means the
// ciphertext was tampered with or the master key is wrong; callers must
// treat it as a fatal configuration error for that service, never as a
// fallback.
func (v *Vault) Decrypt(encrypted string) (string, error) {
	payload, err := base64.RawStdEncoding.DecodeString(encrypted)
	if err != nil {
		return "", fmt.Errorf("decode secret payload: %w", err)
	}
	nonceSize := v.aead.NonceSize()
	if len(payload) < nonceSize {
		return "", errors.New("secret payload is too short")
	}
	nonce := payload[:nonceSize]
	ciphertext := payload[nonceSize:]
	plaintext, err := v.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt secret: %w", err)
	}
	return string(plaintext), nil
}

// Package credentials decrypts the exchange API keys stored on accounts.
// Keys are sealed with AES-256-GCM under a process-level master key; a
// missing or undecryptable credential is a typed condition the caller must
// treat as "do not build a gateway", never as an empty key pair.
package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	storemodel "github.com/netoalmanca/crypto-trader/internal/store/model"
)

// ErrUnavailable means the account has no usable credentials: never
// configured, or sealed under a key this process does not hold.
var ErrUnavailable = errors.New("credentials unavailable")

type Pair struct {
	APIKey    string
	APISecret string
}

type Keeper struct {
	aead cipher.AEAD
}

// NewKeeper builds a keeper from a base64-encoded 32-byte master key.
func NewKeeper(masterKey string) (*Keeper, error) {
	raw, err := base64.StdEncoding.DecodeString(masterKey)
	if err != nil {
		return nil, fmt.Errorf("credentials: master key is not base64: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("credentials: master key must be 32 bytes, got %d", len(raw))
	}
	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Keeper{aead: aead}, nil
}

// Seal encrypts a plaintext secret for storage.
func (k *Keeper) Seal(plaintext string) (string, error) {
	nonce := make([]byte, k.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := k.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (k *Keeper) open(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: malformed ciphertext", ErrUnavailable)
	}
	if len(raw) < k.aead.NonceSize() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrUnavailable)
	}
	nonce, sealed := raw[:k.aead.NonceSize()], raw[k.aead.NonceSize():]
	plain, err := k.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: decryption failed", ErrUnavailable)
	}
	return string(plain), nil
}

// ForAccount returns the decrypted key pair for an account, or
// ErrUnavailable when the account cannot trade.
func (k *Keeper) ForAccount(acct storemodel.AccountModel) (Pair, error) {
	if acct.APIKeyEnc == "" || acct.APISecretEnc == "" {
		return Pair{}, fmt.Errorf("%w: account %q has no API keys", ErrUnavailable, acct.Name)
	}
	key, err := k.open(acct.APIKeyEnc)
	if err != nil {
		return Pair{}, err
	}
	secret, err := k.open(acct.APISecretEnc)
	if err != nil {
		return Pair{}, err
	}
	return Pair{APIKey: key, APISecret: secret}, nil
}

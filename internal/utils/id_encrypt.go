package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// PlainID renders a row id without obfuscation. Used when no AES key
// is configured.
func PlainID(id uint) string {
	return fmt.Sprintf("%d", id)
}

// EncryptID obfuscates a numeric row id for public, unauthenticated
// surfaces (the mechanic directory) so ids are not enumerable.
func EncryptID(id uint, key string) (string, error) {
	plaintext := []byte(fmt.Sprintf("%d", id))

	k := []byte(key)
	if len(k) != 16 && len(k) != 24 && len(k) != 32 {
		return "", fmt.Errorf("invalid key length: %d (must be 16/24/32)", len(k))
	}

	block, err := aes.NewCipher(k)
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, aes.BlockSize+len(plaintext))

	// random IV, required for CFB
	iv := ciphertext[:aes.BlockSize]
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to read random iv: %w", err)
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], plaintext)

	return base64.RawURLEncoding.EncodeToString(ciphertext), nil
}

func DecryptID(enc string, key string) (uint, error) {
	if enc == "" {
		return 0, fmt.Errorf("empty encrypted id")
	}

	ciphertext, err := base64.RawURLEncoding.DecodeString(enc)
	if err != nil {
		// fallback: plain numeric id ("6" etc)
		var idPlain uint
		if _, err2 := fmt.Sscanf(enc, "%d", &idPlain); err2 == nil {
			return idPlain, nil
		}
		return 0, fmt.Errorf("decode base64 failed: %w", err)
	}

	if len(ciphertext) < aes.BlockSize {
		// could be a plain number that happened to decode as base64
		var idPlain uint
		if _, err2 := fmt.Sscanf(enc, "%d", &idPlain); err2 == nil {
			return idPlain, nil
		}
		return 0, fmt.Errorf("ciphertext too short: len=%d", len(ciphertext))
	}

	k := []byte(key)
	if len(k) != 16 && len(k) != 24 && len(k) != 32 {
		return 0, fmt.Errorf("invalid key length: %d (must be 16/24/32)", len(k))
	}

	block, err := aes.NewCipher(k)
	if err != nil {
		return 0, err
	}

	iv := ciphertext[:aes.BlockSize]
	body := ciphertext[aes.BlockSize:]

	plaintext := make([]byte, len(body))
	stream := cipher.NewCFBDecrypter(block, iv)
	stream.XORKeyStream(plaintext, body)

	var id uint
	if _, err := fmt.Sscanf(string(plaintext), "%d", &id); err != nil {
		return 0, fmt.Errorf("parse id failed: %w", err)
	}

	return id, nil
}

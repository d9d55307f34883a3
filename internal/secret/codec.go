// Package secret encrypts third-party API keys stored on bot records.
//
// Ciphertexts use AES-256-CBC with PKCS#7 padding and are stored as
// {iv, encryptedData} hex pairs, the format the bot runtime decrypts.
// Every Encrypt call draws a fresh random IV.
package secret

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

var ErrDecryption = errors.New("decryption failed")

// Encrypted is the stored form of a secret.
type Encrypted struct {
	IV            string `bson:"iv" json:"iv"`
	EncryptedData string `bson:"encryptedData" json:"encryptedData"`
}

func (e Encrypted) IsZero() bool {
	return e.IV == "" && e.EncryptedData == ""
}

type Codec struct {
	block cipher.Block
}

// NewCodec builds a codec from a hex-encoded 32 byte key.
func NewCodec(keyHex string) (*Codec, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("decoding key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	return &Codec{block: block}, nil
}

func (c *Codec) Encrypt(plaintext string) (Encrypted, error) {
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return Encrypted{}, fmt.Errorf("generating iv: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(ciphertext, padded)

	return Encrypted{
		IV:            hex.EncodeToString(iv),
		EncryptedData: hex.EncodeToString(ciphertext),
	}, nil
}

func (c *Codec) Decrypt(enc Encrypted) (string, error) {
	iv, err := hex.DecodeString(enc.IV)
	if err != nil {
		return "", fmt.Errorf("%w: iv is not hex", ErrDecryption)
	}
	if len(iv) != aes.BlockSize {
		return "", fmt.Errorf("%w: iv must be %d bytes", ErrDecryption, aes.BlockSize)
	}
	ciphertext, err := hex.DecodeString(enc.EncryptedData)
	if err != nil {
		return "", fmt.Errorf("%w: ciphertext is not hex", ErrDecryption)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext is not a multiple of the block size", ErrDecryption)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	return string(unpadded), nil
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 {
		return nil, errors.New("pkcs7: empty input")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, errors.New("pkcs7: invalid padding")
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, errors.New("pkcs7: invalid padding")
		}
	}
	return b[:len(b)-n], nil
}

package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"golang.org/x/crypto/argon2"
	"gopkg.in/go-playground/validator.v9"
	"io"
)

// keySalt is constant so the same secret derives the same key.
var keySalt = []byte("fitlife-local-storage")

type Encryptor struct {
	Gsm cipher.AEAD `validate:"required"`
}

var validate = validator.New()

func NewEncryptor(secret string) *Encryptor {
	if secret == "" {
		panic("Secret is required to create Encryptor")
	}

	encryptor := &Encryptor{
		Gsm: generateCipher(secret),
	}

	if err := validate.Struct(encryptor); err != nil {
		panic(err.Error())
	}
	return encryptor
}

func generateCipher(secret string) cipher.AEAD {
	block, err := aes.NewCipher(deriveKey(secret))
	if err != nil {
		panic(err.Error())
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		panic(err.Error())
	}
	return gcm
}

func deriveKey(secret string) []byte {
	return argon2.IDKey([]byte(secret), keySalt, 1, 64*1024, 2, 32)
}

func (encryptor *Encryptor) EncryptFact(fact string) (string, error) {
	nonce := make([]byte, encryptor.Gsm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	encryptedText := encryptor.Gsm.Seal(nonce, nonce, []byte(fact), nil)
	return hex.EncodeToString(encryptedText), nil
}

func (encryptor *Encryptor) DecryptFact(encryptedFact string) (string, error) {
	encryptedBytes, err := hex.DecodeString(encryptedFact)
	if err != nil {
		return "", err
	}
	nonceSize := encryptor.Gsm.NonceSize()
	if len(encryptedBytes) < nonceSize {
		return "", errors.New("encrypted fact is shorter than nonce")
	}
	nonce, ciphertext := encryptedBytes[:nonceSize], encryptedBytes[nonceSize:]
	plaintext, err := encryptor.Gsm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

package credstore

import "errors"

var (
	// ErrInvalidKey indicates the encryption key is not 32 bytes.
	ErrInvalidKey = errors.New("credstore.invalid_key")

	// ErrEncryptionFailed indicates a credential value could not be encrypted.
	ErrEncryptionFailed = errors.New("credstore.encryption_failed")

	// ErrDecryptionFailed indicates a stored credential could not be decrypted.
	ErrDecryptionFailed = errors.New("credstore.decryption_failed")

	// ErrInvalidCiphertext indicates the stored ciphertext is malformed.
	ErrInvalidCiphertext = errors.New("credstore.invalid_ciphertext")
)

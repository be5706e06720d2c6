package crypto

//go:generate mockgen -source=interfaces.go -destination=../mock/sealer_mock.go -package=mock

// Sealer protects backup artifacts with a user passphrase. It knows nothing
// about artifacts themselves: it turns plaintext bytes into an envelope and
// back.
//
// Envelope layout (before base64):
//
//	salt (16 bytes) ‖ nonce (12 bytes) ‖ AES-256-GCM ciphertext
//
// The key is derived from the passphrase and the salt with Argon2id, so the
// same passphrase never yields the same key twice.
type Sealer interface {
	// Seal encrypts plaintext with a key derived from passphrase and returns
	// the base64 (standard encoding) envelope. An empty passphrase is an
	// error.
	Seal(plaintext []byte, passphrase string) ([]byte, error)

	// Open reverses Seal. Any failure (bad encoding, truncated envelope,
	// wrong passphrase, tampered ciphertext) unwraps to [ErrOpen].
	Open(envelope []byte, passphrase string) ([]byte, error)
}

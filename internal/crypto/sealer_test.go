package crypto

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
)

// newTestSealer keeps Argon2id cheap so the suite stays fast.
func newTestSealer() *sealer {
	s := NewSealer().(*sealer)
	s.argonMemory = 8 * 1024
	s.argonThreads = 1
	return s
}

func TestSeal_RoundTrip(t *testing.T) {
	s := newTestSealer()
	plaintext := []byte(`{"meta":{"magic":"SPENDLYTICS_BACKUP"}}`)

	envelope, err := s.Seal(plaintext, "correct horse battery staple")
	if err != nil {
		t.Fatalf("Seal error: %v", err)
	}
	if bytes.Contains(envelope, []byte("SPENDLYTICS_BACKUP")) {
		t.Fatalf("envelope leaks plaintext")
	}

	got, err := s.Open(envelope, "correct horse battery staple")
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("Open = %q, want %q", got, plaintext)
	}
}

func TestSeal_EnvelopeLayout(t *testing.T) {
	s := newTestSealer()
	plaintext := []byte("twelve bytes")

	envelope, err := s.Seal(plaintext, "pw")
	if err != nil {
		t.Fatalf("Seal error: %v", err)
	}

	blob, err := base64.StdEncoding.DecodeString(string(envelope))
	if err != nil {
		t.Fatalf("envelope is not base64: %v", err)
	}

	// salt + nonce + ciphertext + 16-byte GCM tag
	want := saltSize + nonceSize + len(plaintext) + 16
	if len(blob) != want {
		t.Fatalf("blob length = %d, want %d", len(blob), want)
	}
}

func TestSeal_FreshSaltAndNonce(t *testing.T) {
	s := newTestSealer()

	e1, err := s.Seal([]byte("same"), "pw")
	if err != nil {
		t.Fatalf("Seal error: %v", err)
	}
	e2, err := s.Seal([]byte("same"), "pw")
	if err != nil {
		t.Fatalf("Seal error: %v", err)
	}

	if bytes.Equal(e1, e2) {
		t.Fatalf("expected envelopes to differ for the same input")
	}
}

func TestOpen_WrongPassphrase(t *testing.T) {
	s := newTestSealer()

	envelope, err := s.Seal([]byte("secret"), "right")
	if err != nil {
		t.Fatalf("Seal error: %v", err)
	}

	_, err = s.Open(envelope, "wrong")
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("Open error = %v, want ErrOpen", err)
	}
}

func TestOpen_Tampered(t *testing.T) {
	s := newTestSealer()

	envelope, err := s.Seal([]byte("secret data"), "pw")
	if err != nil {
		t.Fatalf("Seal error: %v", err)
	}

	blob, _ := base64.StdEncoding.DecodeString(string(envelope))
	blob[len(blob)-1] ^= 0x01
	tampered := []byte(base64.StdEncoding.EncodeToString(blob))

	if _, err = s.Open(tampered, "pw"); !errors.Is(err, ErrOpen) {
		t.Fatalf("Open error = %v, want ErrOpen", err)
	}
}

func TestOpen_Malformed(t *testing.T) {
	s := newTestSealer()

	tests := []struct {
		name     string
		envelope []byte
	}{
		{name: "not base64", envelope: []byte("{not base64}")},
		{name: "too short", envelope: []byte(base64.StdEncoding.EncodeToString([]byte("short")))},
		{name: "empty", envelope: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Open(tt.envelope, "pw"); !errors.Is(err, ErrOpen) {
				t.Fatalf("Open error = %v, want ErrOpen", err)
			}
		})
	}
}

func TestOpen_TrailingNewline(t *testing.T) {
	s := newTestSealer()

	envelope, err := s.Seal([]byte("data"), "pw")
	if err != nil {
		t.Fatalf("Seal error: %v", err)
	}

	got, err := s.Open(append(envelope, '\n'), "pw")
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if string(got) != "data" {
		t.Fatalf("Open = %q, want %q", got, "data")
	}
}

func TestEmptyPassphrase(t *testing.T) {
	s := newTestSealer()

	if _, err := s.Seal([]byte("x"), ""); !errors.Is(err, ErrEmptyPassphrase) {
		t.Fatalf("Seal error = %v, want ErrEmptyPassphrase", err)
	}
	if _, err := s.Open([]byte("x"), ""); !errors.Is(err, ErrEmptyPassphrase) {
		t.Fatalf("Open error = %v, want ErrEmptyPassphrase", err)
	}
}

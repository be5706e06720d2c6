// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
)

func TestChecksum_KnownValue(t *testing.T) {
	// sha256("abc")
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"

	if got := Checksum([]byte("abc")); got != want {
		t.Fatalf("unexpected checksum\nwant: %s\ngot:  %s", want, got)
	}
}

func TestChecksum_Deterministic(t *testing.T) {
	data := []byte(`{"remoteCollections":{},"preferences":{}}`)

	if Checksum(data) != Checksum(data) {
		t.Fatal("checksum must be deterministic for the same input")
	}
}

func TestChecksum_SingleByteChange(t *testing.T) {
	a := []byte(`{"amount":"10.00"}`)
	b := []byte(`{"amount":"10.01"}`)

	if Checksum(a) == Checksum(b) {
		t.Fatal("different payloads must produce different checksums")
	}
}

func TestChecksum_Length(t *testing.T) {
	got := Checksum(nil)
	if len(got) != hex.EncodedLen(sha256.Size) {
		t.Fatalf("expected %d hex chars, got %d", hex.EncodedLen(sha256.Size), len(got))
	}
}

func TestChecksumEqual(t *testing.T) {
	sum := Checksum([]byte("payload"))

	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"same", sum, sum, true},
		{"upper case", sum, strings.ToUpper(sum), true},
		{"different", sum, Checksum([]byte("other")), false},
		{"empty", sum, "", false},
		{"not hex", "zz", sum, false},
		{"short", "abcd", "abcd", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChecksumEqual(tt.a, tt.b); got != tt.want {
				t.Errorf("ChecksumEqual(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

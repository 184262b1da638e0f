// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package config

import (
	"errors"
	"testing"
)

func TestNewCredentialEncryptor_EmptySecret(t *testing.T) {
	if _, err := NewCredentialEncryptor(""); !errors.Is(err, ErrEmptySecret) {
		t.Errorf("NewCredentialEncryptor(\"\") error = %v, want ErrEmptySecret", err)
	}
}

func TestCredentialEncryptor_RoundTrip(t *testing.T) {
	enc, err := NewCredentialEncryptor("a-long-enough-encryption-secret")
	if err != nil {
		t.Fatalf("NewCredentialEncryptor: %v", err)
	}

	tokens := []string{"x", "EAAGm0PX4ZCpsBAKZC8token", "token with spaces and ünicode"}
	for _, token := range tokens {
		ct, err := enc.Encrypt(token)
		if err != nil {
			t.Fatalf("Encrypt(%q): %v", token, err)
		}
		if ct == token {
			t.Errorf("ciphertext equals plaintext for %q", token)
		}
		pt, err := enc.Decrypt(ct)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if pt != token {
			t.Errorf("round trip = %q, want %q", pt, token)
		}
	}
}

func TestCredentialEncryptor_UniqueNonce(t *testing.T) {
	enc, _ := NewCredentialEncryptor("secret-one-secret-one")
	a, _ := enc.Encrypt("same")
	b, _ := enc.Encrypt("same")
	if a == b {
		t.Error("two encryptions of the same plaintext produced identical ciphertext")
	}
}

func TestCredentialEncryptor_WrongSecret(t *testing.T) {
	enc1, _ := NewCredentialEncryptor("secret-one-secret-one")
	enc2, _ := NewCredentialEncryptor("secret-two-secret-two")

	ct, err := enc1.Encrypt("token")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := enc2.Decrypt(ct); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("Decrypt with wrong secret error = %v, want ErrDecryptionFailed", err)
	}
}

func TestCredentialEncryptor_DecryptErrors(t *testing.T) {
	enc, _ := NewCredentialEncryptor("secret-one-secret-one")

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"empty", "", ErrEmptyCiphertext},
		{"not base64", "!!!", ErrInvalidCiphertext},
		{"too short", "AAAA", ErrCiphertextTooShort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := enc.Decrypt(tt.input); !errors.Is(err, tt.wantErr) {
				t.Errorf("Decrypt(%q) error = %v, want %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestMaskCredential(t *testing.T) {
	tests := map[string]string{
		"":              "",
		"abc":           "****",
		"EAAGtoken1234": "****...1234",
	}
	for in, want := range tests {
		if got := MaskCredential(in); got != want {
			t.Errorf("MaskCredential(%q) = %q, want %q", in, got, want)
		}
	}
}

// Package certswap locates PEM-armored certificates and private keys inside
// arbitrary files and supports replacing them in place, byte for byte,
// without disturbing surrounding content.
package certswap

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"strings"
)

// normalizeKey converts non-standard private key representations to their
// canonical Go form. Currently this dereferences *ed25519.PrivateKey
// (returned by ssh.ParseRawPrivateKey) to the value type ed25519.PrivateKey,
// ensuring downstream type switches only need one case.
func normalizeKey(key crypto.PrivateKey) crypto.PrivateKey {
	if ptr, ok := key.(*ed25519.PrivateKey); ok {
		return *ptr
	}
	return key
}

// DefaultPasswords returns the list of passwords tried by default when
// decrypting password-protected private-key blocks. Returns a fresh copy
// each call.
func DefaultPasswords() []string {
	return []string{"", "password", "changeit", "keypassword"}
}

// CertToPEM encodes a certificate as PEM. Re-encoding a certificate parsed
// from PEM yields byte-identical armor.
func CertToPEM(cert *x509.Certificate) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE",
		Bytes: cert.Raw,
	})
}

// MarshalPrivateKeyToPEM marshals a private key to PKCS#8 PEM format.
// Supports ECDSA, RSA, and Ed25519 keys.
func MarshalPrivateKeyToPEM(key crypto.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(normalizeKey(key))
	if err != nil {
		return nil, fmt.Errorf("marshaling private key to PKCS#8: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{
		Type:  "PRIVATE KEY",
		Bytes: der,
	}), nil
}

// GetPublicKey extracts the public key from a private key via crypto.Signer.
func GetPublicKey(priv crypto.PrivateKey) (crypto.PublicKey, error) {
	if signer, ok := priv.(crypto.Signer); ok {
		return signer.Public(), nil
	}
	return nil, fmt.Errorf("unsupported private key type: %T", priv)
}

// PublicKeysEqual reports whether two public keys are equal. Uses the Equal
// method available on all standard public key types, which handles
// cross-type mismatches by returning false.
func PublicKeysEqual(a, b crypto.PublicKey) (bool, error) {
	type equalKey interface {
		Equal(crypto.PublicKey) bool
	}
	eq, ok := a.(equalKey)
	if !ok {
		return false, fmt.Errorf("unsupported public key type: %T", a)
	}
	return eq.Equal(b), nil
}

// KeyMatchesCert reports whether a private key corresponds to the public key
// in a certificate. The comparison uses public components only; two
// encodings of the same key pair match regardless of private material
// representation.
func KeyMatchesCert(priv crypto.PrivateKey, cert *x509.Certificate) (bool, error) {
	pub, err := GetPublicKey(priv)
	if err != nil {
		return false, err
	}
	return PublicKeysEqual(pub, cert.PublicKey)
}

// KeyAlgorithmName returns a human-readable name for a private key's algorithm.
func KeyAlgorithmName(key crypto.PrivateKey) string {
	switch key.(type) {
	case *ecdsa.PrivateKey:
		return "ECDSA"
	case *rsa.PrivateKey:
		return "RSA"
	case ed25519.PrivateKey, *ed25519.PrivateKey:
		return "Ed25519"
	default:
		return "unknown"
	}
}

// CertFingerprint returns the SHA-256 fingerprint of a certificate as a
// lowercase hex string.
func CertFingerprint(cert *x509.Certificate) string {
	hash := sha256.Sum256(cert.Raw)
	return hex.EncodeToString(hash[:])
}

// ColonHex formats a byte slice as colon-separated lowercase hex.
func ColonHex(b []byte) string {
	h := hex.EncodeToString(b)
	parts := make([]string, 0, len(h)/2)
	for i := 0; i < len(h); i += 2 {
		end := min(i+2, len(h))
		parts = append(parts, h[i:end])
	}
	return strings.Join(parts, ":")
}

// IsPEM returns true if the data appears to contain PEM-encoded content.
func IsPEM(data []byte) bool {
	return bytes.Contains(data, []byte("-----BEGIN"))
}

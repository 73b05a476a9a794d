package internal

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sensiblebit/certswap"
)

// testPair holds a self-signed certificate and its private key in both
// parsed and PEM form.
type testPair struct {
	cert    *x509.Certificate
	certPEM []byte
	key     *ecdsa.PrivateKey
	keyPEM  []byte
}

var testSerial int64 = 1000

// newPair generates a self-signed ECDSA certificate with the given common
// name, plus its PKCS#8 key PEM.
func newPair(t *testing.T, cn string) testPair {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	testSerial++
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(testSerial),
		Subject:      pkix.Name{CommonName: cn, Organization: []string{"TestOrg"}},
		NotBefore:    time.Now().Add(-1 * time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parse certificate: %v", err)
	}
	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	return testPair{
		cert:    cert,
		certPEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		key:     key,
		keyPEM:  pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}),
	}
}

// writeFile writes content into dir under name and returns the full path.
func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir for %s: %v", name, err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// parseObjects parses a file's content into PKI objects, failing the test on
// error.
func parseObjects(t *testing.T, path string, content []byte) []certswap.PKIObject {
	t.Helper()
	objs, err := certswap.ParsePKIObjects(path, content, nil)
	if err != nil {
		t.Fatalf("ParsePKIObjects(%s): %v", path, err)
	}
	return objs
}

// parsedKey wraps a pair's key PEM in a *certswap.PrivateKey with a locator
// pointing at the given path.
func parsedKey(t *testing.T, path string, pair testPair) *certswap.PrivateKey {
	t.Helper()
	objs := parseObjects(t, path, pair.keyPEM)
	if len(objs) != 1 {
		t.Fatalf("objects in key PEM = %d, want 1", len(objs))
	}
	key, ok := objs[0].(*certswap.PrivateKey)
	if !ok {
		t.Fatalf("object type = %T, want *PrivateKey", objs[0])
	}
	return key
}

// parsedCert wraps a pair's cert PEM in a *certswap.Certificate with a
// locator pointing at the given path.
func parsedCert(t *testing.T, path string, pair testPair) *certswap.Certificate {
	t.Helper()
	objs := parseObjects(t, path, pair.certPEM)
	if len(objs) != 1 {
		t.Fatalf("objects in cert PEM = %d, want 1", len(objs))
	}
	cert, ok := objs[0].(*certswap.Certificate)
	if !ok {
		t.Fatalf("object type = %T, want *Certificate", objs[0])
	}
	return cert
}

package certswap

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"
)

// testPair holds a self-signed certificate and its private key in both
// parsed and PEM form.
type testPair struct {
	cert    *x509.Certificate
	certPEM []byte
	key     any
	keyPEM  []byte
}

var testSerial int64 = 1

// newECDSAPair generates a self-signed ECDSA certificate with the given
// common name, plus its PKCS#8 key PEM.
func newECDSAPair(t *testing.T, cn string) testPair {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate ECDSA key: %v", err)
	}
	return selfSign(t, cn, key, &key.PublicKey)
}

// newRSAPair generates a self-signed RSA certificate with the given common
// name, plus its PKCS#8 key PEM.
func newRSAPair(t *testing.T, cn string) testPair {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate RSA key: %v", err)
	}
	return selfSign(t, cn, key, &key.PublicKey)
}

func selfSign(t *testing.T, cn string, key any, pub any) testPair {
	t.Helper()
	testSerial++
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(testSerial),
		Subject:      pkix.Name{CommonName: cn, Organization: []string{"TestOrg"}},
		NotBefore:    time.Now().Add(-1 * time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, pub, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parse certificate: %v", err)
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})

	return testPair{cert: cert, certPEM: certPEM, key: key, keyPEM: keyPEM}
}

package internal

import (
	"fmt"
	"os"

	"github.com/sensiblebit/certswap"
)

// LoadReplacementCert parses the operator-supplied certificate file and
// selects the unique certificate, optionally narrowed by common name.
// Any failure here is fatal to the run: the replacement source must be valid.
func LoadReplacementCert(path, commonName string, passwords []string) (*certswap.Certificate, error) {
	objs, err := parseSourceFile(path, passwords)
	if err != nil {
		return nil, err
	}
	cert, err := ChooseCertificate(objs, commonName)
	if err != nil {
		return nil, fmt.Errorf("selecting replacement certificate from %s: %w", path, err)
	}
	return cert, nil
}

// LoadReplacementKey parses the operator-supplied key file and selects the
// unique private key pairing with the replacement certificate.
func LoadReplacementKey(path string, cert *certswap.Certificate, passwords []string) (*certswap.PrivateKey, error) {
	objs, err := parseSourceFile(path, passwords)
	if err != nil {
		return nil, err
	}
	key, err := ChoosePrivateKey(objs, cert)
	if err != nil {
		return nil, fmt.Errorf("selecting replacement private key from %s: %w", path, err)
	}
	return key, nil
}

func parseSourceFile(path string, passwords []string) ([]certswap.PKIObject, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return certswap.ParsePKIObjects(path, data, passwords)
}

package internal

import (
	"fmt"

	"github.com/sensiblebit/certswap"
)

// AmbiguousMatchError reports that a selection required exactly one
// candidate but found zero or several. Ambiguity is never resolved by
// guessing: picking the wrong object here would corrupt unrelated
// certificates downstream.
type AmbiguousMatchError struct {
	What       string // "certificate" or "private key"
	CommonName string // selection context, may be empty
	Count      int
}

func (e *AmbiguousMatchError) Error() string {
	if e.CommonName != "" {
		return fmt.Sprintf("expected exactly one %s for common name %q, found %d", e.What, e.CommonName, e.Count)
	}
	return fmt.Sprintf("expected exactly one %s, found %d (provide a common name to disambiguate)", e.What, e.Count)
}

// ChooseCertificate selects the unique certificate among parsed objects.
// With an empty commonName the pool must contain exactly one certificate;
// otherwise exactly one certificate whose subject common name is byte-equal
// to commonName. Anything else fails with *AmbiguousMatchError.
func ChooseCertificate(objs []certswap.PKIObject, commonName string) (*certswap.Certificate, error) {
	var certs []*certswap.Certificate
	for _, obj := range objs {
		cert, ok := obj.(*certswap.Certificate)
		if !ok {
			continue
		}
		if commonName == "" || cert.CommonName == commonName {
			certs = append(certs, cert)
		}
	}
	if len(certs) != 1 {
		return nil, &AmbiguousMatchError{What: "certificate", CommonName: commonName, Count: len(certs)}
	}
	return certs[0], nil
}

// ChoosePrivateKey selects the unique private key among parsed objects whose
// public component equals the reference certificate's public key. A key pair
// matches regardless of private-material encoding differences.
func ChoosePrivateKey(objs []certswap.PKIObject, ref *certswap.Certificate) (*certswap.PrivateKey, error) {
	var keys []*certswap.PrivateKey
	for _, obj := range objs {
		key, ok := obj.(*certswap.PrivateKey)
		if !ok || key.Key == nil {
			continue
		}
		match, err := certswap.KeyMatchesCert(key.Key, ref.Cert)
		if err != nil {
			continue
		}
		if match {
			keys = append(keys, key)
		}
	}
	if len(keys) != 1 {
		return nil, &AmbiguousMatchError{What: "private key", CommonName: ref.CommonName, Count: len(keys)}
	}
	return keys[0], nil
}

package certswap

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"encoding/asn1"
	"encoding/pem"
	"errors"
	"fmt"

	"golang.org/x/crypto/ssh"
)

// Kind classifies a located PEM block.
type Kind string

const (
	KindCertificate Kind = "certificate"
	KindPrivateKey  Kind = "private-key"
)

// Span is the byte range [Start, End) of an armored block within a file,
// covering the BEGIN line through the END line including its line terminator.
type Span struct {
	Start int
	End   int
}

// Len returns the number of bytes the span covers.
func (s Span) Len() int { return s.End - s.Start }

// Locator identifies where a PKI object's armored text sits inside a file.
// A locator is only valid against the exact byte content that produced it;
// mutating the file invalidates every locator derived from it earlier.
type Locator struct {
	Path string
	Kind Kind
	Span Span
}

// PKIObject is a certificate or private key recovered from a file, together
// with the locator of its armored text. The two implementations are
// *Certificate and *PrivateKey.
type PKIObject interface {
	Source() Locator
	pkiObject()
}

// Certificate is a parsed X.509 certificate found in a file.
type Certificate struct {
	CommonName string
	Cert       *x509.Certificate
	Loc        Locator
}

func (c *Certificate) Source() Locator { return c.Loc }
func (*Certificate) pkiObject()        {}

// PrivateKey is a parsed private key found in a file. Key is nil when the
// block was recognized but could not be decrypted with any available
// password; such keys are located but never satisfy public-key equality.
type PrivateKey struct {
	Key crypto.PrivateKey
	Loc Locator
}

func (k *PrivateKey) Source() Locator { return k.Loc }
func (*PrivateKey) pkiObject()        {}

// ParseError reports malformed PEM armor or an undecodable payload.
// It aborts the parse of the file that produced it; partial results are
// never returned alongside one.
type ParseError struct {
	Path   string
	Offset int
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parsing %s at offset %d: %s: %v", e.Path, e.Offset, e.Reason, e.Err)
	}
	return fmt.Sprintf("parsing %s at offset %d: %s", e.Path, e.Offset, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

var (
	beginMarker = []byte("-----BEGIN ")
	endMarker   = []byte("-----END ")
	dashes      = []byte("-----")
)

// ParsePKIObjects scans raw file content left to right and returns every
// recognized PEM-armored certificate or private key, ordered by position.
// Spans of returned objects never overlap. Unrecognized block labels (CSRs,
// CRLs, public keys, ...) are skipped without error. Malformed armor or an
// undecodable payload for a recognized label fails the whole file with a
// *ParseError. Passwords are tried against encrypted private-key blocks.
func ParsePKIObjects(path string, data []byte, passwords []string) ([]PKIObject, error) {
	var objs []PKIObject

	pos := 0
	for {
		rel := bytes.Index(data[pos:], beginMarker)
		if rel < 0 {
			break
		}
		start := pos + rel

		label, bodyStart, ok := parseBeginLine(data, start)
		if !ok {
			return nil, &ParseError{Path: path, Offset: start, Reason: "malformed BEGIN line"}
		}

		end, ok := findBlockEnd(data, bodyStart, label)
		if !ok {
			return nil, &ParseError{Path: path, Offset: start, Reason: fmt.Sprintf("truncated %s block", label)}
		}

		armored := data[start:end]
		loc := Locator{Path: path, Span: Span{Start: start, End: end}}

		switch label {
		case "CERTIFICATE":
			block, _ := pem.Decode(armored)
			if block == nil {
				return nil, &ParseError{Path: path, Offset: start, Reason: "undecodable base64 in CERTIFICATE block"}
			}
			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, &ParseError{Path: path, Offset: start, Reason: "undecodable certificate DER", Err: err}
			}
			loc.Kind = KindCertificate
			objs = append(objs, &Certificate{
				CommonName: cert.Subject.CommonName,
				Cert:       cert,
				Loc:        loc,
			})

		case "PRIVATE KEY", "RSA PRIVATE KEY", "EC PRIVATE KEY",
			"ENCRYPTED PRIVATE KEY", "OPENSSH PRIVATE KEY":
			key, err := decodePrivateKeyBlock(label, armored, passwords)
			if err != nil {
				return nil, &ParseError{Path: path, Offset: start, Reason: "undecodable private key", Err: err}
			}
			loc.Kind = KindPrivateKey
			objs = append(objs, &PrivateKey{Key: key, Loc: loc})
		}

		pos = end
	}

	return objs, nil
}

// parseBeginLine validates the "-----BEGIN <label>-----" line starting at
// off and returns the label plus the offset just past the line terminator.
func parseBeginLine(data []byte, off int) (label string, next int, ok bool) {
	rest := data[off+len(beginMarker):]
	i := bytes.Index(rest, dashes)
	if i < 0 || bytes.ContainsAny(rest[:i], "\r\n") {
		return "", 0, false
	}
	label = string(rest[:i])
	lineEnd := off + len(beginMarker) + i + len(dashes)
	next = skipLineEnd(data, lineEnd)
	return label, next, true
}

// findBlockEnd locates the matching "-----END <label>-----" line and returns
// the offset just past its line terminator, so the span includes it.
func findBlockEnd(data []byte, from int, label string) (int, bool) {
	footer := append(append(append([]byte{}, endMarker...), label...), dashes...)
	i := bytes.Index(data[from:], footer)
	if i < 0 {
		return 0, false
	}
	return skipLineEnd(data, from+i+len(footer)), true
}

// skipLineEnd advances past an optional \r\n or \n at off.
func skipLineEnd(data []byte, off int) int {
	if off < len(data) && data[off] == '\r' {
		off++
	}
	if off < len(data) && data[off] == '\n' {
		off++
	}
	return off
}

// decodePrivateKeyBlock decodes one armored private-key block. The returned
// key is nil (with nil error) when the block is valid but encrypted and no
// password unlocks it.
func decodePrivateKeyBlock(label string, armored []byte, passwords []string) (crypto.PrivateKey, error) {
	block, _ := pem.Decode(armored)
	if block == nil {
		return nil, fmt.Errorf("undecodable base64 in %s block", label)
	}

	switch label {
	case "OPENSSH PRIVATE KEY":
		return parseOpenSSHKey(armored, passwords)

	case "ENCRYPTED PRIVATE KEY":
		// PKCS#8 EncryptedPrivateKeyInfo. Validate the DER shape; PKCS#5
		// decryption is unsupported, so the key stays opaque.
		var raw asn1.RawValue
		if _, err := asn1.Unmarshal(block.Bytes, &raw); err != nil {
			return nil, fmt.Errorf("parsing EncryptedPrivateKeyInfo: %w", err)
		}
		return nil, nil
	}

	//nolint:staticcheck // legacy RFC 1423 encrypted PEM still appears in the wild
	if x509.IsEncryptedPEMBlock(block) {
		return decryptLegacyBlock(block, passwords)
	}
	return parsePrivateKeyDER(label, block.Bytes)
}

// parsePrivateKeyDER parses an unencrypted private-key payload. For
// "PRIVATE KEY" blocks it tries PKCS#8 first, then falls back to PKCS#1 and
// EC parsers to handle mislabeled keys.
func parsePrivateKeyDER(label string, der []byte) (crypto.PrivateKey, error) {
	switch label {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(der)
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(der)
	}
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}
	return nil, errors.New("parsing PRIVATE KEY block with any known format")
}

// decryptLegacyBlock tries each password against an RFC 1423 encrypted PEM
// block. Returns a nil key when none decrypts it.
func decryptLegacyBlock(block *pem.Block, passwords []string) (crypto.PrivateKey, error) {
	for _, password := range passwords {
		//nolint:staticcheck // see decodePrivateKeyBlock
		der, err := x509.DecryptPEMBlock(block, []byte(password))
		if err != nil {
			continue
		}
		if key, err := parsePrivateKeyDER(block.Type, der); err == nil {
			return key, nil
		}
	}
	return nil, nil
}

// parseOpenSSHKey parses an OpenSSH-format private key, trying passphrases
// when the key is encrypted. Returns a nil key when no passphrase unlocks it.
func parseOpenSSHKey(armored []byte, passwords []string) (crypto.PrivateKey, error) {
	key, err := ssh.ParseRawPrivateKey(armored)
	if err == nil {
		return normalizeKey(key), nil
	}
	var missing *ssh.PassphraseMissingError
	if !errors.As(err, &missing) {
		return nil, fmt.Errorf("parsing OpenSSH private key: %w", err)
	}
	for _, password := range passwords {
		if password == "" {
			continue
		}
		key, err := ssh.ParseRawPrivateKeyWithPassphrase(armored, []byte(password))
		if err == nil {
			return normalizeKey(key), nil
		}
	}
	return nil, nil
}

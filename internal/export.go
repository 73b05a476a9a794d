package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sensiblebit/certswap"
)

// BundleFile is one output file of a rotated-pair export.
type BundleFile struct {
	Name      string
	Data      []byte
	Sensitive bool
}

// SanitizeFileName replaces wildcards and path separators so a common name
// like "*.example.com" yields a safe file name.
func SanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "*", "_")
	name = strings.ReplaceAll(name, "/", "_")
	return name
}

// GenerateBundleFiles builds the export files for a rotated pair: the
// certificate PEM, and when a key is present its PKCS#8 PEM plus PKCS#12 and
// JKS containers for downstream Java and Windows consumers.
func GenerateBundleFiles(cert *certswap.Certificate, key *certswap.PrivateKey, password string) ([]BundleFile, error) {
	prefix := SanitizeFileName(cert.CommonName)
	if prefix == "" {
		prefix = "bundle"
	}

	files := []BundleFile{
		{Name: prefix + ".pem", Data: certswap.CertToPEM(cert.Cert)},
	}
	if key == nil {
		return files, nil
	}

	keyPEM, err := certswap.MarshalPrivateKeyToPEM(key.Key)
	if err != nil {
		return nil, err
	}
	files = append(files, BundleFile{Name: prefix + ".key", Data: keyPEM, Sensitive: true})

	p12, err := certswap.EncodePKCS12(key.Key, cert.Cert, password)
	if err != nil {
		return nil, fmt.Errorf("encoding PKCS#12 bundle: %w", err)
	}
	files = append(files, BundleFile{Name: prefix + ".p12", Data: p12, Sensitive: true})

	jks, err := certswap.EncodeJKS(key.Key, cert.Cert, password)
	if err != nil {
		return nil, fmt.Errorf("encoding JKS bundle: %w", err)
	}
	files = append(files, BundleFile{Name: prefix + ".jks", Data: jks, Sensitive: true})

	return files, nil
}

// WriteBundleFiles creates outDir and writes each file, 0600 for key
// material and 0644 otherwise.
func WriteBundleFiles(outDir string, files []BundleFile) error {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("creating bundle directory %s: %w", outDir, err)
	}
	for _, f := range files {
		mode := os.FileMode(0644)
		if f.Sensitive {
			mode = 0600
		}
		if err := os.WriteFile(filepath.Join(outDir, f.Name), f.Data, mode); err != nil {
			return fmt.Errorf("writing %s: %w", f.Name, err)
		}
	}
	return nil
}

package internal

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sensiblebit/certswap"
)

// InspectResult describes one PKI object found in a file, including the
// exact byte span of its armored text.
type InspectResult struct {
	Kind       string `json:"kind"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
	CommonName string `json:"common_name,omitempty"`
	Subject    string `json:"subject,omitempty"`
	Issuer     string `json:"issuer,omitempty"`
	NotBefore  string `json:"not_before,omitempty"`
	NotAfter   string `json:"not_after,omitempty"`
	SHA256     string `json:"sha256_fingerprint,omitempty"`
	KeyAlgo    string `json:"key_algorithm,omitempty"`
	Encrypted  bool   `json:"encrypted,omitempty"`
}

// InspectFile parses a file and returns a result per PKI object found.
func InspectFile(path string, passwords []string) ([]InspectResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	objs, err := certswap.ParsePKIObjects(path, data, passwords)
	if err != nil {
		return nil, err
	}
	if len(objs) == 0 {
		return nil, fmt.Errorf("no certificates or private keys found in %s", path)
	}

	results := make([]InspectResult, 0, len(objs))
	for _, obj := range objs {
		loc := obj.Source()
		res := InspectResult{
			Kind:  string(loc.Kind),
			Start: loc.Span.Start,
			End:   loc.Span.End,
		}
		switch o := obj.(type) {
		case *certswap.Certificate:
			res.CommonName = o.CommonName
			res.Subject = o.Cert.Subject.String()
			res.Issuer = o.Cert.Issuer.String()
			res.NotBefore = o.Cert.NotBefore.UTC().Format("2006-01-02 15:04:05 UTC")
			res.NotAfter = o.Cert.NotAfter.UTC().Format("2006-01-02 15:04:05 UTC")
			res.SHA256 = certswap.CertFingerprint(o.Cert)
		case *certswap.PrivateKey:
			if o.Key == nil {
				res.Encrypted = true
			} else {
				res.KeyAlgo = certswap.KeyAlgorithmName(o.Key)
			}
		}
		results = append(results, res)
	}
	return results, nil
}

// FormatInspectResults renders results as "text" or "json".
func FormatInspectResults(results []InspectResult, format string) (string, error) {
	switch format {
	case "json":
		out, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshaling inspect results: %w", err)
		}
		return string(out) + "\n", nil
	case "text":
		var b strings.Builder
		for i, res := range results {
			fmt.Fprintf(&b, "[%d] %s bytes %d-%d\n", i+1, res.Kind, res.Start, res.End)
			if res.Subject != "" {
				fmt.Fprintf(&b, "    Subject:   %s\n", res.Subject)
				fmt.Fprintf(&b, "    Issuer:    %s\n", res.Issuer)
				fmt.Fprintf(&b, "    Validity:  %s to %s\n", res.NotBefore, res.NotAfter)
				fmt.Fprintf(&b, "    SHA-256:   %s\n", res.SHA256)
			}
			if res.KeyAlgo != "" {
				fmt.Fprintf(&b, "    Algorithm: %s\n", res.KeyAlgo)
			}
			if res.Encrypted {
				fmt.Fprintf(&b, "    Encrypted: yes (no matching password)\n")
			}
		}
		return b.String(), nil
	default:
		return "", fmt.Errorf("unknown format %q (want text or json)", format)
	}
}

package internal

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestInspectFile(t *testing.T) {
	pair := newPair(t, "svc1")
	content := bytes.Join([][]byte{pair.certPEM, pair.keyPEM}, nil)
	path := writeFile(t, t.TempDir(), "a.pem", content)

	results, err := InspectFile(path, nil)
	if err != nil {
		t.Fatalf("InspectFile: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}

	cert := results[0]
	if cert.Kind != "certificate" || cert.CommonName != "svc1" {
		t.Errorf("cert result = %+v", cert)
	}
	if cert.Start != 0 || cert.End != len(pair.certPEM) {
		t.Errorf("cert span = [%d,%d), want [0,%d)", cert.Start, cert.End, len(pair.certPEM))
	}
	if cert.SHA256 == "" || !strings.Contains(cert.Subject, "CN=svc1") {
		t.Errorf("cert metadata = %+v", cert)
	}

	key := results[1]
	if key.Kind != "private-key" || key.KeyAlgo != "ECDSA" || key.Encrypted {
		t.Errorf("key result = %+v", key)
	}
	if key.Start != len(pair.certPEM) || key.End != len(content) {
		t.Errorf("key span = [%d,%d)", key.Start, key.End)
	}
}

func TestInspectFile_NoObjects(t *testing.T) {
	path := writeFile(t, t.TempDir(), "plain.txt", []byte("nothing armored here\n"))
	if _, err := InspectFile(path, nil); err == nil {
		t.Error("InspectFile accepted a file with no PKI objects")
	}
}

func TestFormatInspectResults_JSON(t *testing.T) {
	// WHY: The JSON output feeds scripts; it must round-trip and carry the
	// span offsets.
	results := []InspectResult{
		{Kind: "certificate", Start: 0, End: 100, CommonName: "svc1"},
	}
	out, err := FormatInspectResults(results, "json")
	if err != nil {
		t.Fatalf("FormatInspectResults: %v", err)
	}
	var decoded []InspectResult
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 1 || decoded[0].End != 100 || decoded[0].CommonName != "svc1" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestFormatInspectResults_Text(t *testing.T) {
	results := []InspectResult{
		{Kind: "certificate", Start: 0, End: 100, Subject: "CN=svc1", Issuer: "CN=svc1", NotBefore: "a", NotAfter: "b", SHA256: "deadbeef"},
		{Kind: "private-key", Start: 100, End: 200, Encrypted: true},
	}
	out, err := FormatInspectResults(results, "text")
	if err != nil {
		t.Fatalf("FormatInspectResults: %v", err)
	}
	for _, want := range []string{"[1] certificate bytes 0-100", "CN=svc1", "deadbeef", "[2] private-key bytes 100-200", "Encrypted: yes"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatInspectResults_UnknownFormat(t *testing.T) {
	if _, err := FormatInspectResults(nil, "xml"); err == nil {
		t.Error("FormatInspectResults accepted an unknown format")
	}
}

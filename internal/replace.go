package internal

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sensiblebit/certswap"
)

// backupTimeFormat renders as YY-MM-DD-THH-MM, e.g. 26-08-30-T14-05.
const backupTimeFormat = "06-01-02-T15-04"

// ReplaceReport summarizes one replace run.
type ReplaceReport struct {
	// Replaced maps each mutated file path to its backup path.
	Replaced map[string]string
	// Skipped lists files left untouched because they are a replacement
	// source or because backup, read, or write failed.
	Skipped []string
}

// Replace splices the serialized replacement certificate (and private key,
// when present) into every matched locator, file by file. Each file is
// backed up before mutation. Failures are isolated per file and reported;
// the run continues with the next file.
func Replace(locators []certswap.Locator, cert *certswap.Certificate, key *certswap.PrivateKey) (*ReplaceReport, error) {
	certPEM := certswap.CertToPEM(cert.Cert)

	var keyPEM []byte
	var keyPath string
	if key != nil {
		pem, err := certswap.MarshalPrivateKeyToPEM(key.Key)
		if err != nil {
			return nil, fmt.Errorf("serializing replacement private key: %w", err)
		}
		keyPEM = pem
		keyPath = key.Loc.Path
	}

	report := &ReplaceReport{Replaced: map[string]string{}}
	now := time.Now().UTC()

	for _, path := range groupOrder(locators) {
		// Never mutate the files the replacement material came from.
		if path == cert.Loc.Path || path == keyPath {
			continue
		}
		group := locatorsForPath(locators, path)

		// Without a replacement key the old key bytes stay where they
		// are; certificates in the same file are still replaced.
		if keyPEM == nil && hasKind(group, certswap.KindPrivateKey) {
			group = withoutKind(group, certswap.KindPrivateKey)
			if len(group) == 0 {
				continue
			}
		}

		backup, err := BackupFile(path, now)
		if err != nil {
			slog.Warn("failed to back up file, skipping", "path", path, "error", err)
			report.Skipped = append(report.Skipped, path)
			continue
		}

		if err := spliceFile(path, group, certPEM, keyPEM); err != nil {
			slog.Warn("failed to replace PEMs, skipping", "path", path, "backup", backup, "error", err)
			report.Skipped = append(report.Skipped, path)
			continue
		}

		slog.Info("replaced PEMs", "path", path, "backup", backup, "blocks", len(group))
		report.Replaced[path] = backup
	}

	return report, nil
}

// spliceFile rewrites one file, replacing each located span with the
// serialized PEM for its kind. Locators arrive in ascending original start
// order (the parse invariant), so a single running offset translates
// original coordinates to current ones as earlier edits grow or shrink the
// content. This is only correct because spans never overlap and are applied
// left to right in original coordinates.
func spliceFile(path string, group []certswap.Locator, certPEM, keyPEM []byte) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading: %w", err)
	}

	offset := 0
	for _, loc := range group {
		replacement := certPEM
		if loc.Kind == certswap.KindPrivateKey {
			replacement = keyPEM
		}

		start := max(0, loc.Span.Start+offset)
		end := max(0, loc.Span.End+offset)
		if start > len(content) || end > len(content) || start > end {
			return fmt.Errorf("locator span [%d,%d) out of range after drift %d", loc.Span.Start, loc.Span.End, offset)
		}

		next := make([]byte, 0, len(content)+len(replacement)-(end-start))
		next = append(next, content[:start]...)
		next = append(next, replacement...)
		next = append(next, content[end:]...)
		content = next

		offset += len(replacement) - loc.Span.Len()
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stating: %w", err)
	}
	if err := os.WriteFile(path, content, info.Mode().Perm()); err != nil {
		return fmt.Errorf("writing: %w", err)
	}
	return nil
}

// BackupFile copies a file to a sibling named
// <stem>.<ext>.<YY-MM-DD-THH-MM>.bkp (empty ext field when the original has
// no extension) and returns the backup path. The copy completes before any
// mutation of the source.
func BackupFile(path string, now time.Time) (string, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	stem := strings.TrimSuffix(path, filepath.Ext(path))
	backup := fmt.Sprintf("%s.%s.%s.bkp", stem, ext, now.Format(backupTimeFormat))

	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return "", fmt.Errorf("stating %s: %w", path, err)
	}

	dst, err := os.OpenFile(backup, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", backup, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", fmt.Errorf("copying to %s: %w", backup, err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", backup, err)
	}
	return backup, nil
}

// groupOrder returns the distinct file paths of the locators in first-seen
// order, keeping the run deterministic.
func groupOrder(locators []certswap.Locator) []string {
	seen := make(map[string]bool, len(locators))
	var order []string
	for _, loc := range locators {
		if !seen[loc.Path] {
			seen[loc.Path] = true
			order = append(order, loc.Path)
		}
	}
	return order
}

func locatorsForPath(locators []certswap.Locator, path string) []certswap.Locator {
	var out []certswap.Locator
	for _, loc := range locators {
		if loc.Path == path {
			out = append(out, loc)
		}
	}
	return out
}

func hasKind(locators []certswap.Locator, kind certswap.Kind) bool {
	for _, loc := range locators {
		if loc.Kind == kind {
			return true
		}
	}
	return false
}

func withoutKind(locators []certswap.Locator, kind certswap.Kind) []certswap.Locator {
	var out []certswap.Locator
	for _, loc := range locators {
		if loc.Kind != kind {
			out = append(out, loc)
		}
	}
	return out
}

package internal

import (
	"crypto"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sensiblebit/certswap"
)

// FindOptions controls the tree scan.
type FindOptions struct {
	// FollowSymlinks walks through directory symlinks and scans symlinked
	// files. Off by default; cycles are guarded by a resolved-path set.
	FollowSymlinks bool
	// Exclude holds glob patterns matched against both the base name and
	// the root-relative slash path of every entry.
	Exclude []string
	// MaxFileSize skips files larger than this many bytes. Zero means no cap.
	MaxFileSize int64
	// Passwords are tried against encrypted private-key blocks.
	Passwords []string
}

// scannedObject is one PKI object seen during the walk, retained until the
// filter pass so key matching can use certificates discovered later.
type scannedObject struct {
	loc certswap.Locator
	cn  string           // certificates only
	pub crypto.PublicKey // nil for undecryptable keys
}

// Find recursively visits every regular file under root and returns a
// locator for every certificate whose subject common name equals commonName
// and every private key whose public key equals the public key of any
// reference key or of any matched certificate. Locators are ordered by
// discovery. Unreadable and unparseable files are skipped with a warning;
// only a failure to walk the root itself is returned as an error.
func Find(root, commonName string, refKeys []*certswap.PrivateKey, opts FindOptions) ([]certswap.Locator, error) {
	f := &finder{
		commonName: commonName,
		opts:       opts,
		visited:    map[string]bool{},
	}
	// Pre-mark the root so a symlink inside the tree pointing back at it
	// is not walked a second time. A root that is itself a symlink stays
	// unmarked; followSymlink records it when it descends.
	if info, err := os.Lstat(root); err == nil && info.Mode()&fs.ModeSymlink == 0 {
		if resolved, err := filepath.EvalSymlinks(root); err == nil {
			f.visited[resolved] = true
		}
	}
	for _, key := range refKeys {
		if key.Key == nil {
			continue
		}
		pub, err := certswap.GetPublicKey(key.Key)
		if err != nil {
			slog.Warn("skipping unusable reference key", "path", key.Loc.Path, "error", err)
			continue
		}
		f.refPubs = append(f.refPubs, pub)
	}

	if err := f.walk(root); err != nil {
		return nil, err
	}
	return f.filter(), nil
}

type finder struct {
	commonName string
	refPubs    []crypto.PublicKey
	opts       FindOptions
	visited    map[string]bool
	scanned    []scannedObject
}

func (f *finder) walk(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			slog.Warn("skipping unreadable entry", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if f.excluded(root, path, d) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			if f.opts.FollowSymlinks {
				f.followSymlink(path)
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		f.scanFile(path)
		return nil
	})
}

// followSymlink resolves a symlink entry and either walks a symlinked
// directory or scans a symlinked regular file. Walking the resolved target
// (not the link itself) is what makes the descent happen: WalkDir lstats its
// root, so handing it the link would just report another symlink. Resolved
// directory paths are tracked so cycles and aliases are walked once.
func (f *finder) followSymlink(path string) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		slog.Warn("skipping broken symlink", "path", path, "error", err)
		return
	}
	info, err := os.Stat(resolved)
	if err != nil {
		slog.Warn("skipping symlink target", "path", path, "error", err)
		return
	}
	switch {
	case info.IsDir():
		if f.visited[resolved] {
			return
		}
		f.visited[resolved] = true
		if err := f.walk(resolved); err != nil {
			slog.Warn("skipping symlinked directory", "path", path, "error", err)
		}
	case info.Mode().IsRegular():
		f.scanFile(path)
	}
}

func (f *finder) excluded(root, path string, d fs.DirEntry) bool {
	if len(f.opts.Exclude) == 0 {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range f.opts.Exclude {
		if ok, _ := filepath.Match(pattern, d.Name()); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// scanFile parses one file and retains every PKI object found. Failures are
// isolated: one unreadable or corrupt file must not abort the whole search.
func (f *finder) scanFile(path string) {
	// When symlinks are followed the same file can be reachable under
	// several names; scanning it twice would double its locators and make
	// a later replace splice the second set against already-mutated bytes.
	if f.opts.FollowSymlinks {
		if resolved, err := filepath.EvalSymlinks(path); err == nil {
			if f.visited[resolved] {
				return
			}
			f.visited[resolved] = true
		}
	}
	if f.opts.MaxFileSize > 0 {
		if info, err := os.Stat(path); err == nil && info.Size() > f.opts.MaxFileSize {
			slog.Debug("skipping oversized file", "path", path, "size", info.Size())
			return
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("skipping unreadable file", "path", path, "error", err)
		return
	}
	if !certswap.IsPEM(data) {
		return
	}
	objs, err := certswap.ParsePKIObjects(path, data, f.opts.Passwords)
	if err != nil {
		slog.Warn("skipping unparseable file", "path", path, "error", err)
		return
	}
	for _, obj := range objs {
		switch o := obj.(type) {
		case *certswap.Certificate:
			f.scanned = append(f.scanned, scannedObject{loc: o.Loc, cn: o.CommonName, pub: o.Cert.PublicKey})
		case *certswap.PrivateKey:
			var pub crypto.PublicKey
			if o.Key != nil {
				if p, err := certswap.GetPublicKey(o.Key); err == nil {
					pub = p
				}
			}
			f.scanned = append(f.scanned, scannedObject{loc: o.Loc, pub: pub})
		}
	}
}

// filter reduces the scanned pool to matching locators, preserving discovery
// order. Private keys match against the reference keys and against the
// public keys of certificates matched anywhere in the tree, so a key stored
// apart from its certificate is still found.
func (f *finder) filter() []certswap.Locator {
	targetPubs := append([]crypto.PublicKey{}, f.refPubs...)
	for _, obj := range f.scanned {
		if obj.loc.Kind == certswap.KindCertificate && obj.cn == f.commonName {
			targetPubs = append(targetPubs, obj.pub)
		}
	}

	var out []certswap.Locator
	for _, obj := range f.scanned {
		switch obj.loc.Kind {
		case certswap.KindCertificate:
			if obj.cn == f.commonName {
				out = append(out, obj.loc)
			}
		case certswap.KindPrivateKey:
			if obj.pub == nil {
				continue
			}
			for _, pub := range targetPubs {
				if ok, err := certswap.PublicKeysEqual(obj.pub, pub); err == nil && ok {
					out = append(out, obj.loc)
					break
				}
			}
		}
	}
	return out
}

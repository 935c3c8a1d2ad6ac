package bundle

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const archiveTimeLayout = "20060102_150405-0700"

// ArchiveName builds "<title>_<YYYYmmdd_HHMMSS±zzzz>.tgz" with every character
// that is unsafe in a file name, and all whitespace, replaced by '_'.
func ArchiveName(title string, at time.Time) string {
	return SanitizeFilename(title + "_" + at.Format(archiveTimeLayout) + ArchiveExt)
}

// unsafeFilename matches reserved path characters, control characters and whitespace.
var unsafeFilename = runes.Predicate(func(r rune) bool {
	switch r {
	case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
		return true
	}
	return unicode.IsControl(r) || unicode.IsSpace(r)
})

// Transformers keep state, so one is built per call.
func filenameTransformer() transform.Transformer {
	return transform.Chain(
		norm.NFC,
		runes.Map(func(r rune) rune {
			if unsafeFilename.Contains(r) {
				return '_'
			}
			return r
		}),
	)
}

// SanitizeFilename makes name safe for use as a single path element.
func SanitizeFilename(name string) string {
	out, _, err := transform.String(filenameTransformer(), name)
	if err != nil {
		out = name
	}
	out = strings.Trim(out, ".")
	if out == "" {
		return "_"
	}
	const maxLen = 255
	if len(out) > maxLen {
		ext := filepath.Ext(out)
		out = strings.ToValidUTF8(out[:maxLen-len(ext)], "") + ext
	}
	return out
}

// createUnique creates name in dir, or name with a _1, _2, ... suffix before
// the extension when it already exists.
func createUnique(dir, name string) (*os.File, error) {
	ext := ArchiveExt
	base := strings.TrimSuffix(name, ext)
	if base == name {
		ext = filepath.Ext(name)
		base = strings.TrimSuffix(name, ext)
	}
	for n := 0; n < 1000; n++ {
		candidate := name
		if n > 0 {
			candidate = fmt.Sprintf("%s_%d%s", base, n, ext)
		}
		f, err := os.OpenFile(filepath.Join(dir, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("no free archive name for %s", name)
}

// writeTarGz writes the contents of root into f as a gzip-compressed tarball
// and closes f. Entry names are relative to root.
func writeTarGz(ctx context.Context, f *os.File, root string) (err error) {
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil || rel == "." {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if d.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		// #nosec G304 -- p comes from walking the staging directory.
		src, err := os.Open(p)
		if err != nil {
			return err
		}
		defer func() { _ = src.Close() }()
		_, err = io.Copy(tw, src)
		return err
	})
	if walkErr != nil {
		_ = tw.Close()
		_ = gz.Close()
		return walkErr
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}

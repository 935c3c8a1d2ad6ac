package bundle

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/aliasdoc/internal/foundation/errors"
)

// ResolveImage maps an image link onto a file below imageDir.
//
// Links under the image URL prefix and relative links are accepted. Absolute
// URLs, other absolute paths and anything escaping imageDir are rejected.
func ResolveImage(imageDir, urlPrefix, link string) (string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("invalid image link %q: %w", link, err)
	}
	if u.Scheme != "" || u.Host != "" {
		return "", fmt.Errorf("image link %q is not a local path", link)
	}

	p := u.Path
	switch {
	case urlPrefix != "" && strings.HasPrefix(p, urlPrefix):
		p = strings.TrimPrefix(p, urlPrefix)
	case strings.HasPrefix(p, "/"):
		return "", fmt.Errorf("image link %q is outside %s", link, urlPrefix)
	}

	clean := path.Clean(p)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("image link %q escapes the image directory", link)
	}

	full := filepath.Join(imageDir, filepath.FromSlash(clean))
	rel, err := filepath.Rel(imageDir, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("image link %q escapes the image directory", link)
	}
	return full, nil
}

// imageExt returns the extension of the path part of link.
func imageExt(link string) string {
	if u, err := url.Parse(link); err == nil {
		return path.Ext(u.Path)
	}
	return path.Ext(link)
}

func (b *Bundler) copyImages(ctx context.Context, dir string, mapping map[string]string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create image directory").
			WithContext("path", dir).Build()
	}

	for _, alias := range sortedAliases(mapping) {
		if err := ctx.Err(); err != nil {
			return errors.WrapError(err, errors.CategoryBundle, "bundling canceled").Build()
		}
		link := mapping[alias]
		src, err := ResolveImage(b.imageDir, b.urlPrefix, link)
		if err != nil {
			return errors.WrapError(err, errors.CategoryBundle, "unresolvable image link").
				WithContext("alias", alias).
				WithContext("link", link).
				Build()
		}
		dst := filepath.Join(dir, alias+imageExt(link))
		if err := copyFile(src, dst); err != nil {
			return errors.WrapError(err, errors.CategoryBundle, "copy image").
				WithContext("alias", alias).
				WithContext("link", link).
				Build()
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	// #nosec G304 -- src is confined to the image directory by ResolveImage.
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

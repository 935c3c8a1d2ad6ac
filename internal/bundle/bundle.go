// Package bundle archives a validated document together with its images.
//
// A bundle is a gzip-compressed tarball holding:
//
//	document.md       the raw document (front matter stamped when present)
//	meta.json         the request metadata plus bundle identity
//	img/<alias><ext>  one copy of every aliased image
//
// Files are assembled in a staging directory named _tmp_<fingerprint>_* under
// the output directory, which is removed once the archive is written.
package bundle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/aliasdoc/internal/document"
	"git.home.luguber.info/inful/aliasdoc/internal/foundation/errors"
	"git.home.luguber.info/inful/aliasdoc/internal/frontmatter"
	"git.home.luguber.info/inful/aliasdoc/internal/logfields"
	"git.home.luguber.info/inful/aliasdoc/internal/markdown"
	"git.home.luguber.info/inful/aliasdoc/internal/metrics"
)

const (
	StagingPrefix   = "_tmp_"
	ArchiveExt      = ".tgz"
	docFilename     = "document.md"
	metaFilename    = "meta.json"
	imageDirName    = "img"
	timestampLayout = "2006-01-02 15:04:05 -0700"
)

// Meta describes the document being bundled. It is written to meta.json.
type Meta struct {
	Title        string            `json:"documentTitle"`
	AliasMapping map[string]string `json:"aliasMapping"`
	Tags         []string          `json:"tags,omitempty"`
}

// Request is one bundling job.
type Request struct {
	RawDocument string
	Meta        Meta
}

// Result identifies a written archive.
type Result struct {
	ID          string    `json:"id"`
	Timestamp   string    `json:"timeStamp"`
	OutputPath  string    `json:"outputDir"`
	Fingerprint string    `json:"fingerprint"`
	Title       string    `json:"title"`
	Images      int       `json:"images"`
	CreatedAt   time.Time `json:"createdAt"`
}

type metaFile struct {
	Meta
	ID          string `json:"id"`
	Fingerprint string `json:"fingerprint"`
	CreatedAt   string `json:"createdAt"`
}

// Bundler writes bundles from images under imageDir into outputDir.
type Bundler struct {
	imageDir  string
	outputDir string
	urlPrefix string
	rewrite   *markdown.Parser
	now       func() time.Time
	recorder  metrics.Recorder
	logger    *slog.Logger
}

// Option configures a Bundler.
type Option func(*Bundler)

// WithImageURLPrefix sets the URL path under which imageDir is served.
// Links starting with it are resolved relative to imageDir. Default "/img/".
func WithImageURLPrefix(prefix string) Option {
	return func(b *Bundler) { b.urlPrefix = prefix }
}

// WithLinkRewrite makes document.md point at the bundled copies
// (img/<alias><ext>) instead of the original links.
func WithLinkRewrite(p *markdown.Parser) Option {
	return func(b *Bundler) { b.rewrite = p }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Bundler) { b.now = now }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(b *Bundler) {
		if r != nil {
			b.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bundler) {
		if l != nil {
			b.logger = l
		}
	}
}

// New creates a Bundler. Both directories are created on first use.
func New(imageDir, outputDir string, opts ...Option) *Bundler {
	b := &Bundler{
		imageDir:  imageDir,
		outputDir: outputDir,
		urlPrefix: "/img/",
		now:       time.Now,
		recorder:  metrics.NoopRecorder{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// OutputDir returns the directory archives are written to.
func (b *Bundler) OutputDir() string { return b.outputDir }

// ImageDir returns the directory images are read from.
func (b *Bundler) ImageDir() string { return b.imageDir }

// Bundle writes one archive. The alias mapping is trusted to be validated;
// use BundleDocument to validate the raw document first.
func (b *Bundler) Bundle(ctx context.Context, req Request) (res *Result, err error) {
	start := time.Now()
	defer func() {
		b.recorder.ObserveBundleDuration(time.Since(start))
		b.recorder.IncBundleResult(err == nil)
	}()

	src, err := frontmatter.Parse([]byte(req.RawDocument))
	if err != nil {
		// malformed front matter is kept verbatim as part of the body
		src = frontmatter.Document{Fields: map[string]any{}, Body: []byte(req.RawDocument), Newline: "\n"}
	}
	fingerprint, err := src.Fingerprint()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryBundle, "fingerprint document").Build()
	}

	meta := req.Meta
	if strings.TrimSpace(meta.Title) == "" {
		meta.Title = src.Title()
	}
	if meta.Title == "" {
		meta.Title = "untitled"
	}
	if len(meta.Tags) == 0 {
		meta.Tags = src.Tags()
	}

	if err := os.MkdirAll(b.outputDir, 0o750); err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "create output directory").
			WithContext("path", b.outputDir).Build()
	}
	staging, err := os.MkdirTemp(b.outputDir, StagingPrefix+stagingKey(fingerprint)+"_")
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "create staging directory").
			WithContext("path", b.outputDir).Build()
	}
	defer func() {
		if rmErr := os.RemoveAll(staging); rmErr != nil {
			b.logger.Warn("Failed to remove staging directory", logfields.Path(staging), logfields.Error(rmErr))
		}
	}()

	id := uuid.NewString()
	created := b.now()

	body := src.Body
	if b.rewrite != nil {
		body, err = b.rewriteLinks(body, meta.AliasMapping)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryBundle, "rewrite image links").Build()
		}
	}
	out := src
	out.Body = body
	out.Stamp(id, fingerprint, created)
	docBytes, err := out.Bytes()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryBundle, "serialize document").Build()
	}
	if err := writeFile(filepath.Join(staging, docFilename), docBytes); err != nil {
		return nil, err
	}

	metaBytes, err := json.MarshalIndent(metaFile{
		Meta:        meta,
		ID:          id,
		Fingerprint: fingerprint,
		CreatedAt:   created.Format(time.RFC3339),
	}, "", "  ")
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryBundle, "encode meta.json").Build()
	}
	if err := writeFile(filepath.Join(staging, metaFilename), metaBytes); err != nil {
		return nil, err
	}

	if err := b.copyImages(ctx, filepath.Join(staging, imageDirName), meta.AliasMapping); err != nil {
		return nil, err
	}

	archive, err := createUnique(b.outputDir, ArchiveName(meta.Title, created))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "create archive").
			WithContext("path", b.outputDir).Build()
	}
	if err := writeTarGz(ctx, archive, staging); err != nil {
		_ = os.Remove(archive.Name())
		return nil, errors.WrapError(err, errors.CategoryBundle, "write archive").
			WithContext("path", archive.Name()).Build()
	}

	res = &Result{
		ID:          id,
		Timestamp:   created.Format(timestampLayout),
		OutputPath:  archive.Name(),
		Fingerprint: fingerprint,
		Title:       meta.Title,
		Images:      len(meta.AliasMapping),
		CreatedAt:   created,
	}
	b.logger.Info("Bundle created",
		logfields.BundleID(id),
		logfields.Title(meta.Title),
		logfields.Path(res.OutputPath),
		logfields.Count(res.Images))
	return res, nil
}

// BundleDocument validates req.RawDocument with p and bundles it using the
// validated mapping. A failing document yields a validation error carrying
// the parse result under the "result" context key.
func (b *Bundler) BundleDocument(ctx context.Context, p *document.Parser, req Request) (*Result, document.Result, error) {
	parsed := document.Parse([]byte(req.RawDocument), p)
	if !parsed.Pass {
		cerr, _ := errors.AsClassified(parsed.Err())
		return nil, parsed, cerr.WithContext("result", parsed)
	}
	req.Meta.AliasMapping = parsed.AliasLinkMapping
	res, err := b.Bundle(ctx, req)
	return res, parsed, err
}

func (b *Bundler) rewriteLinks(body []byte, mapping map[string]string) ([]byte, error) {
	byLink := make(map[string]string, len(mapping))
	for alias, link := range mapping {
		byLink[link] = alias
	}
	doc := b.rewrite.Parse(body)
	return markdown.RewriteImageLinks(body, doc, func(ref markdown.ImageRef) (string, bool) {
		alias, ok := byLink[ref.Link]
		if !ok || alias != ref.Alias {
			return "", false
		}
		return imageDirName + "/" + alias + imageExt(ref.Link), true
	})
}

// sortedAliases returns mapping keys in a stable order for copying.
func sortedAliases(mapping map[string]string) []string {
	aliases := make([]string, 0, len(mapping))
	for alias := range mapping {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}

// stagingKey keeps the alphanumeric part of a fingerprint for use in a path.
func stagingKey(fingerprint string) string {
	var sb strings.Builder
	for _, r := range fingerprint {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
		if sb.Len() == 32 {
			break
		}
	}
	return sb.String()
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, fmt.Sprintf("write %s", filepath.Base(path))).
			WithContext("path", path).Build()
	}
	return nil
}

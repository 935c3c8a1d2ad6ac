package document

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/aliasdoc/internal/frontmatter"
	"git.home.luguber.info/inful/aliasdoc/internal/integrity"
	"git.home.luguber.info/inful/aliasdoc/internal/logfields"
	"git.home.luguber.info/inful/aliasdoc/internal/markdown"
	"git.home.luguber.info/inful/aliasdoc/internal/metrics"
)

// Parser is a reusable handle holding one configured Markdown engine.
// It keeps no per-call state and may be shared between goroutines.
type Parser struct {
	md       *markdown.Parser
	mdOpts   markdown.Options
	recorder metrics.Recorder
	logger   *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithMarkdownOptions sets the goldmark features of the engine.
func WithMarkdownOptions(opts markdown.Options) Option {
	return func(p *Parser) { p.mdOpts = opts }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(p *Parser) {
		if r != nil {
			p.recorder = r
		}
	}
}

// WithLogger sets the logger used for parse outcomes.
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewParser builds a Parser with the image alias grammar registered once.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.md = markdown.NewParser(p.mdOpts)
	return p
}

// Parse processes text with p, or with a throwaway default Parser when p is nil.
func Parse(text []byte, p *Parser) Result {
	if p == nil {
		p = NewParser()
	}
	return p.Parse(text)
}

// Parse tokenizes, validates and, when the document passes, renders text.
func (p *Parser) Parse(text []byte) (res Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = internalFailure(fmt.Sprint(r))
			p.logger.Error("Document processing panicked", slog.Any("panic", r))
		}
		p.observe(res, time.Since(start))
	}()

	body := Body(text)
	doc := p.md.Parse(body)
	check := integrity.ValidateTree(doc)
	if !check.Pass {
		return failure(check.Report)
	}

	var buf bytes.Buffer
	if err := p.md.Render(&buf, body, doc); err != nil {
		p.logger.Error("Rendering failed", logfields.Error(err))
		return internalFailure(err.Error())
	}
	return Result{Pass: true, HTML: buf.String(), AliasLinkMapping: check.Mapping}
}

// Images lists the (link, alias) pairs of text without validating them.
func (p *Parser) Images(text []byte) []markdown.ImageRef {
	return markdown.Images(p.md.Parse(Body(text)))
}

// Markdown returns the underlying engine.
func (p *Parser) Markdown() *markdown.Parser {
	return p.md
}

// Body strips leading YAML front matter from text. Text whose front matter
// cannot be split is returned unchanged and parsed as Markdown.
func Body(text []byte) []byte {
	doc, err := frontmatter.Parse(text)
	if err != nil {
		return text
	}
	return doc.Body
}

func (p *Parser) observe(res Result, d time.Duration) {
	defer func() {
		// a failing recorder must not turn a result into a panic
		if r := recover(); r != nil {
			p.logger.Warn("Metrics recorder panicked", slog.Any("panic", r))
		}
	}()

	p.recorder.ObserveParseDuration(d)
	switch {
	case res.Pass:
		p.recorder.IncParseOutcome(metrics.OutcomePass)
		p.logger.Debug("Document passed integrity checks",
			logfields.Count(len(res.AliasLinkMapping)),
			logfields.DurationMS(float64(d.Microseconds())/1000))
	case res.Errors != nil && res.Errors.Internal != "":
		p.recorder.IncParseOutcome(metrics.OutcomeError)
	default:
		p.recorder.IncParseOutcome(metrics.OutcomeFail)
		for kind, n := range res.Errors.counts() {
			p.recorder.AddViolations(string(kind), n)
		}
		p.logger.Info("Document failed integrity checks",
			logfields.Violations(res.Violations()),
			logfields.DurationMS(float64(d.Microseconds())/1000))
	}
}

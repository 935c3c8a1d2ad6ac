package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"git.home.luguber.info/inful/aliasdoc/internal/bundle"
	"git.home.luguber.info/inful/aliasdoc/internal/document"
	"git.home.luguber.info/inful/aliasdoc/internal/foundation/errors"
	"git.home.luguber.info/inful/aliasdoc/internal/ledger"
	"git.home.luguber.info/inful/aliasdoc/internal/logfields"
	"git.home.luguber.info/inful/aliasdoc/internal/notify"
	"git.home.luguber.info/inful/aliasdoc/internal/server/responses"
	"git.home.luguber.info/inful/aliasdoc/internal/telemetry"
)

const defaultMaxBodyBytes = 10 << 20

// Deps are the services the API handlers use. Ledger and Publisher are optional.
type Deps struct {
	Parser       *document.Parser
	Bundler      *bundle.Bundler
	Ledger       ledger.Store
	Publisher    notify.Publisher
	Logger       *slog.Logger
	MaxBodyBytes int64
}

// APIHandlers contains the document and bundle HTTP handlers.
type APIHandlers struct {
	parser       *document.Parser
	bundler      *bundle.Bundler
	ledger       ledger.Store
	publisher    notify.Publisher
	logger       *slog.Logger
	errorAdapter *errors.HTTPErrorAdapter
	maxBody      int64
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(deps Deps) *APIHandlers {
	h := &APIHandlers{
		parser:    deps.Parser,
		bundler:   deps.Bundler,
		ledger:    deps.Ledger,
		publisher: deps.Publisher,
		logger:    deps.Logger,
		maxBody:   deps.MaxBodyBytes,
	}
	if h.parser == nil {
		h.parser = document.NewParser()
	}
	if h.publisher == nil {
		h.publisher = notify.NoopPublisher{}
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.maxBody <= 0 {
		h.maxBody = defaultMaxBodyBytes
	}
	h.errorAdapter = errors.NewHTTPErrorAdapter(h.logger)
	return h
}

// HandleParse validates a document. The body is either JSON
// {"rawDocument": "..."} or the raw markdown text. Integrity violations are
// reported in the result with status 200.
func (h *APIHandlers) HandleParse(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)

	var text string
	if isJSON(r) {
		var req responses.ParseRequest
		if err := decodeJSON(r, &req); err != nil {
			h.errorAdapter.WriteErrorResponse(w, r, err)
			return
		}
		text = req.RawDocument
	} else {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			h.errorAdapter.WriteErrorResponse(w, r,
				errors.WrapError(err, errors.CategoryValidation, "read request body").Build())
			return
		}
		text = string(body)
	}

	_, span := telemetry.Tracer().Start(r.Context(), "document.parse")
	res := h.parser.Parse([]byte(text))
	span.SetAttributes(
		attribute.Bool("document.pass", res.Pass),
		attribute.Int("document.violations", res.Violations()),
	)
	span.End()

	if err := writeJSONPretty(w, r, http.StatusOK, res); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			errors.WrapError(err, errors.CategoryInternal, "failed to write parse result").Build())
	}
}

// HandleBundle validates the posted document and writes its bundle.
func (h *APIHandlers) HandleBundle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)

	if h.bundler == nil {
		h.errorAdapter.WriteErrorResponse(w, r, errors.RuntimeError("bundling is not configured").Build())
		return
	}

	var req responses.BundleRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	if req.RawDocument == "" {
		h.errorAdapter.WriteErrorResponse(w, r,
			errors.ValidationError("rawDocument is required").Build())
		return
	}

	ctx, span := telemetry.Tracer().Start(r.Context(), "bundle.create")
	defer span.End()

	res, _, err := h.bundler.BundleDocument(ctx, h.parser, bundle.Request{
		RawDocument: req.RawDocument,
		Meta:        req.DocumentMeta,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "bundle failed")
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	span.SetAttributes(attribute.String("bundle.id", res.ID), attribute.Int("bundle.images", res.Images))

	h.record(ctx, res, req.DocumentMeta.Tags)

	if err := writeJSONPretty(w, r, http.StatusOK, responses.NewBundleResponse(res)); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			errors.WrapError(err, errors.CategoryInternal, "failed to write bundle response").Build())
	}
}

// record appends res to the ledger and announces it. The archive is already
// written, so failures here are logged and never fail the request.
func (h *APIHandlers) record(ctx context.Context, res *bundle.Result, tags []string) {
	if h.ledger != nil {
		if err := h.ledger.Append(ctx, ledger.FromBundle(res, tags)); err != nil {
			h.logger.Error("Failed to record bundle", logfields.BundleID(res.ID), logfields.Error(err))
		}
	}
	if err := h.publisher.PublishBundleCreated(ctx, notify.NewBundleCreated(res, tags)); err != nil {
		h.logger.Warn("Failed to publish bundle event", logfields.BundleID(res.ID), logfields.Error(err))
	}
}

// HandleListBundles lists ledger records, newest first. ?limit=N caps the list.
func (h *APIHandlers) HandleListBundles(w http.ResponseWriter, r *http.Request) {
	if h.ledger == nil {
		h.errorAdapter.WriteErrorResponse(w, r, errors.RuntimeError("bundle ledger is disabled").Build())
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.errorAdapter.WriteErrorResponse(w, r,
				errors.ValidationError("limit must be a positive integer").WithContext("limit", raw).Build())
			return
		}
		limit = n
	}

	records, err := h.ledger.List(r.Context(), limit)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	if err := writeJSONPretty(w, r, http.StatusOK, responses.BundleListResponse{Bundles: records, Count: len(records)}); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			errors.WrapError(err, errors.CategoryInternal, "failed to write bundle list").Build())
	}
}

// HandleGetBundle returns one ledger record.
func (h *APIHandlers) HandleGetBundle(w http.ResponseWriter, r *http.Request) {
	if h.ledger == nil {
		h.errorAdapter.WriteErrorResponse(w, r, errors.RuntimeError("bundle ledger is disabled").Build())
		return
	}

	rec, err := h.ledger.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	if err := writeJSONPretty(w, r, http.StatusOK, rec); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			errors.WrapError(err, errors.CategoryInternal, "failed to write bundle record").Build())
	}
}

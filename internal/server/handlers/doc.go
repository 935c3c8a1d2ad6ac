// Package handlers contains HTTP handlers for the aliasdoc HTTP API.
//
// This package provides handlers for:
//   - Document validation (POST /api/parse)
//   - Bundling (POST /bundle_document) and the bundle ledger (GET /api/bundles)
//   - Health checks
//   - Shared response helper functions
//
// All handlers report failures through the foundation/errors HTTP adapter and
// answer with the types in server/responses.
package handlers

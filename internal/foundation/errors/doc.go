// Package errors classifies aliasdoc failures.
//
// A ClassifiedError carries a category, a severity, a retry hint and a
// context map. The category alone decides the CLI exit code and the HTTP
// status (see the table in categories.go), so a failure reads the same on
// both surfaces.
//
// Integrity violations found in a document are not errors. The document
// package returns them as data; callers that refuse an invalid document
// (bundling, `aliasdoc check`) turn them into a validation error.
//
//	err := errors.WrapError(cause, errors.CategoryBundle, "copy image").
//		WithContext("alias", alias).
//		Build()
package errors

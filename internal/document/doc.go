// Package document turns Markdown source into either rendered HTML plus a
// validated alias -> link mapping, or a structured report of every image
// integrity violation.
//
// Parse never panics and never returns an error: every failure, including an
// unexpected internal one, is expressed in the returned Result.
package document

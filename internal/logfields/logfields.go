package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyDocument   = "document"
	KeyAlias      = "alias"
	KeyLink       = "link"
	KeyBundleID   = "bundle_id"
	KeyTitle      = "title"
	KeyPath       = "path"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyRoute      = "route"
	KeyRemoteAddr = "remote_addr"
	KeyUserAgent  = "user_agent"
	KeyDurationMS = "duration_ms"
	KeyCount      = "count"
	KeyViolations = "violations"
	KeySubject    = "subject"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Document(name string) slog.Attr  { return slog.String(KeyDocument, name) }
func Alias(a string) slog.Attr        { return slog.String(KeyAlias, a) }
func Link(l string) slog.Attr         { return slog.String(KeyLink, l) }
func BundleID(id string) slog.Attr    { return slog.String(KeyBundleID, id) }
func Title(t string) slog.Attr        { return slog.String(KeyTitle, t) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func Route(r string) slog.Attr        { return slog.String(KeyRoute, r) }
func RemoteAddr(a string) slog.Attr   { return slog.String(KeyRemoteAddr, a) }
func UserAgent(ua string) slog.Attr   { return slog.String(KeyUserAgent, ua) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Violations(n int) slog.Attr      { return slog.Int(KeyViolations, n) }
func Subject(s string) slog.Attr      { return slog.String(KeySubject, s) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

package errors

// ErrorBuilder assembles a ClassifiedError.
type ErrorBuilder struct {
	err ClassifiedError
}

// NewError starts an error of category. Severity defaults to error and
// retry to never.
func NewError(category ErrorCategory, message string) *ErrorBuilder {
	return &ErrorBuilder{err: ClassifiedError{
		category: category,
		severity: SeverityError,
		retry:    RetryNever,
		message:  message,
	}}
}

// WrapError is NewError with an underlying cause.
func WrapError(cause error, category ErrorCategory, message string) *ErrorBuilder {
	b := NewError(category, message)
	b.err.cause = cause
	return b
}

func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	b.err.context = b.err.context.with(key, value)
	return b
}

func (b *ErrorBuilder) Fatal() *ErrorBuilder {
	b.err.severity = SeverityFatal
	return b
}

func (b *ErrorBuilder) Warning() *ErrorBuilder {
	b.err.severity = SeverityWarning
	return b
}

func (b *ErrorBuilder) Info() *ErrorBuilder {
	b.err.severity = SeverityInfo
	return b
}

// Retryable marks the error as transient.
func (b *ErrorBuilder) Retryable() *ErrorBuilder {
	b.err.retry = RetryBackoff
	return b
}

// UserAction marks the error as fixable only by changing the input.
func (b *ErrorBuilder) UserAction() *ErrorBuilder {
	b.err.retry = RetryUserAction
	return b
}

// Build returns the error. The builder may not be reused afterwards.
func (b *ErrorBuilder) Build() *ClassifiedError {
	out := b.err
	return &out
}

// ConfigError reports an unusable configuration file or flag.
func ConfigError(message string) *ErrorBuilder {
	return NewError(CategoryConfig, message).Fatal()
}

// ValidationError reports invalid input, including failing documents.
func ValidationError(message string) *ErrorBuilder {
	return NewError(CategoryValidation, message).Fatal()
}

func NotFoundError(message string) *ErrorBuilder {
	return NewError(CategoryNotFound, message)
}

func FileSystemError(message string) *ErrorBuilder {
	return NewError(CategoryFileSystem, message).Retryable()
}

// BundleError reports an archive that could not be produced from valid input,
// for example a missing image.
func BundleError(message string) *ErrorBuilder {
	return NewError(CategoryBundle, message)
}

func LedgerError(message string) *ErrorBuilder {
	return NewError(CategoryLedger, message).Retryable()
}

// NotifyError reports an undelivered bundle event. It never fails a bundle.
func NotifyError(message string) *ErrorBuilder {
	return NewError(CategoryNotify, message).Warning().Retryable()
}

func RuntimeError(message string) *ErrorBuilder {
	return NewError(CategoryRuntime, message).Fatal()
}

func InternalError(message string) *ErrorBuilder {
	return NewError(CategoryInternal, message).Fatal()
}

package apperrors

// Error is a chainable application error. Errors form a hierarchy: a sentinel
// created with New can derive children that inherit the parent's status code
// and stay matchable with errors.Is against any ancestor.
type Error interface {
	Error() string
	ErrorAll() string
	New(msg string) Error
	Msg(msg string) Error
	MsgErr(msg string, err ...error) Error
	Err(err ...error) Error
	Unwrap() []error
	Is(target error) bool
	SetExpandError(expand bool) Error
	SetStatusCode(code int) Error
	StatusCode() int
}

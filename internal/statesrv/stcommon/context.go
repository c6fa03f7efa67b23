package stcommon

import (
	"context"
)

type ctxSubjectKeyType string

const ctxSubjectKey ctxSubjectKeyType = "StatelySubject"

// SetSubjectInContext records the authenticated principal for the request.
func SetSubjectInContext(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, ctxSubjectKey, subject)
}

// SubjectFromContext returns the authenticated principal, or "" when the
// request was not authenticated.
func SubjectFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(ctxSubjectKey).(string); ok {
		return s
	}
	return ""
}

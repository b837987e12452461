package middleware

import (
	"context"
	"net/http"
)

type subjectKey struct{}

// WithSubject copies the caller's subject id from the request header
// into the context so the action guards can resolve it.
func WithSubject(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s := r.Header.Get(SubjectHeader); s != "" {
			r = r.WithContext(context.WithValue(r.Context(), subjectKey{}, s))
		}
		next(w, r)
	}
}

// ContextSubjectResolver reads the subject placed in the context by
// WithSubject. It satisfies actions.SubjectResolver.
type ContextSubjectResolver struct{}

func (ContextSubjectResolver) Subject(ctx context.Context) string {
	s, _ := ctx.Value(subjectKey{}).(string)
	return s
}

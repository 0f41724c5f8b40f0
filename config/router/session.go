package router

import (
	"net/http"

	"gitea.com/go-chi/session"
)

// NewSessionMiddleware runs the go-chi session handler inside a gin chain.
// Handlers reach the session with session.GetSession(ctx.Request).
func NewSessionMiddleware(opts session.Options) (MiddlewareFunc, error) {
	sessioner, err := session.Sessioner(opts)
	if err != nil {
		return nil, err
	}

	return func(c *RequestContext) {
		sessioner(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c.Request = r
			c.Next()
		})).ServeHTTP(c.Writer, c.Request)
	}, nil
}

// Package httputil provides HTTP helpers shared by the API and middleware.
//
// # Response Helpers
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteCreated(w, resource)
//	httputil.WriteUnauthorized(w, "invalid token") // adds WWW-Authenticate: Bearer
//	httputil.WriteTooManyRequests(w, "too many login attempts", retryAfter)
//
// Every error body has the shape {"error": "..."}.
//
// # Request Parsing
//
//	projectID, err := httputil.ParsePathString(r, "project_id")
//	limit, err := httputil.ParseQueryInt(r, "limit", 100)
//	token, present := httputil.BearerToken(r)
//	ip := httputil.ClientIP(r) // RemoteAddr unless the peer is a trusted proxy
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.ClientIPMiddleware(proxies),
//		httputil.LoggingMiddleware(logger),
//		httputil.MaxBytesMiddleware(1<<20),
//	)
package httputil

// Package api provides the HTTP surface of the baynext auth core.
//
// # Routes
//
//	POST   /v1/auth/token                          password login, form encoded
//	GET    /v1/me                                  the calling user
//	GET    /v1/projects                            owned and member projects
//	POST   /v1/projects                            users only; caller becomes owner
//	GET    /v1/projects/{project_id}               any role on the project
//	DELETE /v1/projects/{project_id}               project:delete
//	GET    /v1/projects/{project_id}/members       member:read
//	POST   /v1/projects/{project_id}/members       member:create
//	DELETE /v1/projects/{project_id}/members/{user_id}
//	POST   /v1/projects/{project_id}/keys          admin
//	GET    /v1/projects/{project_id}/keys          admin; ?skip=&limit=&showInactive=
//	GET    /v1/projects/{project_id}/keys/{key_id}
//	POST   /v1/projects/{project_id}/keys/{key_id}/deactivate
//	DELETE /v1/projects/{project_id}/keys/{key_id}
//
// The OpenAPI document is served at /openapi.yaml, /openapi.json and
// /api-docs. Every route except those, the token endpoint and the health
// probes passes through the auth gateway. A bearer token, the
// X-Baynext-Api-Key header and the ?key= query parameter are tried in that
// order; the first one present decides the outcome. Client addresses come
// from the TCP peer unless Deps.TrustedProxies vouches for it.
//
// # Usage
//
//	srv := api.NewServer(api.Deps{
//		Store:         store,
//		Authenticator: authn,
//		Gateway:       gateway,
//		Evaluator:     evaluator,
//		Logger:        logger,
//	})
//	http.ListenAndServe(":8080", srv)
//
// The API key secret is returned only by the create call. Listing and
// fetching keys show the prefix.
package api

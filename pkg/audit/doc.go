// Package audit records security-relevant events: logins, failed
// authentications, access denials and API key lifecycle changes.
//
// # Loggers
//
// LogrusLogger writes each event as a structured log entry tagged
// component=audit. MultiLogger fans an event out to several loggers,
// optionally in the background:
//
//	sink := audit.NewMultiLogger(audit.NewLogrusLogger(logger))
//	defer sink.Close()
//
// WebhookLogger forwards events to an HTTP collector. Bodies are signed with
// HMAC-SHA256 when a secret is configured, and failed deliveries are retried
// with exponential backoff. Receivers check the signature with VerifySignature:
//
//	hook := audit.NewWebhookLogger(url, secret, audit.DefaultRetryConfig(), logger)
//	sink := audit.NewMultiLogger(audit.NewLogrusLogger(logger), hook)
//
// # HTTP Integration
//
// Middleware stores the logger in the request context and writes an
// http.request event for mutations, errors and auth endpoints. Handlers
// add domain events through the package helpers:
//
//	audit.LogSuccess(ctx, r, audit.EventTypeKeyCreate, audit.ResourceTypeAPIKey, key.ID, "API key created")
//	audit.LogDenied(ctx, r, audit.ResourceTypeProject, projectID, err)
//
// NewEvent fills in the principal, project and request ID that the auth
// middleware and request ID middleware place in the context.
package audit

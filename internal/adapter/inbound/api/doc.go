// Package api exposes the switchboard core over HTTP.
//
// # Endpoints
//
//	POST /route             - evaluate, audit and dispatch an action request
//	POST /approve           - resolve a held request (reviewer endpoint)
//	POST /policy/check      - evaluate policy without auditing or dispatching
//	GET  /approvals/pending - list requests awaiting review (reviewer endpoint)
//	POST /audit/verify      - verify a record's signature and log inclusion
//	GET  /healthz           - liveness probe
//	GET  /metrics           - Prometheus exposition
//
// Routing answers with 200 (executed), 202 (held for approval) or 403
// (blocked by policy); all three carry the policy decision and the adapter
// that was or would be used. Plain errors use the shape {"error": "..."}.
//
// Reviewer endpoints are open until a keyring is configured, after which
// they require "Authorization: Bearer <key>" verified against the stored
// argon2id hashes.
package api

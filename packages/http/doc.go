// Package http sends calls to named, pre-configured HTTP clients.
//
// A call goes through these stages:
//   - Resolve: the named client's tree is merged over the defaults
//   - Builder: per-call changes (method, path, headers, query, body, auth)
//   - ResolveURL: scheme, endpoint lookup, path join, route params, query
//   - pre-send hooks: authentication (basic auth built in, others registered)
//   - send, with timeout, transport retries and TLS per certificate
//   - audit log of request and response, with secrets redacted
//   - post-receive hooks
//   - the optional ensure-success check
//
// A Session keeps the last request and response for later assertions.
package http

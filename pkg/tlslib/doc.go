// Package tlslib is the TLS library capability surface the session owner
// consumes: context construction from a method descriptor, file-backed
// loading of trust anchors, certificate and private key, session
// construction bound to a context, and explicit free operations.
//
// Std is the default implementation, backed by crypto/tls and crypto/x509.
// It performs no handshake and no socket I/O; a Session only carries the
// per-connection state that would be handed to crypto/tls.
//
// Like the embedded libraries it stands in for, Std does not lock Context or
// Session objects. Only its allocation registry is safe for concurrent use.
// Callers that share a Context between goroutines must provide their own
// ordering. Freeing a Context while a Session bound to it is still live is
// undefined; Std counts such frees as violations.
package tlslib

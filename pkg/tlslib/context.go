package tlslib

import (
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"io"
)

// Context is a configured TLS client identity: trust anchors, client
// certificate chain and private key. It is not safe for concurrent mutation.
type Context struct {
	id     string
	method Method
	random io.Reader

	roots   *x509.CertPool
	anchors int
	chain   [][]byte
	leaf    *x509.Certificate
	key     crypto.Signer

	sessions int
	freed    bool
}

// ID returns the context handle.
func (c *Context) ID() string {
	return c.id
}

// Method returns the method the context was built for.
func (c *Context) Method() Method {
	return c.method
}

// TrustAnchors returns the number of loaded trust anchors.
func (c *Context) TrustAnchors() int {
	return c.anchors
}

// HasCertificate reports whether a client certificate is loaded.
func (c *Context) HasCertificate() bool {
	return c.leaf != nil
}

// HasPrivateKey reports whether a private key is loaded.
func (c *Context) HasPrivateKey() bool {
	return c.key != nil
}

// Leaf returns the loaded client certificate, or nil.
func (c *Context) Leaf() *x509.Certificate {
	return c.leaf
}

// LiveSessions returns the number of sessions bound to the context.
func (c *Context) LiveSessions() int {
	return c.sessions
}

// Freed reports whether the context has been released.
func (c *Context) Freed() bool {
	return c.freed
}

// TLSConfig builds the crypto/tls client configuration the context
// describes. The client certificate is only included when both the
// certificate and key are loaded.
func (c *Context) TLSConfig() *tls.Config {
	cfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		RootCAs:    c.roots,
		Rand:       c.random,

		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP256,
		},
	}
	if c.method == MethodClientTLS13 {
		cfg.MinVersion = tls.VersionTLS13
		cfg.MaxVersion = tls.VersionTLS13
	}
	if c.leaf != nil && c.key != nil {
		cfg.Certificates = []tls.Certificate{{
			Certificate: c.chain,
			PrivateKey:  c.key,
			Leaf:        c.leaf,
		}}
	}
	return cfg
}

// Session is one handshake/record-layer instance bound to a Context.
// It must never outlive its Context.
type Session struct {
	id     string
	ctx    *Context
	config *tls.Config
	random [32]byte
	freed  bool
}

// ID returns the session handle.
func (s *Session) ID() string {
	return s.id
}

// Context returns the parent context.
func (s *Session) Context() *Context {
	return s.ctx
}

// Config returns the per-session TLS configuration snapshot.
func (s *Session) Config() *tls.Config {
	return s.config
}

// Random returns the client random drawn from the entropy source when the
// session was built.
func (s *Session) Random() [32]byte {
	return s.random
}

// Freed reports whether the session has been released.
func (s *Session) Freed() bool {
	return s.freed
}

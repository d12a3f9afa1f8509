package tlslib

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/tlshandoff/handoff-go/pkg/cert"
)

// Limits bounds the number of live objects, like a fixed static heap.
// Zero means unlimited.
type Limits struct {
	MaxContexts int
	MaxSessions int
}

// StdOption configures a Std library.
type StdOption func(*Std)

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) StdOption {
	return func(s *Std) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLimits bounds live contexts and sessions.
func WithLimits(l Limits) StdOption {
	return func(s *Std) {
		s.limits = l
	}
}

// Std implements Library on top of crypto/tls and crypto/x509.
type Std struct {
	random io.Reader
	logger *slog.Logger
	limits Limits

	contexts cmap.ConcurrentMap[string, *Context]
	sessions cmap.ConcurrentMap[string, *Session]

	liveContexts atomic.Int64
	liveSessions atomic.Int64
	violations   atomic.Int64
}

// NewStd creates a library that draws all randomness from random.
// random should be an entropy.Reader so that a not-ready hardware pool
// aborts session construction instead of degrading.
func NewStd(random io.Reader, opts ...StdOption) *Std {
	s := &Std{
		random:   random,
		logger:   slog.Default(),
		contexts: cmap.New[*Context](),
		sessions: cmap.New[*Session](),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewContext allocates a context.
func (s *Std) NewContext(m Method) (*Context, error) {
	if !reserve(&s.liveContexts, s.limits.MaxContexts) {
		return nil, fmt.Errorf("%w: context limit %d reached", ErrAllocation, s.limits.MaxContexts)
	}
	c := &Context{
		id:     uuid.New().String(),
		method: m,
		random: s.random,
		roots:  x509.NewCertPool(),
	}
	s.contexts.Set(c.id, c)
	return c, nil
}

// LoadVerifyLocations adds trust anchors from a PEM bundle.
func (s *Std) LoadVerifyLocations(c *Context, caFile string) Code {
	if !usable(c) {
		return CodeBadArg
	}
	data, err := os.ReadFile(caFile)
	if err != nil {
		return readCode(err)
	}
	certs, err := cert.DecodeCertsPEM(data)
	if err != nil {
		s.logger.Debug("trust anchor decode failed", "path", caFile, "error", err)
		return CodeBadFileType
	}
	for _, ca := range certs {
		c.roots.AddCert(ca)
	}
	c.anchors += len(certs)
	return CodeSuccess
}

// UseCertificateFile loads the client certificate. PEM files may carry a
// chain; the first certificate is the leaf.
func (s *Std) UseCertificateFile(c *Context, file string, ft FileType) Code {
	if !usable(c) {
		return CodeBadArg
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return readCode(err)
	}

	var certs []*x509.Certificate
	switch ft {
	case FileTypePEM:
		certs, err = cert.DecodeCertsPEM(data)
	case FileTypeDER:
		var leaf *x509.Certificate
		leaf, err = x509.ParseCertificate(data)
		certs = []*x509.Certificate{leaf}
	default:
		return CodeBadArg
	}
	if err != nil {
		s.logger.Debug("certificate decode failed", "path", file, "type", ft, "error", err)
		return CodeBadFileType
	}

	chain := make([][]byte, 0, len(certs))
	for _, crt := range certs {
		chain = append(chain, crt.Raw)
	}
	c.leaf = certs[0]
	c.chain = chain
	return CodeSuccess
}

// UsePrivateKeyFile loads the private key.
func (s *Std) UsePrivateKeyFile(c *Context, file string, ft FileType) Code {
	if !usable(c) {
		return CodeBadArg
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return readCode(err)
	}

	var key crypto.Signer
	switch ft {
	case FileTypeDER:
		key, err = cert.DecodeKeyDER(data)
	case FileTypePEM:
		block, _ := pem.Decode(data)
		if block == nil {
			err = cert.ErrInvalidPEM
			break
		}
		key, err = cert.DecodeKeyDER(block.Bytes)
	default:
		return CodeBadArg
	}
	if err != nil {
		s.logger.Debug("private key decode failed", "path", file, "type", ft, "error", err)
		return CodeBadFileType
	}
	c.key = key
	return CodeSuccess
}

// NewSession allocates a session bound to c. Building a session draws the
// client random from the entropy source; a failed draw fails allocation.
func (s *Std) NewSession(c *Context) (*Session, error) {
	if c == nil {
		return nil, ErrNilContext
	}
	if c.freed {
		return nil, ErrFreedContext
	}
	if !reserve(&s.liveSessions, s.limits.MaxSessions) {
		return nil, fmt.Errorf("%w: session limit %d reached", ErrAllocation, s.limits.MaxSessions)
	}

	sess := &Session{
		id:     uuid.New().String(),
		ctx:    c,
		config: c.TLSConfig(),
	}
	if s.random == nil {
		s.liveSessions.Add(-1)
		return nil, fmt.Errorf("%w: no randomness source", ErrAllocation)
	}
	if _, err := io.ReadFull(s.random, sess.random[:]); err != nil {
		s.liveSessions.Add(-1)
		return nil, fmt.Errorf("%w: rng: %w", ErrAllocation, err)
	}

	c.sessions++
	s.sessions.Set(sess.id, sess)
	return sess, nil
}

// FreeSession releases a session.
func (s *Std) FreeSession(sess *Session) {
	if sess == nil || sess.freed {
		return
	}
	sess.freed = true
	if sess.ctx != nil {
		sess.ctx.sessions--
	}
	s.sessions.Remove(sess.id)
	s.liveSessions.Add(-1)
}

// FreeContext releases a context. Freeing a context with live sessions is
// recorded as a violation.
func (s *Std) FreeContext(c *Context) {
	if c == nil || c.freed {
		return
	}
	if c.sessions > 0 {
		s.violations.Add(1)
		s.logger.Error("context freed with live sessions", "context", c.id, "sessions", c.sessions)
	}
	c.freed = true
	s.contexts.Remove(c.id)
	s.liveContexts.Add(-1)
}

// LiveContexts returns the number of allocated, unfreed contexts.
func (s *Std) LiveContexts() int {
	return s.contexts.Count()
}

// LiveSessions returns the number of allocated, unfreed sessions.
func (s *Std) LiveSessions() int {
	return s.sessions.Count()
}

// Violations returns how many contexts were freed before their sessions.
func (s *Std) Violations() int {
	return int(s.violations.Load())
}

func usable(c *Context) bool {
	return c != nil && !c.freed
}

func readCode(err error) Code {
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return CodeBadFile
	}
	return CodeFailure
}

// reserve increments n unless that would exceed limit (0 = unlimited).
func reserve(n *atomic.Int64, limit int) bool {
	v := n.Add(1)
	if limit > 0 && v > int64(limit) {
		n.Add(-1)
		return false
	}
	return true
}

// Compile-time interface satisfaction check.
var _ Library = (*Std)(nil)

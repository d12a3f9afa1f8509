package tlslib

import (
	"errors"
	"fmt"
)

// Allocation errors.
var (
	ErrAllocation    = errors.New("tlslib: allocation failed")
	ErrUnknownMethod = errors.New("tlslib: unknown method")
	ErrNilContext    = errors.New("tlslib: nil context")
	ErrFreedContext  = errors.New("tlslib: context already freed")
)

// Library is the TLS capability surface.
type Library interface {
	// NewContext allocates a context for the given method.
	NewContext(m Method) (*Context, error)

	// LoadVerifyLocations adds the PEM certificates in caFile to the
	// context's trust anchors.
	LoadVerifyLocations(c *Context, caFile string) Code

	// UseCertificateFile sets the context's client certificate.
	UseCertificateFile(c *Context, file string, ft FileType) Code

	// UsePrivateKeyFile sets the context's private key.
	UsePrivateKeyFile(c *Context, file string, ft FileType) Code

	// NewSession allocates a session bound to c.
	NewSession(c *Context) (*Session, error)

	// FreeSession releases s. Freeing nil is a no-op.
	FreeSession(s *Session)

	// FreeContext releases c. Freeing nil is a no-op.
	FreeContext(c *Context)
}

// Method describes the protocol role and version range of a context.
type Method uint8

const (
	// MethodClient negotiates the highest version both sides support.
	MethodClient Method = iota
	// MethodClientTLS13 only accepts TLS 1.3.
	MethodClientTLS13
)

// String returns the method name.
func (m Method) String() string {
	switch m {
	case MethodClient:
		return "client"
	case MethodClientTLS13:
		return "client-tls13"
	default:
		return "unknown"
	}
}

// ParseMethod parses a method name as returned by Method.String. The empty
// string selects MethodClient.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "", "client":
		return MethodClient, nil
	case "client-tls13":
		return MethodClientTLS13, nil
	default:
		return 0, fmt.Errorf("%w %q, supported methods: client, client-tls13", ErrUnknownMethod, s)
	}
}

// FileType is the encoding of a certificate or key file.
type FileType uint8

const (
	// FileTypePEM is base64 text with BEGIN/END armor.
	FileTypePEM FileType = iota + 1
	// FileTypeDER is raw ASN.1.
	FileTypeDER
)

// String returns the file type name.
func (ft FileType) String() string {
	switch ft {
	case FileTypePEM:
		return "PEM"
	case FileTypeDER:
		return "DER"
	default:
		return "UNKNOWN"
	}
}

// Code is the numeric result of a load operation.
type Code int

// Load result codes.
const (
	CodeSuccess     Code = 1
	CodeFailure     Code = 0
	CodeBadFile     Code = -4
	CodeBadFileType Code = -5
	CodeBadArg      Code = -173
)

// OK reports whether c is CodeSuccess.
func (c Code) OK() bool {
	return c == CodeSuccess
}

// String returns the code name and number.
func (c Code) String() string {
	var name string
	switch c {
	case CodeSuccess:
		name = "SUCCESS"
	case CodeFailure:
		name = "FAILURE"
	case CodeBadFile:
		name = "BAD_FILE"
	case CodeBadFileType:
		name = "BAD_FILETYPE"
	case CodeBadArg:
		name = "BAD_FUNC_ARG"
	default:
		name = "UNKNOWN"
	}
	return fmt.Sprintf("%s(%d)", name, int(c))
}

package certstore

import (
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"time"
)

// Identity is a parsed certificate and its private key. It lives for the
// processing of a single entry.
type Identity struct {
	CertificatePath string
	KeyPath         string
	Certificate     *x509.Certificate
	PrivateKey      crypto.PrivateKey
	TLSCertificate  tls.Certificate
}

// NotAfter returns the end of the validity window in UTC.
func (id *Identity) NotAfter() time.Time {
	return id.Certificate.NotAfter.UTC()
}

// Close drops the references to the key material.
func (id *Identity) Close() {
	id.PrivateKey = nil
	id.TLSCertificate = tls.Certificate{}
}

// ReadError is returned when a certificate or key cannot be read or parsed.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("cannot read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// WriteError is returned when a renewed certificate cannot be persisted.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("cannot write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

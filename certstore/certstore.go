// Package certstore reads client certificate/key pairs from disk and
// replaces certificate files with renewed ones.
package certstore

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	pemTypeCertificate = "CERTIFICATE"

	defaultCertificateMode os.FileMode = 0644
)

var (
	errNoCertificate = errors.New("no CERTIFICATE PEM block found")
	errNoPrivateKey  = errors.New("no private key PEM block found")
)

// Inspect loads the certificate at certPath and the matching private key at
// keyPath.
func Inspect(
	certPath string,
	keyPath string,
) (
	*Identity,
	error,
) {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, &ReadError{Path: certPath, Err: err}
	}

	cert, err := parseLeaf(certPEM)
	if err != nil {
		return nil, &ReadError{Path: certPath, Err: err}
	}

	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, &ReadError{Path: keyPath, Err: err}
	}
	if !hasPrivateKeyBlock(keyPEM) {
		return nil, &ReadError{Path: keyPath, Err: errNoPrivateKey}
	}

	// X509KeyPair parses PKCS#1, SEC1 and PKCS#8 keys and checks that the
	// key belongs to the certificate.
	pair, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, &ReadError{Path: keyPath, Err: err}
	}
	pair.Leaf = cert

	return &Identity{
		CertificatePath: certPath,
		KeyPath:         keyPath,
		Certificate:     cert,
		PrivateKey:      pair.PrivateKey,
		TLSCertificate:  pair,
	}, nil
}

// parseLeaf returns the first certificate in a PEM bundle.
func parseLeaf(
	data []byte,
) (
	*x509.Certificate,
	error,
) {
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			return nil, errNoCertificate
		}
		if block.Type != pemTypeCertificate {
			continue
		}

		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parsing certificate: %w", err)
		}
		return cert, nil
	}
}

func hasPrivateKeyBlock(
	data []byte,
) bool {
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			return false
		}
		if block.Type == "PRIVATE KEY" || strings.HasSuffix(block.Type, " PRIVATE KEY") {
			return true
		}
	}
}

// EncodePEM armors a DER certificate. Base64 lines are 64 characters plus
// the newline.
func EncodePEM(
	der []byte,
) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  pemTypeCertificate,
		Bytes: der,
	})
}

// Write replaces the certificate at certPath with der. The new content is
// written to a temporary file in the same directory and renamed over the
// original, so readers see either the old or the new certificate. A
// symlinked certPath keeps its link; the file it points to is replaced.
func Write(
	certPath string,
	der []byte,
) error {
	target := certPath
	if resolved, err := filepath.EvalSymlinks(certPath); err == nil {
		target = resolved
	}

	mode := defaultCertificateMode
	if fi, err := os.Stat(target); err == nil {
		mode = fi.Mode().Perm()
	}

	dir, base := filepath.Split(target)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return &WriteError{Path: certPath, Err: err}
	}
	tmpPath := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(EncodePEM(der)); err != nil {
		return &WriteError{Path: certPath, Err: err}
	}
	if err := tmp.Chmod(mode); err != nil {
		return &WriteError{Path: certPath, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		return &WriteError{Path: certPath, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &WriteError{Path: certPath, Err: err}
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return &WriteError{Path: certPath, Err: err}
	}
	committed = true

	return nil
}

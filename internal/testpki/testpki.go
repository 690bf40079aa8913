// Package testpki builds throwaway certificate authorities and client
// certificates for tests.
package testpki

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type Authority struct {
	Certificate *x509.Certificate
	Key         *ecdsa.PrivateKey
	Pool        *x509.CertPool
	serial      int64
}

type Client struct {
	Certificate *x509.Certificate
	Key         *ecdsa.PrivateKey
	CertPath    string
	KeyPath     string
}

func NewAuthority(
	t testing.TB,
) *Authority {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Test CA"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(10 * 365 * 24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatal(err)
	}

	pool := x509.NewCertPool()
	pool.AddCert(cert)

	return &Authority{
		Certificate: cert,
		Key:         key,
		Pool:        pool,
		serial:      1,
	}
}

// Issue signs a client certificate for key that expires at notAfter and
// returns its DER encoding.
func (a *Authority) Issue(
	t testing.TB,
	key *ecdsa.PrivateKey,
	commonName string,
	notAfter time.Time,
) []byte {
	t.Helper()

	a.serial++
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(a.serial),
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     notAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{
			x509.ExtKeyUsageClientAuth,
			x509.ExtKeyUsageServerAuth,
		},
		DNSNames: []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, a.Certificate, &key.PublicKey, a.Key)
	if err != nil {
		t.Fatal(err)
	}

	return der
}

// NewClient issues a client certificate and writes it and its key as PEM
// files into dir.
func (a *Authority) NewClient(
	t testing.TB,
	dir string,
	name string,
	notAfter time.Time,
) *Client {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	der := a.Issue(t, key, name, notAfter)
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatal(err)
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}

	c := &Client{
		Certificate: cert,
		Key:         key,
		CertPath:    filepath.Join(dir, name+".crt"),
		KeyPath:     filepath.Join(dir, name+".key"),
	}
	WritePEM(t, c.CertPath, "CERTIFICATE", der)
	WritePEM(t, c.KeyPath, "PRIVATE KEY", keyDER)

	return c
}

func WritePEM(
	t testing.TB,
	path string,
	blockType string,
	der []byte,
) {
	t.Helper()

	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}
}

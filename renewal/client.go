// Package renewal decides when a client certificate is due and requests a
// renewed one from the CA's SSL client self-renewal profile.
package renewal

import (
	"context"
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sveniu/sslclient-renew/certstore"
)

const (
	// DefaultBaseURI is the CA's end-entity port on the local host.
	DefaultBaseURI = "https://localhost:8443"
	DefaultTimeout = 30 * time.Second

	ProfileSubmitPath = "/ca/eeca/ca/profileSubmitSSLClient"
	RenewalRequest    = "profileId=caSSLClientSelfRenewal&renewal=true&xmlOutput=true"

	contentTypeForm = "application/x-www-form-urlencoded"

	maxResponseBytes = 1 << 20
)

type Client struct {
	BaseURI string

	// RootCAs verifies the CA's server certificate. Nil means the system
	// pool.
	RootCAs *x509.CertPool

	Timeout time.Duration
}

type Option func(*Client)

func WithRootCAs(
	pool *x509.CertPool,
) Option {
	return func(c *Client) {
		c.RootCAs = pool
	}
}

func WithTimeout(
	d time.Duration,
) Option {
	return func(c *Client) {
		if d > 0 {
			c.Timeout = d
		}
	}
}

func NewClient(
	baseURI string,
	opts ...Option,
) *Client {
	if baseURI == "" {
		baseURI = DefaultBaseURI
	}
	c := &Client{
		BaseURI: baseURI,
		Timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the absolute profile submission URL.
func (c *Client) Endpoint() string {
	return strings.TrimRight(c.BaseURI, "/") + ProfileSubmitPath
}

// LoadRootCAs returns the system pool extended with the PEM certificates in
// bundlePath.
func LoadRootCAs(
	bundlePath string,
) (
	*x509.CertPool,
	error,
) {
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}

	data, err := os.ReadFile(bundlePath)
	if err != nil {
		return nil, err
	}
	if !pool.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("no certificates found in %s", bundlePath)
	}

	return pool, nil
}

// Renew submits a self-renewal request authenticated with id and returns
// the DER of the renewed certificate.
func (c *Client) Renew(
	ctx context.Context,
	id *certstore.Identity,
) (
	[]byte,
	error,
) {
	// A transport per identity: the client certificate is bound to the
	// connection, so nothing may be pooled across entries.
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			Certificates: []tls.Certificate{id.TLSCertificate},
			RootCAs:      c.RootCAs,
			MinVersion:   tls.VersionTLS12,
		},
		TLSHandshakeTimeout: c.Timeout,
		DisableKeepAlives:   true,
	}
	defer transport.CloseIdleConnections()

	httpClient := &http.Client{
		Transport: transport,
		Timeout:   c.Timeout,
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.Endpoint(),
		strings.NewReader(RenewalRequest),
	)
	if err != nil {
		return nil, &NetworkError{Reason: "building request", Err: err}
	}
	req.Header.Set("Content-Type", contentTypeForm)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Reason: "sending request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, &NetworkError{
			Status: resp.StatusCode,
			Reason: http.StatusText(resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &NetworkError{Status: resp.StatusCode, Reason: "reading response", Err: err}
	}

	payload, err := ExtractB64(body)
	if err != nil {
		return nil, err
	}

	der, err := decodePayload(payload)
	if err != nil {
		return nil, &ProtocolError{Reason: "b64 element: " + err.Error(), Raw: body}
	}

	renewed, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, &ProtocolError{Reason: "b64 element is not a certificate: " + err.Error(), Raw: body}
	}

	if !samePublicKey(renewed, id.PrivateKey) {
		return nil, &ProtocolError{Reason: "renewed certificate does not match the private key", Raw: body}
	}

	return der, nil
}

func samePublicKey(
	cert *x509.Certificate,
	key crypto.PrivateKey,
) bool {
	signer, ok := key.(crypto.Signer)
	if !ok {
		return false
	}
	pub, ok := cert.PublicKey.(interface{ Equal(crypto.PublicKey) bool })
	if !ok {
		return false
	}
	return pub.Equal(signer.Public())
}

package sns

import (
	"bytes"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"strings"
	"text/template"
	"time"
)

type CertificateText struct {
	Path      string
	Host      string
	Subject   string
	Issuer    string
	Serial    string
	NotBefore string
	NotAfter  string
}

const messageTemplate = `Certificate file:  {{.Path}}
Host:              {{.Host}}
Subject:           {{.Subject}}
Issuer:            {{.Issuer}}
Serial:            {{.Serial}}
Not valid before:  {{.NotBefore}}
Not valid after:   {{.NotAfter}}

The certificate file has been replaced with the renewed certificate.
`

var messageTmpl = template.Must(template.New("message").Parse(messageTemplate))

// formatSerial renders a serial number as colon-separated hex octets.
func formatSerial(
	serial *big.Int,
) string {
	b := serial.Bytes()
	if len(b) == 0 {
		return "00"
	}
	octets := make([]string, len(b))
	for i := range b {
		octets[i] = hex.EncodeToString(b[i : i+1])
	}
	return strings.Join(octets, ":")
}

func makeSubjectAndBody(
	certPath string,
	der []byte,
) (
	string,
	string,
	error,
) {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return "", "", err
	}

	host, err := os.Hostname()
	if err != nil {
		host = "N/A"
	}

	subject := fmt.Sprintf(
		"Certificate renewed: %s",
		cert.Subject.CommonName,
	)

	certText := &CertificateText{
		Path:      certPath,
		Host:      host,
		Subject:   cert.Subject.String(),
		Issuer:    cert.Issuer.String(),
		Serial:    formatSerial(cert.SerialNumber),
		NotBefore: cert.NotBefore.UTC().Format(time.RFC3339),
		NotAfter:  cert.NotAfter.UTC().Format(time.RFC3339),
	}

	messageBytes := new(bytes.Buffer)
	if err := messageTmpl.Execute(messageBytes, certText); err != nil {
		return "", "", err
	}

	return subject, messageBytes.String(), nil
}

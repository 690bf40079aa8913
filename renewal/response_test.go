package renewal

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

type extractB64TestCase struct {
	body        string
	expected    string
	expectedErr string
}

var extractB64TestCases = []extractB64TestCase{
	extractB64TestCase{
		body: `<?xml version="1.0" encoding="UTF-8" standalone="no"?>
<XMLResponse><Status>0</Status><Requests><Request><Id>42</Id>
<b64>MIIB
AAAA
</b64></Request></Requests></XMLResponse>`,
		expected: "MIIBAAAA",
	},

	// Declared charsets other than UTF-8 are accepted.
	extractB64TestCase{
		body:     `<?xml version="1.0" encoding="ISO-8859-1"?><XMLResponse><b64>QUJD</b64></XMLResponse>`,
		expected: "QUJD",
	},

	// First b64 element wins.
	extractB64TestCase{
		body:     `<r><a><b64>Zmlyc3Q=</b64></a><b64>c2Vjb25k</b64></r>`,
		expected: "Zmlyc3Q=",
	},

	extractB64TestCase{
		body:        `<XMLResponse><Status>0</Status></XMLResponse>`,
		expectedErr: "no b64 element",
	},

	extractB64TestCase{
		body:        `<XMLResponse><Status>1</Status><Error>Renewal not allowed</Error></XMLResponse>`,
		expectedErr: "Renewal not allowed",
	},

	extractB64TestCase{
		body:        `<XMLResponse><b64>  </b64></XMLResponse>`,
		expectedErr: "empty b64",
	},

	extractB64TestCase{
		body:        `<html><body>Login`,
		expectedErr: "malformed XML",
	},
}

func TestExtractB64(
	t *testing.T,
) {
	for _, tc := range extractB64TestCases {
		payload, err := ExtractB64([]byte(tc.body))
		if tc.expectedErr != "" {
			var perr *ProtocolError
			if !errors.As(err, &perr) {
				t.Errorf("Expected ProtocolError for %q, got %v", tc.body, err)
				continue
			}
			if !strings.Contains(perr.Error(), tc.expectedErr) {
				t.Errorf("Expected %q in error, got %q", tc.expectedErr, perr.Error())
			}
			if string(perr.Raw) != tc.body {
				t.Errorf("Raw response not preserved: %q", perr.Raw)
			}
			continue
		}

		if err != nil {
			t.Errorf("Unexpected error: Args (%q) -> %v", tc.body, err)
			continue
		}
		if payload != tc.expected {
			t.Errorf("Mismatching payload: Wanted %q, got %q", tc.expected, payload)
		}
	}
}

func TestDecodePayload(
	t *testing.T,
) {
	der := []byte{0x30, 0x03, 0x02, 0x01, 0x01}

	got, err := decodePayload(base64.StdEncoding.EncodeToString(der))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(der) {
		t.Errorf("Unexpected DER: %x", got)
	}

	pemDoc := "-----BEGIN CERTIFICATE-----\n" +
		base64.StdEncoding.EncodeToString(der) +
		"\n-----END CERTIFICATE-----\n"
	got, err = decodePayload(base64.StdEncoding.EncodeToString([]byte(pemDoc)))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(der) {
		t.Errorf("Unexpected DER from PEM payload: %x", got)
	}

	if _, err := decodePayload("!!!"); err == nil {
		t.Error("Expected error for invalid base64")
	}
}

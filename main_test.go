package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(
	t *testing.T,
	name string,
	content string,
) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

type runTestCase struct {
	name         string
	args         func(t *testing.T) []string
	stdin        string
	expectedCode int
	expectedOut  string
}

var runTestCases = []runTestCase{
	runTestCase{
		name: "help",
		args: func(t *testing.T) []string {
			return []string{"sslclient-renew", "-h"}
		},
		expectedCode: 0,
		expectedOut:  "Usage:",
	},
	runTestCase{
		name: "unknown flag",
		args: func(t *testing.T) []string {
			return []string{"sslclient-renew", "-x"}
		},
		expectedCode: 2,
	},
	runTestCase{
		name: "missing entry list",
		args: func(t *testing.T) []string {
			return []string{"sslclient-renew", "-i", "/nonexistent/entries"}
		},
		expectedCode: 1,
		expectedOut:  "/nonexistent/entries",
	},
	runTestCase{
		name: "comments only",
		args: func(t *testing.T) []string {
			return []string{"sslclient-renew", "-i", writeFile(t, "entries", "# nothing\n")}
		},
		expectedCode: 0,
	},
	runTestCase{
		name: "empty stdin",
		args: func(t *testing.T) []string {
			return []string{"sslclient-renew", "-d", "10"}
		},
		stdin:        "",
		expectedCode: 0,
	},
	runTestCase{
		name: "unreadable entries are skipped",
		args: func(t *testing.T) []string {
			return []string{"sslclient-renew", "-i", "-"}
		},
		stdin:        "/nonexistent/a.crt /nonexistent/a.key\n",
		expectedCode: 0,
		expectedOut:  "/nonexistent/a.crt",
	},
	runTestCase{
		name: "invalid renewal window",
		args: func(t *testing.T) []string {
			return []string{"sslclient-renew", "-d", "0"}
		},
		expectedCode: 1,
		expectedOut:  "renewal_days",
	},
	runTestCase{
		name: "config file",
		args: func(t *testing.T) []string {
			cfg := writeFile(t, "config.yaml", "ca_uri: http://insecure.example\n")
			return []string{"sslclient-renew", "-c", cfg}
		},
		expectedCode: 1,
		expectedOut:  "must use https",
	},
	runTestCase{
		name: "flags override config file",
		args: func(t *testing.T) []string {
			cfg := writeFile(t, "config.yaml", "ca_uri: http://insecure.example\n")
			return []string{"sslclient-renew", "-c", cfg, "-u", "https://ca.example:8443"}
		},
		expectedCode: 0,
	},
	runTestCase{
		name: "missing trust bundle",
		args: func(t *testing.T) []string {
			return []string{"sslclient-renew", "-a", "/nonexistent/ca.pem"}
		},
		expectedCode: 1,
		expectedOut:  "trust bundle",
	},
	runTestCase{
		name: "unknown exporter",
		args: func(t *testing.T) []string {
			cfg := writeFile(t, "config.yaml", "exporters:\n  - type: carrier-pigeon\n")
			return []string{"sslclient-renew", "-c", cfg}
		},
		expectedCode: 1,
		expectedOut:  "carrier-pigeon",
	},
}

func TestRun(
	t *testing.T,
) {
	for _, tc := range runTestCases {
		stderr := new(bytes.Buffer)
		code := run(
			context.Background(),
			tc.args(t),
			strings.NewReader(tc.stdin),
			stderr,
		)

		if code != tc.expectedCode {
			t.Errorf("%s: Mismatching exit code: Wanted %d, got %d\n%s",
				tc.name, tc.expectedCode, code, stderr.String())
		}
		if tc.expectedOut != "" && !strings.Contains(stderr.String(), tc.expectedOut) {
			t.Errorf("%s: Expected %q in output:\n%s", tc.name, tc.expectedOut, stderr.String())
		}
	}
}

// Package entrylist reads the list of certificate/key path pairs to renew.
//
// The format is line oriented: two whitespace-separated fields per line,
// the certificate path followed by the key path. A backslash makes the next
// character literal, so "my\ cert.pem" is a single field. Lines whose first
// non-blank character is '#' are comments.
package entrylist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"gitlab.com/z0mbie42/rz-go/v2"
)

// StdinPath selects standard input as the entry-list source.
const StdinPath = "-"

// maxLineLength bounds one line: two paths of PATH_MAX bytes each, with
// room for escapes.
const maxLineLength = 4 * 4096

var (
	errFieldCount     = errors.New("expected exactly two fields")
	errDanglingEscape = errors.New("backslash at end of line")
	errLineTooLong    = errors.New("line too long")
)

type Entry struct {
	CertificatePath string
	KeyPath         string
	Line            int
}

// ConfigError is returned when the entry-list source itself cannot be read.
// It is the only fatal error of a batch run.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("cannot read entry list %q: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Load reads the entry list at path, or from stdin when path is "-".
func Load(
	path string,
	stdin io.Reader,
	logger rz.Logger,
) (
	[]Entry,
	error,
) {
	if path == StdinPath {
		entries, err := Parse(stdin, logger)
		if err != nil {
			return nil, &ConfigError{Path: path, Err: err}
		}
		return entries, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	defer f.Close()

	entries, err := Parse(f, logger)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	return entries, nil
}

// Parse reads entries from r. Malformed lines are logged and skipped; only
// a read error on r is returned.
func Parse(
	r io.Reader,
	logger rz.Logger,
) (
	[]Entry,
	error,
) {
	var entries []Entry

	reader := bufio.NewReader(r)
	lineNo := 0
	for {
		raw, tooLong, err := readLine(reader)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		lineNo++

		if tooLong {
			logger.Warn(
				"Skipping malformed entry-list line",
				rz.Err(errLineTooLong),
				rz.Int("line", lineNo),
				rz.String("content", raw[:64]+"..."),
			)
			continue
		}

		line := strings.TrimLeftFunc(raw, unicode.IsSpace)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields, err := splitFields(line)
		if err == nil && len(fields) != 2 {
			err = errFieldCount
		}
		if err != nil {
			logger.Warn(
				"Skipping malformed entry-list line",
				rz.Err(err),
				rz.Int("line", lineNo),
				rz.String("content", line),
			)
			continue
		}

		entries = append(entries, Entry{
			CertificatePath: fields[0],
			KeyPath:         fields[1],
			Line:            lineNo,
		})
	}

	return entries, nil
}

// readLine returns the next line without its terminator. Lines longer than
// maxLineLength are drained and reported as tooLong with only their start
// kept. io.EOF is returned once no bytes remain.
func readLine(
	reader *bufio.Reader,
) (
	string,
	bool,
	error,
) {
	var buf []byte
	tooLong := false
	read := false

	for {
		fragment, isPrefix, err := reader.ReadLine()
		if err != nil {
			if err == io.EOF && read {
				break
			}
			return "", false, err
		}
		read = true

		if !tooLong {
			buf = append(buf, fragment...)
			if len(buf) > maxLineLength {
				buf = buf[:maxLineLength]
				tooLong = true
			}
		}
		if !isPrefix {
			break
		}
	}

	return string(buf), tooLong, nil
}

// splitFields splits on unescaped whitespace, resolving backslash escapes.
func splitFields(
	line string,
) (
	[]string,
	error,
) {
	var fields []string
	var cur strings.Builder
	inField := false
	escaped := false

	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
			inField = true
		case unicode.IsSpace(r):
			if inField {
				fields = append(fields, cur.String())
				cur.Reset()
				inField = false
			}
		default:
			cur.WriteRune(r)
			inField = true
		}
	}
	if escaped {
		return nil, errDanglingEscape
	}
	if inField {
		fields = append(fields, cur.String())
	}

	return fields, nil
}

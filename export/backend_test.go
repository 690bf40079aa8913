package export

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sveniu/sslclient-renew/config"

	"gitlab.com/z0mbie42/rz-go/v2"
)

type recordingBackend struct {
	configured map[string]interface{}
}

func (b *recordingBackend) Configure(
	configData map[string]interface{},
) error {
	if configData["fail"] == true {
		return errors.New("refusing configuration")
	}
	b.configured = configData
	return nil
}

func (b *recordingBackend) Export(
	ctx context.Context,
	certPath string,
	der []byte,
) error {
	return nil
}

func init() {
	RegisterBackend("test-recording", func(rz.Logger) (Backend, error) {
		return &recordingBackend{}, nil
	})
}

func TestRegisterBackendDuplicatePanics(
	t *testing.T,
) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic on duplicate registration")
		}
	}()

	RegisterBackend("test-recording", func(rz.Logger) (Backend, error) {
		return nil, nil
	})
}

func TestInitBackend(
	t *testing.T,
) {
	logger := rz.New(rz.Writer(new(bytes.Buffer)))

	b, err := InitBackend("test-recording", logger)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := b.(*recordingBackend); !ok {
		t.Errorf("Unexpected backend type %T", b)
	}

	_, err = InitBackend("no-such-backend", logger)
	if err == nil || !strings.Contains(err.Error(), "unknown backend") {
		t.Errorf("Expected unknown backend error, got %v", err)
	}
}

func TestBuild(
	t *testing.T,
) {
	logger := rz.New(rz.Writer(new(bytes.Buffer)))

	targets, err := Build([]*config.Exporter{
		{Type: "test-recording", Config: map[string]interface{}{"topic": "x"}},
	}, logger)
	if err != nil {
		t.Fatal(err)
	}
	if len(targets) != 1 || targets[0].Type != "test-recording" {
		t.Fatalf("Unexpected targets: %+v", targets)
	}
	if rb := targets[0].Backend.(*recordingBackend); rb.configured["topic"] != "x" {
		t.Errorf("Backend not configured: %+v", rb.configured)
	}

	_, err = Build([]*config.Exporter{
		{Type: "test-recording", Config: map[string]interface{}{"fail": true}},
	}, logger)
	if err == nil || !strings.Contains(err.Error(), "refusing configuration") {
		t.Errorf("Expected configuration error, got %v", err)
	}
}

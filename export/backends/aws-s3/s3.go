package s3

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/mitchellh/mapstructure"

	"github.com/sveniu/sslclient-renew/certstore"
	"github.com/sveniu/sslclient-renew/export"

	"gitlab.com/z0mbie42/rz-go/v2"
)

const backendName = "aws-s3"

type S3Config struct {
	Region      string `mapstructure:"region"`
	Bucket      string `mapstructure:"bucket"`
	Prefix      string `mapstructure:"prefix"`
	SSEKMSKeyID string `mapstructure:"sse_kms_key_id"`
}

func init() {
	export.RegisterBackend(backendName, func(logger rz.Logger) (export.Backend, error) {
		return &S3ExporterBackend{logger: logger}, nil
	})
}

// S3ExporterBackend stores a PEM copy of each renewed certificate.
type S3ExporterBackend struct {
	config *S3Config
	logger rz.Logger
}

func (b *S3ExporterBackend) Configure(
	configData map[string]interface{},
) error {
	cfg := new(S3Config)
	if err := mapstructure.Decode(configData, cfg); err != nil {
		return err
	}
	if cfg.Bucket == "" {
		return errors.New("aws-s3: bucket cannot be empty")
	}
	b.config = cfg

	return nil
}

// ObjectKey returns the key under which the certificate at certPath is
// stored.
func (b *S3ExporterBackend) ObjectKey(
	certPath string,
) string {
	return b.config.Prefix + filepath.Base(certPath)
}

func (b *S3ExporterBackend) Export(
	ctx context.Context,
	certPath string,
	der []byte,
) error {
	sess, err := session.NewSession()
	if err != nil {
		b.logger.Error(
			"Error starting AWS session",
			rz.Err(err),
		)
		return err
	}

	awsConfig := aws.NewConfig()
	if b.config.Region != "" {
		awsConfig = awsConfig.WithRegion(b.config.Region)
	}
	svc := s3.New(sess, awsConfig)

	key := b.ObjectKey(certPath)
	poParams := &s3.PutObjectInput{
		Body:        bytes.NewReader(certstore.EncodePEM(der)),
		Bucket:      aws.String(b.config.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String("application/x-pem-file"),
	}
	if b.config.SSEKMSKeyID != "" {
		poParams = poParams.SetServerSideEncryption("aws:kms")
		poParams = poParams.SetSSEKMSKeyId(b.config.SSEKMSKeyID)
	}

	if _, err := svc.PutObjectWithContext(ctx, poParams); err != nil {
		b.logger.Error(
			"Error calling PutObject",
			rz.Err(err),
			rz.String("s3_bucket", b.config.Bucket),
			rz.String("s3_key", key),
		)
		return err
	}

	b.logger.Info(
		"Stored renewed certificate",
		rz.String("certificate_path", certPath),
		rz.String("s3_bucket", b.config.Bucket),
		rz.String("s3_key", key),
	)

	return nil
}

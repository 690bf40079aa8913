package sns

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sns"

	"github.com/mitchellh/mapstructure"

	"github.com/sveniu/sslclient-renew/export"

	"gitlab.com/z0mbie42/rz-go/v2"
)

const backendName = "aws-sns"

type SNSConfig struct {
	Region   string `mapstructure:"region"`
	TopicArn string `mapstructure:"topic_arn"`
}

func init() {
	export.RegisterBackend(backendName, func(logger rz.Logger) (export.Backend, error) {
		return &SNSExporterBackend{logger: logger}, nil
	})
}

type SNSExporterBackend struct {
	config *SNSConfig
	logger rz.Logger
}

func (b *SNSExporterBackend) Configure(
	configData map[string]interface{},
) error {
	cfg := new(SNSConfig)
	if err := mapstructure.Decode(configData, cfg); err != nil {
		return err
	}
	if cfg.TopicArn == "" {
		return errors.New("aws-sns: topic_arn cannot be empty")
	}
	b.config = cfg

	return nil
}

func (b *SNSExporterBackend) Export(
	ctx context.Context,
	certPath string,
	der []byte,
) error {
	subject, message, err := makeSubjectAndBody(certPath, der)
	if err != nil {
		b.logger.Error(
			"Error making subject or body",
			rz.Err(err),
			rz.String("certificate_path", certPath),
		)
		return err
	}

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
	svc := sns.New(sess, awsConfig)

	pParams := &sns.PublishInput{
		Message:  aws.String(message),
		Subject:  aws.String(subject),
		TopicArn: aws.String(b.config.TopicArn),
	}

	b.logger.Debug(
		"Calling SNS.Publish",
		rz.String("topic_arn", b.config.TopicArn),
		rz.String("subject", subject),
	)
	pOutput, err := svc.PublishWithContext(ctx, pParams)
	if err != nil {
		b.logger.Error(
			"Error calling SNS.Publish",
			rz.Err(err),
			rz.String("topic_arn", b.config.TopicArn),
		)
		return err
	}

	b.logger.Info(
		"Published SNS message",
		rz.String("certificate_path", certPath),
		rz.String("topic_arn", b.config.TopicArn),
		rz.String("sns_message_id", aws.StringValue(pOutput.MessageId)),
	)

	return nil
}

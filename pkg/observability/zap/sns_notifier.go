package zap

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/wxve/chat-site/pkg/observability"
	"github.com/wxve/chat-site/pkg/sanitization"
)

type snsAPI interface {
	Publish(
		ctx context.Context,
		params *sns.PublishInput,
		optFns ...func(*sns.Options),
	) (*sns.PublishOutput, error)
}

type SNSNotifierOptions struct {
	Subject string
}

type snsNotifier struct {
	client   snsAPI
	topicARN string
	subject  string
}

var _ observability.ErrorNotifier = (*snsNotifier)(nil)

func NewSNSNotifier(client snsAPI, topicARN string, opts SNSNotifierOptions) observability.ErrorNotifier {
	return &snsNotifier{
		client:   client,
		topicARN: strings.TrimSpace(topicARN),
		subject:  strings.TrimSpace(opts.Subject),
	}
}

func (n *snsNotifier) Notify(ctx context.Context, entry observability.LogEntry) error {
	if n == nil || n.client == nil {
		return errors.New("zap: sns notifier is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if n.topicARN == "" {
		return errors.New("zap: sns topic arn is empty")
	}

	payload := map[string]any{
		"entry": entry,
		"run": map[string]string{
			"run_id":             entry.RunID,
			"stack":              entry.Stack,
			"command":            commandName(),
			"cdk_default_region": os.Getenv("CDK_DEFAULT_REGION"),
			"ci":                 os.Getenv("CI"),
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	subject := n.subject
	if subject == "" {
		subject = "wxve-chat error"
	}
	subject = sanitization.SanitizeLogString(subject)
	if len(subject) > 100 {
		subject = subject[:100]
	}

	message := string(body)
	if len(message) > 256*1024 {
		message = message[:256*1024]
	}

	_, err = n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(message),

		MessageAttributes: runAttributes(entry),
	})
	return err
}

// runAttributes lets topic subscriptions filter on the synth or verify run.
// SNS rejects attributes with empty values, so unset ones are omitted.
func runAttributes(entry observability.LogEntry) map[string]snstypes.MessageAttributeValue {
	attrs := map[string]snstypes.MessageAttributeValue{}
	add := func(name, value string) {
		value = sanitization.SanitizeLogString(strings.TrimSpace(value))
		if value == "" {
			return
		}
		attrs[name] = snstypes.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(value),
		}
	}
	add("run_id", entry.RunID)
	add("stack", entry.Stack)
	add("level", entry.Level)
	add("command", commandName())
	return attrs
}

func commandName() string {
	if len(os.Args) == 0 {
		return ""
	}
	return filepath.Base(os.Args[0])
}

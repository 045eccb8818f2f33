package verify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"

	"github.com/wxve/chat-site/pkg/site"
)

// Outputs are the values the site stack exports after deploy.
type Outputs struct {
	DistributionDomainName string
	WebsiteURL             string
}

// OutputsReader fetches the outputs of a deployed stack.
type OutputsReader interface {
	StackOutputs(ctx context.Context, stackName string) (Outputs, error)
}

type cloudFormationAPI interface {
	DescribeStacks(
		ctx context.Context,
		params *cloudformation.DescribeStacksInput,
		optFns ...func(*cloudformation.Options),
	) (*cloudformation.DescribeStacksOutput, error)
}

type cloudFormationOutputs struct {
	api cloudFormationAPI
}

type outputsOptions struct {
	api      cloudFormationAPI
	awsCfg   *aws.Config
	region   string
	endpoint string
}

type OutputsOption func(*outputsOptions)

func WithAWSConfig(cfg aws.Config) OutputsOption {
	return func(opts *outputsOptions) {
		cfgCopy := cfg
		opts.awsCfg = &cfgCopy
	}
}

func WithCloudFormationAPI(api cloudFormationAPI) OutputsOption {
	return func(opts *outputsOptions) {
		opts.api = api
	}
}

func WithRegion(region string) OutputsOption {
	return func(opts *outputsOptions) {
		opts.region = strings.TrimSpace(region)
	}
}

// WithEndpoint points the client at a CloudFormation emulator. Emulators
// still require credentials, so static dummy credentials are used.
func WithEndpoint(endpoint string) OutputsOption {
	return func(opts *outputsOptions) {
		opts.endpoint = strings.TrimSpace(endpoint)
	}
}

func NewOutputsReader(ctx context.Context, options ...OutputsOption) (OutputsReader, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	opts := &outputsOptions{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(opts)
	}

	if opts.api != nil {
		return &cloudFormationOutputs{api: opts.api}, nil
	}

	var cfg aws.Config
	if opts.awsCfg != nil {
		cfg = *opts.awsCfg
	} else {
		loadOpts := []func(*awsconfig.LoadOptions) error{}
		if opts.region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(opts.region))
		}
		if opts.endpoint != "" {
			loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("dummy", "dummy", "")))
		}
		loaded, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		cfg = loaded
	}

	svc := cloudformation.NewFromConfig(cfg, func(o *cloudformation.Options) {
		if opts.endpoint != "" {
			o.BaseEndpoint = aws.String(opts.endpoint)
		}
	})
	return &cloudFormationOutputs{api: svc}, nil
}

func (c *cloudFormationOutputs) StackOutputs(ctx context.Context, stackName string) (Outputs, error) {
	if c == nil || c.api == nil {
		return Outputs{}, errors.New("verify: outputs reader is nil")
	}
	stackName = strings.TrimSpace(stackName)
	if stackName == "" {
		return Outputs{}, errors.New("verify: stack name is empty")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	resp, err := c.api.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(stackName),
	})
	if err != nil {
		return Outputs{}, fmt.Errorf("describe stack %s: %w", stackName, err)
	}
	if resp == nil || len(resp.Stacks) == 0 {
		return Outputs{}, checkErrorf(ErrorCodeOutputMissing, "stack %s not found", stackName)
	}

	var out Outputs
	for _, o := range resp.Stacks[0].Outputs {
		switch aws.ToString(o.OutputKey) {
		case site.OutputDistributionDomainName:
			out.DistributionDomainName = aws.ToString(o.OutputValue)
		case site.OutputWebsiteURL:
			out.WebsiteURL = aws.ToString(o.OutputValue)
		}
	}
	if out.WebsiteURL == "" {
		return out, checkErrorf(ErrorCodeOutputMissing, "stack %s has no %s output", stackName, site.OutputWebsiteURL)
	}
	if out.DistributionDomainName == "" {
		return out, checkErrorf(ErrorCodeOutputMissing, "stack %s has no %s output", stackName, site.OutputDistributionDomainName)
	}
	return out, nil
}

package verify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCloudFormation struct {
	out   *cloudformation.DescribeStacksOutput
	err   error
	names []string
}

func (f *fakeCloudFormation) DescribeStacks(_ context.Context, params *cloudformation.DescribeStacksInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
	f.names = append(f.names, aws.ToString(params.StackName))
	return f.out, f.err
}

func stackWithOutputs(outputs map[string]string) *cloudformation.DescribeStacksOutput {
	stack := cftypes.Stack{StackName: aws.String("WxveChatStack")}
	for k, v := range outputs {
		stack.Outputs = append(stack.Outputs, cftypes.Output{OutputKey: aws.String(k), OutputValue: aws.String(v)})
	}
	return &cloudformation.DescribeStacksOutput{Stacks: []cftypes.Stack{stack}}
}

func TestStackOutputs_ReadsBothOutputs(t *testing.T) {
	api := &fakeCloudFormation{out: stackWithOutputs(map[string]string{
		"DistributionDomainName": "d111111abcdef8.cloudfront.net",
		"WebsiteUrl":             "https://chat.wxve.io",
		"Unrelated":              "x",
	})}

	reader, err := NewOutputsReader(context.Background(), WithCloudFormationAPI(api))
	require.NoError(t, err)

	out, err := reader.StackOutputs(context.Background(), " WxveChatStack ")
	require.NoError(t, err)
	assert.Equal(t, Outputs{DistributionDomainName: "d111111abcdef8.cloudfront.net", WebsiteURL: "https://chat.wxve.io"}, out)
	assert.Equal(t, []string{"WxveChatStack"}, api.names)
}

func TestStackOutputs_MissingOutputs(t *testing.T) {
	reader, err := NewOutputsReader(context.Background(), WithCloudFormationAPI(&fakeCloudFormation{
		out: stackWithOutputs(map[string]string{"DistributionDomainName": "d.cloudfront.net"}),
	}))
	require.NoError(t, err)

	_, err = reader.StackOutputs(context.Background(), "WxveChatStack")
	var checkErr *CheckError
	require.ErrorAs(t, err, &checkErr)
	assert.Equal(t, ErrorCodeOutputMissing, checkErr.Code)

	reader, err = NewOutputsReader(context.Background(), WithCloudFormationAPI(&fakeCloudFormation{
		out: &cloudformation.DescribeStacksOutput{},
	}))
	require.NoError(t, err)
	_, err = reader.StackOutputs(context.Background(), "WxveChatStack")
	require.ErrorAs(t, err, &checkErr)
	assert.Equal(t, ErrorCodeOutputMissing, checkErr.Code)
}

func TestStackOutputs_Errors(t *testing.T) {
	boom := errors.New("access denied")
	reader, err := NewOutputsReader(context.Background(), WithCloudFormationAPI(&fakeCloudFormation{err: boom}))
	require.NoError(t, err)

	_, err = reader.StackOutputs(context.Background(), "WxveChatStack")
	require.ErrorIs(t, err, boom)

	_, err = reader.StackOutputs(context.Background(), "  ")
	require.Error(t, err)
}

func TestNewOutputsReader_WithEndpoint(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")

	reader, err := NewOutputsReader(context.Background(), WithRegion("us-east-1"), WithEndpoint("http://localhost:4566"))
	require.NoError(t, err)

	cf, ok := reader.(*cloudFormationOutputs)
	require.True(t, ok)
	_, ok = cf.api.(*cloudformation.Client)
	assert.True(t, ok)
}

func TestNewOutputsReader_WithAWSConfig(t *testing.T) {
	reader, err := NewOutputsReader(context.Background(), WithAWSConfig(aws.Config{Region: "us-east-1"}))
	require.NoError(t, err)
	assert.NotNil(t, reader)
}

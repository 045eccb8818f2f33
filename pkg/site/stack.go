// Package site declares the infrastructure that serves the chat frontend:
// a private S3 bucket behind CloudFront, an ACM certificate, a Route 53 alias
// record and the deployment of the built assets.
package site

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscertificatemanager"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudfront"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudfrontorigins"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53targets"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3deployment"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/wxve/chat-site/pkg/logger"
	"github.com/wxve/chat-site/pkg/naming"
	"github.com/wxve/chat-site/pkg/observability"
)

// Construct ids, in declaration order.
const (
	BucketID       = "WebsiteBucket"
	HostedZoneID   = "HostedZone"
	CertificateID  = "Certificate"
	DistributionID = "Distribution"
	AliasRecordID  = "AliasRecord"
	DeploymentID   = "DeployWebsite"

	OutputDistributionDomainName = "DistributionDomainName"
	OutputWebsiteURL             = "WebsiteUrl"
)

const (
	IndexDocument     = "index.html"
	IndexDocumentPath = "/" + IndexDocument
	InvalidateAllPath = "/*"

	warningDomainOutsideZone = "wxve:domainOutsideZone"
	warningInvalidHostname   = "wxve:invalidHostname"
)

// StackProps are awscdk.StackProps plus the two names every resource derives from.
type StackProps struct {
	awscdk.StackProps

	DomainName     string
	HostedZoneName string

	// AssetPath is the directory uploaded to the bucket. Defaults to DefaultAssetPath().
	AssetPath string

	// Logger defaults to logger.Logger().
	Logger observability.StructuredLogger
}

// Stack exposes the declared resources so callers and tests can inspect them.
type Stack struct {
	Stack awscdk.Stack

	Bucket       awss3.Bucket
	HostedZone   awsroute53.IHostedZone
	Certificate  awscertificatemanager.Certificate
	Distribution awscloudfront.Distribution
	AliasRecord  awsroute53.ARecord
	Deployment   awss3deployment.BucketDeployment

	DistributionDomainName awscdk.CfnOutput
	WebsiteURL             awscdk.CfnOutput

	DomainName     string
	HostedZoneName string
	AssetPath      string
}

// DefaultAssetPath is the dist directory at the repository root. It is
// located from this source file, which works under `go run` and `go test`.
// Binaries built with -trimpath, or run away from the source tree, fall back
// to dist under the working directory (the cdk CLI runs apps from the
// directory holding cdk.json).
func DefaultAssetPath() string {
	_, file, _, ok := runtime.Caller(0)
	if ok && filepath.IsAbs(file) {
		return filepath.Join(filepath.Dir(file), "..", "..", "dist")
	}
	return workingDirAssetPath()
}

func workingDirAssetPath() string {
	wd, err := os.Getwd()
	if err != nil {
		return "dist"
	}
	return filepath.Join(wd, "dist")
}

// NewStack declares the site. Each resource is created after the resources it
// references: bucket, zone lookup, certificate, distribution, alias record,
// deployment, outputs.
func NewStack(scope constructs.Construct, id string, props *StackProps) *Stack {
	if props == nil {
		props = &StackProps{}
	}
	sprops := props.StackProps
	stack := awscdk.NewStack(scope, &id, &sprops)

	domainName := naming.NormalizeDomain(props.DomainName)
	zoneName := naming.NormalizeDomain(props.HostedZoneName)
	assetPath := props.AssetPath
	if assetPath == "" {
		assetPath = DefaultAssetPath()
	}

	log := props.Logger
	if log == nil {
		log = logger.Logger()
	}
	log = log.WithStack(id).WithFields(map[string]any{
		"domain_name":      naming.SanitizeDomain(domainName),
		"hosted_zone_name": naming.SanitizeDomain(zoneName),
	})

	for _, name := range []struct{ field, value string }{
		{"domain name", domainName},
		{"hosted zone name", zoneName},
	} {
		if naming.IsHostname(name.value) {
			continue
		}
		msg := fmt.Sprintf("%s %q is not a valid hostname; certificate or record creation will be rejected", name.field, name.value)
		awscdk.Annotations_Of(stack).AddWarningV2(jsii.String(warningInvalidHostname), jsii.String(msg))
		log.Warn("invalid hostname", map[string]any{"name": name.field})
	}

	if !naming.WithinZone(domainName, zoneName) {
		msg := fmt.Sprintf("domain %q is outside hosted zone %q; the alias record will be created as a subdomain of the zone", domainName, zoneName)
		awscdk.Annotations_Of(stack).AddWarningV2(jsii.String(warningDomainOutsideZone), jsii.String(msg))
		log.Warn("domain outside hosted zone")
	}

	out := &Stack{
		Stack:          stack,
		DomainName:     domainName,
		HostedZoneName: zoneName,
		AssetPath:      assetPath,
	}

	out.Bucket = awss3.NewBucket(stack, jsii.String(BucketID), &awss3.BucketProps{
		RemovalPolicy:     awscdk.RemovalPolicy_DESTROY,
		AutoDeleteObjects: jsii.Bool(true),
		BlockPublicAccess: awss3.BlockPublicAccess_BLOCK_ALL(),
	})
	log.Debug("declared", map[string]any{"construct": BucketID})

	out.HostedZone = awsroute53.HostedZone_FromLookup(stack, jsii.String(HostedZoneID), &awsroute53.HostedZoneProviderProps{
		DomainName: jsii.String(zoneName),
	})
	log.Debug("declared", map[string]any{"construct": HostedZoneID})

	out.Certificate = awscertificatemanager.NewCertificate(stack, jsii.String(CertificateID), &awscertificatemanager.CertificateProps{
		DomainName: jsii.String(domainName),
		Validation: awscertificatemanager.CertificateValidation_FromDns(out.HostedZone),
	})
	log.Debug("declared", map[string]any{"construct": CertificateID})

	out.Distribution = awscloudfront.NewDistribution(stack, jsii.String(DistributionID), &awscloudfront.DistributionProps{
		DefaultBehavior: &awscloudfront.BehaviorOptions{
			Origin:               awscloudfrontorigins.S3BucketOrigin_WithOriginAccessControl(out.Bucket, nil),
			ViewerProtocolPolicy: awscloudfront.ViewerProtocolPolicy_REDIRECT_TO_HTTPS,
			CachePolicy:          awscloudfront.CachePolicy_CACHING_OPTIMIZED(),
		},
		DomainNames:       jsii.Strings(domainName),
		Certificate:       out.Certificate,
		DefaultRootObject: jsii.String(IndexDocument),
		ErrorResponses: &[]*awscloudfront.ErrorResponse{
			{
				HttpStatus:         jsii.Number(404),
				ResponseHttpStatus: jsii.Number(200),
				ResponsePagePath:   jsii.String(IndexDocumentPath),
			},
		},
	})
	log.Debug("declared", map[string]any{"construct": DistributionID})

	out.AliasRecord = awsroute53.NewARecord(stack, jsii.String(AliasRecordID), &awsroute53.ARecordProps{
		Zone:       out.HostedZone,
		RecordName: jsii.String(domainName),
		Target:     awsroute53.RecordTarget_FromAlias(awsroute53targets.NewCloudFrontTarget(out.Distribution)),
	})
	log.Debug("declared", map[string]any{"construct": AliasRecordID})

	out.Deployment = awss3deployment.NewBucketDeployment(stack, jsii.String(DeploymentID), &awss3deployment.BucketDeploymentProps{
		Sources:           &[]awss3deployment.ISource{awss3deployment.Source_Asset(jsii.String(assetPath), nil)},
		DestinationBucket: out.Bucket,
		Distribution:      out.Distribution,
		DistributionPaths: jsii.Strings(InvalidateAllPath),
	})
	log.Debug("declared", map[string]any{"construct": DeploymentID, "asset_path": assetPath})

	out.DistributionDomainName = awscdk.NewCfnOutput(stack, jsii.String(OutputDistributionDomainName), &awscdk.CfnOutputProps{
		Value: out.Distribution.DistributionDomainName(),
	})
	out.WebsiteURL = awscdk.NewCfnOutput(stack, jsii.String(OutputWebsiteURL), &awscdk.CfnOutputProps{
		Value: jsii.String(naming.SiteURL(domainName)),
	})

	log.Info("site stack declared", map[string]any{"website_url": naming.SiteURL(domainName)})
	return out
}

package awsapi

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/identitystore"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"
	"github.com/aws/aws-sdk-go-v2/service/ssoadmin"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/grnet/mcp-aws-orgs/internal/credstore"
	"github.com/grnet/mcp-aws-orgs/internal/envelope"
)

// Default regions, matching the original deployment: Organizations and Cost
// Explorer are global services anchored in us-east-1, Identity Center
// instances live in eu-central-1.
const (
	DefaultRegion    = "us-east-1"
	DefaultSSORegion = "eu-central-1"
)

// Options carries the broker-wide region defaults a bundle falls back to
// when the institution's credential entry does not override them.
type Options struct {
	Region    string
	SSORegion string
}

func (o Options) withDefaults() Options {
	if o.Region == "" {
		o.Region = DefaultRegion
	}
	if o.SSORegion == "" {
		o.SSORegion = DefaultSSORegion
	}
	return o
}

// New constructs the authenticated client bundle for one institution and
// probes the credentials once via STS. A failed probe means the identity
// handle every tool depends on is unusable, so the whole construction
// fails and nothing should be cached.
func New(ctx context.Context, institution string, cred credstore.Credential, opts Options) (*Bundle, error) {
	opts = opts.withDefaults()

	region := cred.Region
	if region == "" {
		region = opts.Region
	}
	ssoRegion := cred.SSORegion
	if ssoRegion == "" {
		ssoRegion = opts.SSORegion
	}

	cfg := configFor(cred, region)
	ssoCfg := configFor(cred, ssoRegion)

	ident, err := sts.NewFromConfig(cfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		classified := envelope.Classify(err)
		if classified.Kind == envelope.KindAWSAPI {
			return nil, &envelope.Error{
				Kind:    envelope.KindCredentials,
				Code:    classified.Code,
				Message: fmt.Sprintf("AWS rejected credentials for institution %q", institution),
			}
		}
		return nil, fmt.Errorf("credential probe for institution %q: %w", institution, err)
	}

	return &Bundle{
		Institution:   institution,
		CallerARN:     aws.ToString(ident.Arn),
		Organizations: organizations.NewFromConfig(cfg),
		SSOAdmin:      ssoadmin.NewFromConfig(ssoCfg),
		IdentityStore: identitystore.NewFromConfig(ssoCfg),
		CostExplorer:  costexplorer.NewFromConfig(cfg),
		Tagging:       resourcegroupstaggingapi.NewFromConfig(cfg),
		Region:        region,
		SSORegion:     ssoRegion,
	}, nil
}

func configFor(cred credstore.Credential, region string) aws.Config {
	return aws.Config{
		Region: region,
		Credentials: aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(cred.AccessKeyID, cred.SecretAccessKey, ""),
		),
	}
}

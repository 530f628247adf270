package bucketindex

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/patsnapops/piam-s3-proxy/internal/iam"
	"github.com/patsnapops/piam-s3-proxy/internal/proxyerr"
)

// Lister enumerates the buckets visible to one account. AWSLister is
// the production implementation; tests supply a fake.
type Lister interface {
	ListBuckets(ctx context.Context, account iam.Account, region string, endpointOverride *string) ([]string, error)
}

// AWSLister builds one aws-sdk-go-v2 S3 client per probe call, using
// static credentials and (when endpointOverride is set) a custom
// endpoint resolver.
type AWSLister struct{}

func (AWSLister) ListBuckets(ctx context.Context, account iam.Account, region string, endpointOverride *string) ([]string, error) {
	cfg := aws.Config{
		Region:      region,
		Credentials: credentials.NewStaticCredentialsProvider(account.AccessKey, account.SecretKey, ""),
	}
	if endpointOverride != nil {
		override := *endpointOverride
		cfg.EndpointResolverWithOptions = aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL:               override,
					HostnameImmutable: true,
					SigningRegion:     region,
				}, nil
			})
	}

	client := s3.NewFromConfig(cfg)

	out, err := client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, proxyerr.Wrap(proxyerr.UpstreamUnavailable, err, "list-buckets probe failed for account %q", account.Code)
	}

	names := make([]string, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		if b.Name != nil {
			names = append(names, *b.Name)
		}
	}
	return names, nil
}

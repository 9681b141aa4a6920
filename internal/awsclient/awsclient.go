// Package awsclient builds the shared aws.Config all AWS-backed
// collaborators are constructed from.
package awsclient

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// localCredentials are handed to emulators (localstack, dynamodb-local)
// which accept any key pair.
var localCredentials = credentials.NewStaticCredentialsProvider("local", "local", "")

// Load resolves the default AWS configuration for region. A non-empty
// endpointURL points every client at an emulator and switches to static
// local credentials.
func Load(ctx context.Context, region, endpointURL string) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if endpointURL != "" {
		opts = append(opts,
			awsconfig.WithBaseEndpoint(endpointURL),
			awsconfig.WithCredentialsProvider(localCredentials),
		)
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}

	return cfg, nil
}

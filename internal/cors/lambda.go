package cors

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
)

type lambdaAPI interface {
	Invoke(
		ctx context.Context,
		params *lambda.InvokeInput,
		optFns ...func(*lambda.Options),
	) (*lambda.InvokeOutput, error)
}

// headersEnvelope accepts both a bare header map and one wrapped in a
// "headers" field.
type headersEnvelope struct {
	Headers map[string]string `json:"headers"`
}

// LambdaProvider invokes a Lambda function synchronously and reads the
// header map from its payload.
type LambdaProvider struct {
	client       lambdaAPI
	functionName string
}

// NewLambdaProvider wraps an existing Lambda client.
func NewLambdaProvider(client lambdaAPI, functionName string) *LambdaProvider {
	return &LambdaProvider{
		client:       client,
		functionName: functionName,
	}
}

// NewLambdaProviderFromConfig builds the Lambda client from cfg.
func NewLambdaProviderFromConfig(cfg aws.Config, functionName string) *LambdaProvider {
	return NewLambdaProvider(lambda.NewFromConfig(cfg), functionName)
}

// Headers invokes the function with an empty JSON object.
func (p *LambdaProvider) Headers(ctx context.Context) (map[string]string, error) {
	out, err := p.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(p.functionName),
		InvocationType: types.InvocationTypeRequestResponse,
		Payload:        []byte(`{}`),
	})
	if err != nil {
		return nil, fmt.Errorf("invoking %s: %w", p.functionName, err)
	}
	if out.FunctionError != nil {
		return nil, fmt.Errorf("%s failed: %s", p.functionName, aws.ToString(out.FunctionError))
	}

	return decodeHeaders(out.Payload)
}

func decodeHeaders(payload []byte) (map[string]string, error) {
	var envelope headersEnvelope
	if err := json.Unmarshal(payload, &envelope); err == nil && len(envelope.Headers) > 0 {
		return envelope.Headers, nil
	}

	var headers map[string]string
	if err := json.Unmarshal(payload, &headers); err != nil {
		return nil, fmt.Errorf("decoding CORS headers: %w", err)
	}

	return headers, nil
}

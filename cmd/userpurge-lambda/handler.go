package main

import (
	"context"
	"encoding/base64"

	"github.com/aws/aws-lambda-go/events"

	"github.com/patric-chuzhbe/userpurge/internal/logger"
	"github.com/patric-chuzhbe/userpurge/internal/models"
)

type requestHandler interface {
	Handle(ctx context.Context, req models.Request) models.Response
}

type proxyHandler func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

func newHandler(h requestHandler) proxyHandler {
	return func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		body := []byte(req.Body)
		if req.IsBase64Encoded {
			decoded, err := base64.StdEncoding.DecodeString(req.Body)
			if err != nil {
				logger.Log.Infow("undecodable request body", "error", err)
				decoded = nil
			}
			body = decoded
		}

		resp := h.Handle(ctx, models.Request{
			Method: req.HTTPMethod,
			Body:   body,
		})

		return events.APIGatewayProxyResponse{
			StatusCode: resp.StatusCode,
			Headers:    resp.Headers,
			Body:       resp.Body,
		}, nil
	}
}

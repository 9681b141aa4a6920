// Command userpurge-lambda runs the account deletion handler as an AWS
// Lambda function behind an API Gateway proxy integration.
package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/patric-chuzhbe/userpurge/internal/app"
	"github.com/patric-chuzhbe/userpurge/internal/config"
	"github.com/patric-chuzhbe/userpurge/internal/logger"
)

func main() {
	a, err := app.New(
		context.Background(),
		app.WithConfigOptions(config.WithDisableFlagsParsing(true), config.WithDisableDotEnv(true)),
		app.WithLoggerOptions(logger.WithJSONEncoding()),
	)
	if err != nil {
		log.Fatalf("init: %v", err)
	}
	defer a.Close()

	lambda.Start(newHandler(a.Handler()))
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"

	"github.com/ironsheep/gabarito-omr/internal/app"
	"github.com/ironsheep/gabarito-omr/internal/config"
	"github.com/ironsheep/gabarito-omr/internal/httpapi"
	"github.com/ironsheep/gabarito-omr/internal/logging"
)

// The API behind API Gateway. The service is built once per cold start and
// reused across invocations.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logging.New(logging.Options{Level: cfg.LogLevel, JSON: true})

	a, err := app.Build(context.Background(), cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to start")
	}

	router := httpapi.NewRouter(a.Service, logger, httpapi.Options{Production: cfg.IsProduction()})
	adapter := ginadapter.New(router)
	lambda.Start(adapter.ProxyWithContext)
}

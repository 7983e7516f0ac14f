package main

import (
	"context"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"github.com/rs/zerolog/log"

	"brokerage_site/internal/adapters/observability"
	"brokerage_site/internal/shared"
	"brokerage_site/internal/wiring"
)

// chiLambda wraps the same router cmd/api serves; built once per cold start.
var chiLambda *chiadapter.ChiLambdaV2

func init() {
	start := time.Now()
	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	a, err := wiring.Build(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("cold start failed")
	}
	chiLambda = chiadapter.NewV2(a.Server.Router())
	log.Info().Dur("cold_start", time.Since(start)).Str("store", cfg.StoreDriver).Msg("lambda ready")
}

func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	resp, err := chiLambda.ProxyWithContextV2(ctx, req)
	if err != nil {
		log.Error().Err(err).Str("path", req.RawPath).Str("request_id", req.RequestContext.RequestID).Msg("proxy failed")
	}
	return resp, err
}

func main() {
	lambda.Start(Handler)
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/williamokano/s3_connector/pkg/logger"

	// Import backends to register them
	_ "github.com/williamokano/s3_connector/pkg/storage/backblaze"
	_ "github.com/williamokano/s3_connector/pkg/storage/local"
	_ "github.com/williamokano/s3_connector/pkg/storage/minio"
	_ "github.com/williamokano/s3_connector/pkg/storage/s3"
	_ "github.com/williamokano/s3_connector/pkg/storage/ssh"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		reportFailure(err)
		os.Exit(1)
	}
}

// reportFailure logs err once on the configured logger
func reportFailure(err error) {
	logger.Get().Error().Err(err).Msg("s3_connector failed")
}

// Command userpurge serves the account deletion endpoint over HTTP.
package main

import (
	"context"
	"log"

	"github.com/patric-chuzhbe/userpurge/internal/app"
	"github.com/patric-chuzhbe/userpurge/internal/logger"
)

func main() {
	a, err := app.New(context.Background())
	if err != nil {
		log.Fatalf("init: %v", err)
	}
	defer a.Close()

	if err := a.Run(); err != nil {
		logger.Log.Errorw("server stopped", "error", err)
	}
}

package main

import (
	"context"
	"log"
	"os"

	"github.com/eyedocs/caredesk/internal/buildinfo"
	"github.com/eyedocs/caredesk/internal/crmcheck"
	"github.com/eyedocs/caredesk/internal/server/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app := crmcheck.NewApp(cfg, os.Stdin, os.Stdout)

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}

}

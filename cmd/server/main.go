package main

import (
	"context"
	"flag"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/xhad/articlerag/internal/app"
	cfgPkg "github.com/xhad/articlerag/pkg/config"
	"github.com/xhad/articlerag/server"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.Parse()

	// A missing .env file is fine
	_ = godotenv.Load()

	cfg, err := cfgPkg.LoadConfig(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	app.SetupLogger(cfg.Log, os.Stdout)

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			log.Error().Str("field", e.Field).Msg(e.Message)
		}
		log.Fatal().Int("errors", len(errs)).Msg("invalid configuration")
	}

	p, closeAll, err := app.Build(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build pipeline")
	}
	defer closeAll()

	srv := server.NewServer(server.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
	}, p)

	if err := srv.Start(); err != nil {
		log.Error().Err(err).Msg("server exited")
	}
}

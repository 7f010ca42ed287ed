package main

import (
	"context"
	"flag"
	"log"

	"docchat/internal/app"
	"docchat/pkg/config"
	"docchat/server"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Fatal(err)
	}

	vs, err := app.BuildStore(context.Background(), cfg, 0)
	if err != nil {
		log.Fatal(err)
	}
	defer vs.Close()

	condenser, ret, answerer, err := app.BuildQueryPipeline(cfg, vs)
	if err != nil {
		log.Fatal(err)
	}

	srv := server.New(server.Config{
		Addr:     cfg.Server.Addr,
		Username: cfg.Auth.Username,
		Password: cfg.Auth.Password,
	}, condenser, ret, answerer)

	if err := srv.ListenAndServe(); err != nil {
		log.Fatal(err)
	}
}

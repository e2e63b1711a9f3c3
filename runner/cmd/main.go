package main

import (
	"context"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"camRelay/runner/internal/framer"
	"camRelay/runner/internal/runner"
	"camRelay/runner/internal/uploader"

	"github.com/ilyakaznacheev/cleanenv"
	"go.uber.org/zap"
)

type config struct {
	RelayURL string `env:"RELAY_URL" env-default:"http://localhost:5000"`
	RunPath  string `env:"RUN_PATH" env-required:"true"`
	FPS      int    `env:"RUN_FPS" env-default:"5"`
	Quality  string `env:"RUN_QUALITY" env-default:"0.7"`
	Loop     bool   `env:"RUN_LOOP" env-default:"true"`
}

func main() {
	var cfg config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		panic(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := &http.Client{Timeout: 10 * time.Second}

	runnerService := runner.New(
		framer.NewDirFramer(cfg.RunPath, cfg.Loop),
		uploader.New(cfg.RelayURL, client),
		cfg.FPS,
		map[string]string{
			"fps":     strconv.Itoa(cfg.FPS),
			"quality": cfg.Quality,
		},
		logger,
	)

	if err := runnerService.Start(ctx); err != nil {
		logger.Fatal("start runner", zap.String("path", cfg.RunPath), zap.Error(err))
	}
	runnerService.Wait()
}

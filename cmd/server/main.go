package main

import (
	"context"
	"os"

	"golang.org/x/exp/slog"

	"clinicsync/internal/app/server"
	"clinicsync/internal/app/server/config"
	"clinicsync/internal/utils/logger"
)

func main() {
	conf := config.MustLoad()
	log := logger.New(conf.Env, logger.WithLevel(conf.Logger.LogLevel))

	if err := run(conf, log); err != nil {
		log.Error("Сервер остановлен с ошибкой", "error", err)
		os.Exit(1)
	}
	log.Info("Сервер остановлен")
}

func run(conf *config.Config, log *slog.Logger) error {
	ctx := context.Background()

	app, err := server.New(ctx, conf, log)
	if err != nil {
		return err
	}
	defer app.Close()

	return app.Run(ctx)
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"CheckMate/config"
	"CheckMate/internal/classify"
	"CheckMate/internal/handler"
	"CheckMate/internal/schedule"
	"CheckMate/internal/slackbot"
	"CheckMate/internal/store"
	"CheckMate/pkg/logger"
	"CheckMate/pkg/mailer"
	"CheckMate/pkg/snowflake"
)

func main() {
	// 配置先于一切：缺必填项在注册任何事件处理前就退出
	config.Load()

	// 日志部分
	logger.Init()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Logger.Info("Received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	loc, err := time.LoadLocation(config.Cfg.Timezone)
	if err != nil {
		logger.Logger.Fatal("Invalid TIMEZONE", zap.String("timezone", config.Cfg.Timezone), zap.Error(err))
	}

	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake", zap.Error(err))
	}

	// 初始化记录存储，回放当日已落盘记录
	st, err := store.New(config.Cfg.RecordDir, loc, logger.Logger)
	if err != nil {
		logger.Logger.Fatal("Failed to initialize record store", zap.Error(err))
	}

	bot := slackbot.New(config.Cfg.SlackBotToken, config.Cfg.SlackAppToken, logger.Logger)

	classifier := classify.ForVariant(config.Cfg.BotVariant)
	eventHandler := handler.New(classifier, st, bot, loc, logger.Logger)

	reportMailer := mailer.New(
		config.Cfg.EmailAddress,
		config.Cfg.EmailPassword,
		config.Cfg.RecipientEmail,
		config.Cfg.SMTPServer,
		config.Cfg.GetSMTPAddr(),
	)

	exporter := schedule.NewExportScheduler(st, reportMailer, config.Cfg.BotVariant, loc, logger.Logger)
	if err := exporter.Start(config.Cfg.ExportTime); err != nil {
		logger.Logger.Fatal("Failed to start export scheduler", zap.Error(err))
	}

	logger.Logger.Info("Bot starting",
		zap.String("service", config.Cfg.ServiceName),
		zap.String("variant", config.Cfg.BotVariant),
		zap.String("environment", config.Cfg.Environment),
	)

	// 事件循环阻塞到 ctx 取消，在处理中的事件会先处理完
	if err := bot.Run(ctx, eventHandler); err != nil {
		logger.Logger.Error("Event loop terminated with error", zap.Error(err))
	}

	exporter.Stop()

	logger.Logger.Info("Bot shutting down gracefully")
}

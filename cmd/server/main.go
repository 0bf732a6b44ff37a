// Package main is the entry point for the wallet service. It loads
// configuration, connects PostgreSQL and Redis, and starts the HTTP server.
package main

import (
	"time"

	"kudi/internal/config"
	"kudi/internal/repositories"
	"kudi/internal/routes"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"
)

func main() {
	config.LoadEnv()

	if config.IsProduction() {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	logrus.SetLevel(logLevel())

	if err := repositories.InitDB(); err != nil {
		logrus.WithError(err).Fatal("database initialization failed")
	}

	sqlDB, err := repositories.DB.DB()
	if err != nil {
		logrus.WithError(err).Fatal("could not get database instance")
	}

	sqlDB.SetMaxIdleConns(config.GetIntEnv("DB_MAX_IDLE_CONNS", 10))
	sqlDB.SetMaxOpenConns(config.GetIntEnv("DB_MAX_OPEN_CONNS", 100))
	sqlDB.SetConnMaxLifetime(config.GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour))
	sqlDB.SetConnMaxIdleTime(config.GetDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute))

	if err := sqlDB.Ping(); err != nil {
		logrus.WithError(err).Fatal("database unreachable")
	}
	logrus.Info("connected to database")

	defer func() {
		if err := sqlDB.Close(); err != nil {
			logrus.WithError(err).Warn("failed to close database connection")
		}
		if repositories.CacheService != nil {
			if err := repositories.CacheService.Close(); err != nil {
				logrus.WithError(err).Warn("failed to close redis connection")
			}
		}
	}()

	app := fiber.New(fiber.Config{
		AppName: "kudi",
		// Webhook payloads are small; anything bigger is not a gateway.
		BodyLimit: 1 << 20,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: config.GetEnv("CORS_ORIGINS", "http://localhost:5173"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
	}))

	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	routes.SetupRoutes(app)

	logrus.Fatal(app.Listen(":" + config.GetEnv("PORT", "3000")))
}

func logLevel() logrus.Level {
	level, err := logrus.ParseLevel(config.GetEnv("LOG_LEVEL", "info"))
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

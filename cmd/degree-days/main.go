package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/akwarm/degree-days/internal/api/http"
	"github.com/akwarm/degree-days/internal/bmon"
	"github.com/akwarm/degree-days/internal/config"
	"github.com/akwarm/degree-days/internal/dataset"
	"github.com/akwarm/degree-days/internal/degreedays"
	"github.com/akwarm/degree-days/internal/logging"
	"github.com/akwarm/degree-days/internal/scheduler"
)

func main() {
	daemon := flag.Bool("daemon", false, "run on a monthly schedule and serve the dataset over HTTP")
	flag.Parse()

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel)

	// Shared HTTP client for outbound BMON calls. A zero timeout is
	// deliberate: a stalled unattended run is recoverable, a partial one
	// is not.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	client := bmon.NewClient(httpClient, cfg.BMONBaseURL)
	service := degreedays.NewService(client, cfg.MinCoverage, log)

	runUpdate := func() error {
		existing, err := dataset.Load(cfg.DatasetPath())
		if err != nil {
			return err
		}

		merged, results := service.Update(context.Background(), existing)

		var failed, added int
		for _, res := range results {
			if res.Err != nil {
				failed++
			}
			added += len(res.Added)
		}
		log.Info("update complete",
			"stations", len(results),
			"failed", failed,
			"newRows", added,
			"totalRows", len(merged),
		)

		return dataset.Save(cfg.DatasetPath(), cfg.MirrorPath(), merged)
	}

	// Default mode: one update run, cron-friendly.
	if !*daemon {
		if err := runUpdate(); err != nil {
			log.Error("update failed", "error", err)
			os.Exit(1)
		}
		return
	}

	// Daemon mode: monthly schedule plus a read-only API over the dataset.
	sched := scheduler.New(cfg.UpdateDay, func() {
		if err := runUpdate(); err != nil {
			log.Error("scheduled update failed", "error", err)
		}
	}, log)
	if err := sched.Start(); err != nil {
		log.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "degree-days",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "degree-days",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, func() ([]degreedays.MonthlyRecord, error) {
		return dataset.Load(cfg.DatasetPath())
	}, cfg.MirrorPath())

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
}

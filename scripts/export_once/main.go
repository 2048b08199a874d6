// Command export_once runs a single spreadsheet export or recap render
// from the command line, without starting the API server. Useful for
// backfilling tabs after credential rotation or verifying a projection
// before enabling auto-export.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/tahsinku/tahsinku-api/internal/repository"
	"github.com/tahsinku/tahsinku-api/internal/service"
	"github.com/tahsinku/tahsinku-api/pkg/config"
	"github.com/tahsinku/tahsinku-api/pkg/database"
	"github.com/tahsinku/tahsinku-api/pkg/logger"
	"github.com/tahsinku/tahsinku-api/pkg/sheets"
)

func main() {
	var (
		domain  string
		format  string
		outPath string
		timeout time.Duration
	)

	flag.StringVar(&domain, "domain", "", "export domain: participants, instructors, attendance or payments")
	flag.StringVar(&format, "format", "", "render a recap instead of pushing to the spreadsheet: csv or pdf")
	flag.StringVar(&outPath, "out", "", "recap output file (defaults to <domain>.<format>)")
	flag.DurationVar(&timeout, "timeout", 2*time.Minute, "overall run timeout")
	flag.Parse()

	if domain == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	exportRepo := repository.NewExportRepository(db)

	if format != "" {
		svc := service.NewExportService(exportRepo, nil, nil, logr, "", false)
		body, _, err := svc.Recap(ctx, domain, format)
		if err != nil {
			logr.Sugar().Fatalw("recap failed", "domain", domain, "error", err)
		}
		if outPath == "" {
			outPath = fmt.Sprintf("%s.%s", domain, format)
		}
		if err := os.WriteFile(outPath, body, 0o644); err != nil {
			logr.Sugar().Fatalw("failed to write recap", "path", outPath, "error", err)
		}
		logr.Sugar().Infow("recap written", "domain", domain, "path", outPath)
		return
	}

	client, err := sheets.NewClient(ctx, cfg.Sheets)
	if err != nil {
		logr.Sugar().Fatalw("failed to build sheets client", "error", err)
	}
	writer := sheets.NewWriter(client, sheets.NewTabCache(), logr)
	svc := service.NewExportService(exportRepo, writer, nil, logr, cfg.Sheets.SpreadsheetID, false)

	result, err := svc.Run(ctx, domain)
	if err != nil {
		logr.Sugar().Fatalw("export failed", "domain", domain, "error", err)
	}
	logr.Info("export finished",
		zap.String("domain", result.Domain),
		zap.Int("rows", result.RowCount),
		zap.String("url", result.SpreadsheetURL))
}

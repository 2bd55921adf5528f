package cli

import (
	"context"
	"os"
	"time"

	"github.com/askiada/go-medallion/internal/bronze"
	"github.com/askiada/go-medallion/internal/config"
	"github.com/askiada/go-medallion/internal/credentials"
	"github.com/askiada/go-medallion/internal/engine"
	"github.com/askiada/go-medallion/internal/gold"
	"github.com/askiada/go-medallion/internal/ingest"
	"github.com/askiada/go-medallion/internal/metrics"
	"github.com/askiada/go-medallion/internal/orchestrator"
	"github.com/askiada/go-medallion/internal/silver"
	"github.com/askiada/go-medallion/internal/telemetry"
	"github.com/askiada/go-medallion/pkg/pipeline/drawer"
	"github.com/askiada/go-medallion/pkg/pipeline/measure"
)

// RunPipeline runs the pipeline with the default collaborators: Azure
// download, CSV bronze load, SQL silver cleaning and gold model.
func RunPipeline(ctx context.Context, cfg config.Config) error {
	logger := telemetry.FromContext(ctx)

	collector := metrics.New()
	downloadMeasure := measure.NewDefaultMeasure()
	bronzeMeasure := measure.NewDefaultMeasure()
	collector.AddMeasure(orchestrator.StageDownload, downloadMeasure)
	collector.AddMeasure(orchestrator.StageBronze, bronzeMeasure)

	var dotDrawer drawer.Drawer
	if cfg.Draw != "" {
		dotDrawer = drawer.NewDOTDrawer(cfg.Draw)
	}

	engineCfg := engine.DefaultConfig()
	engineCfg.AppName = cfg.AppName
	engineCfg.Logger = logger

	driver := orchestrator.New(orchestrator.Options{
		Downloader: ingest.New(ingest.Options{
			Workers: cfg.Workers,
			Measure: downloadMeasure,
		}),
		Bronze: bronze.New(bronze.Options{
			Workers:  cfg.Workers,
			Measure:  bronzeMeasure,
			Drawer:   dotDrawer,
			Recorder: collector,
		}),
		Silver: silver.New(silver.Options{Recorder: collector}),
		Gold: gold.New(gold.Options{
			ModelPath: cfg.GoldModelPath(),
			Recorder:  collector,
		}),
		Sessions: func(ctx context.Context) (*engine.Session, error) {
			return engine.GetOrCreate(ctx, engineCfg)
		},
		Resolve: func(explicit credentials.Credentials) (credentials.Credentials, error) {
			return credentials.Resolve(explicit, os.Getenv, cfg.EnvFile)
		},
		Recorder: collector,
		Logger:   logger,
	})

	report, err := driver.Run(ctx, orchestrator.Config{
		Base:      cfg.Base,
		Download:  cfg.Azure,
		Account:   cfg.Account,
		Container: cfg.Container,
		SASToken:  cfg.SASToken,
	})
	if err == nil {
		collector.MarkSuccess(time.Now())
	}

	if cfg.MetricsFile != "" {
		writeErr := collector.WriteToTextfile(cfg.MetricsFile)
		switch {
		case writeErr != nil && err == nil:
			err = writeErr
		case writeErr != nil:
			logger.Error("unable to write metrics", "error", writeErr)
		}
	}
	if err != nil {
		return err
	}

	logger.Info("run summary",
		"run_id", report.RunID, "files_downloaded", report.FilesDownloaded, "stages", len(report.Stages))

	return nil
}

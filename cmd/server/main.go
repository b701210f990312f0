// Storefront - white-label AI text detection storefront
package main

import (
	"context"
	"os"

	"github.com/auditelle/storefront/internal/config"
	"github.com/auditelle/storefront/internal/logging"
	"github.com/auditelle/storefront/internal/metrics"
	"github.com/auditelle/storefront/internal/reseller"
	"github.com/auditelle/storefront/internal/security"
	"github.com/auditelle/storefront/internal/server"
	"github.com/auditelle/storefront/internal/traces"
)

// Build info - set by ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info", "text").Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting storefront",
		"version", Version,
		"commit", Commit,
		"build_time", BuildTime,
		"env", cfg.Env,
	)

	// The reseller is resolved once, before anything reads it.
	if err := reseller.Configure(reseller.WithStrict(cfg.ResellerStrict), reseller.WithLogger(logger)); err != nil {
		logger.Error("failed to configure reseller resolver", "error", err)
		os.Exit(1)
	}
	ctx := context.Background()
	rcfg, err := reseller.Load(ctx)
	if err != nil {
		logger.Error("failed to load reseller config", "error", err)
		os.Exit(1)
	}
	metrics.ResellerInfo.WithLabelValues(rcfg.ID, rcfg.Branding.Domain).Set(1)
	logger.Info("reseller loaded", "reseller", rcfg.ID, "domain", rcfg.Branding.Domain, "locale", rcfg.Locale.Tag)

	if cfg.IsProduction() {
		if err := security.ValidateUpstreamURL(cfg.PangramAPIURL, true); err != nil {
			logger.Error("refusing detector endpoint", "url", cfg.PangramAPIURL, "error", err)
			os.Exit(1)
		}
	}

	shutdownTracing, err := traces.Init(ctx, traces.Options{
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
		SampleRatio: cfg.TraceSampleRatio,
		ResellerID:  rcfg.ID,
		Environment: cfg.Env,
		Version:     Version,
	}, logger)
	if err != nil {
		logger.Error("failed to init tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown", "error", err)
		}
	}()

	srv, err := server.New(cfg, server.WithLogger(logger), server.WithReseller(rcfg))
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

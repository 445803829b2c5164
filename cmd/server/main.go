// Package main provides the environment reader HTTP server.
package main

import (
	"flag"
	"fmt"

	"github.com/sirupsen/logrus"

	"go.ngs.io/envreader/internal/config"
	httpHandler "go.ngs.io/envreader/internal/http"
	"go.ngs.io/envreader/internal/reader/cfgeneric"
	"go.ngs.io/envreader/internal/registry"
	"go.ngs.io/envreader/internal/usecase"
)

const version = "0.1.0"

func main() {
	// Parse command-line flags.
	showHelp := flag.Bool("help", false, "Show usage information")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}

	if *showVersion {
		fmt.Printf("envreader version %s\n", version)
		return
	}

	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Load configuration from .env and environment.
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	log.SetLevel(cfg.Level())

	backend, err := cfg.Backend()
	if err != nil {
		log.WithError(err).Fatal("Invalid dataset backend")
	}

	log.WithFields(logrus.Fields{
		"port":    cfg.Port,
		"backend": backend,
		"level":   cfg.LevelIndex,
		"files":   len(cfg.DataFiles),
	}).Info("Starting environment reader server")

	// Open readers. A file that cannot be read is skipped.
	reg := registry.New(log)
	for _, path := range cfg.DataFiles {
		r, err := cfgeneric.Open(path,
			cfgeneric.WithBackend(backend),
			cfgeneric.WithLevelIndex(cfg.LevelIndex),
			cfgeneric.WithLogger(log),
		)
		if err != nil {
			log.WithError(err).WithField("path", path).Error("Skipping data file")
			continue
		}
		if err := reg.Attach(r); err != nil {
			log.WithError(err).WithField("path", path).Error("Skipping reader")
			_ = r.Close()
			continue
		}
		log.Info("\n" + r.String())
	}
	defer func() {
		if err := reg.Close(); err != nil {
			log.WithError(err).Warn("Failed to close readers")
		}
	}()

	if len(reg.Readers()) == 0 {
		log.Fatal("No readers available; set DATA_FILES to one or more CF NetCDF files")
	}

	// Initialize use case.
	environmentUC := usecase.NewEnvironmentUseCase(reg, log)

	// Setup router.
	router := httpHandler.SetupRouter(environmentUC, cfg.CORSAllowedOrigins)

	// Start server.
	addr := fmt.Sprintf(":%s", cfg.Port)
	log.WithFields(logrus.Fields{
		"addr":   addr,
		"health": fmt.Sprintf("http://localhost:%s/health", cfg.Port),
	}).Info("Server listening")

	if err := router.Run(addr); err != nil {
		log.WithError(err).Error("Failed to start server")
	}
}

// printUsage prints usage information.
func printUsage() {
	fmt.Printf("Environment Reader Server v%s\n\n", version)
	fmt.Println("USAGE:")
	fmt.Println("  envreader [flags]")
	fmt.Println()
	fmt.Println("FLAGS:")
	fmt.Println("  -help          Show this help message")
	fmt.Println("  -version       Show version information")
	fmt.Println()
	fmt.Println("ENVIRONMENT VARIABLES (also read from .env):")
	fmt.Println("  PORT                    Server port (default: 8080)")
	fmt.Println("  DATA_FILES              Comma-separated CF NetCDF files, attached in order")
	fmt.Println("  DATASET_BACKEND         netcdf, cdf or native (default: netcdf)")
	fmt.Println("  LEVEL_INDEX             Vertical level sampled from 4-D variables (default: 1)")
	fmt.Println("  LOG_LEVEL               Log level (default: info)")
	fmt.Println("  CORS_ALLOWED_ORIGINS    Comma-separated list of allowed origins (default: all origins)")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Serve one NorKyst subset")
	fmt.Println("  DATA_FILES=./data/norkyst800_subset.nc envreader")
	fmt.Println()
	fmt.Println("  # Pure-Go backend on a custom port")
	fmt.Println("  DATASET_BACKEND=native PORT=3000 DATA_FILES=a.nc,b.nc envreader")
	fmt.Println()
	fmt.Println("API ENDPOINTS:")
	fmt.Println("  GET /health                    Health check")
	fmt.Println("  GET /v1/variables              Variables of all readers in attach order")
	fmt.Println("  GET /v1/readers                Attached readers and their coverage")
	fmt.Println("  GET /v1/resolve                Which reader serves each variable")
	fmt.Println("  GET /v1/environment            Sample variables at lon/lat positions")
	fmt.Println()
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/veccore/annengine/pkg/api/rest"
	"github.com/veccore/annengine/pkg/api/rest/middleware"
	"github.com/veccore/annengine/pkg/config"
	"github.com/veccore/annengine/pkg/observability"
	"github.com/veccore/annengine/pkg/tenant"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "show version and exit")
		showHelp    = flag.Bool("help", false, "show help and exit")
		configFile  = flag.String("config", "", "path to configuration file (optional)")
		host        = flag.String("host", "", "server host (overrides config/env)")
		port        = flag.Int("port", 0, "server port (overrides config/env)")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("Vector Database Server v%s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	if *showHelp {
		showUsage()
		os.Exit(0)
	}

	printBanner()

	cfg := loadConfig(*configFile)

	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	log.Println("Initializing Vector Database server...")
	manager := tenant.NewManager()
	metrics := observability.NewMetrics()

	restConfig := rest.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		IndexKind:   tenant.IndexKind(cfg.Index.Kind),
		Dimensions:  cfg.Index.Dimensions,
		CORSEnabled: cfg.Server.CORSEnabled,
		CORSOrigins: cfg.Server.CORSOrigins,
		Auth: middleware.AuthConfig{
			Enabled:     cfg.Server.AuthEnabled,
			JWTSecret:   cfg.Server.JWTSecret,
			PublicPaths: cfg.Server.PublicPaths,
			AdminPaths:  cfg.Server.AdminPaths,
		},
		RateLimit: middleware.RateLimitConfig{
			Enabled:        cfg.Server.RateLimitEnabled,
			RequestsPerSec: cfg.Server.RateLimitPerSec,
			Burst:          cfg.Server.RateLimitBurst,
			PerIP:          cfg.Server.RateLimitPerIP,
			PerUser:        cfg.Server.RateLimitPerUser,
			GlobalLimit:    cfg.Server.RateLimitGlobal,
		},
	}

	server, err := rest.NewServer(restConfig, manager, metrics)
	if err != nil {
		log.Fatalf("Failed to create REST server: %v", err)
	}

	printStartupInfo(cfg)

	errChan := make(chan error, 1)
	go func() {
		log.Println("Starting REST API server...")
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("REST server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	log.Println("Server is ready. Press Ctrl+C to stop.")
	select {
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
	case err := <-errChan:
		log.Printf("Server error: %v", err)
	}

	log.Println("Shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		log.Printf("Error stopping REST server: %v", err)
	}

	log.Println("Server stopped. Goodbye!")
}

func loadConfig(configFile string) *config.Config {
	// TODO: support loading from YAML/JSON config file
	if configFile != "" {
		log.Printf("Warning: config file support not yet implemented, using environment variables")
	}

	return config.LoadFromEnv()
}

func printBanner() {
	banner := `
╔═══════════════════════════════════════════════════════════╗
║                                                           ║
║   __     __        _              ____  ____              ║
║   \ \   / /__  ___| |_ ___  _ __ |  _ \| __ )             ║
║    \ \ / / _ \/ __| __/ _ \| '__|| | | |  _ \             ║
║     \ V /  __/ (__| || (_) | |   | |_| | |_) |            ║
║      \_/ \___|\___|\__\___/|_|   |____/|____/             ║
║                                                           ║
║   Approximate Nearest-Neighbor Vector Search Engine       ║
║                                                           ║
╚═══════════════════════════════════════════════════════════╝
`
	fmt.Println(banner)
	fmt.Printf("Version: %s (commit: %s)\n\n", version, commit)
}

func printStartupInfo(cfg *config.Config) {
	fmt.Println("\n╔════════════════════════════════════════════════════════╗")
	fmt.Println("║            REST API Configuration                      ║")
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Printf("║ Address:          %-35s ║\n", cfg.Server.Address())
	fmt.Printf("║ Auth Enabled:     %-35v ║\n", cfg.Server.AuthEnabled)
	fmt.Printf("║ CORS Enabled:     %-35v ║\n", cfg.Server.CORSEnabled)
	fmt.Printf("║ Rate Limiting:    %-35v ║\n", cfg.Server.RateLimitEnabled)
	if cfg.Server.RateLimitEnabled {
		fmt.Printf("║ Rate:             %-35s ║\n", fmt.Sprintf("%.1f req/s (burst: %d)", cfg.Server.RateLimitPerSec, cfg.Server.RateLimitBurst))
	}
	fmt.Printf("║ API Docs:         %-35s ║\n", fmt.Sprintf("http://%s/docs", cfg.Server.Address()))
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Println("║               Index Configuration                      ║")
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Printf("║ Default kind:     %-35s ║\n", cfg.Index.Kind)
	fmt.Printf("║ Dimensions:       %-35d ║\n", cfg.Index.Dimensions)
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Println("║               Cache Configuration                      ║")
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Printf("║ Enabled:          %-35v ║\n", cfg.Cache.Enabled)
	fmt.Printf("║ Capacity:         %-35d ║\n", cfg.Cache.Capacity)
	fmt.Printf("║ TTL:              %-35s ║\n", cfg.Cache.TTL)
	fmt.Println("╚════════════════════════════════════════════════════════╝")
	fmt.Println()
}

func showUsage() {
	fmt.Println("Vector Database Server - ANN vector search over IHCI and BLAST indices")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  vector-server [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -help             Show this help message")
	fmt.Println("  -version          Show version information")
	fmt.Println("  -config PATH      Accepted but not read; configuration comes from environment variables")
	fmt.Println("  -host HOST        Server host (default: 0.0.0.0)")
	fmt.Println("  -port PORT        Server port (default: 50051)")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  VECTOR_HOST                  Server host")
	fmt.Println("  VECTOR_PORT                  Server port")
	fmt.Println("  VECTOR_MAX_CONNECTIONS       Max concurrent connections")
	fmt.Println("  VECTOR_REQUEST_TIMEOUT       Request timeout (e.g., 30s)")
	fmt.Println("  VECTOR_ENABLE_TLS            Enable TLS (true/false)")
	fmt.Println("  VECTOR_TLS_CERT              TLS certificate file")
	fmt.Println("  VECTOR_TLS_KEY               TLS key file")
	fmt.Println("  VECTOR_AUTH_ENABLED          Require JWT bearer auth (true/false)")
	fmt.Println("  VECTOR_JWT_SECRET            JWT HMAC secret")
	fmt.Println("  VECTOR_RATE_LIMIT_ENABLED    Enable rate limiting (true/false)")
	fmt.Println("  VECTOR_RATE_LIMIT_PER_SEC    Requests per second")
	fmt.Println("  VECTOR_RATE_LIMIT_BURST      Burst size")
	fmt.Println("  VECTOR_INDEX_KIND            Default index kind (ihci|blast)")
	fmt.Println("  VECTOR_DIMENSIONS            Default vector dimensions")
	fmt.Println("  VECTOR_IHCI_LEAF_CAPACITY    IHCI leaf node capacity")
	fmt.Println("  VECTOR_BLAST_BUCKET_CAPACITY BLAST bucket capacity")
	fmt.Println("  VECTOR_CACHE_ENABLED         Enable query cache (true/false)")
	fmt.Println("  VECTOR_CACHE_CAPACITY        Cache capacity")
	fmt.Println("  VECTOR_CACHE_TTL             Cache TTL (e.g., 5m)")
	fmt.Println("  VECTOR_DATA_DIR              Data directory path")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  # Start with default configuration")
	fmt.Println("  vector-server")
	fmt.Println()
	fmt.Println("  # Start on custom port")
	fmt.Println("  vector-server -port 8080")
	fmt.Println()
	fmt.Println("  # Start with BLAST as the default index")
	fmt.Println("  VECTOR_INDEX_KIND=blast vector-server")
	fmt.Println()
}

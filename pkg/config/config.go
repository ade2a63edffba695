package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all server configuration
type Config struct {
	Server   ServerConfig
	Index    IndexConfig
	Cache    CacheConfig
	Database DatabaseConfig
}

// ServerConfig holds REST server configuration. The REST API is the
// repository's only wire format, so this is the only listener config.
type ServerConfig struct {
	Host            string        // Server host (default: "0.0.0.0")
	Port            int           // Server port (default: 50051)
	MaxConnections  int           // Max concurrent connections
	RequestTimeout  time.Duration // Request timeout
	ShutdownTimeout time.Duration // Graceful shutdown timeout
	EnableTLS       bool          // Enable TLS
	CertFile        string        // TLS certificate file
	KeyFile         string        // TLS key file

	CORSEnabled bool     // Enable CORS headers
	CORSOrigins []string // Allowed CORS origins ("*" for any)

	AuthEnabled bool     // Require a JWT bearer token
	JWTSecret   string   // HMAC secret for verifying/signing tokens
	PublicPaths []string // Paths exempt from auth (e.g. /v1/health)
	AdminPaths  []string // Paths requiring the admin role

	RateLimitEnabled bool    // Enable token-bucket rate limiting
	RateLimitPerSec  float64 // Sustained requests/sec per limited key
	RateLimitBurst   int     // Burst capacity
	RateLimitPerIP   bool    // Limit per client IP
	RateLimitPerUser bool    // Limit per authenticated user
	RateLimitGlobal  bool    // Also enforce one global bucket
}

// IndexKind selects which ANN index design backs a namespace.
type IndexKind string

const (
	IndexKindIHCI  IndexKind = "ihci"
	IndexKindBLAST IndexKind = "blast"
)

// IndexConfig holds the tunables for whichever ANN index a namespace is
// created with. The IHCI and BLAST sub-sections mirror the core
// packages' own Config types so defaults stay in one place; only the
// section matching Kind is consulted when a namespace is created.
type IndexConfig struct {
	Kind       IndexKind // Which index design new namespaces use
	Dimensions int       // Vector dimensions (default: 768)

	IHCI  IHCIConfig
	BLAST BLASTConfig
}

// IHCIConfig mirrors pkg/ihci.Config.
type IHCIConfig struct {
	LeafCapacity             int
	RoutingMaxChildren       int
	LeafNeighborCount        int
	RepairEveryInserts       int
	RepairQueueHighWatermark int
	RoutingWidth             int
}

// BLASTConfig mirrors pkg/blast.Config.
type BLASTConfig struct {
	BucketCapacity        int
	OutgoingNeighborCount int
	NeighborHops          int
	WindowSize            int
}

// CacheConfig holds query cache configuration
type CacheConfig struct {
	Enabled  bool          // Enable query caching
	Capacity int           // Max cache entries
	TTL      time.Duration // Time to live for cache entries
}

// DatabaseConfig holds storage configuration
type DatabaseConfig struct {
	DataDir       string // Data directory path
	EnableWAL     bool   // Enable write-ahead log
	SyncWrites    bool   // Sync writes to disk
	MaxNamespaces int    // Max number of namespaces
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            50051,
			MaxConnections:  1000,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			EnableTLS:       false,

			CORSEnabled: true,
			CORSOrigins: []string{"*"},

			AuthEnabled: false,
			PublicPaths: []string{"/v1/health", "/docs", "/docs/openapi.yaml"},
			AdminPaths:  nil,

			RateLimitEnabled: true,
			RateLimitPerSec:  100,
			RateLimitBurst:   200,
			RateLimitPerIP:   true,
			RateLimitPerUser: false,
			RateLimitGlobal:  false,
		},
		Index: IndexConfig{
			Kind:       IndexKindIHCI,
			Dimensions: 768,
			IHCI: IHCIConfig{
				LeafCapacity:             128,
				RoutingMaxChildren:       16,
				LeafNeighborCount:        8,
				RepairEveryInserts:       128,
				RepairQueueHighWatermark: 128,
				RoutingWidth:             2,
			},
			BLAST: BLASTConfig{
				BucketCapacity:        128,
				OutgoingNeighborCount: 8,
				NeighborHops:          2,
				WindowSize:            4,
			},
		},
		Cache: CacheConfig{
			Enabled:  true,
			Capacity: 1000,
			TTL:      5 * time.Minute,
		},
		Database: DatabaseConfig{
			DataDir:       "./data",
			EnableWAL:     true,
			SyncWrites:    false,
			MaxNamespaces: 100,
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	cfg := Default()

	// Server configuration
	if host := os.Getenv("VECTOR_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("VECTOR_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if maxConn := os.Getenv("VECTOR_MAX_CONNECTIONS"); maxConn != "" {
		if mc, err := strconv.Atoi(maxConn); err == nil {
			cfg.Server.MaxConnections = mc
		}
	}
	if timeout := os.Getenv("VECTOR_REQUEST_TIMEOUT"); timeout != "" {
		if t, err := time.ParseDuration(timeout); err == nil {
			cfg.Server.RequestTimeout = t
		}
	}
	if enableTLS := os.Getenv("VECTOR_ENABLE_TLS"); enableTLS == "true" {
		cfg.Server.EnableTLS = true
		cfg.Server.CertFile = os.Getenv("VECTOR_TLS_CERT")
		cfg.Server.KeyFile = os.Getenv("VECTOR_TLS_KEY")
	}
	if cors := os.Getenv("VECTOR_CORS_ENABLED"); cors == "false" {
		cfg.Server.CORSEnabled = false
	}
	if origins := os.Getenv("VECTOR_CORS_ORIGINS"); origins != "" {
		cfg.Server.CORSOrigins = strings.Split(origins, ",")
	}
	if auth := os.Getenv("VECTOR_AUTH_ENABLED"); auth == "true" {
		cfg.Server.AuthEnabled = true
	}
	if secret := os.Getenv("VECTOR_JWT_SECRET"); secret != "" {
		cfg.Server.JWTSecret = secret
	}
	if rl := os.Getenv("VECTOR_RATE_LIMIT_ENABLED"); rl == "false" {
		cfg.Server.RateLimitEnabled = false
	}
	if rps := os.Getenv("VECTOR_RATE_LIMIT_PER_SEC"); rps != "" {
		if v, err := strconv.ParseFloat(rps, 64); err == nil {
			cfg.Server.RateLimitPerSec = v
		}
	}
	if burst := os.Getenv("VECTOR_RATE_LIMIT_BURST"); burst != "" {
		if v, err := strconv.Atoi(burst); err == nil {
			cfg.Server.RateLimitBurst = v
		}
	}

	// Index configuration
	if kind := os.Getenv("VECTOR_INDEX_KIND"); kind != "" {
		cfg.Index.Kind = IndexKind(kind)
	}
	if dims := os.Getenv("VECTOR_DIMENSIONS"); dims != "" {
		if d, err := strconv.Atoi(dims); err == nil {
			cfg.Index.Dimensions = d
		}
	}
	if leafCap := os.Getenv("VECTOR_IHCI_LEAF_CAPACITY"); leafCap != "" {
		if v, err := strconv.Atoi(leafCap); err == nil {
			cfg.Index.IHCI.LeafCapacity = v
		}
	}
	if routingMax := os.Getenv("VECTOR_IHCI_ROUTING_MAX_CHILDREN"); routingMax != "" {
		if v, err := strconv.Atoi(routingMax); err == nil {
			cfg.Index.IHCI.RoutingMaxChildren = v
		}
	}
	if bucketCap := os.Getenv("VECTOR_BLAST_BUCKET_CAPACITY"); bucketCap != "" {
		if v, err := strconv.Atoi(bucketCap); err == nil {
			cfg.Index.BLAST.BucketCapacity = v
		}
	}
	if window := os.Getenv("VECTOR_BLAST_WINDOW_SIZE"); window != "" {
		if v, err := strconv.Atoi(window); err == nil {
			cfg.Index.BLAST.WindowSize = v
		}
	}

	// Cache configuration
	if cacheEnabled := os.Getenv("VECTOR_CACHE_ENABLED"); cacheEnabled == "false" {
		cfg.Cache.Enabled = false
	}
	if capacity := os.Getenv("VECTOR_CACHE_CAPACITY"); capacity != "" {
		if c, err := strconv.Atoi(capacity); err == nil {
			cfg.Cache.Capacity = c
		}
	}
	if ttl := os.Getenv("VECTOR_CACHE_TTL"); ttl != "" {
		if t, err := time.ParseDuration(ttl); err == nil {
			cfg.Cache.TTL = t
		}
	}

	// Database configuration
	if dataDir := os.Getenv("VECTOR_DATA_DIR"); dataDir != "" {
		cfg.Database.DataDir = dataDir
	}
	if wal := os.Getenv("VECTOR_ENABLE_WAL"); wal == "false" {
		cfg.Database.EnableWAL = false
	}
	if sync := os.Getenv("VECTOR_SYNC_WRITES"); sync == "true" {
		cfg.Database.SyncWrites = true
	}

	return cfg
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.MaxConnections < 1 {
		return fmt.Errorf("invalid max connections: %d (must be > 0)", c.Server.MaxConnections)
	}
	if c.Server.EnableTLS {
		if c.Server.CertFile == "" || c.Server.KeyFile == "" {
			return fmt.Errorf("TLS enabled but cert or key file not specified")
		}
	}
	if c.Server.AuthEnabled && c.Server.JWTSecret == "" {
		return fmt.Errorf("auth enabled but JWT secret not specified")
	}

	// Index validation
	switch c.Index.Kind {
	case IndexKindIHCI:
		if c.Index.IHCI.LeafCapacity < 2 {
			return fmt.Errorf("invalid IHCI LeafCapacity: %d (must be >= 2)", c.Index.IHCI.LeafCapacity)
		}
		if c.Index.IHCI.RoutingMaxChildren < 2 {
			return fmt.Errorf("invalid IHCI RoutingMaxChildren: %d (must be >= 2)", c.Index.IHCI.RoutingMaxChildren)
		}
	case IndexKindBLAST:
		if c.Index.BLAST.BucketCapacity < 2 {
			return fmt.Errorf("invalid BLAST BucketCapacity: %d (must be >= 2)", c.Index.BLAST.BucketCapacity)
		}
		if c.Index.BLAST.WindowSize < 1 {
			return fmt.Errorf("invalid BLAST WindowSize: %d (must be >= 1)", c.Index.BLAST.WindowSize)
		}
	default:
		return fmt.Errorf("invalid index kind: %q (must be %q or %q)", c.Index.Kind, IndexKindIHCI, IndexKindBLAST)
	}
	if c.Index.Dimensions < 1 {
		return fmt.Errorf("invalid dimensions: %d (must be > 0)", c.Index.Dimensions)
	}

	// Cache validation
	if c.Cache.Enabled && c.Cache.Capacity < 1 {
		return fmt.Errorf("invalid cache capacity: %d (must be > 0)", c.Cache.Capacity)
	}

	// Database validation
	if c.Database.DataDir == "" {
		return fmt.Errorf("data directory not specified")
	}

	return nil
}

// Address returns the server address (host:port)
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

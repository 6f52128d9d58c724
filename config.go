package quillpost

import (
	"fmt"
	"strings"
	"time"

	"github.com/quillpost/quillpost/storage"
)

// Storage backends selectable with Config.Backend.
const (
	BackendDir  = "dir"
	BackendS3   = "s3"
	BackendSFTP = "sftp"
)

// Config holds all configuration for a quillpost site.
type Config struct {
	Name        string // Site name (default "Blog")
	URL         string // Required: canonical URL without a trailing slash
	Description string // Site description for RSS and meta tags
	Author      string // Author name for JSON-LD and the footer

	Addr string // Listen address (default ":3000")

	Backend   string // BackendDir (default), BackendS3 or BackendSFTP
	DataDir   string // Base directory of the dir backend (default ".")
	PostsRoot string // Root holding the post files (default "posts")
	MediaRoot string // Root holding post media (default "posts/media")
	PagesRoot string // Root holding the home page (default ".")
	HomePage  string // Home page item (default "home.md")
	PostExt   string // Post file extension (default "md")
	StaticDir string // Directory served under /public (default "public")

	S3   storage.S3Config
	SFTP storage.SFTPConfig

	Safe      bool   // Drop raw HTML from rendered markdown
	CodeStyle string // chroma style for code blocks (default "onedark")

	FeedSize  int // Maximum number of RSS items, 0 for all
	RateLimit int // Requests per minute per IP, 0 disables limiting

	LogLevel  string // zerolog level (default "info")
	LogPretty bool   // Human readable console logs

	ShutdownTimeout time.Duration // Graceful shutdown timeout (default 10s)
}

func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog"
	}
	c.URL = strings.TrimRight(c.URL, "/")
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.Backend == "" {
		c.Backend = BackendDir
	}
	if c.DataDir == "" {
		c.DataDir = "."
	}
	if c.PostsRoot == "" {
		c.PostsRoot = "posts"
	}
	if c.MediaRoot == "" {
		c.MediaRoot = c.PostsRoot + "/media"
	}
	if c.PagesRoot == "" {
		c.PagesRoot = "."
	}
	if c.HomePage == "" {
		c.HomePage = "home.md"
	}
	if c.PostExt == "" {
		c.PostExt = "md"
	}
	if c.StaticDir == "" {
		c.StaticDir = "public"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}

// ConfigError reports a missing or invalid setting.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("quillpost: config %s: %s", e.Field, e.Reason)
}

// Validate checks the settings required to serve the site.
func (c *Config) Validate() error {
	if c.URL == "" {
		return &ConfigError{Field: "URL", Reason: "is required"}
	}
	if !strings.HasPrefix(c.URL, "http://") && !strings.HasPrefix(c.URL, "https://") {
		return &ConfigError{Field: "URL", Reason: "must start with http:// or https://"}
	}
	if !storage.ValidID(c.HomePage) {
		return &ConfigError{Field: "HomePage", Reason: "must be a file name"}
	}
	switch c.Backend {
	case BackendDir:
	case BackendS3:
		if c.S3.Bucket == "" {
			return &ConfigError{Field: "S3.Bucket", Reason: "is required for the s3 backend"}
		}
	case BackendSFTP:
		if c.SFTP.Addr == "" {
			return &ConfigError{Field: "SFTP.Addr", Reason: "is required for the sftp backend"}
		}
		if c.SFTP.HostKey == "" {
			return &ConfigError{Field: "SFTP.HostKey", Reason: "is required for the sftp backend"}
		}
	default:
		return &ConfigError{Field: "Backend", Reason: fmt.Sprintf("unknown backend %q", c.Backend)}
	}
	if c.FeedSize < 0 {
		return &ConfigError{Field: "FeedSize", Reason: "must not be negative"}
	}
	if c.RateLimit < 0 {
		return &ConfigError{Field: "RateLimit", Reason: "must not be negative"}
	}
	return nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithStorage replaces the storage backend selected by Config.Backend.
func WithStorage(s storage.Storage) Option {
	return func(a *App) {
		a.Storage = s
	}
}

// WithViews replaces the default page templates.
func WithViews(v ViewFuncs) Option {
	return func(a *App) {
		a.Views = v
	}
}

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback runs after the built-in routes are registered.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithNow overrides the clock used for "published before now" cutoffs.
func WithNow(now func() time.Time) Option {
	return func(a *App) {
		a.now = now
	}
}

// Package main is the docqa entry point: an HTTP server for document question
// answering and a thin CLI client for it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/docqa/internal/cli"
	"github.com/hyperjump/docqa/internal/config"
	"github.com/hyperjump/docqa/internal/server"
	"github.com/hyperjump/docqa/pkg/utils"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/docqa/config.yaml"
	defaultServerURL  = "http://localhost:8000"
)

// loadConfig loads config from path. When path is the default, config.yaml in the
// current directory takes precedence, and built-in defaults are used if neither file
// exists. Returns the config and the path that was loaded ("" for built-in defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				path = fallback
			}
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// .env is optional.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "upload":
		runUpload()
	case "search":
		runSearch()
	case "ask":
		runAsk()
	case "status":
		runStatus()
	case "uploads":
		runUploads()
	case "version", "--version", "-v":
		fmt.Printf("docqa version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode, cfg.LogFile)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)
	if cfg.LLM.APIKey() == "" {
		logger.Fatal("LLM API key is not set", zap.String("env", cfg.LLM.APIKeyEnv))
	}

	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger, true)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srv := server.NewServer(
		components.Engine,
		components.Indexer,
		components.Asker,
		components.Storage,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
}

// clientFlags are shared by every subcommand that talks to a running server.
type clientFlags struct {
	server  *string
	timeout *time.Duration
	output  *string
}

func addClientFlags(fs *flag.FlagSet) clientFlags {
	return clientFlags{
		server:  fs.String("server", envOr("DOCQA_SERVER", defaultServerURL), "server URL"),
		timeout: fs.Duration("timeout", 3*time.Minute, "request timeout"),
		output:  fs.String("output", "text", "output format: text or json"),
	}
}

func (f clientFlags) client() *cli.Client {
	return cli.NewClient(*f.server, *f.timeout)
}

func (f clientFlags) format() cli.OutputFormat {
	format, err := cli.ParseOutputFormat(*f.output)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return format
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// argsReorder moves flags given after positional arguments to the front so that
// "docqa search who pays rent -k 3" parses the flags.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func runUpload() {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	cf := addClientFlags(fs)
	_ = fs.Parse(argsReorder(os.Args[2:]))
	if fs.NArg() < 1 {
		fmt.Println("Usage: docqa upload [flags] <file>...")
		os.Exit(1)
	}

	c := cf.client()
	for _, path := range fs.Args() {
		resp, err := c.UploadFile(context.Background(), path)
		if err != nil {
			fail("Upload of %s failed: %v", path, err)
		}
		fmt.Printf("%s: %s\n", path, resp.Message)
	}
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	cf := addClientFlags(fs)
	k := fs.Int("k", 5, "number of passages")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	query := buildQuery(fs.Args())
	if query == "" {
		fmt.Println("Usage: docqa search [flags] <query>")
		os.Exit(1)
	}
	format := cf.format()
	docs, err := cf.client().Search(context.Background(), query, *k)
	if err != nil {
		fail("Search failed: %v", err)
	}
	if err := cli.WriteDocuments(os.Stdout, docs, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	cf := addClientFlags(fs)
	_ = fs.Parse(argsReorder(os.Args[2:]))

	question := buildQuery(fs.Args())
	if question == "" {
		fmt.Println("Usage: docqa ask [flags] <question>")
		os.Exit(1)
	}
	format := cf.format()
	resp, err := cf.client().Ask(context.Background(), question)
	if err != nil {
		fail("Ask failed: %v", err)
	}
	if err := cli.WriteAnswer(os.Stdout, resp, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	cf := addClientFlags(fs)
	_ = fs.Parse(os.Args[2:])

	format := cf.format()
	status, err := cf.client().Status(context.Background())
	if err != nil {
		fail("Status failed: %v", err)
	}
	if err := cli.WriteStatus(os.Stdout, status, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func runUploads() {
	fs := flag.NewFlagSet("uploads", flag.ExitOnError)
	cf := addClientFlags(fs)
	offset := fs.Int("offset", 0, "number of uploads to skip")
	limit := fs.Int("limit", 20, "maximum number of uploads")
	_ = fs.Parse(os.Args[2:])

	format := cf.format()
	uploads, err := cf.client().Uploads(context.Background(), *offset, *limit)
	if err != nil {
		fail("Listing uploads failed: %v", err)
	}
	if err := cli.WriteUploads(os.Stdout, uploads, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func printUsage() {
	fmt.Println(`docqa - Ask questions about your documents

Usage:
  docqa server [flags]             Start the HTTP server
  docqa upload [flags] <file>...   Upload and index documents
  docqa search [flags] <query>     Find passages similar to a query
  docqa ask [flags] <question>     Answer a question from the indexed documents
  docqa status [flags]             Show index and upload registry status
  docqa uploads [flags]            List processed uploads
  docqa version                    Show version
  docqa help                       Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/docqa/config.yaml, or ./config.yaml)
  --debug            Enable debug logging

Client Flags (upload, search, ask, status, uploads):
  --server string    Server URL (default: $DOCQA_SERVER or http://localhost:8000)
  --timeout duration Request timeout (default: 3m)
  --output string    Output format: text or json (default: text)
  --k int            Passages to return (search only, default: 5)

Environment:
  GROQ_API_KEY       Required by the server for answering questions (see llm.api_key_env)
  OPENAI_API_KEY     Required when embedding.provider is openai

Examples:
  docqa server
  docqa upload lease.pdf
  docqa search "late payment penalty" -k 10
  docqa ask "Who is responsible for repairs?"
  docqa status --output json`)
}

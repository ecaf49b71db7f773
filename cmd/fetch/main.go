// Command fetch issues one HTTP(S) fetch through the engine and writes the
// body to stdout.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"urlfetch/cache"
	"urlfetch/cookies"
	"urlfetch/fetch"

	"github.com/spf13/viper"
)

type config struct {
	UserAgent          string  `mapstructure:"user_agent"`
	TimeoutSeconds     float64 `mapstructure:"timeout_seconds"`
	ReadTimeoutSeconds float64 `mapstructure:"read_timeout_seconds"`
	CachePath          string  `mapstructure:"cache_path"`
	LogLevel           string  `mapstructure:"log_level"`
}

// loadConfig reads defaults from FETCH_* environment variables and an
// optional fetch.yaml in the working directory.
func loadConfig() (*config, error) {
	v := viper.New()

	v.SetDefault("user_agent", "")
	v.SetDefault("timeout_seconds", 30.0)
	v.SetDefault("read_timeout_seconds", 10.0)
	v.SetDefault("cache_path", "")
	v.SetDefault("log_level", "warn")

	v.SetConfigName("fetch")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("fetch")
	v.AutomaticEnv()

	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

type headerFlags []fetch.HeaderOverride

func (h *headerFlags) String() string { return fmt.Sprintf("%d header(s)", len(*h)) }

func (h *headerFlags) Set(s string) error {
	name, value, found := strings.Cut(s, ":")
	if !found {
		// A bare name suppresses the built-in header.
		*h = append(*h, fetch.SuppressHeader(strings.TrimSpace(s)))
		return nil
	}
	*h = append(*h, fetch.Header(strings.TrimSpace(name), strings.TrimSpace(value)))
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fetch: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var headers headerFlags
	method := flag.String("method", "", "request method (default GET)")
	data := flag.String("data", "", "request body (raw)")
	encoding := flag.String("encoding", "url", "body encoding: url, multipart, base64")
	timeout := flag.Duration("timeout", secondsToDuration(cfg.TimeoutSeconds), "overall timeout")
	readTimeout := flag.Duration("read-timeout", secondsToDuration(cfg.ReadTimeoutSeconds), "inactivity timeout")
	noFollow := flag.Bool("no-follow", false, "do not follow redirects")
	ignoreErrors := flag.Bool("ignore-errors", false, "print nothing on non-success outcomes")
	useCache := flag.Bool("cache", false, "use the on-disk response cache")
	verbose := flag.Int("v", 0, "verbosity level")
	debug := flag.Bool("debug", false, "mirror outgoing request bytes to stderr")
	showHead := flag.Bool("head", false, "print the status line and headers to stderr")
	flag.Var(&headers, "H", "header override, \"Name: Value\" (repeatable; bare name suppresses)")
	flag.Parse()

	if flag.NArg() != 1 {
		return fmt.Errorf("usage: fetch [flags] URL")
	}
	target := flag.Arg(0)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel, *verbose),
	}))

	engineCfg := fetch.Config{
		Logger:    logger,
		Cookies:   cookies.NewMemoryJar(nil),
		UserAgent: cfg.UserAgent,
		DebugSink: os.Stderr,
	}

	cacheMode := fetch.ModeOff
	if *useCache {
		if cfg.CachePath == "" {
			cfg.CachePath = "./data/fetch-cache.db"
		}
		store, err := cache.OpenBolt(cfg.CachePath)
		if err != nil {
			return err
		}
		defer store.Close()
		engineCfg.Cache = store
		cacheMode = fetch.ModeBoth
	}

	engine := fetch.New(engineCfg)
	defer engine.Close()

	opts := fetch.Options{
		Wait:            true,
		Timeout:         *timeout,
		ReadTimeout:     *readTimeout,
		Verbose:         *verbose,
		Debug:           *debug,
		Cookies:         fetch.ModeBoth,
		Cache:           cacheMode,
		FollowRedirects: !*noFollow,
		IgnoreErrors:    *ignoreErrors,
		Method:          fetch.Method(strings.ToUpper(*method)),
		Headers:         headers,
	}

	if *data != "" {
		opts.Body = fetch.Raw(*data)
		opts.BodyEncoding = parseEncoding(*encoding)
		if opts.Method == "" {
			opts.Method = fetch.MethodPost
		}
	}

	d := engine.Fetch(target, opts, nil)

	if *showHead {
		fmt.Fprintln(os.Stderr, d.RawStatusLine())
		for name, value := range d.Headers() {
			fmt.Fprintf(os.Stderr, "%s: %s\n", name, value)
		}
	}

	os.Stdout.Write(d.Body())

	if d.Err() && !*ignoreErrors {
		return fmt.Errorf("%d %s", d.StatusCode(), d.Reason())
	}
	return nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func parseEncoding(s string) fetch.Encoding {
	switch strings.ToLower(s) {
	case "multipart":
		return fetch.EncodingMultipart
	case "base64":
		return fetch.EncodingBase64
	default:
		return fetch.EncodingURL
	}
}

func parseLevel(s string, verbose int) slog.Level {
	if verbose >= 2 {
		return slog.LevelDebug
	}
	if verbose == 1 {
		return slog.LevelInfo
	}
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

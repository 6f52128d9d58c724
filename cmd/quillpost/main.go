package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/quillpost/quillpost"
	"github.com/quillpost/quillpost/link"
	"github.com/quillpost/quillpost/query"
	"github.com/quillpost/quillpost/storage"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe()
	case "check":
		err = runCheck()
	case "render":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: quillpost render <file>")
			os.Exit(1)
		}
		err = runRender(os.Args[2])
	case "version":
		fmt.Printf("quillpost %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`quillpost - A flat-file blog engine built with Go, Echo, goldmark and templ

Usage:
  quillpost <command> [arguments]

Commands:
  serve          Serve the site
  check          Parse every post and report the ones that are skipped
  render <file>  Render a markdown page to stdout
  version        Print the quillpost version
  help           Show this help message

Configuration is read from QUILLPOST_* environment variables, for example:
  QUILLPOST_URL=https://example.com QUILLPOST_DATA_DIR=./site quillpost serve`)
}

func configFromEnv() quillpost.Config {
	return quillpost.Config{
		Name:        quillpost.EnvOr("QUILLPOST_NAME", "Blog"),
		URL:         os.Getenv("QUILLPOST_URL"),
		Description: os.Getenv("QUILLPOST_DESCRIPTION"),
		Author:      os.Getenv("QUILLPOST_AUTHOR"),
		Addr:        quillpost.EnvOr("QUILLPOST_ADDR", ":3000"),
		Backend:     quillpost.EnvOr("QUILLPOST_BACKEND", quillpost.BackendDir),
		DataDir:     quillpost.EnvOr("QUILLPOST_DATA_DIR", "."),
		PostsRoot:   os.Getenv("QUILLPOST_POSTS_ROOT"),
		MediaRoot:   os.Getenv("QUILLPOST_MEDIA_ROOT"),
		PagesRoot:   os.Getenv("QUILLPOST_PAGES_ROOT"),
		HomePage:    os.Getenv("QUILLPOST_HOME_PAGE"),
		PostExt:     os.Getenv("QUILLPOST_POST_EXT"),
		StaticDir:   os.Getenv("QUILLPOST_STATIC_DIR"),
		S3: storage.S3Config{
			Endpoint:        os.Getenv("QUILLPOST_S3_ENDPOINT"),
			Region:          quillpost.EnvOr("QUILLPOST_S3_REGION", "auto"),
			Bucket:          os.Getenv("QUILLPOST_S3_BUCKET"),
			AccessKeyID:     os.Getenv("QUILLPOST_S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("QUILLPOST_S3_SECRET_ACCESS_KEY"),
		},
		SFTP: storage.SFTPConfig{
			Addr:     os.Getenv("QUILLPOST_SFTP_ADDR"),
			User:     os.Getenv("QUILLPOST_SFTP_USER"),
			Password: os.Getenv("QUILLPOST_SFTP_PASSWORD"),
			HostKey:  os.Getenv("QUILLPOST_SFTP_HOST_KEY"),
			RootDir:  os.Getenv("QUILLPOST_SFTP_ROOT_DIR"),
		},
		Safe:      os.Getenv("QUILLPOST_SAFE") == "true",
		CodeStyle: os.Getenv("QUILLPOST_CODE_STYLE"),
		FeedSize:  envInt("QUILLPOST_FEED_SIZE", 20),
		RateLimit: envInt("QUILLPOST_RATE_LIMIT", 0),
		LogLevel:  quillpost.EnvOr("QUILLPOST_LOG_LEVEL", "info"),
		LogPretty: os.Getenv("QUILLPOST_LOG_PRETTY") == "true",
	}
}

func envInt(key string, fallback int) int {
	n, err := strconv.Atoi(quillpost.EnvOr(key, strconv.Itoa(fallback)))
	if err != nil {
		return fallback
	}
	return n
}

func runServe() error {
	app := quillpost.New(configFromEnv())
	defer app.Close()
	return app.Start(context.Background())
}

func runCheck() error {
	ctx := context.Background()
	app := quillpost.New(configFromEnv())
	defer app.Close()
	if err := app.Setup(ctx); err != nil {
		return err
	}

	skipped := 0
	record := app.Engine.OnSkip
	app.Engine.OnSkip = func(id string, err error) {
		skipped++
		fmt.Printf("skip  %s: %v\n", id, err)
		record(id, err)
	}
	res, err := app.Engine.Query(ctx, app.Config.PostsRoot, query.Spec{
		Sort:          query.SortNewest,
		IncludeHidden: true,
		MetaOnly:      true,
	})
	if err != nil {
		return err
	}
	for p, ok := res.Next(); ok; p, ok = res.Next() {
		state := "ok   "
		if p.Hidden {
			state = "hide "
		}
		fmt.Printf("%s %s (%s)\n", state, p.Slug, p.Published.Format("2006-01-02"))
	}
	fmt.Printf("%d posts, %d skipped\n", res.Total(), skipped)
	if skipped > 0 {
		return fmt.Errorf("%d post files could not be parsed", skipped)
	}
	return nil
}

func runRender(file string) error {
	ctx := context.Background()
	source, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	app := quillpost.New(configFromEnv())
	defer app.Close()
	if err := app.Setup(ctx); err != nil {
		return err
	}
	html, err := app.Pages.Render(ctx, string(source), link.ForSite(app.Config.URL))
	if err != nil {
		return err
	}
	fmt.Println(html)
	return nil
}

// Command medsqlctl is the operator CLI for a running medsql API.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/medsql/medsql/internal/cli/medsqlctl"
)

func main() {
	os.Exit(medsqlctl.Run(context.Background(), os.Args[1:], optionsFromEnv()))
}

func optionsFromEnv() medsqlctl.Options {
	opts := medsqlctl.Options{
		BaseURL: "http://localhost:8080",
		APIKey:  strings.TrimSpace(os.Getenv("MEDSQL_API_KEY")),
		Timeout: 10 * time.Second,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
	if url := strings.TrimSpace(os.Getenv("MEDSQL_API_URL")); url != "" {
		opts.BaseURL = url
	}
	if raw := strings.TrimSpace(os.Getenv("MEDSQL_CLI_TIMEOUT")); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "invalid MEDSQL_CLI_TIMEOUT %q; using %s\n", raw, opts.Timeout)
		} else {
			opts.Timeout = parsed
		}
	}
	return opts
}

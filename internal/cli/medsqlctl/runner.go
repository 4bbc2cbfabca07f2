// Package medsqlctl implements the operator CLI for a running medsql API.
package medsqlctl

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

func (o Options) streams() (io.Writer, io.Writer) {
	stdout, stderr := o.Stdout, o.Stderr
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	return stdout, stderr
}

// apiCall is one resolved HTTP request against the API.
type apiCall struct {
	method string
	path   string
	body   []byte
}

// Run executes one command. Exit codes: 0 success, 1 request or server
// failure, 2 usage error.
func Run(ctx context.Context, args []string, defaults Options) int {
	stdout, stderr := defaults.streams()

	defaultURL := strings.TrimSpace(defaults.BaseURL)
	if defaultURL == "" {
		defaultURL = "http://localhost:8080"
	}
	defaultTimeout := defaults.Timeout
	if defaultTimeout <= 0 {
		defaultTimeout = 10 * time.Second
	}

	fs := flag.NewFlagSet("medsqlctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	baseURL := fs.String("base-url", defaultURL, "medsql API base URL")
	apiKey := fs.String("api-key", defaults.APIKey, "API key for authenticated requests")
	timeout := fs.Duration("timeout", defaultTimeout, "HTTP timeout (e.g. 10s)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		writeUsage(stderr)
		return 2
	}

	call, code := resolveCommand(strings.TrimSpace(fs.Arg(0)), fs.Args()[1:], stderr)
	if code != 0 {
		return code
	}

	client := defaults.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: *timeout}
	}

	status, responseBody, err := call.send(ctx, client, strings.TrimRight(*baseURL, "/"), *apiKey)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}
	if status >= 400 {
		_, _ = fmt.Fprintf(stderr, "http %d: %s\n", status, strings.TrimSpace(string(responseBody)))
		return 1
	}

	writeBody(stdout, responseBody)
	return 0
}

// resolveCommand maps a CLI command to the API call it performs. A non-zero
// exit code means the call could not be built.
func resolveCommand(command string, rest []string, stderr io.Writer) (apiCall, int) {
	switch command {
	case "health":
		return apiCall{method: http.MethodGet, path: "/v1/health"}, 0
	case "ready":
		return apiCall{method: http.MethodGet, path: "/v1/ready"}, 0
	case "sample":
		return sampleCall(rest, stderr)
	case "query":
		return queryCall(rest, stderr)
	case "upload":
		return uploadCall(rest, stderr)
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", command)
		writeUsage(stderr)
		return apiCall{}, 2
	}
}

func sampleCall(rest []string, stderr io.Writer) (apiCall, int) {
	fs := flag.NewFlagSet("sample", flag.ContinueOnError)
	fs.SetOutput(stderr)
	limit := fs.Int("limit", 0, "number of sample rows (1-100)")
	if err := fs.Parse(rest); err != nil {
		return apiCall{}, 2
	}

	call := apiCall{method: http.MethodGet, path: "/v1/sample-data"}
	if *limit > 0 {
		call.path += "?limit=" + strconv.Itoa(*limit)
	}
	return call, 0
}

func queryCall(rest []string, stderr io.Writer) (apiCall, int) {
	text := strings.TrimSpace(strings.Join(rest, " "))
	if text == "" {
		_, _ = fmt.Fprintln(stderr, "query requires the natural language text")
		return apiCall{}, 2
	}

	payload, err := json.Marshal(map[string]string{"query": text})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "encode request: %v\n", err)
		return apiCall{}, 1
	}
	return apiCall{method: http.MethodPost, path: "/v1/text-to-sql", body: payload}, 0
}

func uploadCall(rest []string, stderr io.Writer) (apiCall, int) {
	if len(rest) != 1 {
		_, _ = fmt.Fprintln(stderr, "upload requires exactly one JSON file")
		return apiCall{}, 2
	}

	data, err := os.ReadFile(rest[0])
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "read %s: %v\n", rest[0], err)
		return apiCall{}, 1
	}
	if !json.Valid(data) {
		_, _ = fmt.Fprintf(stderr, "%s does not contain valid JSON\n", rest[0])
		return apiCall{}, 2
	}
	return apiCall{method: http.MethodPost, path: "/v1/medical-data", body: data}, 0
}

func (c apiCall) send(ctx context.Context, client *http.Client, baseURL, apiKey string) (int, []byte, error) {
	var reader io.Reader
	if c.body != nil {
		reader = bytes.NewReader(c.body)
	}
	req, err := http.NewRequestWithContext(ctx, c.method, baseURL+c.path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key := strings.TrimSpace(apiKey); key != "" {
		req.Header.Set("X-API-Key", key)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, responseBody, nil
}

// writeBody prints the response, re-indented when it parses as JSON.
func writeBody(w io.Writer, raw []byte) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return
	}
	var decoded any
	if err := json.Unmarshal(trimmed, &decoded); err == nil {
		if formatted, err := json.MarshalIndent(decoded, "", "  "); err == nil {
			_, _ = fmt.Fprintln(w, string(formatted))
			return
		}
	}
	_, _ = fmt.Fprintln(w, string(trimmed))
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: medsqlctl [flags] <command>")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  health             GET /v1/health")
	_, _ = fmt.Fprintln(w, "  ready              GET /v1/ready")
	_, _ = fmt.Fprintln(w, "  sample [-limit N]  GET /v1/sample-data")
	_, _ = fmt.Fprintln(w, "  query <text>       POST /v1/text-to-sql")
	_, _ = fmt.Fprintln(w, "  upload <file>      POST /v1/medical-data")
}

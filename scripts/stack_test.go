package scripts

import (
	"bytes"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestStackScriptDryRun(t *testing.T) {
	cases := []struct {
		name    string
		command string
		want    []string
	}{
		{
			name:    "up starts containers migrations and api",
			command: "up",
			want: []string{
				"[dry-run] docker compose",
				"medsql-migrate -direction up",
				"[dry-run] nohup env",
				"go run ./cmd/medsql-api",
				"stack is up",
			},
		},
		{
			name:    "down stops api before containers",
			command: "down",
			want: []string{
				"[dry-run] stop api process",
				"[dry-run] docker compose",
				"stack is down",
			},
		},
		{
			name:    "status reports containers and api",
			command: "status",
			want: []string{
				"[dry-run] docker compose",
				"api is",
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stdout, stderr, err := runStackScript(t, tc.command, "--dry-run")
			if err != nil {
				t.Fatalf("stack %s dry-run failed: %v\nstdout:\n%s\nstderr:\n%s", tc.command, err, stdout, stderr)
			}
			for _, token := range tc.want {
				if !strings.Contains(stdout, token) {
					t.Fatalf("output missing %q\noutput:\n%s", token, stdout)
				}
			}
		})
	}
}

func TestStackScriptRejectsUnknownCommand(t *testing.T) {
	_, stderr, err := runStackScript(t, "not-a-command")
	if err == nil {
		t.Fatal("expected non-zero exit for unknown command")
	}
	if !strings.Contains(stderr, "unknown command") {
		t.Fatalf("stderr missing unknown command message:\n%s", stderr)
	}
}

func TestStackScriptRejectsUnknownFlag(t *testing.T) {
	_, stderr, err := runStackScript(t, "up", "--force")
	if err == nil {
		t.Fatal("expected non-zero exit for unknown argument")
	}
	if !strings.Contains(stderr, "unknown argument") {
		t.Fatalf("stderr missing unknown argument message:\n%s", stderr)
	}
}

func runStackScript(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	scriptPath := filepath.Join(filepath.Dir(thisFile), "stack.sh")

	cmd := exec.Command("bash", append([]string{scriptPath}, args...)...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

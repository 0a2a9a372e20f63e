package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const models = `
models:
  name: {type: string, minLength: 1}
  person:
    properties:
      name: name
      age: {type: int, isOptional: true}
endpoints:
  createPerson:
    input:
      person: person
`

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestRunWithArgs(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "models.yaml", models)
	broken := writeFile(t, dir, "broken.yaml", "models:\n  a: b\n  c: {type: nope}\n")
	valid := writeFile(t, dir, "valid.json", `{"person": {"name": "Ada", "age": "36"}}`)
	invalid := writeFile(t, dir, "invalid.yaml", "person:\n  name: ''\n")
	extra := writeFile(t, dir, "extra.yaml", "name: Ada\nnickname: ada\n")

	tests := []struct {
		name       string
		args       []string
		wantCode   int
		wantStdout []string
		wantStderr string
	}{
		{
			name:       "check ok",
			args:       []string{"check", good},
			wantStdout: []string{"ok: 2 models, 1 endpoints"},
		},
		{
			name:       "check errors",
			args:       []string{"check", broken},
			wantCode:   1,
			wantStdout: []string{"unresolved-link", "2 error(s)"},
		},
		{
			name:       "validate ok",
			args:       []string{"validate", "--endpoint", "createPerson", "--input", valid, good},
			wantStdout: []string{"name: Ada", "age: 36"},
		},
		{
			name:       "validate violations",
			args:       []string{"validate", "--model", "person", "--input", invalid, good},
			wantCode:   1,
			wantStdout: []string{"value-min-length", "/name", "fails to validate"},
		},
		{
			name:       "export",
			args:       []string{"export", "--model", "person", good},
			wantStdout: []string{"type: object", "minLength: 1", "required:"},
		},
		{
			name:       "missing target",
			args:       []string{"export", good},
			wantCode:   2,
			wantStderr: "error:",
		},
		{
			name:       "unknown property rejected",
			args:       []string{"validate", "--model", "person", "--input", extra, good},
			wantCode:   1,
			wantStdout: []string{"object-unknown-property"},
		},
		{
			name:       "unknown property kept",
			args:       []string{"validate", "--unknown", "keep", "--model", "person", "--input", extra, good},
			wantStdout: []string{"nickname: ada"},
		},
		{
			name:       "bad unknown policy",
			args:       []string{"check", "--unknown", "drop", good},
			wantCode:   2,
			wantStderr: `unknown property policy "drop" is not defined`,
		},
		{
			name:       "bad log level",
			args:       []string{"check", "--log-level", "loud", good},
			wantCode:   2,
			wantStderr: "error:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := runWithArgs(tt.args, &stdout, &stderr)
			if code != tt.wantCode {
				t.Fatalf("runWithArgs() = %d, want %d\nstdout: %s\nstderr: %s", code, tt.wantCode, stdout.String(), stderr.String())
			}
			for _, want := range tt.wantStdout {
				if !strings.Contains(stdout.String(), want) {
					t.Fatalf("stdout = %q, want it to contain %q", stdout.String(), want)
				}
			}
			if tt.wantStderr != "" && !strings.Contains(stderr.String(), tt.wantStderr) {
				t.Fatalf("stderr = %q, want it to contain %q", stderr.String(), tt.wantStderr)
			}
		})
	}
}

func TestTableAlignsWideRunes(t *testing.T) {
	var buf bytes.Buffer
	err := table(&buf, []row{
		{severity: "error", code: "a", where: "名前", message: "x"},
		{severity: "warning", code: "bb", where: "id", message: "y"},
	})
	if err != nil {
		t.Fatalf("table() error = %v", err)
	}
	want := "error    a   名前  x\nwarning  bb  id    y\n"
	if buf.String() != want {
		t.Fatalf("table() = %q, want %q", buf.String(), want)
	}
}

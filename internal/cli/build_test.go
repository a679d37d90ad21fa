package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/graftwood/pkg/errors"
)

// runCLI executes the root command with an isolated config and cache.
func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	clearCacheEnv(t)

	c := New(io.Discard, log.InfoLevel)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func writeOutlines(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range map[string]string{
		"animals.txt": exploreOutline,
		"birds.txt":   "Robin\n@mount robins.txt\nCrow\n",
		"robins.txt":  "European robin\nAmerican robin\n",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func readOutput(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestBuildCommand_Outline(t *testing.T) {
	dir := writeOutlines(t)
	out := filepath.Join(t.TempDir(), "tree.txt")

	if err := runCLI(t, "build", filepath.Join(dir, "animals.txt"), "-o", out); err != nil {
		t.Fatalf("build: %v", err)
	}
	got := readOutput(t, out)
	if !strings.Contains(got, "▸ Birds") || strings.Contains(got, "Robin") {
		t.Errorf("unexpanded outline = %q", got)
	}

	if err := runCLI(t, "build", filepath.Join(dir, "animals.txt"), "--expand", "2", "-o", out); err != nil {
		t.Fatalf("build --expand: %v", err)
	}
	got = readOutput(t, out)
	if !strings.Contains(got, "European robin") {
		t.Errorf("two rounds should reach robins.txt: %q", got)
	}
	if !strings.Contains(got, "✗ Fish") {
		t.Errorf("missing fish.txt should be marked failed: %q", got)
	}
}

func TestBuildCommand_JSON(t *testing.T) {
	dir := writeOutlines(t)
	out := filepath.Join(t.TempDir(), "tree.json")

	if err := runCLI(t, "build", filepath.Join(dir, "animals.txt"), "-f", "json", "-o", out); err != nil {
		t.Fatalf("build: %v", err)
	}
	var doc struct {
		Root struct {
			Label    string `json:"label"`
			Children []struct {
				Label string `json:"label"`
				Mount *struct {
					State string `json:"state"`
				} `json:"mount"`
			} `json:"children"`
		} `json:"root"`
	}
	if err := json.Unmarshal([]byte(readOutput(t, out)), &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Root.Label != "animals.txt" || len(doc.Root.Children) != 3 {
		t.Fatalf("root = %+v", doc.Root)
	}
	if m := doc.Root.Children[1].Mount; m == nil || m.State == "" {
		t.Errorf("Birds should carry its mount point: %+v", doc.Root.Children[1])
	}
}

func TestBuildCommand_DOT(t *testing.T) {
	dir := writeOutlines(t)
	out := filepath.Join(t.TempDir(), "tree.dot")

	if err := runCLI(t, "build", filepath.Join(dir, "animals.txt"), "-f", "dot", "-o", out); err != nil {
		t.Fatalf("build: %v", err)
	}
	if got := readOutput(t, out); !strings.HasPrefix(got, "digraph") || !strings.Contains(got, "peripheries=2") {
		t.Errorf("dot output = %q", got)
	}
}

func TestBuildCommand_Errors(t *testing.T) {
	dir := writeOutlines(t)
	src := filepath.Join(dir, "animals.txt")

	tests := []struct {
		name string
		args []string
		code errs.Code
	}{
		{"unknown format", []string{"build", src, "-f", "pdf"}, errs.ErrCodeInvalidInput},
		{"negative expand", []string{"build", src, "--expand=-1"}, errs.ErrCodeInvalidInput},
		{"unsupported source", []string{"build", filepath.Join(dir, "notes.unknown")}, errs.ErrCodeUnsupportedSource},
		{"missing config", []string{"build", src, "--config", filepath.Join(dir, "none.toml")}, errs.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := runCLI(t, tt.args...); !errs.Is(err, tt.code) {
				t.Errorf("error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestExpandCommand(t *testing.T) {
	dir := writeOutlines(t)
	out := filepath.Join(t.TempDir(), "tree.txt")
	src := filepath.Join(dir, "animals.txt")

	if err := runCLI(t, "expand", src, "1", "-o", out); err != nil {
		t.Fatalf("expand: %v", err)
	}
	got := readOutput(t, out)
	if !strings.Contains(got, "Robin") || strings.Contains(got, "European robin") {
		t.Errorf("only Birds should be expanded: %q", got)
	}

	err := runCLI(t, "expand", src, "2", "-o", out)
	if !errs.Is(err, errs.ErrCodeMountFailed) {
		t.Errorf("expanding Fish = %v, want MOUNT_RESOLUTION_FAILED", err)
	}
	if got := readOutput(t, out); !strings.Contains(got, "✗ Fish") {
		t.Errorf("the tree is still written when a mount fails: %q", got)
	}
}

func TestOutputOpts_Render(t *testing.T) {
	dir := writeOutlines(t)
	ws := &workspace{cfg: defaultConfig(), logger: log.New(io.Discard)}
	e, reg := ws.newEngine()
	defer reg.Close()

	tr, err := e.Open(context.Background(), filepath.Join(dir, "animals.txt"), nil)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	o := outputOpts{format: formatOutline, ids: true}
	if err := o.render(context.Background(), &buf, tr); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Mammals [0]") {
		t.Errorf("outline with ids = %q", buf.String())
	}
}

package cli

import (
	"bytes"
	"io"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

func TestSourceExtensions(t *testing.T) {
	exts := sourceExtensions()
	for _, want := range []string{"txt", "xml", "toml", "dot", "db"} {
		if !slices.Contains(exts, want) {
			t.Errorf("sourceExtensions() = %v, missing %q", exts, want)
		}
	}
	for _, ext := range exts {
		if strings.HasPrefix(ext, ".") {
			t.Errorf("extension %q should not start with a dot", ext)
		}
	}

	got, directive := completeSource(nil, []string{"notes.txt"}, "")
	if got != nil || directive != cobra.ShellCompDirectiveNoFileComp {
		t.Errorf("node ids should not complete to files: %v, %v", got, directive)
	}
}

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		root := New(io.Discard, log.InfoLevel).RootCommand()
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetArgs([]string{"completion", shell})
		if err := root.Execute(); err != nil {
			t.Fatalf("%s: %v", shell, err)
		}
		if !strings.Contains(out.String(), "graftwood") {
			t.Errorf("%s completion does not mention graftwood", shell)
		}
	}
}

package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)

	got := out.String()
	if !strings.Contains(got, "millwright") {
		t.Errorf("version output %q missing binary name", got)
	}
	if !strings.Contains(got, AppVersion) {
		t.Errorf("version output %q missing version", got)
	}
}

func TestResetCmd_RequiresConfirmation(t *testing.T) {
	resetYes = false
	err := resetCmd.RunE(resetCmd, []string{"knowledge"})
	if err == nil {
		t.Fatal("reset without --yes should fail")
	}
	if !strings.Contains(err.Error(), "--yes") {
		t.Errorf("error %q should mention --yes", err)
	}
}

func TestRememberInput(t *testing.T) {
	t.Run("from argument", func(t *testing.T) {
		cmd := &cobra.Command{}
		got, err := rememberInput(cmd, []string{"prefers metric"})
		if err != nil {
			t.Fatalf("rememberInput() error: %v", err)
		}
		if got != "prefers metric" {
			t.Errorf("rememberInput() = %q", got)
		}
	})

	t.Run("from stdin", func(t *testing.T) {
		cmd := &cobra.Command{}
		cmd.SetIn(strings.NewReader("  from a pipe\n"))
		got, err := rememberInput(cmd, nil)
		if err != nil {
			t.Fatalf("rememberInput() error: %v", err)
		}
		if got != "from a pipe" {
			t.Errorf("rememberInput() = %q, want trimmed stdin", got)
		}
	})

	t.Run("empty stdin", func(t *testing.T) {
		cmd := &cobra.Command{}
		cmd.SetIn(strings.NewReader("   \n"))
		if _, err := rememberInput(cmd, nil); err == nil {
			t.Error("rememberInput with blank stdin should fail")
		}
	})
}

func TestCommandRegistration(t *testing.T) {
	want := []string{"ingest", "remember", "recall", "runs", "reset", "version"}
	registered := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}
	for _, name := range want {
		if !registered[name] {
			t.Errorf("command %q is not registered on the root command", name)
		}
	}
}

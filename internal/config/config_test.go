package config

import (
	"fmt"
	"strings"
	"testing"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GITHUB_APP_ID", "123456")
	t.Setenv("GITHUB_PRIVATE_KEY", "test-private-key")
}

func TestLoadActionDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := LoadAction()
	if err != nil {
		t.Fatalf("LoadAction() error: %v", err)
	}

	if cfg.TriggerPhrase != "@junie" {
		t.Errorf("TriggerPhrase = %q, want @junie", cfg.TriggerPhrase)
	}
	if cfg.CreateNewBranchForPR {
		t.Error("CreateNewBranchForPR should default to false")
	}
	if cfg.JunieBin != "junie" {
		t.Errorf("JunieBin = %q, want junie", cfg.JunieBin)
	}
}

func TestLoadActionInputs(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("INPUT_TRIGGER_PHRASE", "@helper")
	t.Setenv("INPUT_ASSIGNEE_TRIGGER", "@junie-bot")
	t.Setenv("INPUT_LABEL_TRIGGER", "junie")
	t.Setenv("INPUT_CREATE_NEW_BRANCH_FOR_PR", "true")
	t.Setenv("INPUT_RESOLVE_CONFLICTS", "true")
	t.Setenv("GITHUB_RUN_ID", "987654321")

	cfg, err := LoadAction()
	if err != nil {
		t.Fatalf("LoadAction() error: %v", err)
	}

	if cfg.TriggerPhrase != "@helper" {
		t.Errorf("TriggerPhrase = %q, want @helper", cfg.TriggerPhrase)
	}
	if cfg.AssigneeTrigger != "@junie-bot" {
		t.Errorf("AssigneeTrigger = %q, want @junie-bot", cfg.AssigneeTrigger)
	}
	if cfg.LabelTrigger != "junie" {
		t.Errorf("LabelTrigger = %q, want junie", cfg.LabelTrigger)
	}
	if !cfg.CreateNewBranchForPR {
		t.Error("CreateNewBranchForPR should be true")
	}
	if !cfg.ResolveConflicts {
		t.Error("ResolveConflicts should be true")
	}
	if cfg.RunID != "987654321" {
		t.Errorf("RunID = %q, want 987654321", cfg.RunID)
	}
}

func TestLoadActionMissingCredentials(t *testing.T) {
	tests := []struct {
		name    string
		appID   string
		key     string
		wantErr string
	}{
		{name: "missing app id", appID: "", key: "pem", wantErr: "GITHUB_APP_ID"},
		{name: "missing private key", appID: "1", key: "", wantErr: "GITHUB_PRIVATE_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GITHUB_APP_ID", tt.appID)
			t.Setenv("GITHUB_PRIVATE_KEY", tt.key)

			_, err := LoadAction()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %s", err, tt.wantErr)
			}
		})
	}
}

func TestValidatePrompt(t *testing.T) {
	t.Run("at the limit passes", func(t *testing.T) {
		if err := ValidatePrompt(strings.Repeat("a", MaxPromptLength)); err != nil {
			t.Errorf("prompt of length %d should pass: %v", MaxPromptLength, err)
		}
	})

	t.Run("one over the limit fails with sizes in the message", func(t *testing.T) {
		err := ValidatePrompt(strings.Repeat("a", MaxPromptLength+1))
		if err == nil {
			t.Fatal("expected error for oversized prompt")
		}
		msg := err.Error()
		if !strings.Contains(msg, fmt.Sprintf("%d", MaxPromptLength+1)) {
			t.Errorf("error %q should state the actual size", msg)
		}
		if !strings.Contains(msg, fmt.Sprintf("%d", MaxPromptLength)) {
			t.Errorf("error %q should state the maximum size", msg)
		}
	})

	t.Run("empty prompt passes", func(t *testing.T) {
		if err := ValidatePrompt(""); err != nil {
			t.Errorf("empty prompt should pass: %v", err)
		}
	})
}

func TestLoadServer(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("GITHUB_WEBHOOK_SECRET", "test-webhook-secret")
	t.Setenv("PORT", "9090")
	t.Setenv("DISPATCHER_WORKERS", "2")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.DispatcherWorkers != 2 {
		t.Errorf("DispatcherWorkers = %d, want 2", cfg.DispatcherWorkers)
	}
	if cfg.DispatcherBackoffMultiplier != 2.0 {
		t.Errorf("DispatcherBackoffMultiplier = %v, want 2.0", cfg.DispatcherBackoffMultiplier)
	}
}

func TestLoadServerRequiresSecret(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("GITHUB_WEBHOOK_SECRET", "")

	if _, err := LoadServer(); err == nil {
		t.Fatal("expected error when webhook secret is missing")
	}
}

func TestNormalizePrivateKey(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "key", want: "key"},
		{name: "double quoted", input: "\"key\"", want: "key"},
		{name: "single quoted", input: "'key'", want: "key"},
		{name: "escaped newlines", input: `line1\nline2`, want: "line1\nline2"},
		{name: "crlf", input: "line1\r\nline2", want: "line1\nline2"},
		{name: "empty", input: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizePrivateKey(tt.input); got != tt.want {
				t.Errorf("normalizePrivateKey(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

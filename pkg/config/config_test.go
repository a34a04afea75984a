package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kraitsura/lazyreview/pkg/model"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Providers) != 0 {
		t.Errorf("default config has %d providers, want 0", len(cfg.Providers))
	}
	if !cfg.UI.ShowDrafts {
		t.Error("default config should show drafts")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yml")

	cfg := &Config{
		Providers: []ProviderConfig{
			{
				Type: model.ProviderGitHub,
				Repos: []RepoRef{
					{Owner: "octo", Repo: "widgets"},
				},
			},
			{
				Type: model.ProviderGitLab,
				Host: "gitlab.example.com",
			},
		},
		Keybindings:       map[string]string{"approve": "A"},
		UI:                UIConfig{Theme: "dracula", ShowDrafts: false},
		ReplayConcurrency: 2,
	}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(loaded.Providers) != 2 {
		t.Fatalf("loaded %d providers, want 2", len(loaded.Providers))
	}
	if loaded.Providers[0].Type != model.ProviderGitHub {
		t.Errorf("providers[0].Type = %q", loaded.Providers[0].Type)
	}
	if loaded.Providers[0].Repos[0].Owner != "octo" || loaded.Providers[0].Repos[0].Repo != "widgets" {
		t.Errorf("providers[0].Repos[0] = %+v", loaded.Providers[0].Repos[0])
	}
	if loaded.Providers[1].Host != "gitlab.example.com" {
		t.Errorf("providers[1].Host = %q", loaded.Providers[1].Host)
	}
	if loaded.Keybindings["approve"] != "A" {
		t.Errorf("keybindings = %v", loaded.Keybindings)
	}
	if loaded.UI.Theme != "dracula" {
		t.Errorf("UI.Theme = %q", loaded.UI.Theme)
	}
	if loaded.ReplayConcurrency != 2 {
		t.Errorf("ReplayConcurrency = %d", loaded.ReplayConcurrency)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			"unknown provider type",
			"providers:\n  - type: svn\n",
		},
		{
			"repo without owner",
			"providers:\n  - type: github\n    repos:\n      - repo: widgets\n",
		},
		{
			"negative concurrency",
			"replay_concurrency: -1\n",
		},
		{
			"malformed yaml",
			"providers: [\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load() succeeded, want error")
			}
		})
	}
}

func TestEffectiveHost(t *testing.T) {
	tests := []struct {
		name string
		pc   ProviderConfig
		want string
	}{
		{"explicit host", ProviderConfig{Type: model.ProviderGitHub, Host: "ghe.corp.example"}, "ghe.corp.example"},
		{"github default", ProviderConfig{Type: model.ProviderGitHub}, "github.com"},
		{"gitlab default", ProviderConfig{Type: model.ProviderGitLab}, "gitlab.com"},
		{"bitbucket default", ProviderConfig{Type: model.ProviderBitbucket}, "bitbucket.org"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pc.EffectiveHost(); got != tt.want {
				t.Errorf("EffectiveHost() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProviderFor(t *testing.T) {
	cfg := &Config{
		Providers: []ProviderConfig{
			{Type: model.ProviderGitHub},
			{Type: model.ProviderGitea, Host: "git.example.com"},
		},
	}

	pc, ok := cfg.ProviderFor(model.ProviderGitea)
	if !ok {
		t.Fatal("ProviderFor(gitea) not found")
	}
	if pc.Host != "git.example.com" {
		t.Errorf("Host = %q", pc.Host)
	}

	if _, ok := cfg.ProviderFor(model.ProviderBitbucket); ok {
		t.Error("ProviderFor(bitbucket) found, want absent")
	}
}

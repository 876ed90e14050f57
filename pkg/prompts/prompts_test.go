package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	p, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if !strings.Contains(p.System.Tag, `"tagged_text"`) {
		t.Error("tag system prompt should describe the tagged_text field")
	}
	if !strings.Contains(p.System.Shorten, `"shortened_text"`) {
		t.Error("shorten system prompt should describe the shortened_text field")
	}
}

func TestLoadFallsBackToDefault(t *testing.T) {
	originalWd, _ := os.Getwd()
	defer func() { _ = os.Chdir(originalWd) }()
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}

	p, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.User.Tag == "" || p.User.Shorten == "" {
		t.Error("expected built-in user prompts")
	}
}

func TestLoadFromOverridesSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	content := `
system:
  tag: "Custom tagger"
user:
  shorten: "Cut {{.Text}} to {{.TargetPercent}}%"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if p.System.Tag != "Custom tagger" {
		t.Errorf("System.Tag = %q", p.System.Tag)
	}
	if !strings.Contains(p.System.Shorten, "shortened_text") {
		t.Error("System.Shorten should keep the built-in prompt")
	}

	got, err := p.RenderShorten(NewShortenParams("hello", 0.5, nil, nil))
	if err != nil {
		t.Fatalf("RenderShorten() error = %v", err)
	}
	if got != "Cut hello to 50%" {
		t.Errorf("RenderShorten() = %q", got)
	}
}

func TestLoadFromErrors(t *testing.T) {
	if _, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("system: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(bad); err == nil {
		t.Error("expected error for invalid yaml")
	}
}

func TestRenderTag(t *testing.T) {
	p, err := Default()
	if err != nil {
		t.Fatal(err)
	}

	got, err := p.RenderTag(NewTagParams("Target line", []string{"two back", "one back"}, []string{"next one"}))
	if err != nil {
		t.Fatalf("RenderTag() error = %v", err)
	}

	for _, want := range []string{"[-2] two back", "[-1] one back", "Target line", "[+1] next one"} {
		if !strings.Contains(got, want) {
			t.Errorf("rendered prompt missing %q:\n%s", want, got)
		}
	}
	if strings.Index(got, "[-2]") > strings.Index(got, "[-1]") {
		t.Error("previous entries should be in timeline order")
	}
}

func TestRenderTagWithoutContext(t *testing.T) {
	p, _ := Default()
	got, err := p.RenderTag(NewTagParams("Alone", nil, nil))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "Previous entries") || strings.Contains(got, "Next entries") {
		t.Errorf("unexpected context sections:\n%s", got)
	}
}

func TestNewShortenParams(t *testing.T) {
	params := NewShortenParams("こんにちは世界", 0.5, nil, []string{"a"})
	if params.TargetPercent != 50 {
		t.Errorf("TargetPercent = %d, want 50", params.TargetPercent)
	}
	if params.TargetChars != 4 {
		t.Errorf("TargetChars = %d, want 4", params.TargetChars)
	}
	if len(params.Next) != 1 || params.Next[0].Label != "+1" {
		t.Errorf("Next = %+v", params.Next)
	}
}

func TestRenderInvalidTemplate(t *testing.T) {
	p := &Prompts{User: UserPrompts{Tag: "{{.Missing"}}
	if _, err := p.RenderTag(TagParams{}); err == nil {
		t.Error("expected template parse error")
	}
}

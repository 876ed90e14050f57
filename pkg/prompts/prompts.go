package prompts

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"text/template"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

const DefaultPath = "prompts.yaml"

//go:embed prompts.yaml
var defaultPrompts []byte

type Prompts struct {
	System SystemPrompts `yaml:"system"`
	User   UserPrompts   `yaml:"user"`
}

type SystemPrompts struct {
	Tag     string `yaml:"tag"`
	Shorten string `yaml:"shorten"`
}

type UserPrompts struct {
	Tag     string `yaml:"tag"`
	Shorten string `yaml:"shorten"`
}

// ContextLine is a neighboring cue, labelled by its distance ("-1", "+2").
type ContextLine struct {
	Label string
	Text  string
}

type TagParams struct {
	Text string
	Prev []ContextLine
	Next []ContextLine
}

type ShortenParams struct {
	Text          string
	TargetPercent int
	TargetChars   int
	Prev          []ContextLine
	Next          []ContextLine
}

func NewTagParams(text string, prev, next []string) TagParams {
	return TagParams{Text: text, Prev: PrevLines(prev), Next: NextLines(next)}
}

func NewShortenParams(text string, ratio float64, prev, next []string) ShortenParams {
	return ShortenParams{
		Text:          text,
		TargetPercent: int(math.Round(ratio * 100)),
		TargetChars:   max(1, int(math.Round(float64(utf8.RuneCountInString(text))*ratio))),
		Prev:          PrevLines(prev),
		Next:          NextLines(next),
	}
}

// PrevLines labels the nearest previous entry "-1"; prev is in timeline order.
func PrevLines(prev []string) []ContextLine {
	lines := make([]ContextLine, len(prev))
	for i, text := range prev {
		lines[i] = ContextLine{Label: fmt.Sprintf("-%d", len(prev)-i), Text: text}
	}
	return lines
}

func NextLines(next []string) []ContextLine {
	lines := make([]ContextLine, len(next))
	for i, text := range next {
		lines[i] = ContextLine{Label: fmt.Sprintf("+%d", i+1), Text: text}
	}
	return lines
}

// Load reads the prompts file at path, prompts.yaml when empty, falling back
// to the built-in prompts when the file does not exist.
func Load(path string) (*Prompts, error) {
	if path == "" {
		path = DefaultPath
	}
	p, err := LoadFrom(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default()
	}
	return p, err
}

func Default() (*Prompts, error) {
	return parse(defaultPrompts)
}

// LoadFrom reads a prompts file. Sections missing from the file keep the
// built-in text.
func LoadFrom(path string) (*Prompts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Prompts, error) {
	var p Prompts
	if err := yaml.Unmarshal(defaultPrompts, &p); err != nil {
		return nil, fmt.Errorf("failed to parse default prompts: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse prompts file: %w", err)
	}
	return &p, nil
}

func (p *Prompts) RenderTag(params TagParams) (string, error) {
	return render(p.User.Tag, params)
}

func (p *Prompts) RenderShorten(params ShortenParams) (string, error) {
	return render(p.User.Shorten, params)
}

func render(tmpl string, data any) (string, error) {
	t, err := template.New("prompt").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

package ocr

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// PromptConfig is a YAML prompt override for vision providers.
//
//	model: llava:13b
//	system: You are a careful transcriber of vehicle number plates.
//	prompt: |
//	  Read all text ...
type PromptConfig struct {
	Model  string `yaml:"model"`
	System string `yaml:"system"`
	Prompt string `yaml:"prompt"`
}

// LoadPromptConfig reads a prompt override file.
func LoadPromptConfig(path string) (*PromptConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file: %w", err)
	}

	var pc PromptConfig
	if err := yaml.Unmarshal(data, &pc); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", path, err)
	}
	if strings.TrimSpace(pc.Prompt) == "" {
		return nil, fmt.Errorf("prompt file %s has an empty prompt", path)
	}
	return &pc, nil
}

// Text returns the system and user prompts joined into one instruction.
func (p *PromptConfig) Text() string {
	if p.System == "" {
		return p.Prompt
	}
	return strings.TrimSpace(p.System) + "\n\n" + p.Prompt
}

// resolvePrompt applies an optional prompt file to cfg, returning the prompt
// text to send. A model named in the file wins only when cfg has none.
func resolvePrompt(cfg *Config) (string, error) {
	if cfg.PromptFile == "" {
		return DefaultPrompt, nil
	}
	pc, err := LoadPromptConfig(cfg.PromptFile)
	if err != nil {
		return "", err
	}
	if cfg.Model == "" && pc.Model != "" {
		cfg.Model = pc.Model
	}
	return pc.Text(), nil
}

package openai

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

// PromptSpec is one prompt with its model parameters
type PromptSpec struct {
	Temperature  float32 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
	System       string  `yaml:"system"`
	UserTemplate string  `yaml:"user_template"`
}

// PromptConfig holds the prompts used by the classifier and the extractor
type PromptConfig struct {
	Classification     PromptSpec `yaml:"classification"`
	DocumentExtraction PromptSpec `yaml:"document_extraction"`
}

// LoadPrompts loads prompt configuration from YAML file
func LoadPrompts(promptsPath string) (*PromptConfig, error) {
	data, err := os.ReadFile(promptsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}
	return ParsePrompts(data)
}

// ParsePrompts decodes prompt YAML and checks that every template parses
func ParsePrompts(data []byte) (*PromptConfig, error) {
	var prompts PromptConfig
	if err := yaml.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prompts: %w", err)
	}

	for name, p := range map[string]PromptSpec{
		"classification":      prompts.Classification,
		"document_extraction": prompts.DocumentExtraction,
	} {
		if p.System == "" || p.UserTemplate == "" {
			return nil, fmt.Errorf("prompt %s: system and user_template are required", name)
		}
		if _, err := template.New(name).Parse(p.UserTemplate); err != nil {
			return nil, fmt.Errorf("prompt %s: %w", name, err)
		}
	}

	return &prompts, nil
}

// renderTemplate renders a template with provided data
func renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("prompt").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

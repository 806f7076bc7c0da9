package tui

import (
	"testing"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestFormMarkdown(t *testing.T) {
	form := domain.FormState{
		NodeID:  "llm",
		Version: 2,
		Properties: []domain.Property{
			{Name: "model_provider", DisplayName: "Provider", Type: domain.PropertyOptions},
			{Name: "model", Type: domain.PropertyAsyncOptions, LoadMethod: "listModels"},
			{Name: "apiKey", Type: domain.PropertyPassword},
			{Name: "headers", Type: domain.PropertyArray, Collection: []domain.Property{{Name: "name", Type: domain.PropertyString}}},
			{Name: "options", Type: domain.PropertyCollection, Collection: []domain.Property{
				{Name: "timeout", Type: domain.PropertyNumber},
			}},
		},
		Credentials: []domain.CredentialDescriptor{{Name: "openAiApi"}},
		Inputs: map[string]any{
			"model_provider": "openai",
			"apiKey":         "sk-secret",
			"headers":        []any{map[string]any{"name": "a"}},
			"options":        map[string]any{"timeout": 30},
		},
		Async: map[string]domain.AsyncState{
			"model": {Status: "ready", Options: []domain.PropertyOption{{Name: "gpt-4o"}}},
		},
	}

	md := FormMarkdown("Chat Model", form)
	assert.Contains(t, md, "# Chat Model")
	assert.Contains(t, md, "- `openAiApi`")
	assert.Contains(t, md, "| Provider | options | `openai` |  |")
	assert.Contains(t, md, "| model | asyncOptions |  | ready, 1 option(s) |")
	assert.Contains(t, md, "| apiKey | password | ••• |  |")
	assert.Contains(t, md, "| headers | array | 1 item(s) |  |")
	assert.Contains(t, md, "| &nbsp;&nbsp;timeout | number | `30` |  |")
	assert.NotContains(t, md, "sk-secret")
}

func TestFormMarkdown_Empty(t *testing.T) {
	md := FormMarkdown("Empty", domain.FormState{NodeID: "x"})
	assert.Contains(t, md, "_No visible properties._")
	assert.NotContains(t, md, "## Issues")
}

func TestFormMarkdown_Issues(t *testing.T) {
	md := FormMarkdown("HTTP", domain.FormState{NodeID: "x", Issues: []string{`field "url": required`}})
	assert.Contains(t, md, "## Issues\n\n- field \"url\": required\n")
}

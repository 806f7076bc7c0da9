package schema

import (
	"errors"
	"testing"

	"github.com/aretw0/weave/pkg/domain"
)

func httpProperties() []domain.Property {
	return []domain.Property{
		{Name: "url", Type: domain.PropertyString},
		{Name: "method", Type: domain.PropertyOptions, Default: "GET", Options: []domain.PropertyOption{
			{Name: "GET", Value: "GET"},
			{Name: "POST", Value: "POST"},
		}},
		{Name: "sendBody", Type: domain.PropertyBoolean},
		{
			Name: "body",
			Type: domain.PropertyJSON,
			DisplayOptions: &domain.DisplayOptions{
				Show: map[string][]domain.Condition{"sendBody": {domain.Literal(true)}},
			},
		},
		{Name: "options", Type: domain.PropertyCollection, Collection: []domain.Property{
			{Name: "timeout", Type: domain.PropertyNumber, Optional: true},
		}},
		{Name: "headers", Type: domain.PropertyArray, Collection: []domain.Property{
			{Name: "kind", Type: domain.PropertyOptions, Optional: true},
			{
				Name: "token",
				Type: domain.PropertyPassword,
				DisplayOptions: &domain.DisplayOptions{
					Show: map[string][]domain.Condition{"kind": {domain.Literal("bearer")}},
				},
			},
		}},
		{Name: "auth", Type: domain.PropertySection, Collection: []domain.Property{
			{Name: "credential", Type: domain.PropertyCredential, Optional: true},
		}},
		{Name: "model", Type: domain.PropertyAsyncOptions, LoadMethod: "listModels"},
	}
}

func keys(t *testing.T, err error) []string {
	t.Helper()
	var out []string
	for _, e := range ValidationErrors(err) {
		var v *ValidationError
		if !errors.As(e, &v) {
			t.Fatalf("unexpected error type %T", e)
		}
		out = append(out, v.Key+": "+v.Reason)
	}
	return out
}

func TestTypeOf(t *testing.T) {
	tests := []struct {
		prop domain.Property
		want string
	}{
		{domain.Property{Type: domain.PropertyString}, "string"},
		{domain.Property{Type: domain.PropertyString, Optional: true}, "string?"},
		{domain.Property{Type: domain.PropertyNumber, Default: 1}, "number?"},
		{domain.Property{Type: domain.PropertyBoolean}, "bool?"},
		{domain.Property{Type: domain.PropertyOptions}, "any"},
		{domain.Property{Type: domain.PropertyMultiOptions, Options: []domain.PropertyOption{{Value: "a"}}}, "[oneOf(a)]?"},
		{domain.Property{Type: domain.PropertyJSONSchema}, "json?"},
		{domain.Property{Type: domain.PropertyCredential}, "string"},
		{domain.Property{Type: domain.PropertyAsyncOptions, LoadMethod: "m"}, "any?"},
	}

	for _, tt := range tests {
		if got := TypeOf(&tt.prop).Name(); got != tt.want {
			t.Errorf("TypeOf(%s) = %q, want %q", tt.prop.Type, got, tt.want)
		}
	}
}

func TestFromProperties(t *testing.T) {
	s := FromProperties(httpProperties())

	for _, name := range []string{"url", "method", "body", "options", "headers", "credential", "model"} {
		if _, ok := s[name]; !ok {
			t.Errorf("schema is missing %q", name)
		}
	}
	if _, ok := s["auth"]; ok {
		t.Error("sections must not appear as fields")
	}

	data := map[string]any{
		"url":     "https://example.com",
		"options": map[string]any{"timeout": 30},
		"headers": []any{map[string]any{"kind": "basic", "token": "t"}},
	}
	if err := Validate(s, data); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestValidateInputs(t *testing.T) {
	props := httpProperties()

	t.Run("valid", func(t *testing.T) {
		inputs := map[string]any{"url": "https://example.com", "method": "POST"}
		if err := ValidateInputs(props, inputs, 1); err != nil {
			t.Errorf("ValidateInputs() error = %v, want nil", err)
		}
	})

	t.Run("hidden fields are skipped", func(t *testing.T) {
		inputs := map[string]any{"url": "x", "sendBody": false, "body": 42}
		if err := ValidateInputs(props, inputs, 1); err != nil {
			t.Errorf("ValidateInputs() error = %v, want nil", err)
		}

		inputs["sendBody"] = true
		got := keys(t, ValidateInputs(props, inputs, 1))
		if len(got) != 1 || got[0] != "body: expected json, got int" {
			t.Errorf("issues = %v", got)
		}
	})

	t.Run("nested and per item", func(t *testing.T) {
		inputs := map[string]any{
			"method":  "DELETE",
			"options": map[string]any{"timeout": "slow"},
			"headers": []any{
				map[string]any{"kind": "basic"},
				map[string]any{"kind": "bearer"},
			},
			"credential": 5,
		}

		got := keys(t, ValidateInputs(props, inputs, 1))
		want := []string{
			"url: required",
			"method: value DELETE is not one of the allowed options",
			"options.timeout: expected number, got string",
			"headers.1.token: required",
			"credential: expected string, got int",
		}
		if len(got) != len(want) {
			t.Fatalf("issues = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("issue %d = %q, want %q", i, got[i], want[i])
			}
		}
	})

	t.Run("wrong container shapes", func(t *testing.T) {
		inputs := map[string]any{"url": "x", "options": "none", "headers": "none"}
		got := keys(t, ValidateInputs(props, inputs, 1))
		if len(got) != 2 {
			t.Fatalf("issues = %v", got)
		}
	})
}

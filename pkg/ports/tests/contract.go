package tests

import (
	"context"
	"testing"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/ports"
)

// LoaderCase is one request a loader under test is expected to serve.
type LoaderCase struct {
	NodeName   string
	MethodName string
	Inputs     map[string]any
	Want       *domain.LoadResult
}

// PropertyLoaderContractTest is a reusable test suite that verifies if an adapter complies with ports.PropertyLoader.
func PropertyLoaderContractTest(t *testing.T, loader ports.PropertyLoader, cases []LoaderCase) {
	t.Helper()
	ctx := context.Background()

	t.Run("Load_Success", func(t *testing.T) {
		for _, c := range cases {
			got, err := loader.Load(ctx, c.NodeName, c.MethodName, c.Inputs)
			if err != nil {
				t.Fatalf("unexpected error loading %s.%s: %v", c.NodeName, c.MethodName, err)
			}
			if got == nil {
				t.Fatalf("nil result for %s.%s", c.NodeName, c.MethodName)
			}
			if len(got.Options) != len(c.Want.Options) {
				t.Errorf("options mismatch for %s.%s: got %d, want %d", c.NodeName, c.MethodName, len(got.Options), len(c.Want.Options))
			}
			for i := range c.Want.Options {
				if i < len(got.Options) && got.Options[i].Name != c.Want.Options[i].Name {
					t.Errorf("option %d mismatch: got %q, want %q", i, got.Options[i].Name, c.Want.Options[i].Name)
				}
			}
			if got.CredentialName != c.Want.CredentialName {
				t.Errorf("credential mismatch: got %q, want %q", got.CredentialName, c.Want.CredentialName)
			}
		}
	})

	t.Run("Load_UnknownMethod", func(t *testing.T) {
		_, err := loader.Load(ctx, "non-existent-node", "nonExistentMethod", nil)
		if err == nil {
			t.Error("expected error for unknown load method, got nil")
		}
	})
}

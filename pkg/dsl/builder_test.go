package dsl

import (
	"errors"
	"testing"

	"github.com/aretw0/weave/pkg/connectivity"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/paths"
)

func TestBuilder_SimpleFlow(t *testing.T) {
	// 1. Build the graph using DSL
	b := New()

	b.Add("trigger").
		Type("webhook").
		At(0, 0).
		To("agent")

	b.Add("agent").
		Type("chatModel").
		Name("Agent").
		At(240, 0).
		Version(1,
			domain.Property{Name: "model_provider", Type: domain.PropertyOptions},
			domain.Property{Name: "model", Type: domain.PropertyAsyncOptions, LoadMethod: "listModels"},
		).
		Input("model_provider", "openai").
		Input("options.temperature", 0.2).
		To("reply", "main", "in")

	b.Add("reply").
		Type("respond")

	b.Viewport(10, 20, 1.5)

	// 2. Compile to Graph
	g, err := b.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	// 3. Verify nodes keep insertion order
	if len(g.Nodes) != 3 {
		t.Fatalf("Expected 3 nodes, got %d", len(g.Nodes))
	}
	for i, id := range []string{"trigger", "agent", "reply"} {
		if g.Nodes[i].ID != id {
			t.Errorf("Expected node %d to be '%s', got '%s'", i, id, g.Nodes[i].ID)
		}
	}

	agent, ok := g.Node("agent")
	if !ok {
		t.Fatal("agent node missing")
	}
	if agent.DisplayName() != "Agent" {
		t.Errorf("Expected display name 'Agent', got '%s'", agent.DisplayName())
	}
	v := agent.ActiveVersion()
	if v == nil || v.Version != 1 {
		t.Fatalf("Expected active version 1, got %+v", v)
	}
	if len(v.Properties) != 2 {
		t.Errorf("Expected 2 properties, got %d", len(v.Properties))
	}
	if v.Inputs["model_provider"] != "openai" {
		t.Errorf("Expected model_provider 'openai', got %v", v.Inputs["model_provider"])
	}
	opts, _ := v.Inputs["options"].(map[string]any)
	if opts["temperature"] != 0.2 {
		t.Errorf("Expected nested temperature input, got %v", v.Inputs["options"])
	}

	// 4. Verify edges
	if len(g.Edges) != 2 {
		t.Fatalf("Expected 2 edges, got %d", len(g.Edges))
	}
	last := g.Edges[1]
	if last.SourceHandle != "main" || last.TargetHandle != "in" {
		t.Errorf("Expected handles main/in, got %s/%s", last.SourceHandle, last.TargetHandle)
	}
	if last.ID != "agent:main->reply:in" {
		t.Errorf("Expected derived edge id, got '%s'", last.ID)
	}

	if g.Viewport == nil || g.Viewport.Zoom != 1.5 {
		t.Errorf("Expected viewport zoom 1.5, got %+v", g.Viewport)
	}
}

func TestBuilder_Versions(t *testing.T) {
	b := New()
	b.Add("http").
		Version(1, domain.Property{Name: "url", Type: domain.PropertyString}).
		Version(2, domain.Property{Name: "url", Type: domain.PropertyString}).
		Input("url", "https://example.com")

	n := b.Add("http").Build()
	if n.Data.SelectedVersion != 2 {
		t.Errorf("Expected selected version 2, got %d", n.Data.SelectedVersion)
	}
	if len(n.Data.Versions) != 2 {
		t.Fatalf("Expected 2 versions, got %d", len(n.Data.Versions))
	}
	if n.Data.Versions[0].Inputs != nil {
		t.Errorf("Expected version 1 to stay untouched, got %v", n.Data.Versions[0].Inputs)
	}
	if n.Data.Versions[1].Inputs["url"] != "https://example.com" {
		t.Errorf("Expected input on version 2, got %v", n.Data.Versions[1].Inputs)
	}
}

func TestBuilder_InputWithoutVersion(t *testing.T) {
	b := New()
	b.Add("set").Input("value", 1).Credential(domain.CredentialDescriptor{Name: "apiKey"})

	n := b.Add("set").Build()
	if n.Data.SelectedVersion != 1 || len(n.Data.Versions) != 1 {
		t.Fatalf("Expected an implicit version 1, got %+v", n.Data)
	}
	if len(n.Data.Versions[0].Credentials) != 1 {
		t.Errorf("Expected 1 credential, got %d", len(n.Data.Versions[0].Credentials))
	}
}

func TestBuilder_InvalidGraph(t *testing.T) {
	b := New()
	b.Add("a").To("b")
	b.Add("b").To("a")
	b.Connect("a", "ghost")

	g, err := b.Build()
	if err == nil {
		t.Fatal("Expected Build() to fail")
	}
	var verr *connectivity.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected a *connectivity.ValidationError, got %T", err)
	}
	if len(verr.Problems) < 2 {
		t.Errorf("Expected dangling edge and cycle problems, got %v", verr.Problems)
	}
	if len(g.Nodes) != 2 {
		t.Errorf("Expected the invalid graph to be returned, got %d nodes", len(g.Nodes))
	}

	defer func() {
		if recover() == nil {
			t.Error("Expected MustBuild to panic")
		}
	}()
	b.MustBuild()
}

func TestBuilder_InvalidInputPath(t *testing.T) {
	b := New()
	b.Add("http").Type("httpRequest").Input("headers.5.name", "Accept")

	_, err := b.Build()
	if !errors.Is(err, paths.ErrIndexOutOfRange) {
		t.Fatalf("Expected ErrIndexOutOfRange, got %v", err)
	}
}

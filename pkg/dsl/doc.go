/*
Package dsl provides a Go DSL for programmatically constructing Weave workflow graphs.

It lets tests, demos and tooling define canvases with a fluent builder instead of
hand-writing YAML or JSON files. The result is a plain domain.Graph that has already
passed connectivity.ValidateGraph.

Example usage:

	b := dsl.New()

	b.Add("trigger").
		Type("webhook").
		At(0, 0).
		To("agent")

	b.Add("agent").
		Type("chatModel").
		At(240, 0).
		Version(1,
			domain.Property{Name: "model_provider", Type: domain.PropertyOptions},
			domain.Property{Name: "model", Type: domain.PropertyAsyncOptions, LoadMethod: "listModels"},
		).
		Input("model_provider", "openai")

	graph, err := b.Build()
	// ... pass graph to editor.Open(...)
*/
package dsl

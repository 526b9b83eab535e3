// File: pkg/devstack/doc.go
// Brief: Layer registration, dependency resolution, and deploy orchestration.

// Package devstack implements the devstack core: a Registry that accepts
// layers, modes and props, a deterministic Kahn resolver that linearizes the
// layer dependency graph, a StackState that tracks per-layer status through a
// run, a PreferenceStore that persists operator toggles between runs, and an
// Orchestrator that drives a deploy (or destroy) from registration to the
// final status table.
//
// Layers are registered explicitly by the entry point:
//
//	reg := devstack.NewRegistry()
//	reg.MustRegisterProp(devstack.PropDef{PropName: "Docker", PropValues: map[string]any{"network": "dev"}})
//	reg.MustRegisterMode(devstack.ModeDef{ModeName: "Verbose"})
//	reg.MustRegisterLayer(&HelloWorld{})
//
//	o := &devstack.Orchestrator{StackName: "demo", Registry: reg, Selector: sel, Renderer: table}
//	res, err := o.Deploy(ctx)
package devstack

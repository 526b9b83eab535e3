package devstack

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func staticSelector(names ...string) (Selector, *[]SelectionRequest) {
	var seen []SelectionRequest
	return SelectorFunc(func(ctx context.Context, req SelectionRequest) ([]string, error) {
		seen = append(seen, req)
		return names, nil
	}), &seen
}

func newTestOrchestrator(t *testing.T, sel Selector, layers ...Layer) (*Orchestrator, *recordingRenderer) {
	t.Helper()
	r := NewRegistry()
	for _, l := range layers {
		if err := r.RegisterLayer(l); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	rr := &recordingRenderer{}
	return &Orchestrator{
		StackName: "demo",
		Registry:  r,
		Store:     NewPreferenceStore(t.TempDir()),
		Selector:  sel,
		Renderer:  rr,
	}, rr
}

func TestDeploy_OutcomeForReturnCode(t *testing.T) {
	cases := []struct {
		code    int
		outcome Outcome
		symbol  Symbol
		status  string
	}{
		{code: 0, outcome: OutcomeSuccess, symbol: SymbolSuccess, status: StatusUp},
		{code: -1, outcome: OutcomeFailure, symbol: SymbolFailure, status: StatusFailed},
		{code: 5, outcome: OutcomeComplete, symbol: SymbolComplete, status: StatusComplete},
	}
	for _, tc := range cases {
		sel, _ := staticSelector("LayerX")
		layer := &fakeLayer{name: "LayerX", code: tc.code}
		o, rr := newTestOrchestrator(t, sel, layer)
		res, err := o.Deploy(context.Background())
		if err != nil {
			t.Fatalf("code %d: deploy: %v", tc.code, err)
		}
		lr, ok := res.Layer("LayerX")
		if !ok || lr.Outcome != tc.outcome || lr.Code != tc.code {
			t.Fatalf("code %d: result=%+v", tc.code, lr)
		}
		rows := rr.last()
		if len(rows) != 1 || rows[0].Symbol != tc.symbol || rows[0].Status != tc.status {
			t.Fatalf("code %d: rows=%v", tc.code, rows)
		}
		if layer.deployed != 1 {
			t.Fatalf("code %d: deployed %d times", tc.code, layer.deployed)
		}
	}
}

func TestDeploy_SharedConfigBeforeInitBeforeDeploy(t *testing.T) {
	var calls []string
	a := &fakeLayer{name: "A", shared: map[string]any{"port": 5432}, calls: &calls}
	b := &dependentLayer{fakeLayer{name: "B", needs: []string{"A"}, calls: &calls}}
	sel, _ := staticSelector("A", "B")
	o, _ := newTestOrchestrator(t, sel, b, a)

	if _, err := o.Deploy(context.Background()); err != nil {
		t.Fatalf("deploy: %v", err)
	}
	want := []string{"shared:A", "shared:B", "init:A", "init:B", "deploy:A", "deploy:B"}
	if !reflect.DeepEqual(calls, want) {
		t.Fatalf("calls=%v want=%v", calls, want)
	}
	if v, ok := b.env.Shared.Lookup("A", "port"); !ok || v != 5432 {
		t.Fatalf("B cannot read A's shared config: %v", b.env.Shared)
	}
}

func TestDeploy_OnlyEnabledLayersRunAndFailureDoesNotStop(t *testing.T) {
	a := &fakeLayer{name: "A", code: -1}
	b := &dependentLayer{fakeLayer{name: "B", needs: []string{"A"}}}
	c := &fakeLayer{name: "C"}
	sel, _ := staticSelector("A", "B")
	o, rr := newTestOrchestrator(t, sel, a, b, c)

	res, err := o.Deploy(context.Background())
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	if a.deployed != 1 || b.deployed != 1 || c.deployed != 0 {
		t.Fatalf("deployed a=%d b=%d c=%d", a.deployed, b.deployed, c.deployed)
	}
	if !res.Failed() {
		t.Fatalf("expected failed result")
	}
	if lr, _ := res.Layer("C"); lr.Outcome != OutcomeSkipped {
		t.Fatalf("C=%+v", lr)
	}
	rows := rr.last()
	want := []StatusRow{
		{Symbol: SymbolFailure, Layer: "A", Status: StatusFailed},
		{Symbol: SymbolPending, Layer: "C", Status: StatusSkipped},
		{Symbol: SymbolSuccess, Layer: "B", Status: StatusUp},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows=%v want=%v", rows, want)
	}
}

func TestDeploy_DefaultsWithoutPreferencesAndPersistsSelection(t *testing.T) {
	sel, seen := staticSelector("B", "Offline")
	a := &fakeLayer{name: "A"}
	b := &fakeLayer{name: "B"}
	o, _ := newTestOrchestrator(t, sel, a, b)
	o.Registry.MustRegisterMode(ModeDef{ModeName: "Verbose", DefaultOn: true})
	o.Registry.MustRegisterMode(ModeDef{ModeName: "Offline"})

	if _, err := o.Deploy(context.Background()); err != nil {
		t.Fatalf("deploy: %v", err)
	}
	req := (*seen)[0]
	wantLayers := []Choice{{Name: "A"}, {Name: "B"}}
	wantModes := []Choice{{Name: "Verbose", Checked: true}, {Name: "Offline"}}
	if !reflect.DeepEqual(req.Layers, wantLayers) || !reflect.DeepEqual(req.Modes, wantModes) {
		t.Fatalf("request=%+v", req)
	}

	prefs, found, err := o.Store.Load("demo")
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	if !reflect.DeepEqual(prefs.Toggles, map[string]bool{"A": false, "B": true}) {
		t.Fatalf("toggles=%v", prefs.Toggles)
	}
	if !reflect.DeepEqual(prefs.Modes, map[string]bool{"Verbose": false, "Offline": true}) {
		t.Fatalf("modes=%v", prefs.Modes)
	}
	if !b.env.ModeEnabled("Offline") || b.env.ModeEnabled("Verbose") {
		t.Fatalf("layer env modes=%v", b.env.Modes())
	}
}

func TestDeploy_PreselectsFromPersistedPreferences(t *testing.T) {
	sel, seen := staticSelector()
	o, _ := newTestOrchestrator(t, sel, &fakeLayer{name: "A"}, &fakeLayer{name: "B"})
	if err := o.Store.Save("demo", Preferences{
		Toggles: map[string]bool{"B": true, "Gone": true},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := o.Deploy(context.Background()); err != nil {
		t.Fatalf("deploy: %v", err)
	}
	want := []Choice{{Name: "A"}, {Name: "B", Checked: true}}
	if got := (*seen)[0].Layers; !reflect.DeepEqual(got, want) {
		t.Fatalf("layers=%v want=%v", got, want)
	}
	prefs, _, _ := o.Store.Load("demo")
	if _, ok := prefs.Toggles["Gone"]; ok {
		t.Fatalf("stale toggle persisted: %v", prefs.Toggles)
	}
}

func TestDeploy_ResolutionFailureRunsNothing(t *testing.T) {
	a := &dependentLayer{fakeLayer{name: "A", needs: []string{"B"}}}
	b := &dependentLayer{fakeLayer{name: "B", needs: []string{"A"}}}
	called := false
	sel := SelectorFunc(func(ctx context.Context, req SelectionRequest) ([]string, error) {
		called = true
		return []string{"A", "B"}, nil
	})
	o, _ := newTestOrchestrator(t, sel, a, b)
	res, err := o.Deploy(context.Background())
	var depErr *DependencyResolutionError
	if !errors.As(err, &depErr) {
		t.Fatalf("expected DependencyResolutionError, got %v", err)
	}
	if res != nil || called || a.deployed+b.deployed != 0 || a.env != nil {
		t.Fatalf("run must halt before any step: res=%v called=%v", res, called)
	}
}

func TestDeploy_SelectionAborted(t *testing.T) {
	sel := SelectorFunc(func(ctx context.Context, req SelectionRequest) ([]string, error) {
		return nil, ErrSelectionAborted
	})
	layer := &fakeLayer{name: "A"}
	o, _ := newTestOrchestrator(t, sel, layer)
	_, err := o.Deploy(context.Background())
	if !errors.Is(err, ErrSelectionAborted) {
		t.Fatalf("expected ErrSelectionAborted, got %v", err)
	}
	if ExitCode(err) != ExitAborted || layer.deployed != 0 {
		t.Fatalf("exit=%d deployed=%d", ExitCode(err), layer.deployed)
	}
	if _, found, _ := o.Store.Load("demo"); found {
		t.Fatalf("aborted selection must not be persisted")
	}
}

func TestDeploy_CancelledContextSkipsRemainingLayers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a := &cancellingLayer{fakeLayer: fakeLayer{name: "A"}, cancel: cancel}
	b := &dependentLayer{fakeLayer{name: "B", needs: []string{"A"}}}
	sel, _ := staticSelector("A", "B")
	o, _ := newTestOrchestrator(t, sel, a, b)
	res, err := o.Deploy(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if b.deployed != 0 {
		t.Fatalf("B must not run after cancellation")
	}
	if lr, _ := res.Layer("B"); lr.Outcome != OutcomeSkipped {
		t.Fatalf("B=%+v", lr)
	}
}

type cancellingLayer struct {
	fakeLayer
	cancel context.CancelFunc
}

func (c *cancellingLayer) Deploy(ctx context.Context) int {
	c.deployed++
	c.cancel()
	return 0
}

func TestDestroy_ReverseOrderFromPersistedToggles(t *testing.T) {
	var calls []string
	a := &fakeLayer{name: "A", calls: &calls}
	b := &dependentLayer{fakeLayer{name: "B", needs: []string{"A"}, calls: &calls}}
	c := &dependentLayer{fakeLayer{name: "C", needs: []string{"B"}, calls: &calls}}
	o, rr := newTestOrchestrator(t, nil, a, b, c)
	if err := o.Store.Save("demo", Preferences{Toggles: map[string]bool{"A": true, "C": true}}); err != nil {
		t.Fatal(err)
	}
	res, err := o.Destroy(context.Background(), DestroyOptions{})
	if err != nil {
		t.Fatalf("destroy: %v", err)
	}
	var destroyed []string
	for _, call := range calls {
		if name, ok := strings.CutPrefix(call, "destroy:"); ok {
			destroyed = append(destroyed, name)
		}
	}
	if !reflect.DeepEqual(destroyed, []string{"C", "A"}) {
		t.Fatalf("destroyed=%v", destroyed)
	}
	if res.Command != "destroy" {
		t.Fatalf("command=%q", res.Command)
	}
	rows := rr.last()
	if rows[0].Status != StatusDown || rows[1].Status != StatusSkipped || rows[2].Status != StatusDown {
		t.Fatalf("rows=%v", rows)
	}
}

type recordingHistory struct {
	runs []*RunResult
}

func (h *recordingHistory) RecordRun(ctx context.Context, res *RunResult) error {
	h.runs = append(h.runs, res)
	return nil
}

func TestDeploy_RecordsHistory(t *testing.T) {
	sel, _ := staticSelector("A")
	o, _ := newTestOrchestrator(t, sel, &fakeLayer{name: "A", code: 3})
	h := &recordingHistory{}
	o.History = h
	if _, err := o.Deploy(context.Background()); err != nil {
		t.Fatalf("deploy: %v", err)
	}
	if len(h.runs) != 1 || h.runs[0].Layers[0].Outcome != OutcomeComplete {
		t.Fatalf("history=%+v", h.runs)
	}
}

func TestEnv_UpdateStatusFromLayer(t *testing.T) {
	sel, _ := staticSelector("A")
	layer := &statusLayer{fakeLayer: fakeLayer{name: "A"}}
	o, rr := newTestOrchestrator(t, sel, layer)
	if _, err := o.Deploy(context.Background()); err != nil {
		t.Fatalf("deploy: %v", err)
	}
	found := false
	for _, frame := range rr.frames {
		if len(frame) == 1 && frame[0].Status == "pulling image" {
			found = true
		}
	}
	if !found {
		t.Fatalf("layer status update was never rendered")
	}
}

type statusLayer struct{ fakeLayer }

func (s *statusLayer) Deploy(ctx context.Context) int {
	s.env.UpdateStatus("", "pulling image")
	return 0
}

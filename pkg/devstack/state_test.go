package devstack

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

type recordingRenderer struct {
	titles []string
	frames [][]StatusRow
}

func (r *recordingRenderer) Render(title string, rows []StatusRow) {
	r.titles = append(r.titles, title)
	r.frames = append(r.frames, rows)
}

func (r *recordingRenderer) last() []StatusRow {
	if len(r.frames) == 0 {
		return nil
	}
	return r.frames[len(r.frames)-1]
}

func TestStackState_UpdateKeepsOrderAndRenders(t *testing.T) {
	rr := &recordingRenderer{}
	s := NewStackState("demo Stack", rr)
	s.Track("A")
	s.Track("B")
	s.Track("A")

	s.Update("B", SymbolInProgress, StatusDeploying)
	s.Update("B", "", "custom message")

	rows := s.Rows()
	if len(rows) != 2 || rows[0].Layer != "A" || rows[1].Layer != "B" {
		t.Fatalf("rows=%v", rows)
	}
	if rows[1].Symbol != SymbolInProgress || rows[1].Status != "custom message" {
		t.Fatalf("row=%+v", rows[1])
	}
	if s.Title() != "demo Stack" {
		t.Fatalf("title=%q", s.Title())
	}
	if len(rr.frames) != 2 || rr.titles[0] != "demo Stack" {
		t.Fatalf("renders=%d titles=%v", len(rr.frames), rr.titles)
	}
}

func TestStackState_UntrackedEntriesAreNotRendered(t *testing.T) {
	rr := &recordingRenderer{}
	s := NewStackState("demo Stack", rr)
	s.Track("A")
	s.Update("Ghost", SymbolFailure, StatusFailed)

	if rows := rr.last(); len(rows) != 1 || rows[0].Layer != "A" {
		t.Fatalf("rows=%v", rows)
	}
	e, ok := s.Entry("Ghost")
	if !ok || e.Symbol != SymbolFailure {
		t.Fatalf("entry=%+v ok=%v", e, ok)
	}
}

func TestPreferenceStore_NotFound(t *testing.T) {
	store := NewPreferenceStore(t.TempDir())
	prefs, found, err := store.Load("demo")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if found {
		t.Fatalf("expected not found")
	}
	if len(prefs.Toggles) != 0 || len(prefs.Modes) != 0 {
		t.Fatalf("prefs=%+v", prefs)
	}
}

func TestPreferenceStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewPreferenceStore(dir)
	want := Preferences{
		Toggles: map[string]bool{"A": true, "B": false},
		Modes:   map[string]bool{"Verbose": true},
	}
	if err := store.Save("demo", want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, found, err := store.Load("demo")
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got=%+v want=%+v", got, want)
	}

	raw, err := os.ReadFile(filepath.Join(dir, ".demo.json"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var wire map[string]map[string]bool
	if err := json.Unmarshal(raw, &wire); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !wire["stack_toggle_status"]["A"] || !wire["stack_mode_status"]["Verbose"] {
		t.Fatalf("wire=%s", raw)
	}
}

func TestPreferenceStore_SaveOverwrites(t *testing.T) {
	store := NewPreferenceStore(t.TempDir())
	if err := store.Save("demo", Preferences{Toggles: map[string]bool{"A": true}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save("demo", Preferences{Toggles: map[string]bool{"B": true}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, _, err := store.Load("demo")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := got.Toggles["A"]; ok || !got.Toggles["B"] {
		t.Fatalf("toggles=%v", got.Toggles)
	}
}

func TestPreferenceStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".demo.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := NewPreferenceStore(dir).Load("demo"); err == nil {
		t.Fatalf("expected decode error")
	}
}

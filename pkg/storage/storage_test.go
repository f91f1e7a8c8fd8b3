package storage

import (
	"os"
	"path/filepath"
	"testing"

	specs "github.com/opencontainers/runtime-spec/specs-go"

	"github.com/medamarfilali/cubo/pkg/types"
)

func demoContainer() *types.Container {
	return types.NewContainer("demo:latest", []string{"/bin/echo", "Hello world!!!"})
}

func TestOCIStateMappingAndAnnotations(t *testing.T) {
	c := demoContainer()

	st := NewOCIState(c, "/bundle/123")
	if st.Status != specs.StateCreated {
		t.Errorf("status = %v, want created", st.Status)
	}
	if st.Annotations["blueprint"] != "demo:latest" {
		t.Errorf("blueprint annotation = %q", st.Annotations["blueprint"])
	}
	if st.Version != "1.0.2" {
		t.Errorf("ociVersion = %q, want 1.0.2", st.Version)
	}

	c.UpdateStatus(types.StatusRunning)
	if st := NewOCIState(c, "/bundle/123"); st.Status != specs.StateRunning {
		t.Errorf("status = %v, want running", st.Status)
	}

	c.UpdateStatus(types.StatusPaused)
	if st := NewOCIState(c, "/bundle/123"); st.Status != "paused" {
		t.Errorf("status = %v, want paused", st.Status)
	}

	c.UpdateStatus(types.StatusStopped)
	if st := NewOCIState(c, "/bundle/123"); st.Status != specs.StateStopped {
		t.Errorf("status = %v, want stopped", st.Status)
	}

	c.UpdateStatus(types.StatusError)
	st = NewOCIState(c, "/bundle/123")
	if st.Status != "unknown" {
		t.Errorf("status = %v, want unknown", st.Status)
	}
	if st.Annotations["error"] != "true" {
		t.Error("Error status should set error=true annotation")
	}
}

func TestOCIStateNameAnnotation(t *testing.T) {
	c := demoContainer().WithName("demo")
	st := NewOCIState(c, "/bundle/x")
	if st.Annotations["name"] != "demo" {
		t.Errorf("name annotation = %q, want demo", st.Annotations["name"])
	}

	anon := demoContainer()
	if _, ok := NewOCIState(anon, "/bundle/y").Annotations["name"]; ok {
		t.Error("unnamed container should have no name annotation")
	}
}

func TestAtomicWriteAndRead(t *testing.T) {
	tmp := t.TempDir()
	p := filepath.Join(tmp, "data.json")

	if err := AtomicWriteJSON(p, map[string]int{"a": 1}); err != nil {
		t.Fatalf("AtomicWriteJSON() error = %v", err)
	}
	var v map[string]int
	if err := ReadJSON(p, &v); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if v["a"] != 1 {
		t.Errorf("a = %d, want 1", v["a"])
	}

	// Overwrite
	if err := AtomicWriteJSON(p, map[string]int{"a": 2, "b": 3}); err != nil {
		t.Fatalf("AtomicWriteJSON() overwrite error = %v", err)
	}
	if err := ReadJSON(p, &v); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if v["a"] != 2 || v["b"] != 3 {
		t.Errorf("got %v, want a=2 b=3", v)
	}

	// No lingering tmp sibling
	if _, err := os.Stat(p + ".tmp"); !os.IsNotExist(err) {
		t.Error("tmp file left behind after successful write")
	}
}

func TestAtomicWriteCreatesParents(t *testing.T) {
	tmp := t.TempDir()
	p := filepath.Join(tmp, "deep", "nested", "state.json")
	if err := AtomicWriteJSON(p, map[string]string{"k": "v"}); err != nil {
		t.Fatalf("AtomicWriteJSON() error = %v", err)
	}
	if _, err := os.Stat(p); err != nil {
		t.Errorf("target file missing: %v", err)
	}
}

func TestSaveConfigStateAndLoadAll(t *testing.T) {
	tmp := t.TempDir()
	c := demoContainer().WithName("demo")
	c.SetPID(12345)
	c.UpdateStatus(types.StatusRunning)

	if err := SaveConfig(tmp, c); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}
	if err := SaveState(tmp, c); err != nil {
		t.Fatalf("SaveState() error = %v", err)
	}

	bundle := filepath.Join(tmp, c.ID)
	for _, f := range []string{"config.json", "state.json"} {
		if _, err := os.Stat(filepath.Join(bundle, f)); err != nil {
			t.Errorf("%s missing: %v", f, err)
		}
	}

	loaded, err := LoadAll(tmp)
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	c2, ok := loaded[c.ID]
	if !ok {
		t.Fatal("container not loaded")
	}
	if c2.ID != c.ID {
		t.Errorf("id = %q, want %q", c2.ID, c.ID)
	}
	if c2.Status != types.StatusRunning {
		t.Errorf("status = %v, want Running", c2.Status)
	}
	if c2.PID == nil || *c2.PID != 12345 {
		t.Errorf("pid = %v, want 12345", c2.PID)
	}
	if c2.Name != "demo" {
		t.Errorf("name = %q, want demo", c2.Name)
	}
}

func TestLoadAllMissingRoot(t *testing.T) {
	loaded, err := LoadAll(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("loaded %d containers, want 0", len(loaded))
	}
}

func TestLoadAllSkipsEntriesWithoutConfig(t *testing.T) {
	tmp := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmp, "not-a-bundle"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmp, "stray-file"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadAll(tmp)
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("loaded %d containers, want 0", len(loaded))
	}
}

func TestLoadAllUnknownStatusKeepsConfigStatus(t *testing.T) {
	tmp := t.TempDir()
	c := demoContainer()
	c.UpdateStatus(types.StatusError) // persists as "unknown" in state.json

	if err := SaveConfig(tmp, c); err != nil {
		t.Fatal(err)
	}
	if err := SaveState(tmp, c); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadAll(tmp)
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	// The overlay does not recognize "unknown", so the config status wins.
	if got := loaded[c.ID].Status; got != types.StatusError {
		t.Errorf("status = %v, want Error", got)
	}
}

func TestPidIsAlive(t *testing.T) {
	if PidIsAlive(nil) {
		t.Error("nil pid should not be alive")
	}

	dead := 999999
	if PidIsAlive(&dead) {
		t.Error("pid 999999 should not be alive")
	}

	self := os.Getpid()
	if !PidIsAlive(&self) {
		t.Error("our own pid should be alive")
	}
}

func TestBundleAndLogPath(t *testing.T) {
	if got := BundleDir("/var/lib/cubo", "abc"); got != "/var/lib/cubo/abc" {
		t.Errorf("BundleDir = %q", got)
	}
	if got := LogPath("/var/lib/cubo", "abc"); got != "/var/lib/cubo/abc/container.log" {
		t.Errorf("LogPath = %q", got)
	}
}

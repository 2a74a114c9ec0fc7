package session

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/Baalavignesh/DiggerMan/internal/store"
)

type fixedNames map[string]string

func (f fixedNames) Lookup(_ context.Context, _, userID string) (string, bool, error) {
	name, ok := f[userID]
	return name, ok, nil
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := New(store.NewMemory(), nil)
	ctx := context.Background()
	state := json.RawMessage(`{"money": 12.5, "depth": 3, "note": "<b>&</b>", "future": {"x": [1, 2]}}`)

	if err := s.Save(ctx, "p1", "u1", state); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := s.Load(ctx, "p1", "u1")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	want := `{"money":12.5,"depth":3,"note":"<b>&</b>","future":{"x":[1,2]}}`
	if string(got) != want {
		t.Fatalf("loaded %s, want %s", got, want)
	}
}

func TestSaveOverwrites(t *testing.T) {
	s := New(store.NewMemory(), nil)
	ctx := context.Background()

	for _, doc := range []string{`{"money":1}`, `{"money":2}`} {
		if err := s.Save(ctx, "p1", "u1", json.RawMessage(doc)); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	got, _, _ := s.Load(ctx, "p1", "u1")
	if string(got) != `{"money":2}` {
		t.Fatalf("loaded %s", got)
	}
}

func TestSaveRejectsInvalidJSON(t *testing.T) {
	s := New(store.NewMemory(), nil)
	if err := s.Save(context.Background(), "p1", "u1", json.RawMessage(`{"money":`)); err == nil {
		t.Fatal("expected error for invalid document")
	}
}

func TestResetThenLoadIsAbsent(t *testing.T) {
	s := New(store.NewMemory(), nil)
	ctx := context.Background()

	if err := s.Save(ctx, "p1", "u1", json.RawMessage(`{"money":5}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	for range 2 {
		if err := s.Reset(ctx, "p1", "u1"); err != nil {
			t.Fatalf("reset: %v", err)
		}
	}
	if _, ok, err := s.Load(ctx, "p1", "u1"); err != nil || ok {
		t.Fatalf("load after reset: ok=%v err=%v", ok, err)
	}
}

func TestLoadCorruptIsAbsent(t *testing.T) {
	stored := map[string]string{
		"garbage":          `{not json`,
		"scalar":           `42`,
		"future version":   `{"v":2,"sum":"","state":{}}`,
		"empty state":      `{"v":1,"sum":""}`,
		"checksum tamper":  "",
		"wrong sum format": `{"v":1,"sum":"abc","state":{"money":1}}`,
	}

	for name, raw := range stored {
		t.Run(name, func(t *testing.T) {
			mem := store.NewMemory()
			s := New(mem, nil)
			ctx := context.Background()
			key := store.Keys("p1").Session("u1")

			if raw == "" {
				if err := s.Save(ctx, "p1", "u1", json.RawMessage(`{"money":10}`)); err != nil {
					t.Fatalf("save: %v", err)
				}
				saved, _, _ := mem.Get(ctx, key)
				raw = strings.Replace(saved, `"money":10`, `"money":9999`, 1)
			}
			if err := mem.Set(ctx, key, raw); err != nil {
				t.Fatalf("set: %v", err)
			}

			got, ok, err := s.Load(ctx, "p1", "u1")
			if err != nil || ok {
				t.Fatalf("load = %s ok=%v err=%v, want absent", got, ok, err)
			}
		})
	}
}

func TestLoadLegacyDocument(t *testing.T) {
	mem := store.NewMemory()
	s := New(mem, nil)
	ctx := context.Background()

	legacy := `{"money":77,"depth":4}`
	if err := mem.Set(ctx, store.Keys("p1").Session("u1"), legacy); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := s.Load(ctx, "p1", "u1")
	if err != nil || !ok || string(got) != legacy {
		t.Fatalf("load = %s ok=%v err=%v", got, ok, err)
	}
}

func TestLoadAppliesRegisteredName(t *testing.T) {
	s := New(store.NewMemory(), fixedNames{"u1": "Digger Dan"})
	ctx := context.Background()

	if err := s.Save(ctx, "p1", "u1", json.RawMessage(`{"playerName":"someone else","money":1}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := s.Load(ctx, "p1", "u1")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if name := gjson.GetBytes(got, "playerName").String(); name != "Digger Dan" {
		t.Fatalf("playerName = %q", name)
	}

	if err := s.Save(ctx, "p1", "u2", json.RawMessage(`{"playerName":"kept"}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, _, _ = s.Load(ctx, "p1", "u2")
	if name := gjson.GetBytes(got, "playerName").String(); name != "kept" {
		t.Fatalf("unregistered playerName = %q", name)
	}
}

func TestSessionsAreScopedByPostAndUser(t *testing.T) {
	s := New(store.NewMemory(), nil)
	ctx := context.Background()

	if err := s.Save(ctx, "p1", "u1", json.RawMessage(`{"money":1}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	for _, scope := range [][2]string{{"p2", "u1"}, {"p1", "u2"}} {
		if _, ok, _ := s.Load(ctx, scope[0], scope[1]); ok {
			t.Fatalf("document leaked to %v", scope)
		}
	}
}

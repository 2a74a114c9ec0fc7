package identity

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/Baalavignesh/DiggerMan/internal/ledger"
	"github.com/Baalavignesh/DiggerMan/internal/models"
	"github.com/Baalavignesh/DiggerMan/internal/store"
)

// plainKV hides SetNX so the unconditional claim path is exercised.
type plainKV struct {
	store.KV
}

func newService() (*Service, *store.Memory) {
	mem := store.NewMemory()
	return NewService(mem, ledger.New(mem)), mem
}

func snapshotStore(t *testing.T, mem *store.Memory, postID string, names ...string) map[string]any {
	t.Helper()
	ctx := context.Background()
	keys := store.Keys(postID)
	out := make(map[string]any)
	for _, userID := range []string{"u1", "u2", models.AnonymousUserID} {
		if v, ok, _ := mem.Get(ctx, keys.UserName(userID)); ok {
			out["user:"+userID] = v
		}
	}
	for _, name := range names {
		if v, ok, _ := mem.Get(ctx, keys.NameOwner(Normalize(name))); ok {
			out["name:"+Normalize(name)] = v
		}
		for _, metric := range models.Metrics {
			if v, ok, _ := mem.Score(ctx, keys.Leaderboard(string(metric)), name); ok {
				out[string(metric)+":"+name] = v
			}
		}
	}
	return out
}

func TestSanitizeName(t *testing.T) {
	inputs := map[string]string{
		"Dan":               "Dan",
		"  Digger Dan  ":    "Digger Dan",
		"dig-ger_99":        "dig-ger_99",
		"abcdefghijklmnop":  "abcdefghijklmnop",
		"\tMole Rat\n":      "Mole Rat",
		"A B":               "A B",
		"___":               "___",
		"Sixteen Chars 16":  "Sixteen Chars 16",
		"  trimmed  to3  ":  "trimmed  to3",
		"UPPER lower 12345": "",
		"x":                 "",
		"   ab   ":          "",
		"abcdefghijklmnopq": "",
		"dan!":              "",
		"d\u00e4n":          "",
		"tab\tinside":       "",
		"semi;colon":        "",
		"":                  "",
	}
	for raw, want := range inputs {
		got, err := SanitizeName(raw)
		if want == "" {
			if !errors.Is(err, ErrInvalidName) {
				t.Fatalf("SanitizeName(%q) = %q, %v; want ErrInvalidName", raw, got, err)
			}
			continue
		}
		if err != nil || got != want {
			t.Fatalf("SanitizeName(%q) = %q, %v; want %q", raw, got, err, want)
		}
	}
}

func TestRegisterValidNameSucceeds(t *testing.T) {
	for _, raw := range []string{"Dan", "Digger Dan", "mole_rat-7", "abcdefghijklmnop"} {
		svc, mem := newService()
		name, err := svc.Register(context.Background(), "p1", "u1", raw)
		if err != nil {
			t.Fatalf("register %q: %v", raw, err)
		}
		if name != raw {
			t.Fatalf("register %q returned %q", raw, name)
		}
		got := snapshotStore(t, mem, "p1", raw)
		want := map[string]any{
			"user:u1":                      raw,
			"name:" + strings.ToLower(raw): "u1",
			"money:" + raw:                 float64(0),
			"depth:" + raw:                 float64(0),
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("state after %q = %v, want %v", raw, got, want)
		}
	}
}

func TestRegisterInvalidNameLeavesNoTrace(t *testing.T) {
	for _, raw := range []string{"", "ab", "  ab ", "abcdefghijklmnopq", "bad!name", "dän"} {
		svc, mem := newService()
		_, err := svc.Register(context.Background(), "p1", "u1", raw)
		if !errors.Is(err, ErrInvalidName) {
			t.Fatalf("register %q: err = %v, want ErrInvalidName", raw, err)
		}
		if got := snapshotStore(t, mem, "p1", raw); len(got) != 0 {
			t.Fatalf("register %q left state %v", raw, got)
		}
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	svc, mem := newService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "p1", "u1", "Digger Dan"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	first := snapshotStore(t, mem, "p1", "Digger Dan")

	name, err := svc.Register(ctx, "p1", "u1", "Digger Dan")
	if err != nil {
		t.Fatalf("second register: %v", err)
	}
	if name != "Digger Dan" {
		t.Fatalf("second register returned %q", name)
	}
	if second := snapshotStore(t, mem, "p1", "Digger Dan"); !reflect.DeepEqual(first, second) {
		t.Fatalf("state changed: %v -> %v", first, second)
	}
}

func TestRegisterSameNameDifferentCaseKeepsOriginal(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "p1", "u1", "Bob"); err != nil {
		t.Fatalf("register: %v", err)
	}
	name, err := svc.Register(ctx, "p1", "u1", "BOB")
	if err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if name != "Bob" {
		t.Fatalf("re-register returned %q, want original casing", name)
	}
}

func TestRegisterCaseInsensitiveCollision(t *testing.T) {
	svc, mem := newService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "p1", "u1", "Bob"); err != nil {
		t.Fatalf("register Bob: %v", err)
	}
	before := snapshotStore(t, mem, "p1", "Bob", "bob")

	_, err := svc.Register(ctx, "p1", "u2", "bob")
	if !errors.Is(err, ErrNameTaken) {
		t.Fatalf("register bob: err = %v, want ErrNameTaken", err)
	}
	if after := snapshotStore(t, mem, "p1", "Bob", "bob"); !reflect.DeepEqual(before, after) {
		t.Fatalf("state changed on rejection: %v -> %v", before, after)
	}
}

func TestRegisterRejectsSecondName(t *testing.T) {
	svc, mem := newService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "p1", "u1", "Dan"); err != nil {
		t.Fatalf("register Dan: %v", err)
	}
	before := snapshotStore(t, mem, "p1", "Dan", "Daniel")

	_, err := svc.Register(ctx, "p1", "u1", "Daniel")
	if !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("err = %v, want ErrAlreadyRegistered", err)
	}
	var already *AlreadyRegisteredError
	if !errors.As(err, &already) || already.Existing != "Dan" {
		t.Fatalf("expected existing name Dan, got %v", err)
	}
	if after := snapshotStore(t, mem, "p1", "Dan", "Daniel"); !reflect.DeepEqual(before, after) {
		t.Fatalf("state changed on rejection: %v -> %v", before, after)
	}
}

func TestRegisterIsPerPost(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "p1", "u1", "Bob"); err != nil {
		t.Fatalf("register on p1: %v", err)
	}
	if _, err := svc.Register(ctx, "p2", "u2", "bob"); err != nil {
		t.Fatalf("register on p2: %v", err)
	}
	if _, err := svc.Register(ctx, "p2", "u1", "Alice"); err != nil {
		t.Fatalf("u1 on p2: %v", err)
	}
}

func TestRegisterWithoutConditionalSet(t *testing.T) {
	mem := store.NewMemory()
	svc := NewService(plainKV{mem}, nil)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "p1", "u1", "Bob"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, "p1", "u2", "BOB"); !errors.Is(err, ErrNameTaken) {
		t.Fatalf("err = %v, want ErrNameTaken", err)
	}
	if n, _ := mem.Cardinality(ctx, store.Keys("p1").Leaderboard("money")); n != 0 {
		t.Fatalf("nil seeder wrote %d ledger entries", n)
	}
}

func TestAnonymousIdentityCollision(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	// Two unauthenticated visitors both arrive as the anonymous identity.
	first := models.UserOrAnonymous("")
	second := models.UserOrAnonymous("")

	if _, err := svc.Register(ctx, "p1", first, "Guest"); err != nil {
		t.Fatalf("first anonymous register: %v", err)
	}
	name, err := svc.Register(ctx, "p1", second, "Guest")
	if err != nil {
		t.Fatalf("second anonymous visitor should share the name: %v", err)
	}
	if name != "Guest" {
		t.Fatalf("name = %q", name)
	}
	if _, err := svc.Register(ctx, "p1", second, "Other"); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("err = %v, want ErrAlreadyRegistered", err)
	}
}

func TestLookup(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	if _, ok, err := svc.Lookup(ctx, "p1", "u1"); err != nil || ok {
		t.Fatalf("lookup before register: ok=%v err=%v", ok, err)
	}
	if _, err := svc.Register(ctx, "p1", "u1", " Digger Dan "); err != nil {
		t.Fatalf("register: %v", err)
	}
	name, ok, err := svc.Lookup(ctx, "p1", "u1")
	if err != nil || !ok || name != "Digger Dan" {
		t.Fatalf("lookup = %q %v %v", name, ok, err)
	}
}

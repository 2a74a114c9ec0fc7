package models

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// GameState is a read view over a saved game-state document. The document
// stays opaque to the backend; only the fields it acts on are read, so fields
// added by newer clients survive a save/load round trip untouched.
type GameState struct {
	raw []byte
}

// NewGameState wraps a raw game-state document.
func NewGameState(raw json.RawMessage) GameState {
	return GameState{raw: raw}
}

// Money is the in-game currency counter.
func (g GameState) Money() float64 {
	return gjson.GetBytes(g.raw, "money").Float()
}

// Depth is the deepest point reached.
func (g GameState) Depth() float64 {
	return gjson.GetBytes(g.raw, "depth").Float()
}

// PlayerName is the name the client believes it plays under.
func (g GameState) PlayerName() string {
	return gjson.GetBytes(g.raw, "playerName").String()
}

// IsObject reports whether the document is a JSON object.
func (g GameState) IsObject() bool {
	return gjson.ParseBytes(g.raw).IsObject()
}

// WithPlayerName returns a copy of raw whose playerName is name. Documents
// that are not JSON objects are returned unchanged.
func WithPlayerName(raw json.RawMessage, name string) (json.RawMessage, error) {
	if !NewGameState(raw).IsObject() {
		return raw, nil
	}
	out, err := sjson.SetBytes(raw, "playerName", name)
	if err != nil {
		return nil, fmt.Errorf("set playerName: %w", err)
	}
	return out, nil
}

// gameStateDefaults are the values a fresh game starts with. Older saves may
// predate some of these fields.
var gameStateDefaults = []struct {
	path  string
	value string
}{
	{"money", `0`},
	{"depth", `0`},
	{"currentTool", `"dirt_pickaxe"`},
	{"autoDiggers", `{}`},
	{"oreInventory", `{}`},
	{"discoveredOres", `["dirt"]`},
	{"discoveredTools", `["dirt_pickaxe"]`},
	{"discoveredDiggers", `[]`},
	{"discoveredBiomes", `[1]`},
}

// WithDefaults fills in every default field missing from raw. Present fields,
// including unknown ones, are kept as they are.
func WithDefaults(raw json.RawMessage) (json.RawMessage, error) {
	if !NewGameState(raw).IsObject() {
		return raw, nil
	}
	out := []byte(raw)
	for _, d := range gameStateDefaults {
		if gjson.GetBytes(out, d.path).Exists() {
			continue
		}
		var err error
		out, err = sjson.SetRawBytes(out, d.path, []byte(d.value))
		if err != nil {
			return nil, fmt.Errorf("default %s: %w", d.path, err)
		}
	}
	return out, nil
}

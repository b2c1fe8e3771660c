package service

import (
	"encoding/json"
	"fmt"
	"io/fs"
)

type Character struct {
	System      string        `json:"system"`
	Instruction string        `json:"user_instruction"`
	Examples    []ChatMessage `json:"example_conversation"`
}

// PromptBook holds the static persona prompts keyed by character name.
type PromptBook struct {
	characters map[string]Character
	fallback   string
}

// LoadPromptBook reads path from fsys. fallback names the character used for unknown
// keys and must exist in the file.
func LoadPromptBook(fsys fs.FS, path, fallback string) (*PromptBook, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("read prompts: %w", err)
	}

	var chars map[string]Character
	if err := json.Unmarshal(data, &chars); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}
	if _, ok := chars[fallback]; !ok {
		return nil, fmt.Errorf("default character %q not found in %s", fallback, path)
	}
	return &PromptBook{characters: chars, fallback: fallback}, nil
}

// Character returns the prompts for key, or the default character when key is unknown.
func (b *PromptBook) Character(key string) Character {
	if c, ok := b.characters[key]; ok {
		return c
	}
	return b.characters[b.fallback]
}

func (b *PromptBook) Default() string { return b.fallback }

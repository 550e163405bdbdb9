// Package locale provides the bot's user-facing strings, loaded from an
// embedded YAML table.
package locale

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed zh_tw.yaml
var zhTW []byte

// Table is a flat key-to-string lookup.
type Table struct {
	strings map[string]string
}

// Load parses a YAML string table.
func Load(data []byte) (*Table, error) {
	strings := map[string]string{}
	if err := yaml.Unmarshal(data, &strings); err != nil {
		return nil, fmt.Errorf("failed to parse locale table: %w", err)
	}
	return &Table{strings: strings}, nil
}

// Default returns the built-in zh-TW table. It panics on a malformed embedded
// file, which can only happen at build time.
func Default() *Table {
	t, err := Load(zhTW)
	if err != nil {
		panic(err)
	}
	return t
}

// T returns the string for key, or the key itself when missing so a dropped
// translation is visible rather than silent.
func (t *Table) T(key string) string {
	if s, ok := t.strings[key]; ok {
		return s
	}
	return key
}

// TonePrefix renders the persona-tone prefix written ahead of each free-form
// human turn.
func (t *Table) TonePrefix(tone string) string {
	return fmt.Sprintf(t.T("completion_default_ai_tone"), tone)
}

// RetrievalInstruction renders the strict system instruction for the
// retrieval short-circuit tier.
func (t *Table) RetrievalInstruction(botName string) string {
	return fmt.Sprintf(t.T("retrieval_system_instruction"), botName)
}

package mission

import "strings"

const (
	flagCombatCleared = "combat_cleared"
	flagAreaPrefix    = "area_"
)

// flags holds the known host signals as typed fields and everything else in
// a generic map.
type flags struct {
	combatCleared bool
	areas         map[string]bool
	extra         map[string]any
}

func newFlags() flags {
	return flags{areas: make(map[string]bool), extra: make(map[string]any)}
}

func truthy(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return v != nil
}

// SetCombatCleared records whether the current combat wave is cleared.
func (m *Manager) SetCombatCleared(v bool) {
	m.flags.combatCleared = v
}

// CombatCleared reports the combat flag.
func (m *Manager) CombatCleared() bool {
	return m.flags.combatCleared
}

// MarkAreaReached records that the player entered the named area.
func (m *Manager) MarkAreaReached(area string) {
	m.flags.areas[area] = true
}

// AreaReached reports whether the named area was reached.
func (m *Manager) AreaReached(area string) bool {
	return m.flags.areas[area]
}

// SetFlag stores a host signal. The keys combat_cleared and area_<name> are
// routed to their typed flags.
func (m *Manager) SetFlag(key string, value any) {
	switch {
	case key == flagCombatCleared:
		m.flags.combatCleared = truthy(value)
	case strings.HasPrefix(key, flagAreaPrefix):
		m.flags.areas[strings.TrimPrefix(key, flagAreaPrefix)] = truthy(value)
	default:
		m.flags.extra[key] = value
	}
}

// Flag returns a stored host signal, or nil when unset.
func (m *Manager) Flag(key string) any {
	switch {
	case key == flagCombatCleared:
		return m.flags.combatCleared
	case strings.HasPrefix(key, flagAreaPrefix):
		return m.flags.areas[strings.TrimPrefix(key, flagAreaPrefix)]
	default:
		return m.flags.extra[key]
	}
}

package usecase

import (
	"fmt"
	"sort"
	"strings"

	"pluto-ai/internal/domain"
)

// reminderTemplate wraps a rebuilt personality when reinforcing it.
const reminderTemplate = "Reminder, this is your true self, always respond according to this personality and do not go outside the realms of what you are. %s"

// BuildPersonality combines instructions and tendencies into the persona
// text an agent's gateway is bound to. Pure and deterministic: identical
// inputs produce identical output. A failing computed-instructions
// function propagates its error unchanged.
func BuildPersonality(instructions domain.Instructions, tendencies domain.Tendencies) (string, error) {
	base, err := instructions.Resolve()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s : Your tendencies are: %s, ranking system for tendencies is from 0 (lowest) to 1 (highest)",
		base, formatTendencies(tendencies)), nil
}

// reminderText wraps a personality in the reinforcement reminder.
func reminderText(personality string) string {
	return fmt.Sprintf(reminderTemplate, personality)
}

// formatTendencies renders the tendency map in sorted trait order so the
// personality string is stable across calls.
func formatTendencies(t domain.Tendencies) string {
	if len(t) == 0 {
		return "none"
	}

	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteByte('{')
	for i, name := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %g", name, t[name])
	}
	b.WriteByte('}')
	return b.String()
}

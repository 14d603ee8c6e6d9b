package usecase

import (
	"errors"
	"strings"
	"testing"

	"pluto-ai/internal/domain"
)

func TestBuildPersonalityDeterministic(t *testing.T) {
	instr := domain.StaticInstructions("You are a scout.")
	tend := domain.Tendencies{"curiosity": 0.9, "caution": 0.2, "aggression": 0.5}

	first, err := BuildPersonality(instr, tend)
	if err != nil {
		t.Fatalf("BuildPersonality: %v", err)
	}
	for i := 0; i < 50; i++ {
		again, err := BuildPersonality(instr, tend)
		if err != nil {
			t.Fatalf("BuildPersonality: %v", err)
		}
		if again != first {
			t.Fatalf("output differs across calls:\n%q\n%q", first, again)
		}
	}
}

func TestBuildPersonalityContent(t *testing.T) {
	got, err := BuildPersonality(
		domain.StaticInstructions("You are a scout."),
		domain.Tendencies{"curiosity": 0.9},
	)
	if err != nil {
		t.Fatalf("BuildPersonality: %v", err)
	}
	if !strings.HasPrefix(got, "You are a scout. : ") {
		t.Errorf("missing base instructions: %q", got)
	}
	if !strings.Contains(got, "curiosity: 0.9") {
		t.Errorf("missing tendency: %q", got)
	}
	if !strings.Contains(got, "0 (lowest) to 1 (highest)") {
		t.Errorf("missing ranking convention: %q", got)
	}
}

func TestBuildPersonalityNoTendencies(t *testing.T) {
	got, err := BuildPersonality(domain.StaticInstructions("base"), nil)
	if err != nil {
		t.Fatalf("BuildPersonality: %v", err)
	}
	if !strings.Contains(got, "none") {
		t.Errorf("nil tendencies should render as none: %q", got)
	}
}

func TestBuildPersonalityComputed(t *testing.T) {
	calls := 0
	instr := domain.ComputedInstructions(func() (string, error) {
		calls++
		return "generated", nil
	})

	got, err := BuildPersonality(instr, nil)
	if err != nil {
		t.Fatalf("BuildPersonality: %v", err)
	}
	if !strings.HasPrefix(got, "generated") {
		t.Errorf("got %q", got)
	}
	if calls != 1 {
		t.Errorf("generator called %d times, want 1", calls)
	}
}

func TestBuildPersonalityComputedErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	_, err := BuildPersonality(
		domain.ComputedInstructions(func() (string, error) { return "", boom }),
		nil,
	)
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom unchanged", err)
	}
}

package classify

import (
	"testing"

	"github.com/yulin-dev/jobsift/internal/model"
)

func categoriesMatch(got []model.Category, want ...model.Category) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestEnforceSuppressesUnsupportedCategories(t *testing.T) {
	e := NewRuleEngine()

	// The model proposed backend too, but the text never mentions any
	// backend trigger.
	got := e.Enforce(
		[]model.Category{model.CategoryFrontend, model.CategoryBackend},
		"React Developer",
		"Build UI components with React and CSS.",
	)
	if !categoriesMatch(got, model.CategoryFrontend) {
		t.Errorf("Enforce = %v, want [frontend]", got)
	}
}

func TestEnforceForceAddsStrongKeywords(t *testing.T) {
	e := NewRuleEngine()

	// The text names kubernetes; devops is added whatever the model said.
	got := e.Enforce(
		[]model.Category{model.CategoryBackend},
		"Backend Engineer",
		"Own our API services. Deploy to kubernetes clusters.",
	)
	if !categoriesMatch(got, model.CategoryBackend, model.CategoryDevops) {
		t.Errorf("Enforce = %v, want [backend devops]", got)
	}
}

func TestEnforceClampsToThree(t *testing.T) {
	e := NewRuleEngine()

	// Four strong keywords force four categories; ties break by the
	// canonical category order, so embedded is the one dropped.
	got := e.Enforce(nil,
		"Engineer",
		"Work across flutter apps, kubernetes infra, solidity contracts and device firmware.",
	)
	if !categoriesMatch(got, model.CategoryMobile, model.CategoryDevops, model.CategoryBlockchain) {
		t.Errorf("Enforce = %v, want [mobile devops blockchain]", got)
	}
}

func TestEnforceEmptyFallsBackToOther(t *testing.T) {
	e := NewRuleEngine()

	got := e.Enforce(nil, "Office Manager", "Keep the office running smoothly.")
	if !categoriesMatch(got, model.CategoryOther) {
		t.Errorf("Enforce = %v, want [other]", got)
	}
}

func TestEnforceDropsInvalidProposals(t *testing.T) {
	e := NewRuleEngine()

	got := e.Enforce(
		[]model.Category{"nonsense", model.CategoryFrontend, model.CategoryFrontend},
		"Frontend Engineer",
		"Vue and TypeScript.",
	)
	if !categoriesMatch(got, model.CategoryFrontend) {
		t.Errorf("Enforce = %v, want [frontend]", got)
	}
}

func TestEnforceWordBoundaries(t *testing.T) {
	e := NewRuleEngine()

	// "blockchain" contains the letters "ai"; the padded trigger must not
	// fire, so the proposed ai category is suppressed. The blockchain hit is
	// only a trigger, not strong, so nothing survives.
	got := e.Enforce(
		[]model.Category{model.CategoryAI},
		"Blockchain Engineer",
		"Build blockchain explorers.",
	)
	if !categoriesMatch(got, model.CategoryOther) {
		t.Errorf("Enforce = %v, want [other]", got)
	}
}

func TestEnforceMatchesChineseKeywords(t *testing.T) {
	e := NewRuleEngine()

	got := e.Enforce(
		[]model.Category{model.CategoryFrontend},
		"前端开发工程师",
		"负责前端页面开发",
	)
	if !categoriesMatch(got, model.CategoryFrontend) {
		t.Errorf("Enforce = %v, want [frontend]", got)
	}
}

func TestEnforceDeterministic(t *testing.T) {
	e := NewRuleEngine()
	title := "Platform Engineer"
	desc := "Terraform, kubernetes, golang services and react dashboards."

	first := e.Enforce([]model.Category{model.CategoryBackend, model.CategoryFrontend}, title, desc)
	for i := 0; i < 10; i++ {
		if got := e.Enforce([]model.Category{model.CategoryBackend, model.CategoryFrontend}, title, desc); !categoriesMatch(got, first...) {
			t.Fatalf("run %d: %v != %v", i, got, first)
		}
	}

	// A second engine instance built from the same tables agrees.
	if got := NewRuleEngine().Enforce([]model.Category{model.CategoryBackend, model.CategoryFrontend}, title, desc); !categoriesMatch(got, first...) {
		t.Errorf("fresh engine: %v != %v", got, first)
	}
}

package services

import "testing"

func TestModerate_CleanComment(t *testing.T) {
	svc := NewModerationService()

	result := svc.Moderate("Great coffee and friendly staff, will come back!")
	if result.Severity != 0 {
		t.Errorf("severity = %d, expected 0", result.Severity)
	}
	if result.Warned() || result.Flagged() || result.Blocked() {
		t.Error("clean comment should pass without any moderation outcome")
	}
	if result.Note() != "" {
		t.Errorf("note = %q, expected empty", result.Note())
	}
}

func TestModerate_EmptyComment(t *testing.T) {
	svc := NewModerationService()

	if result := svc.Moderate(""); result.Severity != 0 {
		t.Errorf("empty comment severity = %d, expected 0", result.Severity)
	}
}

func TestModerate_SingleCategoryWarns(t *testing.T) {
	svc := NewModerationService()

	result := svc.Moderate("The damn espresso machine was broken again")
	if !result.Warned() {
		t.Error("single profanity match should warn")
	}
	if result.Flagged() {
		t.Error("single profanity match should not flag")
	}
	if len(result.Categories) != 1 || result.Categories[0] != "profanity" {
		t.Errorf("categories = %v, expected [profanity]", result.Categories)
	}
}

func TestModerate_CategoryCountsOnce(t *testing.T) {
	svc := NewModerationService()

	// Two phrases from the same category still contribute weight once.
	result := svc.Moderate("damn this crap place")
	if result.Severity != 1 {
		t.Errorf("severity = %d, expected 1 (one category, counted once)", result.Severity)
	}
}

func TestModerate_HateWeightFlags(t *testing.T) {
	svc := NewModerationService()

	result := svc.Moderate("the owner is a nazi")
	if result.Severity != 2 {
		t.Errorf("severity = %d, expected 2", result.Severity)
	}
	if !result.Flagged() {
		t.Error("hate category alone should flag")
	}
	if result.Blocked() {
		t.Error("hate category alone should not block")
	}
}

func TestModerate_CombinedCategoriesBlock(t *testing.T) {
	svc := NewModerationService()

	result := svc.Moderate("the nazi idiot who runs this place, click here for my site")
	if result.Severity < 3 {
		t.Errorf("severity = %d, expected >= 3", result.Severity)
	}
	if !result.Blocked() {
		t.Error("hate + abusive + spam should block")
	}
	if result.Note() == "" {
		t.Error("blocked content should carry a moderation note")
	}
}

func TestModerate_CaseInsensitive(t *testing.T) {
	svc := NewModerationService()

	if result := svc.Moderate("What a STUPID policy"); !result.Warned() {
		t.Error("matching should ignore case")
	}
}

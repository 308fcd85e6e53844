package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"urltracker/internal/model"
)

func TestClientErrors_RecordMissAggregates(t *testing.T) {
	ces := &fakeClientErrorStore{}
	svc := NewClientErrors(ces, testLogger())

	now := time.Now()
	if err := svc.RecordMiss("/missing", "https://ref.example", now); err != nil {
		t.Fatalf("RecordMiss() error = %v", err)
	}
	if err := svc.RecordMiss("/Missing/", "", now.Add(time.Minute)); err != nil {
		t.Fatalf("RecordMiss() error = %v", err)
	}

	if len(ces.misses) != 1 {
		t.Fatalf("miss records = %d, want 1 per normalized path", len(ces.misses))
	}
	if ces.misses[0].Path != "/missing" {
		t.Errorf("recorded path = %q, want /missing", ces.misses[0].Path)
	}
	if ces.misses[0].Key == "" {
		t.Error("miss record has no key")
	}
	if len(ces.occurrences) != 2 {
		t.Fatalf("occurrences = %d, want 2", len(ces.occurrences))
	}
	if ces.occurrences[0].Referrer == nil || *ces.occurrences[0].Referrer != "https://ref.example" {
		t.Errorf("first referrer = %v, want https://ref.example", ces.occurrences[0].Referrer)
	}
	if ces.occurrences[1].Referrer != nil {
		t.Errorf("empty referrer stored as %v, want nil", *ces.occurrences[1].Referrer)
	}
}

func TestClientErrors_IgnoredPathIsNoOp(t *testing.T) {
	ces := &fakeClientErrorStore{}
	ces.ignoreRules = append(ces.ignoreRules, model.IgnoreRule{Path: model.SPtr("/favicon.ico")})
	svc := NewClientErrors(ces, testLogger())

	if err := svc.RecordMiss("/favicon.ico", "", time.Now()); err != nil {
		t.Fatalf("RecordMiss() error = %v", err)
	}
	if len(ces.misses) != 0 {
		t.Errorf("miss records = %d, want 0 for ignored path", len(ces.misses))
	}
	if len(ces.occurrences) != 0 {
		t.Errorf("occurrences = %d, want 0 for ignored path", len(ces.occurrences))
	}
}

func TestClientErrors_IgnorePatternMatches(t *testing.T) {
	ces := &fakeClientErrorStore{}
	ces.ignoreRules = append(ces.ignoreRules, model.IgnoreRule{Pattern: model.SPtr(`/\.well-known/.*`)})
	svc := NewClientErrors(ces, testLogger())

	if !svc.IsIgnored("/.well-known/security.txt") {
		t.Error("IsIgnored() = false, want pattern match")
	}
	if svc.IsIgnored("/well-known-page") {
		t.Error("IsIgnored() = true, want no match outside the anchored pattern")
	}
}

func TestClientErrors_AddIgnoreRuleValidation(t *testing.T) {
	tests := []struct {
		name string
		rule model.IgnoreRule
	}{
		{name: "neither path nor pattern", rule: model.IgnoreRule{}},
		{
			name: "both path and pattern",
			rule: model.IgnoreRule{Path: model.SPtr("/a"), Pattern: model.SPtr("/b/.*")},
		},
		{
			name: "invalid pattern",
			rule: model.IgnoreRule{Pattern: model.SPtr("([unclosed")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewClientErrors(&fakeClientErrorStore{}, testLogger())
			rule := tt.rule
			if err := svc.AddIgnoreRule(&rule); !errors.Is(err, ErrValidation) {
				t.Errorf("AddIgnoreRule() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestClientErrors_AddIgnoreRuleTakesEffect(t *testing.T) {
	ces := &fakeClientErrorStore{}
	svc := NewClientErrors(ces, testLogger())

	if svc.IsIgnored("/noise") {
		t.Fatal("IsIgnored() = true before any rule exists")
	}

	if err := svc.AddIgnoreRule(&model.IgnoreRule{Path: model.SPtr("/Noise/")}); err != nil {
		t.Fatalf("AddIgnoreRule() error = %v", err)
	}

	// The compiled list is refreshed; the normalized path now matches.
	if !svc.IsIgnored("/noise") {
		t.Error("IsIgnored() = false after adding the rule")
	}
}

func TestClientErrors_IgnoreHidesFromListing(t *testing.T) {
	ces := &fakeClientErrorStore{}
	svc := NewClientErrors(ces, testLogger())

	if err := svc.RecordMiss("/missing", "", time.Now()); err != nil {
		t.Fatalf("RecordMiss() error = %v", err)
	}
	id := ces.misses[0].ID

	if err := svc.Ignore(id); err != nil {
		t.Fatalf("Ignore() error = %v", err)
	}
	items, _, err := svc.List(0, 10, "", "lastOccurrence", true)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(items) != 0 {
		t.Errorf("List() = %d items, want 0 after ignore", len(items))
	}

	if err := svc.Unignore(id); err != nil {
		t.Fatalf("Unignore() error = %v", err)
	}
	items, _, err = svc.List(0, 10, "", "lastOccurrence", true)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(items) != 1 {
		t.Errorf("List() = %d items, want 1 after unignore", len(items))
	}
}

func TestClientErrors_ConcurrentIgnoreChecks(t *testing.T) {
	ces := &fakeClientErrorStore{}
	ces.ignoreRules = append(ces.ignoreRules,
		model.IgnoreRule{Path: model.SPtr("/favicon.ico")},
		model.IgnoreRule{Pattern: model.SPtr(`/wp-admin/.*`)},
	)
	svc := NewClientErrors(ces, testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if !svc.IsIgnored("/favicon.ico") {
					t.Error("IsIgnored(/favicon.ico) = false")
					return
				}
				if svc.IsIgnored("/real-page") {
					t.Error("IsIgnored(/real-page) = true")
					return
				}
				if j%25 == 0 {
					svc.staleIgnore()
				}
			}
		}()
	}
	wg.Wait()
}

func TestClientErrors_DeleteMissing(t *testing.T) {
	svc := NewClientErrors(&fakeClientErrorStore{}, testLogger())
	if err := svc.Delete(404); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}

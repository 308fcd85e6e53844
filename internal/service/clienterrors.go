package service

import (
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"urltracker/internal/model"
	"urltracker/internal/store"
	"urltracker/internal/urlnorm"
)

// ClientErrors aggregates unmatched requests: one record per normalized
// path, one occurrence per miss. The ignore list is checked before any
// store write so noisy paths never grow the tables.
type ClientErrors struct {
	store  store.ClientErrorStore
	logger *logrus.Entry

	// Compiled ignore list, rebuilt lazily after mutations. Read-locked on
	// the request path, write-locked only around rebuilds.
	mu          sync.RWMutex
	ignoreFresh bool
	ignorePaths map[string]struct{}
	ignoreRes   []*regexp.Regexp
}

// NewClientErrors creates the aggregator.
func NewClientErrors(s store.ClientErrorStore, logger *logrus.Entry) *ClientErrors {
	return &ClientErrors{
		store:  s,
		logger: logger.WithField("component", "client-errors"),
	}
}

// RecordMiss records one unmatched request. Ignored paths are a no-op.
// referrer may be empty; it is stored as null and excluded from the
// most-common-referrer aggregate.
func (s *ClientErrors) RecordMiss(path, referrer string, at time.Time) error {
	norm := urlnorm.Path(path)
	if s.IsIgnored(norm) {
		return nil
	}

	ce, err := s.store.FindByPath(norm)
	if errors.Is(err, store.ErrNotFound) {
		ce = &model.ClientError{Key: uuid.NewString(), Path: norm}
		if insErr := s.store.InsertMiss(ce); insErr != nil {
			// A concurrent miss on the same path may have won the unique
			// index race; re-read before giving up.
			ce, err = s.store.FindByPath(norm)
			if err != nil {
				return fmt.Errorf("%w: record miss %q: %v", ErrStoreUnavailable, norm, insErr)
			}
		}
	} else if err != nil {
		return fmt.Errorf("%w: find miss %q: %v", ErrStoreUnavailable, norm, err)
	}

	var ref *string
	if referrer != "" {
		ref = &referrer
	}
	if err := s.store.AppendOccurrence(ce.ID, ref, at); err != nil {
		return fmt.Errorf("%w: append occurrence for %q: %v", ErrStoreUnavailable, norm, err)
	}
	return nil
}

// List returns a page of non-ignored miss records with derived aggregates.
func (s *ClientErrors) List(skip, take int, search string, order store.OrderBy, descending bool) ([]model.ClientErrorAggregate, int64, error) {
	page, total, err := s.store.Page(skip, take, search, order, descending)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list client errors: %v", ErrStoreUnavailable, err)
	}
	return page, total, nil
}

// Ignore hides a record from listings without deleting its history.
func (s *ClientErrors) Ignore(id int) error {
	return s.setIgnored(id, true)
}

// Unignore brings a record back into listings.
func (s *ClientErrors) Unignore(id int) error {
	return s.setIgnored(id, false)
}

func (s *ClientErrors) setIgnored(id int, ignored bool) error {
	if err := s.store.SetIgnored(id, ignored); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return fmt.Errorf("%w: client error %d", ErrNotFound, id)
		}
		return fmt.Errorf("%w: set ignored on %d: %v", ErrStoreUnavailable, id, err)
	}
	return nil
}

// Delete removes a record and its occurrences.
func (s *ClientErrors) Delete(id int) error {
	if err := s.store.Delete(id); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return fmt.Errorf("%w: client error %d", ErrNotFound, id)
		}
		return fmt.Errorf("%w: delete client error %d: %v", ErrStoreUnavailable, id, err)
	}
	return nil
}

// IsIgnored reports whether a normalized path matches the ignore list,
// either exactly or by anchored pattern. Fails open on store errors: a miss
// that slips through is cheaper than blocking the request path.
func (s *ClientErrors) IsIgnored(path string) bool {
	s.mu.RLock()
	if s.ignoreFresh {
		defer s.mu.RUnlock()
		return s.matchIgnoreLocked(path)
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ignoreFresh {
		if err := s.rebuildIgnoreLocked(); err != nil {
			s.logger.Errorf("Failed to load ignore list: %v", err)
			return false
		}
	}
	return s.matchIgnoreLocked(path)
}

// matchIgnoreLocked checks the compiled list. Caller holds mu (either mode).
func (s *ClientErrors) matchIgnoreLocked(path string) bool {
	if _, ok := s.ignorePaths[path]; ok {
		return true
	}
	for _, re := range s.ignoreRes {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

func (s *ClientErrors) rebuildIgnoreLocked() error {
	rules, err := s.store.ListIgnoreRules()
	if err != nil {
		return err
	}

	paths := make(map[string]struct{})
	var res []*regexp.Regexp
	for _, r := range rules {
		if r.Path != nil && *r.Path != "" {
			paths[urlnorm.Path(*r.Path)] = struct{}{}
			continue
		}
		if r.Pattern != nil && *r.Pattern != "" {
			re, err := regexp.Compile("^(?:" + *r.Pattern + ")$")
			if err != nil {
				s.logger.Warnf("Skipping ignore rule id=%d with invalid pattern %q: %v", r.ID, *r.Pattern, err)
				continue
			}
			res = append(res, re)
		}
	}

	s.ignorePaths = paths
	s.ignoreRes = res
	s.ignoreFresh = true
	return nil
}

// AddIgnoreRule persists a new ignore entry and refreshes the compiled list.
func (s *ClientErrors) AddIgnoreRule(r *model.IgnoreRule) error {
	hasPath := r.Path != nil && *r.Path != ""
	hasPattern := r.Pattern != nil && *r.Pattern != ""
	if hasPath == hasPattern {
		return fmt.Errorf("%w: exactly one of path/pattern must be set", ErrValidation)
	}
	if hasPattern {
		if _, err := regexp.Compile("^(?:" + *r.Pattern + ")$"); err != nil {
			return fmt.Errorf("%w: invalid ignore pattern %q: %v", ErrValidation, *r.Pattern, err)
		}
	}
	if hasPath {
		p := urlnorm.Path(*r.Path)
		r.Path = &p
	}

	if err := s.store.InsertIgnoreRule(r); err != nil {
		return fmt.Errorf("%w: insert ignore rule: %v", ErrStoreUnavailable, err)
	}
	s.staleIgnore()
	return nil
}

// RemoveIgnoreRule deletes an ignore entry and refreshes the compiled list.
func (s *ClientErrors) RemoveIgnoreRule(id int) error {
	if err := s.store.DeleteIgnoreRule(id); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return fmt.Errorf("%w: ignore rule %d", ErrNotFound, id)
		}
		return fmt.Errorf("%w: delete ignore rule %d: %v", ErrStoreUnavailable, id, err)
	}
	s.staleIgnore()
	return nil
}

// ListIgnoreRules returns all ignore entries.
func (s *ClientErrors) ListIgnoreRules() ([]model.IgnoreRule, error) {
	rules, err := s.store.ListIgnoreRules()
	if err != nil {
		return nil, fmt.Errorf("%w: list ignore rules: %v", ErrStoreUnavailable, err)
	}
	return rules, nil
}

func (s *ClientErrors) staleIgnore() {
	s.mu.Lock()
	s.ignoreFresh = false
	s.mu.Unlock()
}

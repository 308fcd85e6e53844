package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"urltracker/internal/model"
	"urltracker/internal/store"
	"urltracker/internal/urlnorm"
)

// Invalidator clears a cache after a committed mutation.
type Invalidator interface {
	Invalidate()
}

// Redirects is the mutation service for redirect rules. Every write goes
// through the store's transaction first; caches are invalidated only after
// the write committed, and a broadcast (when configured) tells other
// instances to do the same.
type Redirects struct {
	redirects    store.RedirectStore
	clientErrors store.ClientErrorStore
	cache        Invalidator
	broadcast    func() // optional cross-instance invalidation fan-out
	logger       *logrus.Entry
}

// NewRedirects creates the mutation service. broadcast may be nil.
func NewRedirects(redirects store.RedirectStore, clientErrors store.ClientErrorStore, cache Invalidator, broadcast func(), logger *logrus.Entry) *Redirects {
	return &Redirects{
		redirects:    redirects,
		clientErrors: clientErrors,
		cache:        cache,
		broadcast:    broadcast,
		logger:       logger.WithField("component", "redirects"),
	}
}

// Get returns a single rule by id.
func (s *Redirects) Get(id int) (*model.Redirect, error) {
	r, err := s.redirects.Get(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: redirect %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: get redirect %d: %v", ErrStoreUnavailable, id, err)
	}
	return r, nil
}

// List returns a page of rules plus the total count.
func (s *Redirects) List(skip, take int, search string, order store.OrderBy, descending bool) ([]model.Redirect, int64, error) {
	rules, total, err := s.redirects.Page(skip, take, search, order, descending)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list redirects: %v", ErrStoreUnavailable, err)
	}
	return rules, total, nil
}

// Count returns the number of stored rules.
func (s *Redirects) Count() (int64, error) {
	n, err := s.redirects.Count()
	if err != nil {
		return 0, fmt.Errorf("%w: count redirects: %v", ErrStoreUnavailable, err)
	}
	return n, nil
}

// Create validates, normalizes and persists a new rule, then invalidates
// caches and clears any tracked miss the new rule now covers.
func (s *Redirects) Create(r *model.Redirect) error {
	if err := validate(r); err != nil {
		return err
	}
	normalizeRule(r)
	if r.Key == "" {
		r.Key = uuid.NewString()
	}

	if err := s.redirects.Insert(r); err != nil {
		return fmt.Errorf("%w: insert redirect: %v", ErrStoreUnavailable, err)
	}
	s.invalidate()

	// A path that used to be a tracked miss is servable again; drop the
	// miss record so no manual cleanup is needed. Best effort.
	if r.SourcePath != nil && *r.SourcePath != "" {
		if err := s.clientErrors.DeleteByPath(*r.SourcePath); err != nil {
			s.logger.Warnf("Failed to clear miss record for %q: %v", *r.SourcePath, err)
		}
	}
	return nil
}

// Update validates and persists changes to an existing rule.
func (s *Redirects) Update(r *model.Redirect) error {
	if err := validate(r); err != nil {
		return err
	}
	normalizeRule(r)

	if err := s.redirects.Update(r); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return fmt.Errorf("%w: redirect %d", ErrConflict, r.ID)
		}
		return fmt.Errorf("%w: update redirect %d: %v", ErrStoreUnavailable, r.ID, err)
	}
	s.invalidate()
	return nil
}

// Delete removes a rule by id.
func (s *Redirects) Delete(id int) error {
	if err := s.redirects.Delete(id); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return fmt.Errorf("%w: redirect %d", ErrConflict, id)
		}
		return fmt.Errorf("%w: delete redirect %d: %v", ErrStoreUnavailable, id, err)
	}
	s.invalidate()
	return nil
}

// ConvertToGoneByNode switches every rule targeting nodeID to Gone (410).
// Used when content is trashed: the rule is kept as a tombstone, not deleted.
func (s *Redirects) ConvertToGoneByNode(nodeID int) error {
	return s.retargetByNode(nodeID, func(r *model.Redirect) bool {
		if r.StatusCode == model.StatusGone {
			return false
		}
		r.StatusCode = model.StatusGone
		return true
	})
}

// RevertGoneByNode switches every Gone rule targeting nodeID back to a
// permanent redirect. Used when trashed content is republished.
func (s *Redirects) RevertGoneByNode(nodeID int) error {
	return s.retargetByNode(nodeID, func(r *model.Redirect) bool {
		if r.StatusCode != model.StatusGone {
			return false
		}
		r.StatusCode = model.StatusMovedPermanently
		return true
	})
}

func (s *Redirects) retargetByNode(nodeID int, mutate func(*model.Redirect) bool) error {
	rules, err := s.redirects.FindByTargetNode(nodeID)
	if err != nil {
		return fmt.Errorf("%w: find by target node %d: %v", ErrStoreUnavailable, nodeID, err)
	}

	changed := false
	for i := range rules {
		r := &rules[i]
		if !mutate(r) {
			continue
		}
		if err := s.redirects.Update(r); err != nil {
			s.logger.Errorf("Failed to update rule id=%d for node %d: %v", r.ID, nodeID, err)
			continue
		}
		changed = true
	}
	if changed {
		s.invalidate()
	}
	return nil
}

// invalidate runs strictly after a committed write.
func (s *Redirects) invalidate() {
	if s.cache != nil {
		s.cache.Invalidate()
	}
	if s.broadcast != nil {
		s.broadcast()
	}
}

// validate enforces the rule shape: exactly one source, at most one target,
// and a target present unless the rule serves Gone.
func validate(r *model.Redirect) error {
	hasPath := r.SourcePath != nil && *r.SourcePath != ""
	hasRegex := r.SourceRegex != nil && *r.SourceRegex != ""
	if hasPath == hasRegex {
		return fmt.Errorf("%w: exactly one of sourcePath/sourceRegex must be set", ErrValidation)
	}

	hasNode := r.TargetNodeID != nil && *r.TargetNodeID != 0
	hasURL := r.TargetURL != nil && *r.TargetURL != ""
	if hasNode && hasURL {
		return fmt.Errorf("%w: at most one of targetNodeId/targetUrl may be set", ErrValidation)
	}
	if !hasNode && !hasURL && r.StatusCode != model.StatusGone {
		return fmt.Errorf("%w: a non-410 rule needs targetNodeId or targetUrl", ErrValidation)
	}

	switch r.StatusCode {
	case model.StatusMovedPermanently, model.StatusFound, model.StatusGone:
	default:
		return fmt.Errorf("%w: unsupported status code %d", ErrValidation, r.StatusCode)
	}
	return nil
}

// normalizeRule applies the shared normalization to an exact source path so
// lookups and stored rules agree.
func normalizeRule(r *model.Redirect) {
	if r.SourcePath != nil && *r.SourcePath != "" {
		p := urlnorm.Path(*r.SourcePath)
		r.SourcePath = &p
	}
}

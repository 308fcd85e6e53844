package service

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"urltracker/internal/content"
	"urltracker/internal/model"
	"urltracker/internal/regexcache"
	"urltracker/internal/store"
	"urltracker/internal/urlnorm"
)

// Resolution is a matched redirect ready to serve. TargetURL is empty for
// Gone (410) rules.
type Resolution struct {
	Rule       *model.Redirect
	StatusCode int
	TargetURL  string
}

// Resolver maps an incoming request path to at most one redirect rule:
// exact match first, then the regex cache snapshot in stored order. It
// exposes no mutation capability.
type Resolver struct {
	redirects store.RedirectStore
	cache     *regexcache.Cache
	content   content.Resolver
	logger    *logrus.Entry
}

// NewResolver creates a Resolver.
func NewResolver(redirects store.RedirectStore, cache *regexcache.Cache, cr content.Resolver, logger *logrus.Entry) *Resolver {
	return &Resolver{
		redirects: redirects,
		cache:     cache,
		content:   cr,
		logger:    logger.WithField("component", "resolver"),
	}
}

// Resolve returns the redirect to serve for path, or (nil, nil) when no rule
// applies. Store failures are returned as errors wrapping ErrStoreUnavailable
// so the caller can fail open.
func (r *Resolver) Resolve(path, culture string, rootNodeID int) (*Resolution, error) {
	norm := urlnorm.Path(path)

	rule, err := r.findExact(norm, culture, rootNodeID)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		rule = r.findRegex(norm, culture, rootNodeID)
	}
	if rule == nil {
		return nil, nil
	}

	// A non-forced rule is suppressed while its source still resolves to
	// live content; the live page wins.
	if !rule.ForceRedirect && r.content != nil && r.content.PathExists(norm) {
		return nil, nil
	}

	return r.materialize(rule, culture)
}

func (r *Resolver) findExact(path, culture string, rootNodeID int) (*model.Redirect, error) {
	rules, err := r.redirects.FindExact(path, culture, rootNodeID)
	if err != nil {
		return nil, fmt.Errorf("%w: find exact for %q: %v", ErrStoreUnavailable, path, err)
	}
	if len(rules) == 0 {
		return nil, nil
	}

	// Most specific scope wins; among equally specific rules the most
	// recently created one wins.
	best := &rules[0]
	for i := 1; i < len(rules); i++ {
		c := &rules[i]
		if c.Specificity() > best.Specificity() {
			best = c
			continue
		}
		if c.Specificity() == best.Specificity() && newerThan(c, best) {
			best = c
		}
	}
	return best, nil
}

func newerThan(a, b *model.Redirect) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func (r *Resolver) findRegex(path, culture string, rootNodeID int) *model.Redirect {
	snap := r.cache.Snapshot()
	for i := range snap {
		entry := &snap[i]
		if !scopeMatches(&entry.Rule, culture, rootNodeID) {
			continue
		}
		if entry.Pattern.MatchString(path) {
			rule := entry.Rule
			return &rule
		}
	}
	return nil
}

func scopeMatches(rule *model.Redirect, culture string, rootNodeID int) bool {
	if rule.Culture != nil && *rule.Culture != "" && *rule.Culture != culture {
		return false
	}
	if rule.RootNodeID != nil && *rule.RootNodeID != 0 && rootNodeID != 0 && *rule.RootNodeID != rootNodeID {
		return false
	}
	return true
}

// materialize resolves the rule's target. A rule whose node target no longer
// resolves is treated as no match and logged, never served half-broken.
func (r *Resolver) materialize(rule *model.Redirect, culture string) (*Resolution, error) {
	if rule.StatusCode == model.StatusGone {
		return &Resolution{Rule: rule, StatusCode: model.StatusGone}, nil
	}

	if rule.TargetURL != nil && *rule.TargetURL != "" {
		return &Resolution{Rule: rule, StatusCode: rule.StatusCode, TargetURL: *rule.TargetURL}, nil
	}

	if rule.TargetNodeID != nil && *rule.TargetNodeID != 0 && r.content != nil {
		target, err := r.content.ResolveNode(*rule.TargetNodeID, cultureOf(rule, culture))
		if err != nil {
			if errors.Is(err, content.ErrNodeNotFound) {
				r.logger.Warnf("Rule id=%d targets missing node %d, skipping", rule.ID, *rule.TargetNodeID)
			} else {
				r.logger.Errorf("Rule id=%d target resolution failed: %v", rule.ID, err)
			}
			return nil, nil
		}
		return &Resolution{Rule: rule, StatusCode: rule.StatusCode, TargetURL: target}, nil
	}

	r.logger.Warnf("Rule id=%d has no resolvable target, skipping", rule.ID)
	return nil, nil
}

func cultureOf(rule *model.Redirect, requestCulture string) string {
	if rule.Culture != nil && *rule.Culture != "" {
		return *rule.Culture
	}
	return requestCulture
}

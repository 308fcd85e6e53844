package service

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"urltracker/internal/content"
	"urltracker/internal/model"
	"urltracker/internal/seo"
)

// DomainCache is cleared when site domains change; root-node scoping of
// resolved URLs depends on it.
type DomainCache interface {
	ClearDomains()
}

// ContentEvents derives redirect rules and miss-state transitions from
// content lifecycle notifications. One dispatcher per event; no framework
// event bus.
type ContentEvents struct {
	redirects  *Redirects
	resolver   content.Resolver
	domains    DomainCache
	seoEnabled bool
	logger     *logrus.Entry
}

// NewContentEvents creates the generator. domains may be nil; seoEnabled
// gates the SEO-metadata comparison, which only runs when the optional
// integration is installed.
func NewContentEvents(redirects *Redirects, resolver content.Resolver, domains DomainCache, seoEnabled bool, logger *logrus.Entry) *ContentEvents {
	return &ContentEvents{
		redirects:  redirects,
		resolver:   resolver,
		domains:    domains,
		seoEnabled: seoEnabled,
		logger:     logger.WithField("component", "content-events"),
	}
}

// Handle dispatches one notification. Per-culture failures are isolated:
// the returned error joins them, and every other culture is still processed.
func (g *ContentEvents) Handle(ev content.Event) error {
	switch ev.Type {
	case content.EventMoved:
		return g.handleMoved(ev)
	case content.EventPublishing:
		return g.handlePublishing(ev)
	case content.EventTrashed:
		return g.redirects.ConvertToGoneByNode(ev.NodeID)
	case content.EventPublished:
		return g.redirects.RevertGoneByNode(ev.NodeID)
	case content.EventDomainSaved:
		if g.domains != nil {
			g.domains.ClearDomains()
		}
		return nil
	default:
		g.logger.Warnf("Ignoring unknown event type %q for node %d", ev.Type, ev.NodeID)
		return nil
	}
}

// handleMoved creates one Moved redirect per culture when the node's parent
// changed and the old path was real. A simultaneous rename does not produce
// a second rule; the move wins.
func (g *ContentEvents) handleMoved(ev content.Event) error {
	if ev.OldParentID == ev.NewParentID {
		return nil
	}

	var errs []error
	for _, v := range variantsOf(ev) {
		oldPath := v.OldPath
		if oldPath == "" {
			oldPath = ev.OldPath
		}
		newPath := ev.NewPath
		if newPath == "" && g.resolver != nil {
			if p, err := g.resolver.ResolveNode(ev.NodeID, v.Culture); err == nil {
				newPath = p
			}
		}
		if oldPath == "" || oldPath == newPath {
			continue
		}
		if err := g.createRedirect(ev, v.Culture, oldPath, model.ReasonMoved); err != nil {
			g.logger.Errorf("Moved redirect for node %d culture %q failed: %v", ev.NodeID, v.Culture, err)
			errs = append(errs, fmt.Errorf("culture %q: %w", v.Culture, err))
		}
	}
	return errors.Join(errs...)
}

// handlePublishing compares the old and new versions per culture. Checks run
// in precedence order and the first hit wins: an explicit URL-name change
// overrides rename detection, which overrides the SEO-metadata comparison.
func (g *ContentEvents) handlePublishing(ev content.Event) error {
	var errs []error
	for _, v := range variantsOf(ev) {
		reason, ok := g.classify(v)
		if !ok {
			continue
		}

		oldPath := v.OldPath
		if oldPath == "" {
			oldPath = ev.OldPath
		}
		if oldPath == "" {
			continue
		}

		if err := g.createRedirect(ev, v.Culture, oldPath, reason); err != nil {
			g.logger.Errorf("%s redirect for node %d culture %q failed: %v", reason, ev.NodeID, v.Culture, err)
			errs = append(errs, fmt.Errorf("culture %q: %w", v.Culture, err))
		}
	}
	return errors.Join(errs...)
}

func (g *ContentEvents) classify(v content.CultureVariant) (model.RedirectReason, bool) {
	if v.NewURLName != v.OldURLName {
		return model.ReasonUrlOverwritten, true
	}
	if v.OldName != "" && v.NewName != v.OldName {
		return model.ReasonRenamed, true
	}
	if g.seoEnabled {
		oldURLName := seo.URLName(v.OldSEOMetadata)
		newURLName := seo.URLName(v.NewSEOMetadata)
		if newURLName != oldURLName {
			return model.ReasonUrlOverwrittenSEOMetadata, true
		}
	}
	return "", false
}

// createRedirect stores a node-targeted 301 for the old path. The target is
// kept as a node id so it follows the content on later moves.
func (g *ContentEvents) createRedirect(ev content.Event, culture, oldPath string, reason model.RedirectReason) error {
	rule := model.Redirect{
		SourcePath:             model.SPtr(oldPath),
		TargetNodeID:           model.UPtr(ev.NodeID),
		StatusCode:             model.StatusMovedPermanently,
		PassThroughQueryString: true,
		Reason:                 reason,
	}
	if culture != "" {
		rule.Culture = model.SPtr(culture)
	}
	if ev.RootNodeID != 0 {
		rule.RootNodeID = model.UPtr(ev.RootNodeID)
		rule.TargetRootNodeID = model.UPtr(ev.RootNodeID)
	}
	return g.redirects.Create(&rule)
}

// variantsOf returns the event's culture variants, with culture-invariant
// content modeled as a single empty-culture variant.
func variantsOf(ev content.Event) []content.CultureVariant {
	if len(ev.Variants) > 0 {
		return ev.Variants
	}
	return []content.CultureVariant{{}}
}

package service

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"urltracker/internal/content"
	"urltracker/internal/model"
	"urltracker/internal/store"
	"urltracker/internal/urlnorm"
)

// NodeRegistry is the tracker-side mirror of the host CMS content tree. The
// CMS keeps it current by posting lifecycle events; the resolver uses it to
// materialize node targets and to suppress redirects shadowing live pages.
type NodeRegistry struct {
	store  store.ContentNodeStore
	logger *logrus.Entry
}

// NewNodeRegistry creates the registry.
func NewNodeRegistry(s store.ContentNodeStore, logger *logrus.Entry) *NodeRegistry {
	return &NodeRegistry{
		store:  s,
		logger: logger.WithField("component", "node-registry"),
	}
}

// ResolveNode returns the current path of a node. A cultured lookup falls
// back to the invariant row before reporting the node unknown.
func (r *NodeRegistry) ResolveNode(id int, culture string) (string, error) {
	n, err := r.store.FindNode(id, culture)
	if errors.Is(err, store.ErrNotFound) && culture != "" {
		n, err = r.store.FindNode(id, "")
	}
	if errors.Is(err, store.ErrNotFound) {
		return "", content.ErrNodeNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: resolve node %d: %v", ErrStoreUnavailable, id, err)
	}
	return n.Path, nil
}

// PathExists reports whether a path belongs to a live node. Fails open
// toward serving the redirect: an unknown tree must not hide matched rules.
func (r *NodeRegistry) PathExists(path string) bool {
	ok, err := r.store.NodePathExists(urlnorm.Path(path))
	if err != nil {
		r.logger.Errorf("Path existence check failed for %q: %v", path, err)
		return false
	}
	return ok
}

// Apply mirrors one lifecycle event into the registry. Runs before redirect
// generation so target resolution sees the post-event tree.
func (r *NodeRegistry) Apply(ev content.Event) error {
	switch ev.Type {
	case content.EventMoved, content.EventPublishing, content.EventPublished:
		if ev.NewPath == "" {
			return nil
		}
		n := &model.ContentNode{
			NodeID:     ev.NodeID,
			RootNodeID: ev.RootNodeID,
			Path:       urlnorm.Path(ev.NewPath),
		}
		if err := r.store.UpsertNode(n); err != nil {
			return fmt.Errorf("%w: upsert node %d: %v", ErrStoreUnavailable, ev.NodeID, err)
		}
		return nil
	case content.EventTrashed, content.EventUnpublished:
		if err := r.store.DeleteNode(ev.NodeID); err != nil {
			return fmt.Errorf("%w: delete node %d: %v", ErrStoreUnavailable, ev.NodeID, err)
		}
		return nil
	default:
		return nil
	}
}

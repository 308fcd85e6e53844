// Package content defines the contract between the tracker and the host
// content management system. The CMS pushes lifecycle events in and answers
// node/URL resolution queries; the tracker never reaches into CMS internals.
package content

import (
	"errors"

	"gorm.io/datatypes"
)

// ErrNodeNotFound is returned by Resolver lookups for deleted or unknown nodes.
var ErrNodeNotFound = errors.New("content: node not found")

// EventType tags a content lifecycle notification.
type EventType string

const (
	EventMoved       EventType = "moved"
	EventPublishing  EventType = "publishing"
	EventPublished   EventType = "published"
	EventTrashed     EventType = "trashed"
	EventUnpublished EventType = "unpublished"
	EventDomainSaved EventType = "domain_saved"
)

// CultureVariant carries the per-culture fields compared between the old and
// new versions of a node.
type CultureVariant struct {
	Culture    string
	OldPath    string // old resolved URL for this culture; falls back to Event.OldPath when empty
	OldName    string
	NewName    string
	OldURLName string // explicit URL-name override property, old value
	NewURLName string

	// Raw SEO metadata blobs, parsed defensively by the generator. Absent or
	// malformed blobs mean "no override".
	OldSEOMetadata datatypes.JSON
	NewSEOMetadata datatypes.JSON
}

// Event is a single content lifecycle notification. Fields other than Type
// and NodeID are populated per event type: Moved carries the parent change
// and old path, Publishing carries culture variants, Trashed/Published only
// the node id.
type Event struct {
	Type        EventType
	NodeID      int
	RootNodeID  int
	OldPath     string
	NewPath     string
	OldParentID int
	NewParentID int

	// Variants holds one entry per available culture. Culture-invariant
	// content is modeled as a single variant with an empty Culture.
	Variants []CultureVariant
}

// Resolver answers node -> URL questions against the live content tree.
type Resolver interface {
	// ResolveNode returns the current URL path of a node, or ErrNodeNotFound.
	// A culture of "" means the invariant/default culture.
	ResolveNode(id int, culture string) (string, error)

	// PathExists reports whether a path currently resolves to live, unblocked
	// content. Used to suppress non-forced redirects that shadow real pages.
	PathExists(path string) bool
}

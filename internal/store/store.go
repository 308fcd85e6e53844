// Package store holds the persistence contracts of the tracker and their
// GORM/MySQL implementations. Services depend on the interfaces only; the
// engine adds no locking of its own on top of the database's transactions.
package store

import (
	"errors"
	"time"

	"urltracker/internal/model"
)

var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict indicates an update or delete matched no row, typically a
	// concurrent delete. Callers may retry after re-reading.
	ErrConflict = errors.New("store: conflict")
)

// OrderBy selects the sort column for paged listings.
type OrderBy string

const (
	OrderByCreated        OrderBy = "created"
	OrderByLastOccurrence OrderBy = "lastOccurrence"
	OrderByOccurrences    OrderBy = "occurrences"
)

// RedirectStore is the durable collection of redirect rules.
type RedirectStore interface {
	Get(id int) (*model.Redirect, error)

	// FindExact returns every exact rule whose source path equals path and
	// whose culture/root scope either matches or is unscoped. Specificity
	// tie-breaking is the resolver's job.
	FindExact(path, culture string, rootNodeID int) ([]model.Redirect, error)

	// FindAllRegex returns all regex rules in insertion order.
	FindAllRegex() ([]model.Redirect, error)

	// FindByTargetNode returns rules redirecting to the given content node.
	FindByTargetNode(nodeID int) ([]model.Redirect, error)

	Insert(r *model.Redirect) error
	Update(r *model.Redirect) error
	Delete(id int) error
	Count() (int64, error)
	Page(skip, take int, search string, order OrderBy, descending bool) ([]model.Redirect, int64, error)
}

// ClientErrorStore is the durable collection of miss records, their
// occurrences and the ignore list.
type ClientErrorStore interface {
	FindByPath(path string) (*model.ClientError, error)
	InsertMiss(ce *model.ClientError) error
	AppendOccurrence(clientErrorID int, referrer *string, at time.Time) error

	// Page lists non-ignored records with server-side aggregates.
	Page(skip, take int, search string, order OrderBy, descending bool) ([]model.ClientErrorAggregate, int64, error)

	Delete(id int) error
	DeleteByPath(path string) error
	SetIgnored(id int, ignored bool) error

	ListIgnoreRules() ([]model.IgnoreRule, error)
	InsertIgnoreRule(r *model.IgnoreRule) error
	DeleteIgnoreRule(id int) error
}

// ContentNodeStore is the durable mirror of the host CMS content tree,
// one row per node and culture.
type ContentNodeStore interface {
	// UpsertNode inserts or replaces the row for the node's culture.
	UpsertNode(n *model.ContentNode) error

	// DeleteNode removes every culture row of a node.
	DeleteNode(nodeID int) error

	FindNode(nodeID int, culture string) (*model.ContentNode, error)

	// NodePathExists reports whether any node currently claims the path.
	NodePathExists(path string) (bool, error)
}

package service

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"urltracker/internal/content"
	"urltracker/internal/model"
	"urltracker/internal/store"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// fakeRedirectStore is an in-memory store.RedirectStore.
type fakeRedirectStore struct {
	rules  []model.Redirect
	nextID int

	insertErr error
	updateErr error
	findErr   error
}

func (f *fakeRedirectStore) add(r model.Redirect) *model.Redirect {
	f.nextID++
	r.ID = f.nextID
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Unix(int64(1700000000+f.nextID), 0)
	}
	f.rules = append(f.rules, r)
	return &f.rules[len(f.rules)-1]
}

func (f *fakeRedirectStore) Get(id int) (*model.Redirect, error) {
	for i := range f.rules {
		if f.rules[i].ID == id {
			r := f.rules[i]
			return &r, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeRedirectStore) FindExact(path, culture string, rootNodeID int) ([]model.Redirect, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []model.Redirect
	for _, r := range f.rules {
		if r.SourcePath == nil || *r.SourcePath != path {
			continue
		}
		if r.Culture != nil && *r.Culture != "" && *r.Culture != culture {
			continue
		}
		if r.RootNodeID != nil && *r.RootNodeID != 0 && rootNodeID != 0 && *r.RootNodeID != rootNodeID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRedirectStore) FindAllRegex() ([]model.Redirect, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []model.Redirect
	for _, r := range f.rules {
		if r.SourceRegex != nil && *r.SourceRegex != "" {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRedirectStore) FindByTargetNode(nodeID int) ([]model.Redirect, error) {
	var out []model.Redirect
	for _, r := range f.rules {
		if r.TargetNodeID != nil && *r.TargetNodeID == nodeID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRedirectStore) Insert(r *model.Redirect) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	*r = *f.add(*r)
	return nil
}

func (f *fakeRedirectStore) Update(r *model.Redirect) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	for i := range f.rules {
		if f.rules[i].ID == r.ID {
			f.rules[i] = *r
			return nil
		}
	}
	return store.ErrConflict
}

func (f *fakeRedirectStore) Delete(id int) error {
	for i := range f.rules {
		if f.rules[i].ID == id {
			f.rules = append(f.rules[:i], f.rules[i+1:]...)
			return nil
		}
	}
	return store.ErrConflict
}

func (f *fakeRedirectStore) Count() (int64, error) {
	return int64(len(f.rules)), nil
}

func (f *fakeRedirectStore) Page(skip, take int, search string, order store.OrderBy, descending bool) ([]model.Redirect, int64, error) {
	total := int64(len(f.rules))
	if skip >= len(f.rules) {
		return nil, total, nil
	}
	end := skip + take
	if end > len(f.rules) {
		end = len(f.rules)
	}
	return append([]model.Redirect(nil), f.rules[skip:end]...), total, nil
}

// fakeClientErrorStore is an in-memory store.ClientErrorStore.
type fakeClientErrorStore struct {
	misses      []model.ClientError
	occurrences []model.Occurrence
	ignoreRules []model.IgnoreRule
	nextID      int

	deletedPaths []string
}

func (f *fakeClientErrorStore) FindByPath(path string) (*model.ClientError, error) {
	for i := range f.misses {
		if f.misses[i].Path == path {
			ce := f.misses[i]
			return &ce, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeClientErrorStore) InsertMiss(ce *model.ClientError) error {
	f.nextID++
	ce.ID = f.nextID
	f.misses = append(f.misses, *ce)
	return nil
}

func (f *fakeClientErrorStore) AppendOccurrence(clientErrorID int, referrer *string, at time.Time) error {
	f.occurrences = append(f.occurrences, model.Occurrence{
		ClientErrorID: clientErrorID,
		Referrer:      referrer,
		OccurredAt:    at,
	})
	return nil
}

func (f *fakeClientErrorStore) Page(skip, take int, search string, order store.OrderBy, descending bool) ([]model.ClientErrorAggregate, int64, error) {
	var out []model.ClientErrorAggregate
	for _, ce := range f.misses {
		if ce.Ignored {
			continue
		}
		agg := model.ClientErrorAggregate{ID: ce.ID, Key: ce.Key, Path: ce.Path}
		for _, o := range f.occurrences {
			if o.ClientErrorID == ce.ID {
				agg.TotalOccurrences++
			}
		}
		out = append(out, agg)
	}
	return out, int64(len(out)), nil
}

func (f *fakeClientErrorStore) Delete(id int) error {
	for i := range f.misses {
		if f.misses[i].ID == id {
			f.misses = append(f.misses[:i], f.misses[i+1:]...)
			return nil
		}
	}
	return store.ErrConflict
}

func (f *fakeClientErrorStore) DeleteByPath(path string) error {
	f.deletedPaths = append(f.deletedPaths, path)
	for i := range f.misses {
		if f.misses[i].Path == path {
			f.misses = append(f.misses[:i], f.misses[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeClientErrorStore) SetIgnored(id int, ignored bool) error {
	for i := range f.misses {
		if f.misses[i].ID == id {
			f.misses[i].Ignored = ignored
			return nil
		}
	}
	return store.ErrConflict
}

func (f *fakeClientErrorStore) ListIgnoreRules() ([]model.IgnoreRule, error) {
	return append([]model.IgnoreRule(nil), f.ignoreRules...), nil
}

func (f *fakeClientErrorStore) InsertIgnoreRule(r *model.IgnoreRule) error {
	f.nextID++
	r.ID = f.nextID
	f.ignoreRules = append(f.ignoreRules, *r)
	return nil
}

func (f *fakeClientErrorStore) DeleteIgnoreRule(id int) error {
	for i := range f.ignoreRules {
		if f.ignoreRules[i].ID == id {
			f.ignoreRules = append(f.ignoreRules[:i], f.ignoreRules[i+1:]...)
			return nil
		}
	}
	return store.ErrConflict
}

// fakeContent answers node/path queries from fixed maps.
type fakeContent struct {
	nodes map[int]string
	live  map[string]bool
}

func (f *fakeContent) ResolveNode(id int, culture string) (string, error) {
	if url, ok := f.nodes[id]; ok {
		return url, nil
	}
	return "", content.ErrNodeNotFound
}

func (f *fakeContent) PathExists(path string) bool {
	return f.live[path]
}

// fakeInvalidator counts Invalidate calls.
type fakeInvalidator struct {
	calls int
}

func (f *fakeInvalidator) Invalidate() { f.calls++ }

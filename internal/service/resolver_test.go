package service

import (
	"errors"
	"testing"
	"time"

	"urltracker/internal/model"
	"urltracker/internal/regexcache"
)

func newTestResolver(rs *fakeRedirectStore, cr *fakeContent) *Resolver {
	c := regexcache.New(rs, testLogger())
	if cr == nil {
		return NewResolver(rs, c, nil, testLogger())
	}
	return NewResolver(rs, c, cr, testLogger())
}

func TestResolver_ExactMatch(t *testing.T) {
	rs := &fakeRedirectStore{}
	rs.add(model.Redirect{
		SourcePath: model.SPtr("/old-page"),
		TargetURL:  model.SPtr("/new-page"),
		StatusCode: model.StatusMovedPermanently,
	})

	r := newTestResolver(rs, nil)
	res, err := r.Resolve("/old-page", "", 0)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res == nil {
		t.Fatal("Resolve() = nil, want a match")
	}
	if res.TargetURL != "/new-page" {
		t.Errorf("TargetURL = %q, want %q", res.TargetURL, "/new-page")
	}
	if res.StatusCode != model.StatusMovedPermanently {
		t.Errorf("StatusCode = %d, want %d", res.StatusCode, model.StatusMovedPermanently)
	}
}

func TestResolver_NoMatch(t *testing.T) {
	rs := &fakeRedirectStore{}
	r := newTestResolver(rs, nil)

	res, err := r.Resolve("/nothing-here", "", 0)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res != nil {
		t.Errorf("Resolve() = %+v, want nil", res)
	}
}

func TestResolver_NormalizesBeforeLookup(t *testing.T) {
	rs := &fakeRedirectStore{}
	rs.add(model.Redirect{
		SourcePath: model.SPtr("/old-page"),
		TargetURL:  model.SPtr("/new-page"),
		StatusCode: model.StatusMovedPermanently,
	})

	r := newTestResolver(rs, nil)
	res, err := r.Resolve("/Old-Page/?utm=1", "", 0)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res == nil {
		t.Fatal("Resolve() = nil, want a match after normalization")
	}
}

func TestResolver_SpecificityWins(t *testing.T) {
	rs := &fakeRedirectStore{}
	rs.add(model.Redirect{
		SourcePath: model.SPtr("/old"),
		TargetURL:  model.SPtr("/generic"),
		StatusCode: model.StatusMovedPermanently,
	})
	rs.add(model.Redirect{
		SourcePath: model.SPtr("/old"),
		Culture:    model.SPtr("en-us"),
		TargetURL:  model.SPtr("/english"),
		StatusCode: model.StatusMovedPermanently,
	})

	r := newTestResolver(rs, nil)
	res, err := r.Resolve("/old", "en-us", 0)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res == nil || res.TargetURL != "/english" {
		t.Errorf("Resolve() target = %v, want /english", res)
	}

	// Without the culture only the unscoped rule applies.
	res, err = r.Resolve("/old", "nl-nl", 0)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res == nil || res.TargetURL != "/generic" {
		t.Errorf("Resolve() target = %v, want /generic", res)
	}
}

func TestResolver_NewestWinsAmongEquallySpecific(t *testing.T) {
	rs := &fakeRedirectStore{}
	older := model.Redirect{
		SourcePath: model.SPtr("/old"),
		TargetURL:  model.SPtr("/first"),
		StatusCode: model.StatusMovedPermanently,
	}
	older.CreatedAt = time.Unix(1000, 0)
	rs.add(older)

	newer := model.Redirect{
		SourcePath: model.SPtr("/old"),
		TargetURL:  model.SPtr("/second"),
		StatusCode: model.StatusMovedPermanently,
	}
	newer.CreatedAt = time.Unix(2000, 0)
	rs.add(newer)

	r := newTestResolver(rs, nil)
	res, err := r.Resolve("/old", "", 0)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res == nil || res.TargetURL != "/second" {
		t.Errorf("Resolve() target = %v, want the newer rule's /second", res)
	}
}

func TestResolver_RegexFallback(t *testing.T) {
	rs := &fakeRedirectStore{}
	rs.add(model.Redirect{
		SourceRegex: model.SPtr("/blog/[0-9]{4}/.*"),
		TargetURL:   model.SPtr("/archive"),
		StatusCode:  model.StatusFound,
	})

	r := newTestResolver(rs, nil)
	res, err := r.Resolve("/blog/2019/some-post", "", 0)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res == nil || res.TargetURL != "/archive" {
		t.Errorf("Resolve() = %v, want /archive via regex", res)
	}

	// Anchored: a partial match inside a longer path must not fire.
	res, err = r.Resolve("/nested/blog/2019/some-post", "", 0)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res != nil {
		t.Errorf("Resolve() = %+v, want nil for unanchored-looking path", res)
	}
}

func TestResolver_ExactBeatsRegex(t *testing.T) {
	rs := &fakeRedirectStore{}
	rs.add(model.Redirect{
		SourceRegex: model.SPtr("/old.*"),
		TargetURL:   model.SPtr("/by-regex"),
		StatusCode:  model.StatusMovedPermanently,
	})
	rs.add(model.Redirect{
		SourcePath: model.SPtr("/old"),
		TargetURL:  model.SPtr("/by-exact"),
		StatusCode: model.StatusMovedPermanently,
	})

	r := newTestResolver(rs, nil)
	res, err := r.Resolve("/old", "", 0)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res == nil || res.TargetURL != "/by-exact" {
		t.Errorf("Resolve() = %v, want the exact rule", res)
	}
}

func TestResolver_LiveContentSuppressesNonForced(t *testing.T) {
	rs := &fakeRedirectStore{}
	rs.add(model.Redirect{
		SourcePath: model.SPtr("/still-live"),
		TargetURL:  model.SPtr("/elsewhere"),
		StatusCode: model.StatusMovedPermanently,
	})

	cr := &fakeContent{live: map[string]bool{"/still-live": true}}
	r := newTestResolver(rs, cr)

	res, err := r.Resolve("/still-live", "", 0)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res != nil {
		t.Errorf("Resolve() = %+v, want nil while content is live", res)
	}
}

func TestResolver_ForceRedirectOverridesLiveContent(t *testing.T) {
	rs := &fakeRedirectStore{}
	rs.add(model.Redirect{
		SourcePath:    model.SPtr("/still-live"),
		TargetURL:     model.SPtr("/elsewhere"),
		StatusCode:    model.StatusMovedPermanently,
		ForceRedirect: true,
	})

	cr := &fakeContent{live: map[string]bool{"/still-live": true}}
	r := newTestResolver(rs, cr)

	res, err := r.Resolve("/still-live", "", 0)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res == nil || res.TargetURL != "/elsewhere" {
		t.Errorf("Resolve() = %v, want the forced rule to win", res)
	}
}

func TestResolver_NodeTarget(t *testing.T) {
	rs := &fakeRedirectStore{}
	rs.add(model.Redirect{
		SourcePath:   model.SPtr("/old"),
		TargetNodeID: model.UPtr(42),
		StatusCode:   model.StatusMovedPermanently,
	})

	cr := &fakeContent{nodes: map[int]string{42: "/products/widget"}}
	r := newTestResolver(rs, cr)

	res, err := r.Resolve("/old", "", 0)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res == nil || res.TargetURL != "/products/widget" {
		t.Errorf("Resolve() = %v, want /products/widget", res)
	}
}

func TestResolver_BrokenNodeTargetIsNoMatch(t *testing.T) {
	rs := &fakeRedirectStore{}
	rs.add(model.Redirect{
		SourcePath:   model.SPtr("/old"),
		TargetNodeID: model.UPtr(42),
		StatusCode:   model.StatusMovedPermanently,
	})

	cr := &fakeContent{nodes: map[int]string{}}
	r := newTestResolver(rs, cr)

	res, err := r.Resolve("/old", "", 0)
	if err != nil {
		t.Fatalf("Resolve() error = %v, broken targets must not error", err)
	}
	if res != nil {
		t.Errorf("Resolve() = %+v, want nil for a missing target node", res)
	}
}

func TestResolver_GoneShortCircuits(t *testing.T) {
	rs := &fakeRedirectStore{}
	rs.add(model.Redirect{
		SourcePath: model.SPtr("/trashed"),
		StatusCode: model.StatusGone,
	})

	r := newTestResolver(rs, nil)
	res, err := r.Resolve("/trashed", "", 0)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res == nil {
		t.Fatal("Resolve() = nil, want a Gone resolution")
	}
	if res.StatusCode != model.StatusGone {
		t.Errorf("StatusCode = %d, want %d", res.StatusCode, model.StatusGone)
	}
	if res.TargetURL != "" {
		t.Errorf("TargetURL = %q, want empty for Gone", res.TargetURL)
	}
}

func TestResolver_StoreFailure(t *testing.T) {
	rs := &fakeRedirectStore{findErr: errors.New("connection refused")}
	r := newTestResolver(rs, nil)

	_, err := r.Resolve("/anything", "", 0)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Resolve() error = %v, want ErrStoreUnavailable", err)
	}
}

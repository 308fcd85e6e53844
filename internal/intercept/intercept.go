// Package intercept wires the tracker into the request path. The middleware
// runs before content routing: matched rules short-circuit with a redirect
// or Gone response, unmatched 404s are recorded asynchronously, everything
// else passes through untouched.
package intercept

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"urltracker/internal/model"
	"urltracker/internal/service"
	"urltracker/internal/urlnorm"
)

// RequestScope extracts the culture and root-site scope of a request.
// Defaults to unscoped when nil.
type RequestScope func(c *gin.Context) (culture string, rootNodeID int)

// Options configures the middleware.
type Options struct {
	// Disabled turns the whole intercept off; every request passes through.
	Disabled bool

	// NotFoundTrackingDisabled keeps redirect serving on but stops
	// recording misses.
	NotFoundTrackingDisabled bool

	Resolver     *service.Resolver
	ClientErrors *service.ClientErrors
	Recorder     *service.MissRecorder
	Scope        RequestScope

	// Fallback runs when the request 404'd and no built-in handler claimed
	// it. Optional; its absence is a configuration warning, not an error.
	Fallback gin.HandlerFunc

	Logger *logrus.Entry
}

// Middleware builds the intercept pipeline handler.
func Middleware(o Options) gin.HandlerFunc {
	logger := o.Logger.WithField("component", "intercept")
	var warnNoFallback sync.Once

	return func(c *gin.Context) {
		if o.Disabled {
			c.Next()
			return
		}

		norm := urlnorm.Normalize(c.Request.URL.RequestURI())

		var culture string
		var rootNodeID int
		if o.Scope != nil {
			culture, rootNodeID = o.Scope(c)
		}

		// Ignored paths pass through without resolution or recording.
		if o.ClientErrors != nil && o.ClientErrors.IsIgnored(norm.Path) {
			c.Next()
			return
		}

		if o.Resolver != nil {
			res, err := o.Resolver.Resolve(norm.Path, culture, rootNodeID)
			if err != nil {
				// Fail open: tracking being down must never block a page.
				logger.Errorf("Resolve failed for %q: %v", norm.Path, err)
			} else if res != nil {
				serve(c, res, norm.RawQuery)
				return
			}
		}

		c.Next()

		// Only record requests the rest of the application also missed.
		if c.Writer.Status() != http.StatusNotFound {
			return
		}

		// The toggle stops recording; the fallback below is an independent
		// extension point and still runs.
		if o.Recorder != nil && !o.NotFoundTrackingDisabled {
			o.Recorder.Enqueue(norm.Path, c.Request.Referer(), time.Now())
		}

		if o.Fallback != nil {
			o.Fallback(c)
		} else {
			warnNoFallback.Do(func() {
				logger.Warn("No fallback handler registered for unmatched requests")
			})
		}
	}
}

// serve writes the redirect or Gone response for a matched rule.
func serve(c *gin.Context, res *service.Resolution, rawQuery string) {
	if res.StatusCode == model.StatusGone {
		c.AbortWithStatus(http.StatusGone)
		return
	}

	target := res.TargetURL
	if res.Rule.PassThroughQueryString && rawQuery != "" {
		sep := "?"
		for i := 0; i < len(target); i++ {
			if target[i] == '?' {
				sep = "&"
				break
			}
		}
		target += sep + rawQuery
	}

	c.Redirect(res.StatusCode, target)
	c.Abort()
}

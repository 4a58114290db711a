package telemetry

import (
	"context"

	"github.com/grafana/pyroscope-go"
)

// Profiling label keys. Keep values low-cardinality: bill and item ids must
// never become labels.
const (
	ProfileLabelOperation = "operation"
	ProfileLabelRoute     = "route"
	ProfileLabelMethod    = "method"
)

// ProfileOperation runs fn with a pprof "operation" label so CPU samples can
// be filtered per bill operation in Pyroscope.
func ProfileOperation(ctx context.Context, operation string, fn func(context.Context)) {
	if operation == "" {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(ProfileLabelOperation, operation), fn)
}

// ProfileRoute labels fn with the HTTP method and matched route pattern
func ProfileRoute(ctx context.Context, method, route string, fn func(context.Context)) {
	if route == "" {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(ProfileLabelMethod, method, ProfileLabelRoute, route), fn)
}

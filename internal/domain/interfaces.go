package domain

import "context"

// ArchiveWalker enumerates every class file packaged in a deployable
// archive, recursing into nested archives under WEB-INF/lib.
type ArchiveWalker interface {
	// calls fn for each class entry in archive order; a non-nil error
	// from fn aborts the walk and is returned unchanged
	Walk(ctx context.Context, archivePath string, fn func(entry *ClassEntry) error) error
}

// HandlerAnalyzer decodes a class entry and, when the class is a
// controller, returns one HandlerMethod per mapped handler with class and
// method mappings already composed.
type HandlerAnalyzer interface {
	// returns nil for classes that are not controllers
	AnalyzeClass(ctx context.Context, entry *ClassEntry) ([]*HandlerMethod, error)
}

// StateClassifier decides whether a handler mutates persistent state.
type StateClassifier interface {
	AltersState(method *HandlerMethod) bool
	// weighted confidence in [0,1]; independent of the boolean verdict
	Confidence(method *HandlerMethod) float64
}

// ValidationCollector derives human-readable validation descriptors from
// a handler's annotations, parameters, and call targets.
type ValidationCollector interface {
	// returned descriptors are deduplicated and sorted
	Collect(method *HandlerMethod) []string
}

// ReportAssembler turns composed handlers into the final report with its
// summary rollup.
type ReportAssembler interface {
	Assemble(warFileName string, handlers []*HandlerMethod) *Report
}

// ReportRenderer serializes a report into the supported output formats.
type ReportRenderer interface {
	RenderJSON(report *Report) ([]byte, error)
	RenderCSV(report *Report) ([]byte, error)
	RenderHTML(report *Report) ([]byte, error)
	RenderSummary(report *Report) string
}

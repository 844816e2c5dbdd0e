package domain

import "time"

// Origin identifies where a class entry came from: the outer WAR and,
// when the class was packaged in a library under WEB-INF/lib, the nested
// JAR entry name.
type Origin struct {
	War string `json:"war"`           // path of the outer archive
	Jar string `json:"jar,omitempty"` // nested archive entry name, "" for WEB-INF/classes
}

// Nested reports whether the entry lives inside a WEB-INF/lib archive.
func (o Origin) Nested() bool {
	return o.Jar != ""
}

// ClassEntry is one class file discovered by the archive walker.
type ClassEntry struct {
	Origin Origin // which archive(s) the entry came from
	Path   string // entry path within its archive, e.g. "com/ex/UserController.class"
	Data   []byte // raw class-file bytes
}

// HandlerMethod is the decoded view of a single controller handler after
// class- and method-level mappings have been composed. It is the unit the
// mutation classifier and validation collector operate on.
type HandlerMethod struct {
	ClassName       string   // FQN, dot separated
	MethodName      string
	URLPatterns     []string // composed class x method paths
	HTTPMethods     []string // composed verbs, never empty
	ReturnType      string   // canonical dotted type name
	Parameters      []ParameterInfo
	Annotations     []string // rendered method annotations, "@Name(attr=value)"
	AnnotationTypes []string // dotted FQNs of the method annotations, same order
	Transactional   bool
	ReadOnly        bool     // readOnly attribute of the transactional annotation
	CalledMethods   []string // "owner.name" for every invocation in the body
	Produces        []string
	Consumes        []string
}

// ParameterInfo describes one handler parameter and its annotations.
type ParameterInfo struct {
	Name        string   // "param0".."paramN", names are not kept in bytecode
	Type        string   // canonical dotted type name
	Annotations []string // simple annotation names, e.g. "Valid", "RequestBody"
}

// APIEndpoint is one concrete (url, verb) exposure of a handler method.
// Field names are part of the serialized report contract.
type APIEndpoint struct {
	APIURL           string        `json:"api_url"`
	HTTPMethod       string        `json:"http_method"`
	ControllerClass  string        `json:"controller_class"`
	ControllerMethod string        `json:"controller_method"`
	AltersState      bool          `json:"alters_state"`
	Validation       []string      `json:"validation"`
	MethodDetails    MethodDetails `json:"method_details"`
}

// MethodDetails carries the per-endpoint handler metadata.
type MethodDetails struct {
	ReturnType            string                `json:"return_type"`
	ParameterTypes        []string              `json:"parameter_types"`
	Annotations           []string              `json:"annotations"`
	TransactionAttributes TransactionAttributes `json:"transaction_attributes"`
	Produces              []string              `json:"produces"`
	Consumes              []string              `json:"consumes"`
}

// TransactionAttributes summarizes the transactional annotation, if any.
type TransactionAttributes struct {
	IsTransactional bool `json:"is_transactional"`
	ReadOnly        bool `json:"read_only"`
}

// HTTPMethodDistribution counts endpoints per canonical verb.
type HTTPMethodDistribution struct {
	Get     int `json:"GET"`
	Post    int `json:"POST"`
	Put     int `json:"PUT"`
	Delete  int `json:"DELETE"`
	Patch   int `json:"PATCH"`
	Options int `json:"OPTIONS"`
	Head    int `json:"HEAD"`
}

// Increment bumps the counter for a verb. Verbs outside the canonical
// seven are ignored.
func (d *HTTPMethodDistribution) Increment(method string) {
	switch method {
	case "GET":
		d.Get++
	case "POST":
		d.Post++
	case "PUT":
		d.Put++
	case "DELETE":
		d.Delete++
	case "PATCH":
		d.Patch++
	case "OPTIONS":
		d.Options++
	case "HEAD":
		d.Head++
	}
}

// Total sums the per-verb counters.
func (d *HTTPMethodDistribution) Total() int {
	return d.Get + d.Post + d.Put + d.Delete + d.Patch + d.Options + d.Head
}

// AnalysisSummary is the report rollup.
type AnalysisSummary struct {
	StateAlteringAPIs int                    `json:"state_altering_apis"`
	ReadOnlyAPIs      int                    `json:"read_only_apis"`
	ValidatedAPIs     int                    `json:"validated_apis"`
	ControllerClasses int                    `json:"controller_classes"`
	HTTPMethods       HTTPMethodDistribution `json:"http_methods_distribution"`
}

// Report is the full analysis result returned to the caller.
type Report struct {
	WarFileName  string          `json:"war_file_name"`
	AnalysisDate time.Time       `json:"analysis_date"`
	TotalAPIs    int             `json:"total_apis"`
	Summary      AnalysisSummary `json:"analysis_summary"`
	APIs         []APIEndpoint   `json:"apis"`
}

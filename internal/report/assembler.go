package report

import (
	"time"

	"war-api-analyzer/internal/domain"

	"go.uber.org/zap"
)

// Assembler turns composed handler methods into the final report,
// decorating each endpoint with the mutation verdict and validation
// descriptors.
type Assembler struct {
	classifier domain.StateClassifier
	collector  domain.ValidationCollector
	logger     *zap.Logger
}

// NewAssembler creates a new report assembler
func NewAssembler(classifier domain.StateClassifier, collector domain.ValidationCollector, logger *zap.Logger) *Assembler {
	return &Assembler{
		classifier: classifier,
		collector:  collector,
		logger:     logger,
	}
}

// Assemble emits one endpoint per (url, verb) pair of every handler, in
// composition order, and computes the summary rollup.
func (a *Assembler) Assemble(warFileName string, handlers []*domain.HandlerMethod) *domain.Report {
	report := &domain.Report{
		WarFileName:  warFileName,
		AnalysisDate: time.Now(),
		APIs:         []domain.APIEndpoint{},
	}

	for _, handler := range handlers {
		altersState := a.classifier.AltersState(handler)
		validation := a.collector.Collect(handler)

		// Each endpoint carries exactly one verb, so the verdict is taken
		// per verb: a GET+POST handler yields a read-only GET endpoint
		// unless another signal fires
		altersByVerb := make(map[string]bool, len(handler.HTTPMethods))
		for _, verb := range handler.HTTPMethods {
			single := *handler
			single.HTTPMethods = []string{verb}
			altersByVerb[verb] = a.classifier.AltersState(&single)
		}

		a.logger.Debug("Assembling endpoints for handler",
			zap.String("class", handler.ClassName),
			zap.String("method", handler.MethodName),
			zap.Bool("alters_state", altersState),
			zap.Float64("confidence", a.classifier.Confidence(handler)))

		seen := make(map[[2]string]bool)
		for _, url := range handler.URLPatterns {
			for _, verb := range handler.HTTPMethods {
				key := [2]string{url, verb}
				if seen[key] {
					continue
				}
				seen[key] = true
				report.APIs = append(report.APIs, buildEndpoint(handler, url, verb, altersByVerb[verb], validation))
			}
		}
	}

	report.TotalAPIs = len(report.APIs)
	report.Summary = summarize(report.APIs)

	a.logger.Info("Report assembled",
		zap.String("war_file", warFileName),
		zap.Int("total_apis", report.TotalAPIs),
		zap.Int("controller_classes", report.Summary.ControllerClasses))

	return report
}

func buildEndpoint(handler *domain.HandlerMethod, url, verb string, altersState bool, validation []string) domain.APIEndpoint {
	parameterTypes := make([]string, len(handler.Parameters))
	for i, param := range handler.Parameters {
		parameterTypes[i] = param.Type
	}

	if validation == nil {
		validation = []string{}
	}

	return domain.APIEndpoint{
		APIURL:           url,
		HTTPMethod:       verb,
		ControllerClass:  handler.ClassName,
		ControllerMethod: handler.MethodName,
		AltersState:      altersState,
		Validation:       validation,
		MethodDetails: domain.MethodDetails{
			ReturnType:     handler.ReturnType,
			ParameterTypes: parameterTypes,
			Annotations:    handler.Annotations,
			TransactionAttributes: domain.TransactionAttributes{
				IsTransactional: handler.Transactional,
				ReadOnly:        handler.ReadOnly,
			},
			Produces: handler.Produces,
			Consumes: handler.Consumes,
		},
	}
}

func summarize(endpoints []domain.APIEndpoint) domain.AnalysisSummary {
	var summary domain.AnalysisSummary

	controllers := make(map[string]bool)
	for i := range endpoints {
		endpoint := &endpoints[i]

		if endpoint.AltersState {
			summary.StateAlteringAPIs++
		} else {
			summary.ReadOnlyAPIs++
		}

		if len(endpoint.Validation) > 0 {
			summary.ValidatedAPIs++
		}

		controllers[endpoint.ControllerClass] = true
		summary.HTTPMethods.Increment(endpoint.HTTPMethod)
	}

	summary.ControllerClasses = len(controllers)
	return summary
}

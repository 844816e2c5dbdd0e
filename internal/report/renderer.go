package report

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"war-api-analyzer/internal/domain"
)

//go:embed template.html
var templateContent string

var htmlTemplate = template.Must(template.New("report").Parse(templateContent))

// csvHeader is the column set of the CSV rendering.
var csvHeader = []string{
	"API_URL", "HTTP_METHOD", "Controller_Class", "Controller_Method",
	"Alters_State", "Validation", "Return_Type", "Parameter_Types",
	"Is_Transactional", "Produces", "Consumes",
}

// Renderer serializes reports into the supported output formats.
type Renderer struct {
	title string
}

// NewRenderer creates a new report renderer
func NewRenderer(title string) *Renderer {
	return &Renderer{title: title}
}

// RenderJSON renders the report as indented JSON. Dates serialize as
// ISO-8601 timestamps.
func (r *Renderer) RenderJSON(report *domain.Report) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to render JSON report: %w", err)
	}
	return data, nil
}

// RenderCSV renders one row per endpoint.
func (r *Renderer) RenderCSV(report *domain.Report) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("failed to render CSV report: %w", err)
	}

	for i := range report.APIs {
		endpoint := &report.APIs[i]
		record := []string{
			endpoint.APIURL,
			endpoint.HTTPMethod,
			endpoint.ControllerClass,
			endpoint.ControllerMethod,
			strconv.FormatBool(endpoint.AltersState),
			strings.Join(endpoint.Validation, "; "),
			endpoint.MethodDetails.ReturnType,
			strings.Join(endpoint.MethodDetails.ParameterTypes, ", "),
			strconv.FormatBool(endpoint.MethodDetails.TransactionAttributes.IsTransactional),
			strings.Join(endpoint.MethodDetails.Produces, ", "),
			strings.Join(endpoint.MethodDetails.Consumes, ", "),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to render CSV report: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to render CSV report: %w", err)
	}

	return buf.Bytes(), nil
}

// htmlData is the template context for the HTML rendering.
type htmlData struct {
	Title  string
	Report *domain.Report
}

// RenderHTML renders a self-contained HTML page with the summary and the
// endpoint table.
func (r *Renderer) RenderHTML(report *domain.Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, htmlData{Title: r.title, Report: report}); err != nil {
		return nil, fmt.Errorf("failed to render HTML report: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderSummary renders the rollup as a short plain-text block.
func (r *Renderer) RenderSummary(report *domain.Report) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s\n", r.title)
	fmt.Fprintf(&sb, "Archive: %s\n", report.WarFileName)
	fmt.Fprintf(&sb, "Analyzed: %s\n", report.AnalysisDate.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, "Total endpoints: %d\n", report.TotalAPIs)
	fmt.Fprintf(&sb, "State altering: %d\n", report.Summary.StateAlteringAPIs)
	fmt.Fprintf(&sb, "Read only: %d\n", report.Summary.ReadOnlyAPIs)
	fmt.Fprintf(&sb, "Validated: %d\n", report.Summary.ValidatedAPIs)
	fmt.Fprintf(&sb, "Controller classes: %d\n", report.Summary.ControllerClasses)

	dist := report.Summary.HTTPMethods
	fmt.Fprintf(&sb, "Verbs: GET=%d POST=%d PUT=%d DELETE=%d PATCH=%d OPTIONS=%d HEAD=%d\n",
		dist.Get, dist.Post, dist.Put, dist.Delete, dist.Patch, dist.Options, dist.Head)

	return sb.String()
}

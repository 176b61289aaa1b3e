package services

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/huangang/adsentry/internal/config"
	"github.com/huangang/adsentry/internal/models"
	"github.com/huangang/adsentry/pkg/logger"
)

const (
	VerdictPass = "pass"
	VerdictFail = "fail"
)

// Score deductions per issue severity. Verdict fails below the configured
// threshold or on any critical finding regardless of score.
var severityDeduction = map[string]float64{
	"low":      2,
	"medium":   5,
	"high":     10,
	"critical": 25,
}

var severityRank = map[string]int{
	"low":      0,
	"medium":   1,
	"high":     2,
	"critical": 3,
}

// ReviewReport is the immutable aggregation of one completed run. Rendering
// it is a pure function of its fields, so the same run always produces the
// same artifact bytes.
type ReviewReport struct {
	Asset       *models.VideoAsset
	Run         *models.ReviewRun
	Issues      []*models.ReviewIssue // presentation order
	Summary     string
	Score       float64
	Verdict     string // pass, fail
	Format      string // html, markdown
	GeneratedAt time.Time
}

// ReportService aggregates run results and renders report artifacts.
type ReportService struct {
	cfg *config.Config
}

func NewReportService(cfg *config.Config) *ReportService {
	return &ReportService{cfg: cfg}
}

// ComputeScore starts at 100 and subtracts per issue by severity, floored
// at zero.
func ComputeScore(issues []*models.ReviewIssue) float64 {
	score := 100.0
	for _, issue := range issues {
		score -= severityDeduction[issue.Severity]
	}
	if score < 0 {
		score = 0
	}
	return score
}

// HasCriticalIssue reports whether any issue carries critical severity.
func HasCriticalIssue(issues []*models.ReviewIssue) bool {
	for _, issue := range issues {
		if issue.Severity == "critical" {
			return true
		}
	}
	return false
}

// Verdict fails a run that scores below the threshold or contains any
// critical issue.
func Verdict(score, threshold float64, critical bool) string {
	if critical || score < threshold {
		return VerdictFail
	}
	return VerdictPass
}

// SortIssuesForDisplay orders issues by severity (most severe first), then
// timestamp (whole-video issues first, then ascending), then original
// response position.
func SortIssuesForDisplay(issues []*models.ReviewIssue) {
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if severityRank[a.Severity] != severityRank[b.Severity] {
			return severityRank[a.Severity] > severityRank[b.Severity]
		}
		switch {
		case a.Timestamp == nil && b.Timestamp != nil:
			return true
		case a.Timestamp != nil && b.Timestamp == nil:
			return false
		case a.Timestamp != nil && b.Timestamp != nil && *a.Timestamp != *b.Timestamp:
			return *a.Timestamp < *b.Timestamp
		}
		return a.Position < b.Position
	})
}

// ReportName builds the artifact filename for a run. Deterministic per
// (video, run) so re-renders overwrite the same file.
func ReportName(contentHash, runKey, format string) string {
	hash := contentHash
	if len(hash) > 12 {
		hash = hash[:12]
	}
	ext := "html"
	if format == "markdown" {
		ext = "md"
	}
	return fmt.Sprintf("%s_%s.%s", hash, runKey, ext)
}

// Aggregate computes score, verdict and presentation order for a finished
// run. GeneratedAt comes from the run's completion time so re-renders are
// byte-identical.
func (s *ReportService) Aggregate(asset *models.VideoAsset, run *models.ReviewRun, issues []*models.ReviewIssue, summary string) *ReviewReport {
	ordered := make([]*models.ReviewIssue, len(issues))
	copy(ordered, issues)
	SortIssuesForDisplay(ordered)

	score := ComputeScore(ordered)
	verdict := Verdict(score, s.cfg.Review.PassThreshold, HasCriticalIssue(ordered))

	format := run.ReportFormat
	if format == "" {
		format = s.cfg.Report.Format
	}

	generatedAt := time.Now()
	if run.CompletedAt != nil {
		generatedAt = *run.CompletedAt
	}

	return &ReviewReport{
		Asset:       asset,
		Run:         run,
		Issues:      ordered,
		Summary:     summary,
		Score:       score,
		Verdict:     verdict,
		Format:      format,
		GeneratedAt: generatedAt,
	}
}

// Render produces the artifact bytes for the report's format.
func (s *ReportService) Render(report *ReviewReport) ([]byte, error) {
	if report.Format == "markdown" {
		return s.renderMarkdown(report), nil
	}
	return s.renderHTML(report)
}

// Write persists the rendered artifact and returns its path. This is the
// only place a render failure can originate as far as the pipeline is
// concerned; bad data never reaches this stage.
func (s *ReportService) Write(report *ReviewReport, content []byte) (string, error) {
	if err := os.MkdirAll(s.cfg.Paths.Reports, 0o755); err != nil {
		return "", NewRenderError("cannot create reports directory", err)
	}

	path := filepath.Join(s.cfg.Paths.Reports, ReportName(report.Asset.ContentHash, report.Run.RunKey, report.Format))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", NewRenderError("cannot write report artifact", err)
	}

	logger.Infof("[Report] Wrote %s report for %s: %s", report.Format, report.Asset.Filename, path)
	return path, nil
}

// formatClock renders seconds as MM:SS, or HH:MM:SS past an hour.
func formatClock(seconds float64) string {
	total := int(seconds)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}

type reportIssueView struct {
	Severity      string
	SeverityLabel string
	Category      string
	TimeLabel     string
	Description   string
	SuggestedFix  string
	ScreenshotURL template.URL
	Unavailable   bool
}

type reportView struct {
	CompanyName string
	Filename    string
	Duration    string
	Resolution  string
	Provider    string
	Model       string
	Score       int
	Passed      bool
	Verdict     string
	IssueCount  int
	Summary     string
	ReviewTime  string
	Issues      []reportIssueView
}

func (s *ReportService) buildView(report *ReviewReport) reportView {
	view := reportView{
		CompanyName: s.cfg.Report.CompanyName,
		Filename:    report.Asset.Filename,
		Duration:    formatClock(report.Asset.DurationSeconds),
		Resolution:  fmt.Sprintf("%dx%d", report.Asset.Width, report.Asset.Height),
		Provider:    report.Run.Provider,
		Model:       report.Run.Model,
		Score:       int(report.Score),
		Passed:      report.Verdict == VerdictPass,
		Verdict:     strings.ToUpper(report.Verdict),
		IssueCount:  len(report.Issues),
		Summary:     report.Summary,
		ReviewTime:  report.GeneratedAt.UTC().Format("2006-01-02 15:04:05"),
	}

	for _, issue := range report.Issues {
		iv := reportIssueView{
			Severity:      issue.Severity,
			SeverityLabel: strings.ToUpper(issue.Severity),
			Category:      categoryTitles[issue.Category],
			TimeLabel:     "entire video",
			Description:   issue.Description,
			SuggestedFix:  issue.SuggestedFix,
			Unavailable:   issue.EvidenceStatus == "unavailable",
		}
		if iv.Category == "" {
			iv.Category = issue.Category
		}
		if issue.Timestamp != nil {
			iv.TimeLabel = formatClock(*issue.Timestamp)
		}
		if s.cfg.Report.EmbedScreenshots && issue.EvidenceStatus == "captured" {
			if data, err := os.ReadFile(issue.EvidencePath); err == nil {
				iv.ScreenshotURL = template.URL("data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data))
			}
		}
		view.Issues = append(view.Issues, iv)
	}
	return view
}

func (s *ReportService) renderHTML(report *ReviewReport) ([]byte, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, s.buildView(report)); err != nil {
		return nil, NewRenderError("report template execution failed", err)
	}
	return buf.Bytes(), nil
}

var markdownSeverityLabels = map[string]string{
	"low":      "🟡 Low",
	"medium":   "🟠 Medium",
	"high":     "🔴 High",
	"critical": "⛔ Critical",
}

func (s *ReportService) renderMarkdown(report *ReviewReport) []byte {
	view := s.buildView(report)
	var b strings.Builder

	fmt.Fprintf(&b, "# %s - Video Review Report\n\n", view.CompanyName)
	fmt.Fprintf(&b, "**File**: %s\n", view.Filename)
	fmt.Fprintf(&b, "**Reviewed**: %s\n\n", view.ReviewTime)

	b.WriteString("## Result\n\n")
	status := "❌ Failed"
	if view.Passed {
		status = "✅ Passed"
	}
	fmt.Fprintf(&b, "- **Status**: %s\n", status)
	fmt.Fprintf(&b, "- **Score**: %d/100\n", view.Score)
	fmt.Fprintf(&b, "- **Issues**: %d\n\n", view.IssueCount)

	b.WriteString("## Video\n\n")
	fmt.Fprintf(&b, "- **Duration**: %s\n", view.Duration)
	fmt.Fprintf(&b, "- **Resolution**: %s\n", view.Resolution)
	fmt.Fprintf(&b, "- **Reviewed by**: %s (%s)\n\n", view.Provider, view.Model)

	if view.Summary != "" {
		b.WriteString("## Summary\n\n")
		b.WriteString(view.Summary)
		b.WriteString("\n\n")
	}

	b.WriteString("## Issues\n\n")
	if len(report.Issues) == 0 {
		b.WriteString("🎉 **No issues found.** The video meets all review criteria.\n")
		return []byte(b.String())
	}

	for i, issue := range report.Issues {
		label := markdownSeverityLabels[issue.Severity]
		if label == "" {
			label = issue.Severity
		}
		fmt.Fprintf(&b, "### Issue %d\n\n", i+1)
		fmt.Fprintf(&b, "- **Severity**: %s\n", label)
		fmt.Fprintf(&b, "- **Category**: %s\n", view.Issues[i].Category)
		fmt.Fprintf(&b, "- **Timestamp**: %s\n", view.Issues[i].TimeLabel)
		fmt.Fprintf(&b, "- **Description**: %s\n", issue.Description)
		if issue.SuggestedFix != "" {
			fmt.Fprintf(&b, "- **Suggested fix**: %s\n", issue.SuggestedFix)
		}
		switch issue.EvidenceStatus {
		case "captured":
			fmt.Fprintf(&b, "- **Screenshot**: ![Issue screenshot](%s)\n", issue.EvidencePath)
		case "unavailable":
			b.WriteString("- **Screenshot**: evidence unavailable\n")
		}
		b.WriteString("\n")
	}
	return []byte(b.String())
}

var reportTemplate = template.Must(template.New("report").Parse(reportHTML))

const reportHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Filename}} - Review Report</title>
<style>
* { margin: 0; padding: 0; box-sizing: border-box; }
body {
  font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
  background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
  min-height: 100vh;
  padding: 40px 20px;
}
.container {
  max-width: 900px; margin: 0 auto;
  background: rgba(255, 255, 255, 0.95);
  border-radius: 20px;
  box-shadow: 0 25px 50px -12px rgba(0, 0, 0, 0.25);
  overflow: hidden;
}
.header {
  background: linear-gradient(135deg, #1a1a2e 0%, #16213e 100%);
  color: white; padding: 40px; text-align: center;
}
.header h1 { font-size: 28px; font-weight: 600; margin-bottom: 10px; }
.header .subtitle { font-size: 14px; opacity: 0.8; }
.score-section {
  display: flex; justify-content: center; align-items: center;
  padding: 40px; background: #f8f9fa; border-bottom: 1px solid #eee;
}
.score-circle {
  width: 150px; height: 150px; border-radius: 50%;
  display: flex; flex-direction: column; justify-content: center; align-items: center;
  color: white; font-weight: bold;
  box-shadow: 0 10px 30px rgba(0, 0, 0, 0.2);
}
.score-circle.pass { background: linear-gradient(135deg, #11998e 0%, #38ef7d 100%); }
.score-circle.fail { background: linear-gradient(135deg, #eb3349 0%, #f45c43 100%); }
.score-circle .score { font-size: 48px; line-height: 1; }
.score-circle .label { font-size: 14px; margin-top: 8px; opacity: 0.9; }
.status-badge { margin-left: 30px; text-align: center; }
.status-badge .badge {
  display: inline-block; padding: 12px 24px; border-radius: 30px;
  font-size: 18px; font-weight: 600;
}
.status-badge .badge.pass { background: #d4edda; color: #155724; }
.status-badge .badge.fail { background: #f8d7da; color: #721c24; }
.status-badge p { margin-top: 10px; color: #666; font-size: 13px; }
.section { padding: 30px 40px; border-bottom: 1px solid #eee; }
.section:last-child { border-bottom: none; }
.section-title {
  font-size: 18px; font-weight: 600; color: #1a1a2e; margin-bottom: 20px;
  display: flex; align-items: center;
}
.section-title::before {
  content: ''; width: 4px; height: 20px;
  background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
  border-radius: 2px; margin-right: 12px;
}
.info-grid { display: grid; grid-template-columns: repeat(2, 1fr); gap: 15px; }
.info-item { display: flex; flex-direction: column; }
.info-item .label {
  font-size: 12px; color: #666; text-transform: uppercase;
  letter-spacing: 0.5px; margin-bottom: 4px;
}
.info-item .value { font-size: 14px; color: #1a1a2e; font-weight: 500; }
.summary-text {
  line-height: 1.8; color: #444; font-size: 15px;
  background: #f8f9fa; padding: 20px; border-radius: 10px;
}
.issue-list { list-style: none; }
.issue-item {
  background: #fff; border: 1px solid #eee; border-radius: 12px;
  padding: 20px; margin-bottom: 15px;
  box-shadow: 0 2px 8px rgba(0, 0, 0, 0.05);
}
.issue-header { display: flex; align-items: center; margin-bottom: 12px; }
.severity-badge {
  display: inline-block; padding: 4px 12px; border-radius: 20px;
  font-size: 12px; font-weight: 600; text-transform: uppercase; margin-right: 12px;
}
.severity-badge.low { background: #fff3cd; color: #856404; }
.severity-badge.medium { background: #ffeaa7; color: #9a7b00; }
.severity-badge.high { background: #f8d7da; color: #721c24; }
.severity-badge.critical { background: #dc3545; color: white; }
.issue-category { font-size: 14px; color: #666; }
.issue-timestamp {
  margin-left: auto; font-size: 13px; color: #888;
  background: #f0f0f0; padding: 4px 10px; border-radius: 15px;
}
.issue-description { font-size: 15px; color: #333; line-height: 1.6; margin-bottom: 12px; }
.issue-suggestion {
  font-size: 14px; color: #666; background: #f8f9fa; padding: 12px;
  border-radius: 8px; border-left: 3px solid #667eea;
}
.issue-suggestion strong { color: #667eea; }
.evidence-missing { font-size: 13px; color: #999; font-style: italic; margin-top: 10px; }
.screenshot { margin-top: 15px; }
.screenshot img { max-width: 100%; border-radius: 8px; border: 1px solid #eee; }
.no-issues {
  text-align: center; padding: 40px; background: #d4edda;
  border-radius: 12px; color: #155724;
}
.no-issues .icon { font-size: 48px; margin-bottom: 15px; }
.footer { text-align: center; padding: 20px; color: #888; font-size: 12px; background: #f8f9fa; }
</style>
</head>
<body>
<div class="container">
  <div class="header">
    <h1>{{.CompanyName}}</h1>
    <p class="subtitle">Video Review Report</p>
  </div>

  <div class="score-section">
    <div class="score-circle {{if .Passed}}pass{{else}}fail{{end}}">
      <span class="score">{{.Score}}</span>
      <span class="label">Overall Score</span>
    </div>
    <div class="status-badge">
      <span class="badge {{if .Passed}}pass{{else}}fail{{end}}">
        {{if .Passed}}&#10003; {{.Verdict}}{{else}}&#10007; {{.Verdict}}{{end}}
      </span>
      <p>{{.IssueCount}} issue(s) found</p>
    </div>
  </div>

  <div class="section">
    <h2 class="section-title">Video</h2>
    <div class="info-grid">
      <div class="info-item"><span class="label">Filename</span><span class="value">{{.Filename}}</span></div>
      <div class="info-item"><span class="label">Duration</span><span class="value">{{.Duration}}</span></div>
      <div class="info-item"><span class="label">Resolution</span><span class="value">{{.Resolution}}</span></div>
      <div class="info-item"><span class="label">Reviewed</span><span class="value">{{.ReviewTime}}</span></div>
      <div class="info-item"><span class="label">Provider</span><span class="value">{{.Provider}}</span></div>
      <div class="info-item"><span class="label">Model</span><span class="value">{{.Model}}</span></div>
    </div>
  </div>

  {{if .Summary}}
  <div class="section">
    <h2 class="section-title">Summary</h2>
    <div class="summary-text">{{.Summary}}</div>
  </div>
  {{end}}

  <div class="section">
    <h2 class="section-title">Issues</h2>
    {{if .Issues}}
    <ul class="issue-list">
      {{range .Issues}}
      <li class="issue-item">
        <div class="issue-header">
          <span class="severity-badge {{.Severity}}">{{.SeverityLabel}}</span>
          <span class="issue-category">{{.Category}}</span>
          <span class="issue-timestamp">&#9201; {{.TimeLabel}}</span>
        </div>
        <div class="issue-description">{{.Description}}</div>
        {{if .SuggestedFix}}
        <div class="issue-suggestion"><strong>Suggestion:</strong> {{.SuggestedFix}}</div>
        {{end}}
        {{if .ScreenshotURL}}
        <div class="screenshot"><img src="{{.ScreenshotURL}}" alt="Issue screenshot"></div>
        {{else if .Unavailable}}
        <div class="evidence-missing">Evidence unavailable for this issue.</div>
        {{end}}
      </li>
      {{end}}
    </ul>
    {{else}}
    <div class="no-issues">
      <div class="icon">&#127881;</div>
      <p><strong>No issues found.</strong></p>
      <p>The video meets all review criteria.</p>
    </div>
    {{end}}
  </div>

  <div class="footer">Generated automatically &middot; {{.ReviewTime}}</div>
</div>
</body>
</html>
`

package diagnose

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// CheckStatus 检查状态
type CheckStatus string

const (
	StatusPass    CheckStatus = "pass"
	StatusFail    CheckStatus = "fail"
	StatusWarning CheckStatus = "warning"
	StatusSkipped CheckStatus = "skipped"
)

// CheckResult 单项检查结果
type CheckResult struct {
	Name    string      `json:"name"`
	Status  CheckStatus `json:"status"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details any         `json:"details,omitempty"`
}

// Report 诊断报告（JSON 格式）
type Report struct {
	Timestamp time.Time     `json:"timestamp"`
	Type      string        `json:"type"` // "capture" 或 "sni"
	Status    CheckStatus   `json:"status"`
	Summary   string        `json:"summary"`
	Checks    []CheckResult `json:"checks"`
	System    *SystemInfo   `json:"system,omitempty"`
}

// NewReport 创建诊断报告
func NewReport(reportType string) *Report {
	return &Report{
		Timestamp: time.Now(),
		Type:      reportType,
		Status:    StatusPass,
		Checks:    make([]CheckResult, 0),
	}
}

// AddCheck 添加检查结果
func (r *Report) AddCheck(name string, status CheckStatus, message string) {
	r.add(CheckResult{Name: name, Status: status, Message: message})
}

// AddCheckWithError 添加带错误的检查结果
func (r *Report) AddCheckWithError(name string, status CheckStatus, message string, err error) {
	check := CheckResult{Name: name, Status: status, Message: message}
	if err != nil {
		check.Error = err.Error()
	}
	r.add(check)
}

// AddCheckWithDetails 添加带详细信息的检查结果
func (r *Report) AddCheckWithDetails(name string, status CheckStatus, message string, details any) {
	r.add(CheckResult{Name: name, Status: status, Message: message, Details: details})
}

func (r *Report) add(check CheckResult) {
	r.Checks = append(r.Checks, check)
	switch {
	case check.Status == StatusFail:
		r.Status = StatusFail
	case check.Status == StatusWarning && r.Status != StatusFail:
		r.Status = StatusWarning
	}
}

// Failed 是否存在失败项
func (r *Report) Failed() bool {
	return r.Status == StatusFail
}

// summarize 按检查结果生成摘要
func (r *Report) summarize(okText string) {
	var pass, warn int
	var failed []string
	for _, check := range r.Checks {
		switch check.Status {
		case StatusPass:
			pass++
		case StatusWarning:
			warn++
		case StatusFail:
			failed = append(failed, check.Name)
		}
	}

	switch {
	case len(failed) == 0 && warn == 0:
		r.Summary = fmt.Sprintf("所有 %d 项检查通过，%s", pass, okText)
	case len(failed) == 0:
		r.Summary = fmt.Sprintf("%d 项通过，%d 项警告", pass, warn)
	default:
		r.Summary = fmt.Sprintf("%d 项失败，%d 项警告。失败项: %v", len(failed), warn, failed)
	}
}

// WriteJSON 输出 JSON
func (r *Report) WriteJSON(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

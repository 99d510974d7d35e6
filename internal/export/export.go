package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"go.uber.org/multierr"

	"github.com/nickproject/sniwatch/internal/aggregator"
)

// Format 导出格式
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// Report 退出时导出的最后一个周期的统计
type Report struct {
	Timestamp time.Time          `json:"timestamp"`
	Duration  time.Duration      `json:"duration"`
	Device    string             `json:"device"`
	Total     aggregator.Group   `json:"total"`
	Hosts     []aggregator.Group `json:"hosts"`
}

// NewReport 由分组生成报告
func NewReport(device string, started time.Time, groups []aggregator.Group) *Report {
	now := time.Now()
	return &Report{
		Timestamp: now,
		Duration:  now.Sub(started).Round(time.Second),
		Device:    device,
		Total:     aggregator.Totals(groups),
		Hosts:     groups,
	}
}

// Export 导出报告到文件
func Export(report *Report, filename string, format Format) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("创建文件失败: %w", err)
	}
	defer func() {
		err = multierr.Append(err, file.Close())
	}()
	return Write(file, report, format)
}

// Write 按格式写出报告
func Write(w io.Writer, report *Report, format Format) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, report)
	case FormatCSV:
		return writeCSV(w, report)
	default:
		return fmt.Errorf("不支持的格式: %s", format)
	}
}

func writeJSON(w io.Writer, report *Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func writeCSV(w io.Writer, report *Report) error {
	writer := csv.NewWriter(w)

	headers := []string{
		"hostname",
		"connections",
		"sent_bytes_s",
		"received_bytes_s",
		"total_sent_bytes",
		"total_received_bytes",
	}
	if err := writer.Write(headers); err != nil {
		return err
	}

	for _, g := range report.Hosts {
		row := []string{
			g.Hostname,
			strconv.Itoa(g.Conns),
			strconv.FormatUint(g.Sent, 10),
			strconv.FormatUint(g.Received, 10),
			strconv.FormatUint(g.TotalSent, 10),
			strconv.FormatUint(g.TotalReceived, 10),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// ParseFormat 解析格式字符串
func ParseFormat(s string) (Format, error) {
	switch s {
	case "json", "JSON":
		return FormatJSON, nil
	case "csv", "CSV":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("不支持的格式: %s (支持: json, csv)", s)
	}
}

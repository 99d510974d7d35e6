package config

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// Config 应用配置
type Config struct {
	Device  string        `mapstructure:"device"`
	Capture CaptureConfig `mapstructure:"capture"`
	Filter  FilterConfig  `mapstructure:"filter"`
	Display DisplayConfig `mapstructure:"display"`
	Logging LogConfig     `mapstructure:"logging"`
	Output  OutputConfig  `mapstructure:"output"`
}

// CaptureConfig 抓包配置
type CaptureConfig struct {
	Backend     string        `mapstructure:"backend"`
	BPF         string        `mapstructure:"bpf"`
	SnapLen     int           `mapstructure:"snaplen"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	Promisc     bool          `mapstructure:"promisc"`
}

// FilterConfig 域名显示过滤
type FilterConfig struct {
	IncludeDomains []string `mapstructure:"include_domains"`
	ExcludeDomains []string `mapstructure:"exclude_domains"`
}

// DisplayConfig 显示配置
type DisplayConfig struct {
	Refresh    time.Duration `mapstructure:"refresh"`
	StallLimit int           `mapstructure:"stall_limit"`
	Columns    int           `mapstructure:"columns"` // 纯文本模式的行宽
}

// LogConfig 日志配置
type LogConfig struct {
	Level     string `mapstructure:"level"`
	File      string `mapstructure:"file"`
	MaxSizeMB int    `mapstructure:"max_size_mb"`
	MaxFiles  int    `mapstructure:"max_files"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	Duration time.Duration `mapstructure:"duration"`
	File     string        `mapstructure:"file"`
	Format   string        `mapstructure:"format"`
	NoTUI    bool          `mapstructure:"no_tui"`
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Device: "any",
		Capture: CaptureConfig{
			Backend:     "pcap",
			BPF:         "tcp port 443",
			SnapLen:     65535,
			ReadTimeout: 100 * time.Millisecond,
			Promisc:     false,
		},
		Display: DisplayConfig{
			Refresh:    time.Second,
			StallLimit: 10,
			Columns:    120,
		},
		Logging: LogConfig{
			Level:     "warn",
			File:      "/var/log/sniwatch/sniwatch.log",
			MaxSizeMB: 10,
			MaxFiles:  3,
		},
		Output: OutputConfig{
			Duration: 0, // 0 表示持续运行
			File:     "",
			Format:   "json",
			NoTUI:    false,
		},
	}
}

var errInvalid = errors.New("配置无效")

// Validate 检查配置，返回所有问题
func (c *Config) Validate() error {
	var err error
	if c.Device == "" {
		err = multierr.Append(err, fmt.Errorf("%w: device 不能为空", errInvalid))
	}
	switch c.Capture.Backend {
	case "pcap", "afpacket":
	default:
		err = multierr.Append(err, fmt.Errorf("%w: 未知的抓包后端 %q (支持: pcap, afpacket)", errInvalid, c.Capture.Backend))
	}
	if c.Display.Refresh <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: display.refresh 必须大于 0", errInvalid))
	}
	if c.Display.StallLimit < 1 {
		err = multierr.Append(err, fmt.Errorf("%w: display.stall_limit 不能小于 1", errInvalid))
	}
	switch c.Output.Format {
	case "json", "JSON", "csv", "CSV":
	default:
		err = multierr.Append(err, fmt.Errorf("%w: 不支持的导出格式 %q (支持: json, csv)", errInvalid, c.Output.Format))
	}
	if c.Output.Duration < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: output.duration 不能为负数", errInvalid))
	}
	return err
}

// IsInvalid 判断错误是否来自 Validate
func IsInvalid(err error) bool {
	return errors.Is(err, errInvalid)
}

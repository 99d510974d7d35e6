package diagnose

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/nickproject/sniwatch/internal/aggregator"
	"github.com/nickproject/sniwatch/internal/capture"
	"github.com/nickproject/sniwatch/internal/monitor"
)

// SNIConfig SNI 自检配置
type SNIConfig struct {
	TestDomain string        // 测试域名，默认 cloudflare.com
	Timeout    time.Duration // 请求后等待抓包的时间
	Capture    capture.Config
}

// DefaultSNIConfig 默认 SNI 自检配置
func DefaultSNIConfig() SNIConfig {
	return SNIConfig{
		TestDomain: "cloudflare.com",
		Timeout:    3 * time.Second,
	}
}

// RunSNI 打开抓包，发起一次 HTTPS 请求，检查是否识别到测试域名
func RunSNI(cfg SNIConfig) *Report {
	if cfg.TestDomain == "" {
		cfg.TestDomain = DefaultSNIConfig().TestDomain
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultSNIConfig().Timeout
	}

	report := NewReport("sni")
	report.System = CollectSystemInfo()

	src, err := capture.New(cfg.Capture)
	if err != nil {
		report.AddCheckWithError("capture_open", StatusFail, "无法打开抓包", err)
		report.summarize("")
		return report
	}
	defer src.Close()
	report.AddCheck("capture_open", StatusPass,
		fmt.Sprintf("已打开 %s 抓包 (%s)", cfg.Capture.Device, src.LinkType()))

	table := aggregator.NewTable()
	producer, err := monitor.NewProducer(src, table)
	if err != nil {
		report.AddCheckWithError("linktype", StatusFail, "不支持的数据链路类型", err)
		report.summarize("")
		return report
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- producer.Run(ctx) }()

	if err := makeHTTPSRequest(cfg.TestDomain); err != nil {
		report.AddCheckWithError("https_request", StatusWarning,
			fmt.Sprintf("HTTPS 请求 %s 失败", cfg.TestDomain), err)
	} else {
		report.AddCheck("https_request", StatusPass,
			fmt.Sprintf("HTTPS 请求 %s 成功", cfg.TestDomain))
	}

	deadline := time.Now().Add(cfg.Timeout)
	var seen []aggregator.Group
	for time.Now().Before(deadline) {
		seen = aggregator.Summarize(table.Rotate(1 << 30))
		if findHost(seen, cfg.TestDomain) != nil {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	cancel()
	runErr := <-done

	stats := producer.Stats()
	if runErr != nil {
		report.AddCheckWithError("capture_read", StatusFail, "读取数据帧失败", runErr)
	} else if stats.Frames == 0 {
		report.AddCheck("capture_read", StatusFail, "未捕获到任何 443 端口的数据帧")
	} else {
		report.AddCheckWithDetails("capture_read", StatusPass,
			fmt.Sprintf("捕获到 %d 个数据帧", stats.Frames), stats)
	}

	if g := findHost(seen, cfg.TestDomain); g != nil {
		report.AddCheckWithDetails("sni_parse", StatusPass,
			fmt.Sprintf("成功识别 SNI: %s", g.Hostname), g)
	} else if stats.Hellos > 0 || stats.SNIMisses > 0 {
		report.AddCheckWithDetails("sni_parse", StatusFail,
			fmt.Sprintf("捕获到 ClientHello 但未识别到 %s", cfg.TestDomain), hostnames(seen))
	} else {
		report.AddCheck("sni_parse", StatusSkipped, "未捕获到 ClientHello，跳过 SNI 检查")
	}

	report.summarize("SNI 识别功能正常")
	return report
}

func findHost(groups []aggregator.Group, domain string) *aggregator.Group {
	for i := range groups {
		if strings.EqualFold(groups[i].Hostname, domain) {
			return &groups[i]
		}
	}
	return nil
}

func hostnames(groups []aggregator.Group) []string {
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Hostname)
	}
	return names
}

func makeHTTPSRequest(domain string) error {
	client := &http.Client{
		Timeout: 5 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{ServerName: domain},
			DialContext: (&net.Dialer{
				Timeout: 3 * time.Second,
			}).DialContext,
			// 每次都建立新连接，确保发出 ClientHello
			DisableKeepAlives: true,
		},
	}

	resp, err := client.Get("https://" + domain + "/")
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

package diagnose

import (
	"fmt"
	"runtime"

	"github.com/nickproject/sniwatch/internal/capture"
)

// RunCapture 检查抓包环境：权限、网卡、libpcap、eBPF 套接字过滤器，并尝试打开抓包
func RunCapture(cfg capture.Config) *Report {
	report := NewReport("capture")
	report.System = CollectSystemInfo()

	if report.System.CanCapture() {
		report.AddCheck("permissions", StatusPass,
			fmt.Sprintf("具备抓包权限 (EUID=%d)", report.System.EUID))
	} else {
		report.AddCheck("permissions", StatusFail,
			fmt.Sprintf("权限不足: EUID=%d, CAP_NET_RAW=%v，请使用 root 或 setcap cap_net_raw+ep",
				report.System.EUID, report.System.HasCapRaw))
	}

	if n := len(report.System.Interfaces); n > 0 {
		report.AddCheckWithDetails("interfaces", StatusPass,
			fmt.Sprintf("发现 %d 个可用网卡", n), report.System.Interfaces)
	} else {
		report.AddCheck("interfaces", StatusWarning, "没有发现可用的物理网卡")
	}

	report.AddCheck("libpcap", StatusPass, capture.PcapVersion())

	if runtime.GOOS != "linux" {
		report.AddCheck("ebpf_socket_filter", StatusSkipped, "eBPF 套接字过滤器仅支持 Linux")
	} else if err := capture.ProbeSocketFilter(); err != nil {
		status := StatusWarning
		if cfg.Backend == capture.BackendAFPacket {
			status = StatusFail
		}
		report.AddCheckWithError("ebpf_socket_filter", status, "无法加载 eBPF 套接字过滤器", err)
	} else {
		report.AddCheck("ebpf_socket_filter", StatusPass, "eBPF 套接字过滤器加载成功")
	}

	src, err := capture.New(cfg)
	if err != nil {
		report.AddCheckWithError("capture_open", StatusFail,
			fmt.Sprintf("无法在 %s 上打开 %s 抓包", cfg.Device, cfg.Backend), err)
	} else {
		report.AddCheckWithDetails("capture_open", StatusPass,
			fmt.Sprintf("已打开 %s 抓包", cfg.Device),
			map[string]any{"linktype": src.LinkType().String()})
		_ = src.Close()
	}

	report.summarize("可以开始抓包")
	return report
}

package diagnose

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/nickproject/sniwatch/internal/capture"
)

// capability 编号
const (
	capNetAdmin = 12
	capNetRaw   = 13
	capSysAdmin = 21
	capBPF      = 39
)

// SystemInfo 系统信息
type SystemInfo struct {
	Kernel      string   `json:"kernel"`
	Arch        string   `json:"arch"`
	Hostname    string   `json:"hostname"`
	Interfaces  []string `json:"interfaces,omitempty"`
	UID         int      `json:"uid"`
	EUID        int      `json:"euid"`
	CapEff      string   `json:"cap_eff,omitempty"`
	HasCapRaw   bool     `json:"has_cap_net_raw"`
	HasCapBPF   bool     `json:"has_cap_bpf"`
	HasCapAdmin bool     `json:"has_cap_admin"`
}

// CollectSystemInfo 收集系统信息
func CollectSystemInfo() *SystemInfo {
	hostname, _ := os.Hostname()
	info := &SystemInfo{
		Kernel:   kernelRelease(),
		Arch:     runtime.GOARCH,
		Hostname: hostname,
		UID:      os.Getuid(),
		EUID:     os.Geteuid(),
	}
	info.Interfaces, _ = capture.DiscoverInterfaces(nil)

	if f, err := os.Open("/proc/self/status"); err == nil {
		info.CapEff = parseCapEff(f)
		f.Close()
	}
	if capVal, err := strconv.ParseUint(info.CapEff, 16, 64); err == nil {
		info.HasCapRaw = capVal&(1<<capNetRaw) != 0
		info.HasCapBPF = capVal&(1<<capBPF) != 0
		info.HasCapAdmin = capVal&(1<<capSysAdmin) != 0 || capVal&(1<<capNetAdmin) != 0
	}
	return info
}

// CanCapture 是否具备抓包权限
func (s *SystemInfo) CanCapture() bool {
	return s.EUID == 0 || s.HasCapRaw
}

func kernelRelease() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "unknown"
	}
	return string(bytes.TrimRight(uts.Sysname[:], "\x00")) + " " +
		string(bytes.TrimRight(uts.Release[:], "\x00"))
}

// parseCapEff 从 /proc/<pid>/status 中读取 CapEff
func parseCapEff(r io.Reader) string {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "CapEff:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "CapEff:"))
		}
	}
	return ""
}

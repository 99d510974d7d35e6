//go:build !linux

package capture

import (
	"fmt"
	"runtime"
)

// ProbeSocketFilter 非 Linux 平台不支持 eBPF 套接字过滤器
func ProbeSocketFilter() error {
	return fmt.Errorf("eBPF 套接字过滤器仅支持 Linux (%s)", runtime.GOOS)
}

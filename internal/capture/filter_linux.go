//go:build linux

package capture

import (
	"fmt"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/asm"
	"github.com/cilium/ebpf/rlimit"

	"github.com/nickproject/sniwatch/internal/packet"
)

// 以太网帧内的偏移
const (
	offEtherType = 12
	offIPv4      = 14
	offIPv4Frag  = offIPv4 + 6
	offIPv4Proto = offIPv4 + 9
	offIPv6Next  = offIPv4 + 6
	offIPv6TCP   = offIPv4 + 40
)

// socketFilterInsns 只放行源或目的端口为 443 的 IPv4/IPv6 TCP 帧。
// LD_ABS/LD_IND 要求 R6 保存 skb 上下文，结果为主机字节序。
func socketFilterInsns() asm.Instructions {
	const port = packet.HTTPSPort
	return asm.Instructions{
		asm.Mov.Reg(asm.R6, asm.R1),
		asm.LoadAbs(offEtherType, asm.Half),
		asm.JEq.Imm(asm.R0, 0x0800, "ipv4"),
		asm.JEq.Imm(asm.R0, 0x86dd, "ipv6"),
		asm.Ja.Label("drop"),

		asm.LoadAbs(offIPv4Proto, asm.Byte).WithSymbol("ipv4"),
		asm.JNE.Imm(asm.R0, 6, "drop"),
		// 非首个分片没有 TCP 头
		asm.LoadAbs(offIPv4Frag, asm.Half),
		asm.JSet.Imm(asm.R0, 0x1fff, "drop"),
		asm.LoadAbs(offIPv4, asm.Byte),
		asm.And.Imm(asm.R0, 0x0f),
		asm.LSh.Imm(asm.R0, 2),
		asm.Mov.Reg(asm.R7, asm.R0),
		asm.LoadInd(asm.R0, asm.R7, offIPv4, asm.Half),
		asm.JEq.Imm(asm.R0, port, "accept"),
		asm.LoadInd(asm.R0, asm.R7, offIPv4+2, asm.Half),
		asm.JEq.Imm(asm.R0, port, "accept"),
		asm.Ja.Label("drop"),

		asm.LoadAbs(offIPv6Next, asm.Byte).WithSymbol("ipv6"),
		asm.JNE.Imm(asm.R0, 6, "drop"),
		asm.LoadAbs(offIPv6TCP, asm.Half),
		asm.JEq.Imm(asm.R0, port, "accept"),
		asm.LoadAbs(offIPv6TCP+2, asm.Half),
		asm.JEq.Imm(asm.R0, port, "accept"),

		asm.Mov.Imm(asm.R0, 0).WithSymbol("drop"),
		asm.Return(),
		asm.Mov.Imm(asm.R0, -1).WithSymbol("accept"),
		asm.Return(),
	}
}

// LoadSocketFilter 加载 443 端口的套接字过滤器
func LoadSocketFilter() (*ebpf.Program, error) {
	if err := rlimit.RemoveMemlock(); err != nil {
		return nil, fmt.Errorf("移除 memlock 限制失败: %w", err)
	}

	prog, err := ebpf.NewProgram(&ebpf.ProgramSpec{
		Name:         "sniwatch_443",
		Type:         ebpf.SocketFilter,
		License:      "GPL",
		Instructions: socketFilterInsns(),
	})
	if err != nil {
		return nil, fmt.Errorf("加载 eBPF 套接字过滤器失败: %w", err)
	}
	return prog, nil
}

// ProbeSocketFilter 检查当前环境能否加载套接字过滤器
func ProbeSocketFilter() error {
	prog, err := LoadSocketFilter()
	if err != nil {
		return err
	}
	return prog.Close()
}

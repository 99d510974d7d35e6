//go:build linux

package capture

import (
	"fmt"
	"net"

	"github.com/vishvananda/netlink"
)

// 非物理链路类型
var virtualLinkTypes = map[string]bool{
	"veth":   true,
	"bridge": true,
	"dummy":  true,
	"tun":    true,
	"vxlan":  true,
	"ipip":   true,
	"gre":    true,
}

func listInterfaces() ([]ifaceInfo, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, fmt.Errorf("netlink 获取网卡列表失败: %w", err)
	}

	result := make([]ifaceInfo, 0, len(links))
	for _, link := range links {
		attrs := link.Attrs()
		result = append(result, ifaceInfo{
			name:     attrs.Name,
			up:       attrs.Flags&net.FlagUp != 0,
			loopback: attrs.Flags&net.FlagLoopback != 0,
			virtual:  virtualLinkTypes[link.Type()],
		})
	}
	return result, nil
}

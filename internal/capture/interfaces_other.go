//go:build !linux

package capture

import "net"

func listInterfaces() ([]ifaceInfo, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	result := make([]ifaceInfo, 0, len(ifaces))
	for _, iface := range ifaces {
		result = append(result, ifaceInfo{
			name:     iface.Name,
			up:       iface.Flags&net.FlagUp != 0,
			loopback: iface.Flags&net.FlagLoopback != 0,
		})
	}
	return result, nil
}

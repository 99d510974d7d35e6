package capture

import (
	"strings"
)

// DiscoverInterfaces 发现可用网卡；指定了网卡时原样返回
func DiscoverInterfaces(specified []string) ([]string, error) {
	if len(specified) > 0 {
		return specified, nil
	}

	ifaces, err := listInterfaces()
	if err != nil {
		return nil, err
	}
	return usableInterfaces(ifaces), nil
}

func usableInterfaces(ifaces []ifaceInfo) []string {
	var result []string
	for _, iface := range ifaces {
		if iface.loopback || !iface.up || iface.virtual {
			continue
		}
		if shouldSkipInterface(iface.name) {
			continue
		}
		result = append(result, iface.name)
	}
	return result
}

type ifaceInfo struct {
	name     string
	up       bool
	loopback bool
	virtual  bool
}

func shouldSkipInterface(name string) bool {
	skipPrefixes := []string{
		"lo",      // loopback
		"docker",  // docker
		"br-",     // docker bridge
		"veth",    // docker veth
		"virbr",   // libvirt bridge
		"vmnet",   // vmware
		"vboxnet", // virtualbox
		"cni",     // kubernetes cni
		"flannel", // flannel
		"cali",    // calico
		"utun",    // macOS utun
		"awdl",    // macOS awdl
		"llw",     // macOS llw
		"bridge",  // macOS bridge
		"gif",     // macOS gif
		"stf",     // macOS stf
		"anpi",    // macOS anpi
	}

	nameLower := strings.ToLower(name)
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(nameLower, prefix) {
			return true
		}
	}
	return false
}

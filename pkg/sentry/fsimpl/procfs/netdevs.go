package procfs

import (
	"net"

	"github.com/vishvananda/netlink"
)

// deviceInfo is one network interface's addressing summary, rendered into
// /proc/netinfo (spec.md §1's "an interface directory listing" — the one
// networking surface this control plane keeps in scope).
type deviceInfo struct {
	Name     string
	MAC      net.HardwareAddr
	MTU      int
	OperState string
	IPv4Addr net.IP
	IPv6Addr net.IP
}

// collectDeviceInfo enumerates real host interfaces through netlink rather
// than shelling out to and regex-parsing `ip addr show`: netlink already
// hands back structured link and address records, so there is no text to
// parse.
func collectDeviceInfo() ([]deviceInfo, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, err
	}
	out := make([]deviceInfo, 0, len(links))
	for _, l := range links {
		attrs := l.Attrs()
		info := deviceInfo{
			Name:      attrs.Name,
			MAC:       attrs.HardwareAddr,
			MTU:       attrs.MTU,
			OperState: attrs.OperState.String(),
		}
		addrs, err := netlink.AddrList(l, netlink.FAMILY_ALL)
		if err == nil {
			for _, a := range addrs {
				if a.IP.To4() != nil && info.IPv4Addr == nil {
					info.IPv4Addr = a.IP
				} else if a.IP.To4() == nil && info.IPv6Addr == nil {
					info.IPv6Addr = a.IP
				}
			}
		}
		out = append(out, info)
	}
	return out, nil
}

/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package dscp marks outbound NTP poll datagrams with a DSCP code point so
// they get consistent QoS treatment across the network.
package dscp

import (
	"net"

	"golang.org/x/sys/unix"
)

// Enable sets the outbound DSCP code point on fd for the address family
// implied by localAddr. dscp is the 6-bit DiffServ code point; it is
// shifted left two bits into the IP_TOS/IPV6_TCLASS field, which also
// carries the 2-bit ECN field in its low bits.
func Enable(fd int, localAddr net.IP, dscp int) error {
	if localAddr.To4() == nil {
		return unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_TCLASS, dscp<<2)
	}
	return unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_TOS, dscp<<2)
}

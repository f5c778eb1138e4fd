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

package daemon

import (
	log "github.com/sirupsen/logrus"

	"github.com/facebook/ntpd/ntp/protocol"
)

// acceptPacket is the packet acceptor (§4.4): a pure function over a recv
// result that validates size and timestamp presence before the bytes are
// trusted as an NtpHeader. Bytes beyond the 48-byte header are silently
// ignored — this core does not support extension fields.
func acceptPacket(n int, recvErr error, recvTimestamp *protocol.NtpTimestamp, buf []byte) (*protocol.Packet, protocol.NtpTimestamp, bool) {
	if recvErr != nil {
		log.Warningf("socket recv error: %v", recvErr)
		return nil, 0, false
	}
	if recvTimestamp == nil {
		log.Warningf("dropping packet with no kernel receive timestamp")
		return nil, 0, false
	}
	if n < protocol.PacketSizeBytes {
		log.Warningf("dropping short packet: %d bytes", n)
		return nil, 0, false
	}
	pkt, err := protocol.BytesToPacket(buf[:protocol.PacketSizeBytes])
	if err != nil {
		log.Warningf("failed to parse packet: %v", err)
		return nil, 0, false
	}
	return pkt, *recvTimestamp, true
}

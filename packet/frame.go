package packet

/*
   Copyright 2018 Bruno Moura <brunotm@gmail.com>

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

import (
	"time"

	"github.com/cespare/xxhash"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Frame is the concrete packet type most graphs built on this runtime
// carry end to end: raw captured bytes plus the fields a link needs to
// route, hash or re-encode them without re-parsing on every hop. The
// core link primitives never reference Frame directly — they are generic
// over whatever packet type a graph chooses — but this is the one this
// module ships for anything speaking pcap in or out.
type Frame struct {
	id         uint64
	data       []byte
	capturedAt time.Time
	decoded    *gopacket.Packet
}

// NewFrame wraps data captured at ts. data is retained, not copied; call
// Clone before handing the same Frame to more than one Fork egress.
func NewFrame(data []byte, ts time.Time) Frame {
	return Frame{
		id:         xxhash.Sum64(data),
		data:       data,
		capturedAt: ts,
	}
}

// ID is a content hash of the frame's bytes, stable across Clone.
func (f Frame) ID() uint64 { return f.id }

// Bytes returns the frame's raw captured bytes.
func (f Frame) Bytes() []byte { return f.data }

// CapturedAt returns the capture timestamp, as recorded by FromPcap or
// supplied by the caller constructing synthetic frames.
func (f Frame) CapturedAt() time.Time { return f.capturedAt }

// Decoded lazily parses the frame as a gopacket.Packet rooted at
// linkType and caches the result; later calls on the same Frame value
// are free and return that first decode whatever linkType they pass.
// Frame does not record the capture's link type, so the caller supplies
// it (layers.LinkTypeEthernet for Ethernet captures).
func (f *Frame) Decoded(linkType layers.LinkType) gopacket.Packet {
	if f.decoded != nil {
		return *f.decoded
	}
	p := gopacket.NewPacket(f.data, linkType, gopacket.Lazy)
	f.decoded = &p
	return p
}

// FlowHash returns a hash stable for both directions of a TCP/UDP/IPv4
// flow: source/destination IP and port are sorted before hashing, so a
// request and its reply land on the same value. Frames without a decoded
// transport layer hash to their content ID instead, which still gives
// composite.Shard a deterministic (if per-frame) routing key.
func (f *Frame) FlowHash(linkType layers.LinkType) uint64 {
	pkt := f.Decoded(linkType)

	netLayer := pkt.NetworkLayer()
	transLayer := pkt.TransportLayer()
	if netLayer == nil || transLayer == nil {
		return f.id
	}

	src, dst := netLayer.NetworkFlow().Endpoints()
	srcPort, dstPort := transLayer.TransportFlow().Endpoints()

	a := src.Raw()
	b := dst.Raw()
	var lo, hi []byte
	var loPort, hiPort gopacket.Endpoint
	if string(a) <= string(b) {
		lo, hi = a, b
		loPort, hiPort = srcPort, dstPort
	} else {
		lo, hi = b, a
		loPort, hiPort = dstPort, srcPort
	}

	h := xxhash.New()
	h.Write(lo)
	h.Write([]byte(loPort.String()))
	h.Write(hi)
	h.Write([]byte(hiPort.String()))
	return h.Sum64()
}

// Clone returns an independent copy whose Bytes backing array is not
// shared with the receiver, for safe use across Fork egress ports. The
// decode cache is not copied: each clone re-decodes lazily on first use.
func (f Frame) Clone() Frame {
	data := make([]byte, len(f.data))
	copy(data, f.data)
	return Frame{
		id:         f.id,
		data:       data,
		capturedAt: f.capturedAt,
	}
}

package pcap

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
	"context"
	"io"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/routegraph/linkrt/link"
	"github.com/routegraph/linkrt/log"
	"github.com/routegraph/linkrt/packet"
	"github.com/routegraph/linkrt/types"
)

// Mode selects how a FromPcap link paces the frames it yields.
type Mode uint8

const (
	// Dump replays every frame in the source as fast as the egress is
	// drained, ignoring the gaps between original capture timestamps.
	Dump Mode = iota
	// Realtime preserves the inter-packet gaps recorded in the capture,
	// holding each frame back until wall-clock time since link start has
	// caught up with that frame's offset from the first capture timestamp.
	Realtime
)

func (m Mode) String() (name string) {
	switch m {
	case Dump:
		return "dump"
	case Realtime:
		return "realtime"
	}
	return "unknown"
}

// FromPcapBuilder assembles a FromPcap link: a pcap capture turned into a
// Stream of packet.Frame, with no Runnables of its own (reads happen
// lazily as the egress is pulled, like Process).
type FromPcapBuilder struct {
	mode   Mode
	reader io.Reader
}

// NewFromPcap starts a FromPcap link builder in Dump mode.
func NewFromPcap() *FromPcapBuilder {
	return &FromPcapBuilder{mode: Dump}
}

// Reader sets the capture source, typically an *os.File opened on a
// .pcap file.
func (b *FromPcapBuilder) Reader(r io.Reader) *FromPcapBuilder {
	b.reader = r
	return b
}

// ReplayMode selects between Dump and Realtime pacing.
func (b *FromPcapBuilder) ReplayMode(m Mode) *FromPcapBuilder {
	b.mode = m
	return b
}

// BuildLink returns the FromPcap link's Assembly: zero Runnables and one
// egress Stream of packet.Frame.
func (b *FromPcapBuilder) BuildLink() link.Assembly[packet.Frame] {
	if b.reader == nil {
		link.Panic(types.FromPcap, "missing reader")
	}
	r, err := pcapgo.NewReader(b.reader)
	if err != nil {
		link.Panic(types.FromPcap, "invalid pcap header: "+err.Error())
	}
	logger := log.New("link", "from_pcap", "shape", types.FromPcap.String(), "mode", b.mode.String())

	read := func() (packet.Frame, bool) {
		data, ci, err := r.ReadPacketData()
		if err == io.EOF {
			return packet.Frame{}, false
		}
		if err != nil {
			logger.Errorw("read failed, ending stream", "error", err)
			return packet.Frame{}, false
		}
		return packet.NewFrame(data, ci.Timestamp), true
	}

	var egress link.Stream[packet.Frame]
	switch b.mode {
	case Dump:
		egress = link.FromFunc(func(ctx context.Context) (packet.Frame, bool) {
			return read()
		})

	case Realtime:
		// The capture's timestamps are a relative schedule: frame i is due
		// at start + (ts[i] - ts[0]). Holding the frame back on a timer is
		// this runtime's version of the self-wake-and-yield-pending loop a
		// polled stream would run; the goroutine parks on the timer channel
		// instead of spinning.
		var started time.Time
		var capStart time.Time
		egress = link.FromFunc(func(ctx context.Context) (packet.Frame, bool) {
			f, ok := read()
			if !ok {
				return packet.Frame{}, false
			}
			if started.IsZero() {
				started = time.Now()
				capStart = f.CapturedAt()
			}
			due := started.Add(f.CapturedAt().Sub(capStart))
			if d := time.Until(due); d > 0 {
				timer := time.NewTimer(d)
				select {
				case <-timer.C:
				case <-ctx.Done():
					timer.Stop()
					return packet.Frame{}, false
				}
			}
			return f, true
		})

	default:
		link.Panic(types.FromPcap, "unknown replay mode")
	}

	return link.Assembly[packet.Frame]{Egressors: []link.Stream[packet.Frame]{egress}}
}

// ToPcapBuilder assembles a ToPcap link: an ingress Stream of
// packet.Frame written out as an Ethernet pcap capture via pcapgo.Writer.
// Each frame is stamped with the wall-clock elapsed since the link
// started, not with any timestamp it arrived carrying, so a capture of a
// replayed capture records the replay's actual pacing.
type ToPcapBuilder struct {
	ingress  link.Stream[packet.Frame]
	writer   io.Writer
	linkType layers.LinkType
	snaplen  uint32
}

// NewToPcap starts a ToPcap link builder.
func NewToPcap() *ToPcapBuilder {
	return &ToPcapBuilder{linkType: layers.LinkTypeEthernet, snaplen: 65536}
}

// Ingressor sets the single upstream of this link.
func (b *ToPcapBuilder) Ingressor(s link.Stream[packet.Frame]) *ToPcapBuilder {
	b.ingress = s
	return b
}

// Writer sets the destination, typically an *os.File.
func (b *ToPcapBuilder) Writer(w io.Writer) *ToPcapBuilder {
	b.writer = w
	return b
}

// LinkType overrides the Ethernet default in the pcap file header.
func (b *ToPcapBuilder) LinkType(lt layers.LinkType) *ToPcapBuilder {
	b.linkType = lt
	return b
}

// BuildLink returns the ToPcap link's Assembly: one Runnable, zero
// Egressors.
func (b *ToPcapBuilder) BuildLink() link.Assembly[packet.Frame] {
	if b.ingress == nil {
		link.Panic(types.ToPcap, "missing ingressor")
	}
	if b.writer == nil {
		link.Panic(types.ToPcap, "missing writer")
	}

	logger := log.New("link", "to_pcap", "shape", types.ToPcap.String())
	w := pcapgo.NewWriter(b.writer)
	if err := w.WriteFileHeader(b.snaplen, b.linkType); err != nil {
		link.Panic(types.ToPcap, "cannot write pcap header: "+err.Error())
	}

	sink := link.RunnableFunc(func(ctx context.Context) {
		start := time.Now()
		for {
			f, ok := b.ingress.Next(ctx)
			if !ok {
				return
			}
			data := f.Bytes()
			ci := gopacket.CaptureInfo{
				Timestamp:     time.Unix(0, 0).Add(time.Since(start)),
				CaptureLength: len(data),
				Length:        len(data),
			}
			if err := w.WritePacket(ci, data); err != nil {
				logger.Errorw("write failed, ending sink", "error", err)
				return
			}
		}
	})

	return link.Assembly[packet.Frame]{Runnables: []link.Runnable{sink}}
}

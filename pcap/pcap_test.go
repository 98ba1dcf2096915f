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
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routegraph/linkrt/linktest"
	"github.com/routegraph/linkrt/packet"
)

// capture serializes frames into an in-memory pcap, spacing their
// timestamps gap apart.
func capture(t *testing.T, frames [][]byte, gap time.Duration) []byte {
	buf := &bytes.Buffer{}
	w := pcapgo.NewWriter(buf)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))

	ts := time.Unix(1700000000, 0)
	for _, data := range frames {
		ci := gopacket.CaptureInfo{
			Timestamp:     ts,
			CaptureLength: len(data),
			Length:        len(data),
		}
		require.NoError(t, w.WritePacket(ci, data))
		ts = ts.Add(gap)
	}
	return buf.Bytes()
}

func testFrames() [][]byte {
	frames := make([][]byte, 5)
	for i := range frames {
		data := make([]byte, 60)
		for j := range data {
			data[j] = byte(i + j)
		}
		frames[i] = data
	}
	return frames
}

func payloads(frames []packet.Frame) (data [][]byte) {
	for _, f := range frames {
		data = append(data, f.Bytes())
	}
	return data
}

func TestFromPcapDump(t *testing.T) {
	raw := capture(t, testFrames(), time.Second)

	asm := NewFromPcap().Reader(bytes.NewReader(raw)).BuildLink()
	assert.Empty(t, asm.Runnables)
	assert.Len(t, asm.Egressors, 1)

	out := linktest.Collect(context.Background(), asm.Egressors[0])
	assert.Equal(t, testFrames(), payloads(out))

	// Dump mode replays a second apart capture without honoring the gaps,
	// so the original capture timestamps must still ride along on frames.
	assert.Equal(t, time.Second, out[1].CapturedAt().Sub(out[0].CapturedAt()))
}

func TestFromPcapRealtimePreservesGaps(t *testing.T) {
	raw := capture(t, testFrames()[:2], 60*time.Millisecond)

	asm := NewFromPcap().
		Reader(bytes.NewReader(raw)).
		ReplayMode(Realtime).
		BuildLink()

	start := time.Now()
	out := linktest.Collect(context.Background(), asm.Egressors[0])
	elapsed := time.Since(start)

	assert.Len(t, out, 2)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
}

func TestFromPcapRealtimeCancel(t *testing.T) {
	raw := capture(t, testFrames()[:2], time.Hour)

	asm := NewFromPcap().
		Reader(bytes.NewReader(raw)).
		ReplayMode(Realtime).
		BuildLink()

	ctx, cancel := context.WithCancel(context.Background())
	egress := asm.Egressors[0]

	_, ok := egress.Next(ctx)
	assert.True(t, ok)

	go cancel()
	_, ok = egress.Next(ctx)
	assert.False(t, ok)
}

func TestPcapRoundTrip(t *testing.T) {
	raw := capture(t, testFrames(), time.Second)

	// FromPcap(Dump) -> ToPcap -> FromPcap(Dump) must yield the same
	// packet sequence as reading the original capture.
	source := NewFromPcap().Reader(bytes.NewReader(raw)).BuildLink()

	rewritten := &bytes.Buffer{}
	sink := NewToPcap().
		Ingressor(source.Egressors[0]).
		Writer(rewritten).
		BuildLink()
	assert.Len(t, sink.Runnables, 1)
	assert.Empty(t, sink.Egressors)

	linktest.Spawn(context.Background(), sink.Runnables)()

	reread := NewFromPcap().Reader(bytes.NewReader(rewritten.Bytes())).BuildLink()
	out := linktest.Collect(context.Background(), reread.Egressors[0])
	assert.Equal(t, testFrames(), payloads(out))
}

func TestToPcapStampsWallClock(t *testing.T) {
	raw := capture(t, testFrames()[:2], time.Hour)

	source := NewFromPcap().Reader(bytes.NewReader(raw)).BuildLink()

	rewritten := &bytes.Buffer{}
	sink := NewToPcap().
		Ingressor(source.Egressors[0]).
		Writer(rewritten).
		BuildLink()
	linktest.Spawn(context.Background(), sink.Runnables)()

	// The rewritten capture's gaps reflect the dump-speed replay, not
	// the hour recorded in the source.
	reread := NewFromPcap().Reader(bytes.NewReader(rewritten.Bytes())).BuildLink()
	out := linktest.Collect(context.Background(), reread.Egressors[0])
	assert.Len(t, out, 2)
	assert.Less(t, out[1].CapturedAt().Sub(out[0].CapturedAt()), time.Second)
}

func TestFromPcapBuildPanics(t *testing.T) {
	assert.Panics(t, func() { NewFromPcap().BuildLink() })
	assert.Panics(t, func() {
		NewFromPcap().Reader(bytes.NewReader([]byte("not a pcap"))).BuildLink()
	})
}

func TestToPcapBuildPanics(t *testing.T) {
	raw := capture(t, testFrames(), time.Second)
	source := NewFromPcap().Reader(bytes.NewReader(raw)).BuildLink()

	assert.Panics(t, func() { NewToPcap().Writer(&bytes.Buffer{}).BuildLink() })
	assert.Panics(t, func() { NewToPcap().Ingressor(source.Egressors[0]).BuildLink() })
}

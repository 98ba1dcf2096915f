package types

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

// Shape identifies a primitive link shape in a graph.
type Shape uint8

func (s Shape) String() (name string) {
	switch s {
	case Process:
		return "process"
	case Queue:
		return "queue"
	case Classify:
		return "classify"
	case Fork:
		return "fork"
	case Join:
		return "join"
	case Drop:
		return "drop"
	case InputChannel:
		return "input_channel"
	case OutputChannel:
		return "output_channel"
	case FromPcap:
		return "from_pcap"
	case ToPcap:
		return "to_pcap"
	}
	return "unknown"
}

const (
	// Process is a stateless 1-to-1 transform with no internal queue.
	Process = Shape(0)
	// Queue is a 1-to-1 transform with a bounded buffer (task boundary).
	Queue = Shape(1)
	// Classify routes each packet to exactly one of N egress queues.
	Classify = Shape(2)
	// Fork clones each packet to all N egress queues.
	Fork = Shape(3)
	// Join fairly merges M ingress streams into one egress queue.
	Join = Shape(4)
	// Drop terminates a stream, optionally sample-dropping.
	Drop = Shape(5)
	// InputChannel bridges an external producer into the graph.
	InputChannel = Shape(6)
	// OutputChannel bridges the graph to an external consumer.
	OutputChannel = Shape(7)
	// FromPcap replays a pcap capture as an egress stream.
	FromPcap = Shape(8)
	// ToPcap writes an ingress stream out as a pcap capture.
	ToPcap = Shape(9)
)

// PollResult is the outcome of pulling on a Stream.
type PollResult uint8

const (
	// Ready means a packet was produced.
	Ready PollResult = iota
	// Pending means no packet is available yet, but the stream has not ended.
	Pending
	// Done means the stream is terminated; no more packets will ever arrive.
	Done
)

func (r PollResult) String() (name string) {
	switch r {
	case Ready:
		return "ready"
	case Pending:
		return "pending"
	case Done:
		return "done"
	}
	return "unknown"
}

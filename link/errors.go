package link

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
	"errors"

	"github.com/routegraph/linkrt/types"
)

// Graph-level errors, returned (not panicked) because they are about
// wiring names the caller supplied, not about a link's own configuration.
var (
	errDuplicateName   = errors.New("link: duplicate link name")
	errUnknownUpstream = errors.New("link: unknown upstream name")
	errEmptyName       = errors.New("link: name cannot be empty")
	errGraphRunning    = errors.New("link: graph already running")
	errGraphNotRunning = errors.New("link: graph not running")
)

// buildPanic reports a build-time misconfiguration the way spec.md §7
// requires: a panic naming the missing field, raised from build_link.
func buildPanic(shape string, reason string) {
	panic("link: " + shape + ": " + reason)
}

// Panic is buildPanic for link builders that live outside this package
// (pcap's FromPcap/ToPcap among them), taking a types.Shape directly
// instead of its pre-stringified name.
func Panic(shape types.Shape, reason string) {
	buildPanic(shape.String(), reason)
}

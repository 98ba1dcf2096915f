package link_test

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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/routegraph/linkrt/link"
	"github.com/routegraph/linkrt/linktest"
)

func TestConfigIsSet(t *testing.T) {
	c := link.NewConfig(nil)
	c.Set(5, "links.nat.queue_capacity")
	assert.True(t, c.IsSet("links.nat"), "links.nat")
	assert.True(t, c.IsSet("links.nat.queue_capacity"), "links.nat.queue_capacity")
	assert.False(t, c.IsSet("links.nat.num_egressors"), "links.nat.num_egressors")
}

func TestConfigSetGet(t *testing.T) {
	c := link.NewConfig(nil)

	c.Set("splitter", "links.splitter.name")
	assert.Equal(t, "splitter", c.Get("links.splitter.name").String("default"))

	c.Set(0.7, "links.sampler.drop_chance")
	assert.Equal(t, 0.7, c.Get("links.sampler.drop_chance").Float64(1))

	c.Set(100, "links.nat.queue_capacity")
	assert.Equal(t, 100, c.Get("links", "nat", "queue_capacity").Int(10))

	assert.Equal(t, 42, c.Get("links.absent.queue_capacity").Int(42))
}

func TestConfigFromDecodedTree(t *testing.T) {
	// The shape a JSON/YAML decoder produces.
	c := link.NewConfig(map[string]interface{}{
		"links": map[string]interface{}{
			"splitter": map[string]interface{}{
				"num_egressors":  "4",
				"queue_capacity": 32,
			},
		},
	})

	sub := c.Get("links.splitter")
	assert.Equal(t, 4, sub.Get("num_egressors").Int(1))
	assert.Equal(t, 32, sub.Get("queue_capacity").Int(10))

	m := c.Get("links").Map()
	assert.Contains(t, m, "splitter")
}

func TestConfigCoercionFailureKeepsDefault(t *testing.T) {
	c := link.NewConfig(nil)
	c.Set("not a number", "queue_capacity")
	assert.Equal(t, 10, c.Get("queue_capacity").Int(10))
}

func TestBuildersConfigure(t *testing.T) {
	c := link.NewConfig(map[string]interface{}{
		"queue_capacity": 3,
		"num_egressors":  2,
		"drop_chance":    0.0,
	})

	asm := link.NewFork[int]("tee").
		Ingressor(link.FromSlice(scenarioPackets())).
		WithCloner(intClone).
		Configure(c).
		BuildLink()

	assert.Len(t, asm.Egressors, 2)

	results := linktest.RunLink(context.Background(), asm)
	assert.Equal(t, scenarioPackets(), results[0])
	assert.Equal(t, scenarioPackets(), results[1])

	drop := link.NewDrop[int]().
		Ingressor(link.FromSlice(scenarioPackets())).
		Configure(c).
		BuildLink()

	out := linktest.Collect(context.Background(), drop.Egressors[0])
	assert.Equal(t, scenarioPackets(), out)
}

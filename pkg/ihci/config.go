package ihci

import "github.com/veccore/annengine/pkg/ann"

// Config holds the tunable parameters for an IHCI tree, passed at
// construction — there is no file or environment configuration inside
// the core (see §6).
type Config struct {
	// LeafCapacity bounds the number of vectors a leaf holds before it
	// splits.
	LeafCapacity int
	// RoutingMaxChildren bounds the fan-out of a routing node before it
	// splits in turn.
	RoutingMaxChildren int
	// LeafNeighborCount bounds the leaf-neighbor-graph degree.
	LeafNeighborCount int
	// RepairEveryInserts drains one repair every N inserts. Defaults to
	// LeafCapacity.
	RepairEveryInserts int
	// RepairQueueHighWatermark triggers one extra repair drain (insert-
	// time backpressure) when the queue grows past this size. Defaults
	// to RoutingMaxChildren * 8.
	RepairQueueHighWatermark int
	// RoutingWidth is the number of concurrent candidate paths kept
	// during multi-candidate descent.
	RoutingWidth int
}

// DefaultConfig returns the configuration named in §6.
func DefaultConfig() Config {
	return Config{
		LeafCapacity:             128,
		RoutingMaxChildren:       16,
		LeafNeighborCount:        8,
		RepairEveryInserts:       128,
		RepairQueueHighWatermark: 16 * 8,
		RoutingWidth:             2,
	}
}

func (c *Config) applyDefaults() {
	if c.LeafCapacity <= 0 {
		c.LeafCapacity = 128
	}
	if c.RoutingMaxChildren <= 0 {
		c.RoutingMaxChildren = 16
	}
	if c.LeafNeighborCount <= 0 {
		c.LeafNeighborCount = 8
	}
	if c.RepairEveryInserts <= 0 {
		c.RepairEveryInserts = c.LeafCapacity
	}
	if c.RepairQueueHighWatermark <= 0 {
		c.RepairQueueHighWatermark = c.RoutingMaxChildren * 8
	}
	if c.RoutingWidth <= 0 {
		c.RoutingWidth = 2
	}
}

func (c Config) validate() error {
	if c.LeafCapacity < 2 {
		return ann.ErrInvalidArgument("ihci: LeafCapacity must be >= 2, got %d", c.LeafCapacity)
	}
	if c.RoutingMaxChildren < 2 {
		return ann.ErrInvalidArgument("ihci: RoutingMaxChildren must be >= 2, got %d", c.RoutingMaxChildren)
	}
	if c.LeafNeighborCount < 1 {
		return ann.ErrInvalidArgument("ihci: LeafNeighborCount must be >= 1, got %d", c.LeafNeighborCount)
	}
	return nil
}

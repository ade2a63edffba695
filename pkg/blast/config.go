package blast

import "github.com/veccore/annengine/pkg/ann"

// Config holds the tunable parameters for a BLAST index, passed at
// construction — there is no file or environment configuration inside
// the core.
type Config struct {
	// BucketCapacity bounds the number of members (vectors, for a leaf
	// bucket; child buckets, for a routing bucket) before the bucket
	// triggers a BLAST reorganization.
	BucketCapacity int
	// OutgoingNeighborCount bounds a vector node's outgoing-edge degree.
	OutgoingNeighborCount int
	// NeighborHops bounds how far a BLAST reorganization walks the
	// neighbor graph from the chosen epicenter when collecting
	// candidates to relocate.
	NeighborHops int
	// WindowSize bounds how many buckets Insert's traversal records in
	// its window; the vectors in those buckets are the candidates a new
	// vector is linked to (up to OutgoingNeighborCount of them).
	WindowSize int
}

// DefaultConfig returns the baseline tuning used when a namespace does
// not override BLAST's parameters.
func DefaultConfig() Config {
	return Config{
		BucketCapacity:        128,
		OutgoingNeighborCount: 8,
		NeighborHops:          2,
		WindowSize:            4,
	}
}

func (c *Config) applyDefaults() {
	if c.BucketCapacity <= 0 {
		c.BucketCapacity = 128
	}
	if c.OutgoingNeighborCount <= 0 {
		c.OutgoingNeighborCount = 8
	}
	if c.NeighborHops <= 0 {
		c.NeighborHops = 2
	}
	if c.WindowSize <= 0 {
		c.WindowSize = 4
	}
}

func (c Config) validate() error {
	if c.BucketCapacity < 2 {
		return ann.ErrInvalidArgument("blast: BucketCapacity must be >= 2, got %d", c.BucketCapacity)
	}
	if c.OutgoingNeighborCount < 1 {
		return ann.ErrInvalidArgument("blast: OutgoingNeighborCount must be >= 1, got %d", c.OutgoingNeighborCount)
	}
	if c.WindowSize < 1 {
		return ann.ErrInvalidArgument("blast: WindowSize must be >= 1, got %d", c.WindowSize)
	}
	return nil
}

package id

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

// epochMillis is 2024-01-01T00:00:00Z. Every item, party and notification id
// is minted against it.
const epochMillis int64 = 1704067200000

var (
	node *snowflake.Node
	once sync.Once
)

// Init sets up the process-wide generator. nodeID must be unique per running
// server or worker replica. Later calls are no-ops.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		snowflake.Epoch = epochMillis
		node, err = snowflake.NewNode(nodeID)
		if err != nil {
			err = fmt.Errorf("snowflake node %d: %w", nodeID, err)
		}
	})
	return err
}

// New returns a time-ordered id. Init must have succeeded.
func New() int64 {
	return node.Generate().Int64()
}

// Parse reads a decimal id as it appears in paths and JSON strings. Zero and
// negative values are rejected.
func Parse(s string) (int64, error) {
	v, err := snowflake.ParseString(s)
	if err != nil {
		return 0, fmt.Errorf("parsing id %q: %w", s, err)
	}
	if v.Int64() <= 0 {
		return 0, fmt.Errorf("parsing id %q: must be positive", s)
	}
	return v.Int64(), nil
}

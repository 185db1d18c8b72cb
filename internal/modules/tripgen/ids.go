package tripgen

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// SnowflakeIDs hands out time-ordered ids that are unique per node. Each API
// instance must run with its own node id.
type SnowflakeIDs struct {
	node *snowflake.Node
}

func NewSnowflakeIDs(nodeID int64) (*SnowflakeIDs, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", nodeID, err)
	}
	return &SnowflakeIDs{node: node}, nil
}

func (s *SnowflakeIDs) NextID() string {
	return s.node.Generate().String()
}

package bootstrap

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"os"

	"github.com/jt828/wolam/pkg/snowflake"
	snowflakeImpl "github.com/jt828/wolam/pkg/snowflake/implementation"
)

// InitializeSnowflake derives the node id from hostname, or from the OS
// hostname when empty.
func InitializeSnowflake(hostname string) (snowflake.Snowflake, error) {
	if hostname == "" {
		h, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("resolve hostname: %w", err)
		}
		hostname = h
	}
	nodeID, err := PodNodeID(hostname)
	if err != nil {
		return nil, err
	}
	return snowflakeImpl.NewSnowflake(nodeID)
}

// PodNodeID maps a pod hostname onto the 10-bit snowflake node space.
func PodNodeID(hostname string) (int64, error) {
	if hostname == "" {
		return 0, fmt.Errorf("hostname is empty")
	}

	h := fnv.New64a()
	h.Write([]byte(hostname))
	nodeID := int64(binary.BigEndian.Uint64(h.Sum(nil)) % 1024)

	return nodeID, nil
}

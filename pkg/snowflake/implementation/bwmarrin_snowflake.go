package implementation

import (
	"fmt"

	bwmarrin "github.com/bwmarrin/snowflake"
	"github.com/jt828/wolam/pkg/apperror"
	"github.com/jt828/wolam/pkg/snowflake"
)

type bwmarrinSnowflake struct {
	node *bwmarrin.Node
}

func NewSnowflake(nodeID int64) (snowflake.Snowflake, error) {
	node, err := bwmarrin.NewNode(nodeID)
	if err != nil {
		return nil, err
	}
	return &bwmarrinSnowflake{node: node}, nil
}

func (s *bwmarrinSnowflake) Generate() int64 {
	return s.node.Generate().Int64()
}

func (s *bwmarrinSnowflake) Format(id int64) string {
	return bwmarrin.ParseInt64(id).String()
}

func (s *bwmarrinSnowflake) Parse(str string) (int64, error) {
	id, err := bwmarrin.ParseString(str)
	if err != nil || id.Int64() <= 0 {
		return 0, fmt.Errorf("snowflake id %q: %w", str, apperror.ErrInvalidArgument)
	}
	return id.Int64(), nil
}

package id

import (
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var ErrMalformed = errors.New("malformed id")

var (
	node *snowflake.Node
	once sync.Once
)

// Init initializes the Snowflake node with the given node ID.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// New generates a new globally unique int64 ID using the Snowflake algorithm.
// IDs are time-ordered and unique across distributed instances.
func New() int64 {
	return node.Generate().Int64()
}

// Parse reads an identifier from its decimal string form. Only positive
// values are well-formed.
func Parse(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrMalformed
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, ErrMalformed
	}
	return v, nil
}

func Format(v int64) string {
	return strconv.FormatInt(v, 10)
}

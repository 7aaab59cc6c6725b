package coordinator

import (
	"fmt"
	"strings"
)

// RenamePolicy decides what a connection that registers a second time
// announces to the room.
type RenamePolicy string

const (
	// AnnounceJoin treats every registration as a fresh join.
	AnnounceJoin RenamePolicy = "announce-join"
	// AnnounceRename announces a name change instead of a join.
	AnnounceRename RenamePolicy = "announce-rename"
)

// ParseRenamePolicy parses a policy name. An empty string selects AnnounceJoin.
func ParseRenamePolicy(s string) (RenamePolicy, error) {
	switch RenamePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", AnnounceJoin:
		return AnnounceJoin, nil
	case AnnounceRename:
		return AnnounceRename, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRenamePolicy, s)
	}
}

package localddb

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// projectItem narrows an item to the paths named by a projection
// expression. Paths absent from the item are dropped silently, matching the
// service.
func projectItem(projection *string, names map[string]string, item map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
	if projection == nil || *projection == "" {
		return item, nil
	}
	out := make(map[string]types.AttributeValue)
	for _, rawPath := range strings.Split(*projection, ",") {
		segs, err := splitPath(strings.TrimSpace(rawPath), names)
		if err != nil {
			return nil, err
		}
		v := getAttr(item, segs)
		if v == nil {
			continue
		}
		setProjected(out, segs, v)
	}
	return out, nil
}

// setProjected writes v at segs, creating intermediate maps as needed.
// Unlike update assignments, projections rebuild structure into a fresh
// result map.
func setProjected(dst map[string]types.AttributeValue, segs []string, v types.AttributeValue) {
	cur := dst
	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur[seg].(*types.AttributeValueMemberM)
		if !ok {
			next = &types.AttributeValueMemberM{Value: make(map[string]types.AttributeValue)}
			cur[seg] = next
		}
		cur = next.Value
	}
	cur[segs[len(segs)-1]] = v
}

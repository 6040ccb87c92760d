package kafkacfg

import (
	"fmt"
	"sort"
)

// ValidateCluster checks a set of broker config fragments for cluster level
// consistency: every node must declare a distinct numeric id and every node
// must reference the identical coordination-service ensemble. Violating
// either breaks cluster formation. All violations found are returned; one
// bad pair shouldn't mask another.
func ValidateCluster(brokers []BrokerConfig) []error {
	var errs []error

	if len(brokers) == 0 {
		return []error{fmt.Errorf("no broker configs provided")}
	}

	// Disjoint ids.
	seen := map[int][]int{}
	for i, b := range brokers {
		seen[b.ID] = append(seen[b.ID], i)
	}

	var ids []int
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		if len(seen[id]) > 1 {
			errs = append(errs, fmt.Errorf(
				"broker.id %d declared by %d fragments", id, len(seen[id])))
		}
	}

	// Agreement on the ensemble. The first fragment is the reference; any
	// disagreement is attributed to the dissenting fragment.
	ref := brokers[0].ZKConnect
	for _, b := range brokers[1:] {
		if !b.ZKConnect.Equal(ref) {
			errs = append(errs, fmt.Errorf(
				"broker %d zookeeper.connect %q disagrees with %q",
				b.ID, b.ZKConnect.String(), ref.String()))
		}
	}

	return errs
}

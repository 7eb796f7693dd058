package usage

import "os"

// Reconcile merges freshly measured items into a previous collection.
//
// Items from prev are dropped when their path no longer exists or when the
// keep predicate rejects them. Fresh items are then upserted in order: an
// existing entry with the same identity key is removed first, so the new
// measurement wins and no two entries share a key. Fresh items whose path is
// gone by reconciliation time are dropped as well. Output order is
// insertion/replacement order.
//
// Reconcile performs no I/O of its own; existence and tracking checks are
// supplied by the caller. Either predicate may be nil, which accepts all.
func Reconcile[T Item](prev, fresh []T, keep func(T) bool, exists func(string) bool) []T {
	if exists == nil {
		exists = pathExists
	}

	next := make([]T, 0, len(prev)+len(fresh))
	for _, item := range prev {
		if !exists(item.Location()) {
			continue
		}
		if keep != nil && !keep(item) {
			continue
		}
		next = append(next, item)
	}

	for _, item := range fresh {
		if !exists(item.Location()) {
			continue
		}
		for i := range next {
			if next[i].Key() == item.Key() {
				next = append(next[:i], next[i+1:]...)
				break
			}
		}
		next = append(next, item)
	}

	return next
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

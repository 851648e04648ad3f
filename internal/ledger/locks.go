package ledger

import (
	"sort"
	"sync"
)

// lockTable hands out one mutex per account id. Balance updates are a read
// followed by a write, so two concurrent mutations of the same account
// would lose one of the updates without this serialization.
type lockTable struct {
	mu    sync.Mutex
	locks map[int32]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[int32]*sync.Mutex)}
}

func (t *lockTable) get(id int32) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.locks[id]
	if !ok {
		m = &sync.Mutex{}
		t.locks[id] = m
	}
	return m
}

// Exclusive runs fn while holding the lock of every listed account. Locks
// are acquired in ascending id order so two overlapping calls cannot
// deadlock. The full reverse-then-apply sequence of an edit must run inside
// one Exclusive call.
func (l *Ledger) Exclusive(accountIDs []int32, fn func() error) error {
	ids := make([]int32, 0, len(accountIDs))
	seen := make(map[int32]bool)
	for _, id := range accountIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		l.locks.get(id).Lock()
	}
	defer func() {
		for i := len(ids) - 1; i >= 0; i-- {
			l.locks.get(ids[i]).Unlock()
		}
	}()

	return fn()
}

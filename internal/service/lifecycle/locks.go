package lifecycle

import "sync"

// orderLocks выдаёт эксклюзивную блокировку на orderID: команды по одному
// заказу сериализуются, команды по разным заказам друг друга не блокируют.
type orderLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newOrderLocks() *orderLocks {
	return &orderLocks{entries: make(map[string]*lockEntry)}
}

// Acquire блокирует orderID и возвращает функцию освобождения. Запись
// удаляется из карты, когда последний держатель отпускает блокировку.
func (l *orderLocks) Acquire(orderID string) func() {
	l.mu.Lock()
	entry, ok := l.entries[orderID]
	if !ok {
		entry = &lockEntry{}
		l.entries[orderID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, orderID)
		}
		l.mu.Unlock()
	}
}

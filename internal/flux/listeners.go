package flux

import "sync"

// ListenerID identifies a change listener.
type ListenerID int

// listeners is an ordered set of change callbacks.
type listeners struct {
	mu    sync.Mutex
	last  ListenerID
	order []ListenerID
	fns   map[ListenerID]func()
}

func (l *listeners) add(fn func()) ListenerID {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fns == nil {
		l.fns = make(map[ListenerID]func())
	}
	l.last++
	l.order = append(l.order, l.last)
	l.fns[l.last] = fn
	return l.last
}

func (l *listeners) remove(id ListenerID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.fns[id]; !ok {
		return
	}
	delete(l.fns, id)
	for i, v := range l.order {
		if v == id {
			l.order = append(l.order[:i:i], l.order[i+1:]...)
			break
		}
	}
}

// emit calls every listener in subscription order. A listener removed mid-pass is skipped.
func (l *listeners) emit() {
	l.mu.Lock()
	ids := append([]ListenerID(nil), l.order...)
	l.mu.Unlock()

	for _, id := range ids {
		l.mu.Lock()
		fn, ok := l.fns[id]
		l.mu.Unlock()
		if ok {
			fn()
		}
	}
}

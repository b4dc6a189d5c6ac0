package services

import "sync"

// RoomLocks hands out one mutex per room id. Entries are dropped once no
// goroutine holds or waits on them.
type RoomLocks struct {
	mu    sync.Mutex
	locks map[uint]*roomLock
}

type roomLock struct {
	mu   sync.Mutex
	refs int
}

func NewRoomLocks() *RoomLocks {
	return &RoomLocks{locks: make(map[uint]*roomLock)}
}

// Lock blocks until roomID is free and returns the unlock func.
func (l *RoomLocks) Lock(roomID uint) func() {
	l.mu.Lock()
	rl, ok := l.locks[roomID]
	if !ok {
		rl = &roomLock{}
		l.locks[roomID] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.mu.Lock()
	return func() {
		rl.mu.Unlock()
		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.locks, roomID)
		}
		l.mu.Unlock()
	}
}

func (l *RoomLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

package gateway

import (
	"hash/fnv"
	"sync"
)

const roomLockStripes = 64

// roomLocks serializes joins and broadcasts of one room. Rooms share stripes.
type roomLocks struct {
	stripes [roomLockStripes]sync.Mutex
}

func (l *roomLocks) lock(roomId string) func() {
	h := fnv.New32a()
	h.Write([]byte(roomId))
	m := &l.stripes[h.Sum32()%roomLockStripes]
	m.Lock()

	return m.Unlock
}

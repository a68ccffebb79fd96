package pricetrigger

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrAlreadyBought 同一周期同一代币已触发过
	ErrAlreadyBought = errors.New("already bought this slot")
	// ErrStaleSlot 周期早于当前周期
	ErrStaleSlot = errors.New("slot already rotated out")
)

type slotKey struct {
	slot  int64
	token string
}

// SlotDeduper 每个 (slot, token) 只允许买一次；获取更新时段的键会清除所有旧时段的键
type SlotDeduper struct {
	mu      sync.Mutex
	current int64
	keys    map[slotKey]struct{}
}

func NewSlotDeduper() *SlotDeduper {
	return &SlotDeduper{keys: make(map[slotKey]struct{})}
}

// TryAcquire 占用 (slot, token)：已被占用返回 ErrAlreadyBought，时段早于当前时段返回 ErrStaleSlot
func (d *SlotDeduper) TryAcquire(slot time.Time, token string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := slot.Unix()
	if s < d.current {
		return ErrStaleSlot
	}
	d.rotateLocked(s)

	k := slotKey{slot: s, token: token}
	if _, ok := d.keys[k]; ok {
		return ErrAlreadyBought
	}
	d.keys[k] = struct{}{}
	return nil
}

// Release 买入失败后释放键，之后的报价可以重试
func (d *SlotDeduper) Release(slot time.Time, token string) {
	d.mu.Lock()
	delete(d.keys, slotKey{slot: slot.Unix(), token: token})
	d.mu.Unlock()
}

// Rotate 推进当前时段并丢弃旧键
func (d *SlotDeduper) Rotate(slot time.Time) {
	d.mu.Lock()
	d.rotateLocked(slot.Unix())
	d.mu.Unlock()
}

func (d *SlotDeduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.keys)
}

func (d *SlotDeduper) rotateLocked(s int64) {
	if s <= d.current {
		return
	}
	d.current = s
	for k := range d.keys {
		if k.slot < s {
			delete(d.keys, k)
		}
	}
}

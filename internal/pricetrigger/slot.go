package pricetrigger

import (
	"fmt"
	"time"
)

// SlotDuration 一个 BTC 涨跌市场的时长
const SlotDuration = 15 * time.Minute

// SlotStart 返回包含 t 的 15 分钟时段的开始时间
func SlotStart(t time.Time) time.Time {
	return t.Truncate(SlotDuration)
}

// Slug 在 slotStart 开盘的市场的 gamma slug
func Slug(slotStart time.Time) string {
	return fmt.Sprintf("btc-updown-15m-%d", slotStart.Unix())
}

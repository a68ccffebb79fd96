package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionSnapshot_CloneIsDeep(t *testing.T) {
	s := PositionSnapshot{}
	s.Put(Position{Market: "m1", Outcome: "Yes", Shares: 10, Price: 0.5})
	s.Put(Position{Market: "m1", Outcome: "No", Shares: 1, Price: 0.5})
	s.Put(Position{Market: "m0", Outcome: "Yes", Shares: 2, Price: 0.1})

	cp := s.Clone()
	cp["m1"]["Yes"] = Position{Market: "m1", Outcome: "Yes", Shares: 99}
	delete(cp, "m0")

	p, ok := s.Get("m1", "Yes")
	require.True(t, ok)
	assert.Equal(t, 10.0, p.Shares)
	assert.Equal(t, 2, s.MarketCount())
	assert.Equal(t, []string{"m0", "m1"}, s.Markets())
	assert.Equal(t, []string{"No", "Yes"}, s.Outcomes("m1"))
	assert.Len(t, s.List(), 3)

	_, ok = s.Get("missing", "Yes")
	assert.False(t, ok)
}

func TestErrorKinds(t *testing.T) {
	base := fmt.Errorf("connection refused")
	err := Wrap(KindTransport, "get positions", base)

	assert.Equal(t, KindTransport, KindOf(err))
	assert.True(t, IsKind(fmt.Errorf("outer: %w", err), KindTransport))
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "get positions")
	assert.Nil(t, Wrap(KindTransport, "noop", nil))
	assert.Equal(t, Kind(""), KindOf(base))

	cfg := Errorf(KindConfiguration, "", "missing %s", "PRIVATE_KEY")
	assert.Equal(t, "configuration: missing PRIVATE_KEY", cfg.Error())
}

func TestCountResults(t *testing.T) {
	s, f := CountResults([]TradeResult{{Success: true}, {Success: false}, {Success: true}})
	assert.Equal(t, 2, s)
	assert.Equal(t, 1, f)
}

func TestSlotMarket(t *testing.T) {
	m := &SlotMarket{Slug: "btc-updown-15m-1", UpTokenID: "u", DownTokenID: "d"}
	require.True(t, m.IsValid())
	tt, ok := m.TokenTypeOf("d")
	assert.True(t, ok)
	assert.Equal(t, TokenTypeDown, tt)
	_, ok = m.TokenTypeOf("x")
	assert.False(t, ok)
	assert.False(t, (*SlotMarket)(nil).IsValid())
}

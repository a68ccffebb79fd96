package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Numeric handles Polymarket numbers that may arrive as strings or numbers.
type Numeric float64

func (n *Numeric) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || strings.EqualFold(string(data), "null") {
		*n = 0
		return nil
	}

	// Handle quoted numbers.
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*n = Numeric(f)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = Numeric(f)
	return nil
}

func (n Numeric) Float64() float64 {
	return float64(n)
}

// StringList accepts a JSON array, a JSON-encoded array inside a string
// (gamma's outcomes/clobTokenIds) or a comma separated string.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*l = nil
		return nil
	}
	if data[0] == '[' {
		var out []string
		if err := json.Unmarshal(data, &out); err != nil {
			return err
		}
		*l = out
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		*l = nil
	case strings.HasPrefix(s, "["):
		var out []string
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return err
		}
		*l = out
	default:
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		*l = out
	}
	return nil
}

// Position is a row of the data API /positions endpoint.
type Position struct {
	ProxyWallet  string  `json:"proxyWallet"`
	Asset        string  `json:"asset"` // token id
	ConditionID  string  `json:"conditionId"`
	Size         Numeric `json:"size"`
	AvgPrice     Numeric `json:"avgPrice"`
	InitialValue Numeric `json:"initialValue"`
	CurrentValue Numeric `json:"currentValue"`
	CurPrice     Numeric `json:"curPrice"`
	Redeemable   bool    `json:"redeemable"`
	Mergeable    bool    `json:"mergeable"`
	NegativeRisk bool    `json:"negativeRisk"`
	Title        string  `json:"title"`
	Slug         string  `json:"slug"`
	Outcome      string  `json:"outcome"`
	OutcomeIndex int     `json:"outcomeIndex"`
	EndDate      string  `json:"endDate"`
}

// PositionsQuery controls /positions requests.
type PositionsQuery struct {
	User          string
	SizeThreshold float64
	Limit         int
	Offset        int
	Redeemable    *bool
}

// GammaMarket represents a market returned by the gamma API.
type GammaMarket struct {
	ID           string     `json:"id"`
	Question     string     `json:"question"`
	ConditionID  string     `json:"conditionId"`
	Slug         string     `json:"slug"`
	Outcomes     StringList `json:"outcomes"`
	ClobTokenIds StringList `json:"clobTokenIds"`
	NegRisk      bool       `json:"negRisk"`
	Active       bool       `json:"active"`
	Closed       bool       `json:"closed"`
	EndDateISO   string     `json:"endDateIso"`
}

// TokenForOutcome returns the clob token paired with outcome (case-insensitive).
func (m *GammaMarket) TokenForOutcome(outcome string) (string, bool) {
	for i, o := range m.Outcomes {
		if strings.EqualFold(strings.TrimSpace(o), outcome) && i < len(m.ClobTokenIds) {
			return m.ClobTokenIds[i], true
		}
	}
	return "", false
}

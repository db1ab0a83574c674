// Package instrument resolves the tradable contract for a signal. For index
// options that means picking the at-the-money strike for the current
// underlying price from the broker's instrument master.
package instrument

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	TypeCall = "CE"
	TypePut  = "PE"
)

type Contract struct {
	InstrumentKey string
	Type          string
	Strike        float64
	Expiry        string
}

// Master holds the option contracts for one underlying.
type Master struct {
	contracts []Contract
}

// LoadMasterFile reads an instrument master JSON dump.
func LoadMasterFile(path string) (*Master, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading instrument master failed: %w", err)
	}
	return ParseMaster(raw)
}

// ParseMaster accepts the broker's instrument list: a JSON array of objects
// with instrument_key, instrument_type and strike fields.
func ParseMaster(raw []byte) (*Master, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("instrument master is not valid json")
	}
	parsed := gjson.ParseBytes(raw)
	if !parsed.IsArray() {
		return nil, fmt.Errorf("instrument master root must be an array")
	}

	var contracts []Contract
	parsed.ForEach(func(_, row gjson.Result) bool {
		typ := strings.ToUpper(strings.TrimSpace(row.Get("instrument_type").String()))
		if typ != TypeCall && typ != TypePut {
			return true
		}
		key := strings.TrimSpace(row.Get("instrument_key").String())
		strike := row.Get("strike").Float()
		if key == "" || strike <= 0 {
			return true
		}
		contracts = append(contracts, Contract{
			InstrumentKey: key,
			Type:          typ,
			Strike:        strike,
			Expiry:        row.Get("expiry").String(),
		})
		return true
	})
	if len(contracts) == 0 {
		return nil, fmt.Errorf("instrument master contains no option contracts")
	}
	return &Master{contracts: contracts}, nil
}

// ResolveATM picks the contract of the given type whose strike matches the
// underlying price rounded to the strike step, falling back to the nearest
// available strike.
func (m *Master) ResolveATM(optionType string, underlyingPrice, step float64) (Contract, error) {
	if underlyingPrice <= 0 {
		return Contract{}, fmt.Errorf("underlying price must be > 0")
	}
	if step <= 0 {
		step = 50
	}
	optionType = strings.ToUpper(strings.TrimSpace(optionType))
	atmStrike := math.Round(underlyingPrice/step) * step

	var nearest *Contract
	nearestDiff := math.MaxFloat64
	for i := range m.contracts {
		c := m.contracts[i]
		if c.Type != optionType {
			continue
		}
		if c.Strike == atmStrike {
			return c, nil
		}
		diff := math.Abs(c.Strike - atmStrike)
		if diff < nearestDiff {
			nearestDiff = diff
			nearest = &m.contracts[i]
		}
	}
	if nearest == nil {
		return Contract{}, fmt.Errorf("no %s contracts in instrument master", optionType)
	}
	return *nearest, nil
}

// Package fare implements the zone fare rule engine: a pure resolver from
// (origin zone, destination zone, time context, fare class) to an unclamped
// fare amount, driven by rings, groups, explicit rules, peak hours, and
// class rates. Clamping against a system's maximum fare is the dispatcher's
// job, not this package's.
package fare

import (
	"fmt"

	"github.com/emberline/faregate/internal/core/domain"
)

// Config is the declarative zone fare configuration of one system.
type Config struct {
	Rings          map[string]int      `mapstructure:"rings"`
	Groups         map[string][]string `mapstructure:"groups"`
	Rules          []RuleConfig        `mapstructure:"rules"`
	DefaultFare    float64             `mapstructure:"defaultFare"`
	PeakHours      []int               `mapstructure:"peakHours"`
	PeakMultiplier float64             `mapstructure:"peakMultiplier"`
	ClassRates     map[string]float64  `mapstructure:"classRates"`
}

// Query is one fare lookup. Hour and Day are -1 when the caller has no time
// context; Class defaults to STANDARD when empty.
type Query struct {
	FromZone string
	ToZone   string
	Hour     int
	Day      int
	Class    string
}

// NoTime returns a query without time context.
func NoTime(from, to string) Query {
	return Query{FromZone: from, ToZone: to, Hour: -1, Day: -1}
}

// Calculator resolves zone fares. It is immutable after construction and
// safe for concurrent use.
type Calculator struct {
	rings      map[string]int
	groups     map[string][]string
	rules      []*Rule
	defFare    float64
	peakHours  map[int]bool
	peakMult   float64
	classRates map[string]float64
}

// FareType marks the calculator as the zone member of the fare scheme union.
func (c *Calculator) FareType() domain.FareType { return domain.FareZone }

// NewCalculator compiles a zone fare configuration. Rule declaration order
// is preserved: within each resolution pass the first matching rule wins.
func NewCalculator(cfg Config) (*Calculator, error) {
	c := &Calculator{
		rings:      cfg.Rings,
		groups:     cfg.Groups,
		defFare:    cfg.DefaultFare,
		peakMult:   cfg.PeakMultiplier,
		classRates: cfg.ClassRates,
	}
	if c.defFare < 0 {
		return nil, fmt.Errorf("defaultFare must not be negative, got %v", c.defFare)
	}
	if c.peakMult == 0 {
		c.peakMult = 1
	}
	if len(cfg.PeakHours) > 0 {
		c.peakHours = make(map[int]bool, len(cfg.PeakHours))
		for _, h := range cfg.PeakHours {
			if h < 0 || h > 23 {
				return nil, fmt.Errorf("peak hour out of range: %d", h)
			}
			c.peakHours[h] = true
		}
	}
	for i, rc := range cfg.Rules {
		r, err := CompileRule(rc)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		c.rules = append(c.rules, r)
	}
	return c, nil
}

// Fare resolves the fare for a query. Resolution order, first match wins:
// exact pattern rules, ring-difference rules, group rules, then the default
// fare. The peak multiplier and any class rate are applied after the base
// fare is resolved; the result is not clamped here.
func (c *Calculator) Fare(q Query) float64 {
	if q.Class == "" {
		q.Class = domain.ClassStandard
	}
	base := c.baseFare(q)

	if q.Hour >= 0 && c.peakHours[q.Hour] {
		base *= c.peakMult
	}
	if rate, ok := c.classRates[q.Class]; ok && q.Class != domain.ClassStandard {
		base *= rate
	}
	return base
}

func (c *Calculator) baseFare(q Query) float64 {
	// 1. Exact zone-pattern rules.
	for _, r := range c.rules {
		if r.matchesExact(q) {
			return r.fare
		}
	}

	// 2. Ring difference, only when both zones are in the ring table.
	if fromRing, ok := c.rings[q.FromZone]; ok {
		if toRing, ok := c.rings[q.ToZone]; ok {
			diff := fromRing - toRing
			if diff < 0 {
				diff = -diff
			}
			for _, r := range c.rules {
				if r.matchesRing(diff, q) {
					return r.fare
				}
			}
		}
	}

	// 3. Group rules.
	fromGroups := c.zoneGroups(q.FromZone)
	toGroups := c.zoneGroups(q.ToZone)
	if len(fromGroups) > 0 && len(toGroups) > 0 {
		for _, r := range c.rules {
			if r.matchesGroups(fromGroups, toGroups, q) {
				return r.fare
			}
		}
	}

	// 4. Fallback.
	return c.defFare
}

// Ring returns the ring number of a zone, if registered.
func (c *Calculator) Ring(zone string) (int, bool) {
	r, ok := c.rings[zone]
	return r, ok
}

// InGroup reports whether a zone belongs to a named group.
func (c *Calculator) InGroup(zone, group string) bool {
	for _, z := range c.groups[group] {
		if z == zone {
			return true
		}
	}
	return false
}

func (c *Calculator) zoneGroups(zone string) map[string]bool {
	var out map[string]bool
	for name, zones := range c.groups {
		for _, z := range zones {
			if z == zone {
				if out == nil {
					out = make(map[string]bool)
				}
				out[name] = true
				break
			}
		}
	}
	return out
}

package fare

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// RuleConfig is the declarative form of a fare rule as it appears in
// configuration. Exactly which fields are set decides how the rule matches:
// from/to patterns, a ring difference, or a group pair. A rule may also
// carry a time restriction (days and/or an hour window); a restricted rule
// is skipped whenever the query time does not satisfy it.
type RuleConfig struct {
	From           string   `mapstructure:"from"`
	To             string   `mapstructure:"to"`
	Fare           float64  `mapstructure:"fare"`
	RingDifference *int     `mapstructure:"ringDifference"`
	FromGroup      string   `mapstructure:"fromGroup"`
	ToGroup        string   `mapstructure:"toGroup"`
	CrossGroup     bool     `mapstructure:"crossGroup"`
	Days           []string `mapstructure:"days"`
	StartHour      *int     `mapstructure:"startHour"`
	EndHour        *int     `mapstructure:"endHour"`
}

// Rule is a compiled fare rule. Zone patterns are anchored regular
// expressions: "1" matches only zone "1", "A.*" any zone starting with A.
type Rule struct {
	from       *regexp.Regexp
	to         *regexp.Regexp
	fare       float64
	ringDiff   int // -1 when unset
	fromGroup  string
	toGroup    string
	crossGroup bool
	days       map[time.Weekday]bool // nil when unrestricted
	startHour  int                   // -1 when unrestricted
	endHour    int
}

// Fare returns the rule's fare amount.
func (r *Rule) Fare() float64 { return r.fare }

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday,
	"friday": time.Friday, "saturday": time.Saturday,
}

// CompileRule validates and compiles one rule.
func CompileRule(cfg RuleConfig) (*Rule, error) {
	r := &Rule{
		fare:       cfg.Fare,
		ringDiff:   -1,
		fromGroup:  cfg.FromGroup,
		toGroup:    cfg.ToGroup,
		crossGroup: cfg.CrossGroup,
		startHour:  -1,
	}
	if cfg.Fare < 0 {
		return nil, fmt.Errorf("rule fare must not be negative, got %v", cfg.Fare)
	}

	if cfg.From != "" || cfg.To != "" {
		if cfg.From == "" || cfg.To == "" {
			return nil, fmt.Errorf("rule with zone patterns needs both from and to")
		}
		var err error
		if r.from, err = regexp.Compile("^(?:" + cfg.From + ")$"); err != nil {
			return nil, fmt.Errorf("from pattern %q: %w", cfg.From, err)
		}
		if r.to, err = regexp.Compile("^(?:" + cfg.To + ")$"); err != nil {
			return nil, fmt.Errorf("to pattern %q: %w", cfg.To, err)
		}
	}

	if cfg.RingDifference != nil {
		if *cfg.RingDifference < 0 {
			return nil, fmt.Errorf("ringDifference must not be negative, got %d", *cfg.RingDifference)
		}
		r.ringDiff = *cfg.RingDifference
	}

	if (cfg.FromGroup == "") != (cfg.ToGroup == "") {
		return nil, fmt.Errorf("rule with groups needs both fromGroup and toGroup")
	}

	if r.from == nil && r.ringDiff < 0 && r.fromGroup == "" {
		return nil, fmt.Errorf("rule matches nothing: set patterns, ringDifference, or groups")
	}

	if len(cfg.Days) > 0 {
		r.days = make(map[time.Weekday]bool, len(cfg.Days))
		for _, d := range cfg.Days {
			wd, ok := weekdayNames[strings.ToLower(d)]
			if !ok {
				return nil, fmt.Errorf("unknown weekday %q", d)
			}
			r.days[wd] = true
		}
	}

	if (cfg.StartHour == nil) != (cfg.EndHour == nil) {
		return nil, fmt.Errorf("hour window needs both startHour and endHour")
	}
	if cfg.StartHour != nil {
		if *cfg.StartHour < 0 || *cfg.StartHour > 23 || *cfg.EndHour < 0 || *cfg.EndHour > 23 {
			return nil, fmt.Errorf("hour window out of range: %d-%d", *cfg.StartHour, *cfg.EndHour)
		}
		r.startHour = *cfg.StartHour
		r.endHour = *cfg.EndHour
	}

	return r, nil
}

// timeAllows checks the rule's time restriction against the query. A rule
// that declares a restriction never matches a query without the relevant
// time context.
func (r *Rule) timeAllows(q Query) bool {
	if r.days != nil {
		if q.Day < 0 || !r.days[time.Weekday(q.Day)] {
			return false
		}
	}
	if r.startHour >= 0 {
		if q.Hour < 0 {
			return false
		}
		if r.startHour <= r.endHour {
			if q.Hour < r.startHour || q.Hour > r.endHour {
				return false
			}
		} else {
			// window wraps midnight, e.g. 22-5
			if q.Hour < r.startHour && q.Hour > r.endHour {
				return false
			}
		}
	}
	return true
}

// matchesExact checks the from/to zone patterns.
func (r *Rule) matchesExact(q Query) bool {
	if r.from == nil || r.to == nil {
		return false
	}
	return r.from.MatchString(q.FromZone) && r.to.MatchString(q.ToZone) && r.timeAllows(q)
}

// matchesRing checks the ring-difference clause.
func (r *Rule) matchesRing(diff int, q Query) bool {
	return r.ringDiff >= 0 && r.ringDiff == diff && r.timeAllows(q)
}

// matchesGroups checks group membership of both endpoints. With crossGroup
// set, the rule additionally requires its two groups to differ, so a
// crossGroup rule only ever prices travel between distinct groups.
func (r *Rule) matchesGroups(fromGroups, toGroups map[string]bool, q Query) bool {
	if r.fromGroup == "" || r.toGroup == "" {
		return false
	}
	if !fromGroups[r.fromGroup] || !toGroups[r.toGroup] {
		return false
	}
	if r.crossGroup && r.fromGroup == r.toGroup {
		return false
	}
	return r.timeAllows(q)
}

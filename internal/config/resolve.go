package config

import (
	"fmt"
	"time"

	"ccmeter/internal/aggregate"
	"ccmeter/internal/pricing"
	"ccmeter/internal/usagelog"
)

// Flags carries CLI flag values. Zero values (nil for the pointers) mean
// the flag was not given and the next layer decides.
type Flags struct {
	Dirs       []string
	Timezone   string
	WeekStart  string
	Mode       string
	Order      string
	Since      string
	Until      string
	Project    string
	Instance   string
	Instances  *bool
	Breakdown  *bool
	RecentDays *int
	TokenLimit string
}

// Resolved is the effective configuration handed to the pipeline and the
// live engine.
type Resolved struct {
	Dirs       []string
	Location   *time.Location
	WeekStart  time.Weekday
	Mode       pricing.Mode
	Order      aggregate.Order
	Since      string
	Until      string
	Project    string
	Instance   string
	Instances  bool
	Breakdown  bool
	RecentDays int
	TokenLimit string

	PricingPath    string
	PricingOffline bool
	Tick           time.Duration
	Stall          time.Duration

	BlockDuration time.Duration
	Anchor        aggregate.AnchorMode
	SessionIdle   time.Duration
}

// Options maps the resolved settings onto the aggregation options.
func (r Resolved) Options() aggregate.Options {
	return aggregate.Options{
		Location:   r.Location,
		WeekStart:  r.WeekStart,
		Since:      r.Since,
		Until:      r.Until,
		Project:    r.Project,
		Instance:   r.Instance,
		Instances:  r.Instances,
		Breakdown:  r.Breakdown,
		Order:      r.Order,
		RecentDays: r.RecentDays,
	}
}

func pick(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func pickBool(values ...*bool) bool {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return false
}

const dateLayout = "2006-01-02"

func parseDate(name, value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if _, err := time.Parse(dateLayout, value); err != nil {
		return "", fmt.Errorf("invalid %s date %q: want YYYY-MM-DD", name, value)
	}
	return value, nil
}

// Resolve layers flag, per-command and defaults values for one command.
func (c Config) Resolve(command string, fl Flags) (Resolved, error) {
	sec := c.section(command)

	var r Resolved
	var err error

	if name := pick(fl.Timezone, sec.Timezone, c.Defaults.Timezone); name != "" {
		r.Location, err = time.LoadLocation(name)
		if err != nil {
			return r, fmt.Errorf("loading timezone %q: %w", name, err)
		}
	} else {
		r.Location = time.Local
	}

	r.WeekStart, err = aggregate.ParseWeekStart(pick(fl.WeekStart, sec.WeekStart, c.Defaults.WeekStart))
	if err != nil {
		return r, err
	}

	r.Mode, err = pricing.ParseMode(pick(fl.Mode, sec.Mode, c.Defaults.Mode))
	if err != nil {
		return r, err
	}

	switch order := pick(fl.Order, sec.Order, c.Defaults.Order); order {
	case "", "desc":
		r.Order = aggregate.OrderDesc
	case "asc":
		r.Order = aggregate.OrderAsc
	default:
		return r, fmt.Errorf("invalid order %q: want asc or desc", order)
	}

	if r.Since, err = parseDate("since", pick(fl.Since, sec.Since, c.Defaults.Since)); err != nil {
		return r, err
	}
	if r.Until, err = parseDate("until", pick(fl.Until, sec.Until, c.Defaults.Until)); err != nil {
		return r, err
	}
	if r.Since != "" && r.Until != "" && r.Since > r.Until {
		return r, fmt.Errorf("since %s is after until %s", r.Since, r.Until)
	}

	r.Project = pick(fl.Project, sec.Project, c.Defaults.Project)
	r.Instance = pick(fl.Instance, sec.Instance, c.Defaults.Instance)
	r.Instances = pickBool(fl.Instances, sec.Instances, c.Defaults.Instances)
	r.Breakdown = pickBool(fl.Breakdown, sec.Breakdown, c.Defaults.Breakdown)

	switch {
	case fl.RecentDays != nil:
		r.RecentDays = *fl.RecentDays
	case sec.RecentDays > 0:
		r.RecentDays = sec.RecentDays
	case c.Defaults.RecentDays > 0:
		r.RecentDays = c.Defaults.RecentDays
	}

	r.TokenLimit = pick(fl.TokenLimit, sec.TokenLimit, c.Defaults.TokenLimit)

	switch {
	case len(fl.Dirs) > 0:
		r.Dirs = usagelog.DataDirs(fl.Dirs)
	case len(c.DataDirs) > 0:
		r.Dirs = usagelog.DataDirs(c.DataDirs)
	default:
		r.Dirs = usagelog.DataDirs(nil)
	}

	r.PricingPath = c.Pricing.Path
	r.PricingOffline = c.Pricing.Offline
	r.Tick = time.Duration(c.Live.TickSeconds) * time.Second
	r.Stall = time.Duration(c.Live.StallTimeoutSeconds) * time.Second

	r.BlockDuration = time.Duration(c.Block.DurationHours) * time.Hour
	if r.BlockDuration <= 0 {
		r.BlockDuration = aggregate.DefaultBlockDuration
	}
	if r.Anchor, err = aggregate.ParseAnchorMode(c.Block.Anchor); err != nil {
		return r, err
	}
	r.SessionIdle = time.Duration(c.Session.IdleTimeoutHours) * time.Hour
	if r.SessionIdle <= 0 {
		r.SessionIdle = aggregate.DefaultSessionIdleTimeout
	}

	return r, nil
}

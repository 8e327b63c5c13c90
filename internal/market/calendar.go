package market

import (
	"fmt"
	"time"

	"github.com/andresuchdata/autopo-reorder/internal/domain"
)

// Hemisphere selects which month-to-season table a Calendar uses.
type Hemisphere string

const (
	North Hemisphere = "north"
	South Hemisphere = "south"
)

// ParseHemisphere accepts "north"/"south" (and "" for north).
func ParseHemisphere(s string) (Hemisphere, error) {
	switch Hemisphere(s) {
	case "", North:
		return North, nil
	case South:
		return South, nil
	default:
		return "", fmt.Errorf("unknown hemisphere %q", s)
	}
}

// Calendar maps dates to meteorological seasons.
type Calendar struct {
	hemisphere Hemisphere
}

func NewCalendar(h Hemisphere) Calendar {
	if h == "" {
		h = North
	}
	return Calendar{hemisphere: h}
}

func (c Calendar) SeasonFor(date time.Time) domain.Season {
	season := northernSeason(date.Month())
	if c.hemisphere == South {
		return opposite(season)
	}
	return season
}

func northernSeason(m time.Month) domain.Season {
	switch m {
	case time.March, time.April, time.May:
		return domain.Spring
	case time.June, time.July, time.August:
		return domain.Summer
	case time.September, time.October, time.November:
		return domain.Fall
	default:
		return domain.Winter
	}
}

func opposite(s domain.Season) domain.Season {
	switch s {
	case domain.Spring:
		return domain.Fall
	case domain.Summer:
		return domain.Winter
	case domain.Fall:
		return domain.Spring
	default:
		return domain.Summer
	}
}

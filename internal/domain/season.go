package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Season is a selling season reported by the market calendar.
type Season int

const (
	SeasonNone Season = iota
	Spring
	Summer
	Fall
	Winter
)

var seasonLabels = map[Season]string{
	SeasonNone: "",
	Spring:     "spring",
	Summer:     "summer",
	Fall:       "fall",
	Winter:     "winter",
}

var seasonCodes = map[string]Season{
	"spring": Spring,
	"summer": Summer,
	"fall":   Fall,
	"autumn": Fall,
	"winter": Winter,
}

func (s Season) String() string {
	if label, ok := seasonLabels[s]; ok {
		return label
	}
	return fmt.Sprintf("season(%d)", int(s))
}

// ParseSeason returns the season for a label (case-insensitive). An empty
// label yields SeasonNone.
func ParseSeason(label string) (Season, error) {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return SeasonNone, nil
	}
	season, ok := seasonCodes[label]
	if !ok {
		return SeasonNone, fmt.Errorf("unknown season %q", label)
	}
	return season, nil
}

func (s Season) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Season) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return err
	}
	parsed, err := ParseSeason(label)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

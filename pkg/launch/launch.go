// Package launch defines the launch record returned by the SpaceX v3 API
// and the presentation helpers derived from it.
package launch

import (
	"encoding/json"
	"fmt"
	"time"
)

// Rocket is the subset of the rocket object the client reads.
type Rocket struct {
	RocketName string `json:"rocket_name,omitempty"`
}

// Links holds the optional external resources of a launch.
type Links struct {
	MissionPatchSmall string `json:"mission_patch_small,omitempty"`
	ArticleLink       string `json:"article_link,omitempty"`
	VideoLink         string `json:"video_link,omitempty"`
}

// Launch represents a single launch record.
// FlightNumber is the identity key used for de-duplication.
type Launch struct {
	FlightNumber  int    `json:"flight_number"`
	MissionName   string `json:"mission_name"`
	LaunchYear    string `json:"launch_year,omitempty"`
	Rocket        Rocket `json:"rocket"`
	Links         Links  `json:"links"`
	LaunchDateUTC string `json:"launch_date_utc"`

	// Success and Upcoming are tri-state: nil means the API did not say.
	Success  *bool `json:"launch_success"`
	Upcoming *bool `json:"upcoming"`

	Details string `json:"details,omitempty"`
}

// LaunchTime parses LaunchDateUTC.
func (l Launch) LaunchTime() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, l.LaunchDateUTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse launch_date_utc %q: %w", l.LaunchDateUTC, err)
	}
	return t, nil
}

// DecodePage decodes a page response body. The body must be a JSON array.
func DecodePage(data []byte) ([]Launch, error) {
	var launches []Launch
	if err := json.Unmarshal(data, &launches); err != nil {
		return nil, fmt.Errorf("decode launches: %w", err)
	}
	if launches == nil {
		// "null" is not a page
		return nil, fmt.Errorf("decode launches: expected array, got null")
	}
	return launches, nil
}

// Bool returns a pointer to b. Handy for building fixtures.
func Bool(b bool) *bool {
	return &b
}

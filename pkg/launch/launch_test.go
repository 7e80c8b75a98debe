package launch

import (
	"testing"
	"time"
)

func TestDecodePage(t *testing.T) {
	body := []byte(`[
		{
			"flight_number": 1,
			"mission_name": "FalconSat",
			"launch_year": "2006",
			"rocket": {"rocket_name": "Falcon 1", "rocket_id": "falcon1"},
			"links": {"mission_patch_small": "https://images2.imgbox.com/3c/0e/T8iJcSN3_o.png", "video_link": "https://www.youtube.com/watch?v=0a_00nJ_Y88"},
			"launch_date_utc": "2006-03-24T22:30:00.000Z",
			"launch_success": false,
			"upcoming": false,
			"details": "Engine failure at 33 seconds and loss of vehicle"
		},
		{
			"flight_number": 110,
			"mission_name": "Starlink-15",
			"links": {},
			"launch_date_utc": "2020-10-24T15:31:00.000Z",
			"launch_success": null,
			"upcoming": true,
			"details": null
		}
	]`)

	launches, err := DecodePage(body)
	if err != nil {
		t.Fatalf("DecodePage() error = %v", err)
	}
	if len(launches) != 2 {
		t.Fatalf("Expected 2 launches, got %d", len(launches))
	}

	first := launches[0]
	if first.FlightNumber != 1 || first.MissionName != "FalconSat" {
		t.Errorf("Unexpected first launch: %+v", first)
	}
	if first.Rocket.RocketName != "Falcon 1" {
		t.Errorf("Expected rocket name 'Falcon 1', got %q", first.Rocket.RocketName)
	}
	if first.Success == nil || *first.Success {
		t.Errorf("Expected launch_success=false, got %v", first.Success)
	}
	if first.Links.ArticleLink != "" {
		t.Errorf("Expected empty article link, got %q", first.Links.ArticleLink)
	}

	second := launches[1]
	if second.Success != nil {
		t.Errorf("Expected nil launch_success, got %v", *second.Success)
	}
	if second.Details != "" {
		t.Errorf("Expected empty details for null, got %q", second.Details)
	}
}

func TestDecodePage_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"object instead of array", `{"error": "nope"}`},
		{"truncated", `[{"flight_number": 1`},
		{"null", `null`},
		{"html", `<html>502 Bad Gateway</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodePage([]byte(tt.body)); err == nil {
				t.Errorf("DecodePage(%q) expected error", tt.body)
			}
		})
	}
}

func TestDecodePage_Empty(t *testing.T) {
	launches, err := DecodePage([]byte(`[]`))
	if err != nil {
		t.Fatalf("DecodePage() error = %v", err)
	}
	if len(launches) != 0 {
		t.Errorf("Expected empty page, got %d launches", len(launches))
	}
}

func TestLaunchTime(t *testing.T) {
	l := Launch{LaunchDateUTC: "2006-03-24T22:30:00.000Z"}
	got, err := l.LaunchTime()
	if err != nil {
		t.Fatalf("LaunchTime() error = %v", err)
	}
	want := time.Date(2006, 3, 24, 22, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("LaunchTime() = %v, want %v", got, want)
	}

	if _, err := (Launch{LaunchDateUTC: "soon"}).LaunchTime(); err == nil {
		t.Error("Expected error for unparsable date")
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name     string
		success  *bool
		upcoming *bool
		want     Status
	}{
		{"explicit failure", Bool(false), Bool(false), StatusFailed},
		{"success", Bool(true), Bool(false), StatusSuccess},
		{"success beats upcoming", Bool(true), Bool(true), StatusSuccess},
		{"upcoming", nil, Bool(true), StatusUpcoming},
		{"failed flag but upcoming", Bool(false), Bool(true), StatusUpcoming},
		{"failure without upcoming flag", Bool(false), nil, StatusTBD},
		{"unknown", nil, nil, StatusTBD},
		{"not upcoming, no outcome", nil, Bool(false), StatusTBD},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StatusOf(Launch{Success: tt.success, Upcoming: tt.upcoming})
			if got != tt.want {
				t.Errorf("StatusOf() = %s, want %s", got, tt.want)
			}
		})
	}
}

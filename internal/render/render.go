// Package render formats launches for the terminal: colored cards for the
// browse session, tables and JSON for one-shot commands.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/launchlist/pkg/feed"
	"github.com/Sternrassler/launchlist/pkg/launch"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// Title is printed above the list.
const Title = "SpaceX Launches"

// Footer and status lines.
const (
	LoadingText   = "Loading..."
	NoMoreText    = "No more launches to show"
	NoResultsText = "No results found."
	NoImageText   = "No image available."
	NoDetailsText = "No details available."
)

// Format selects the output of one-shot commands.
type Format string

const (
	FormatCards Format = "cards"
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// ParseFormat validates an output format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCards, FormatTable, FormatJSON:
		return Format(s), nil
	default:
		return "", fmt.Errorf("invalid format %q: must be cards, table, or json", s)
	}
}

// ResolveColors determines whether to use colors based on the --no-color
// flag, the environment and the configured output.colors value.
func ResolveColors(noColorFlag, configColors bool) bool {
	if noColorFlag {
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return configColors
}

// Options configures a Renderer.
type Options struct {
	Colors bool
	// Now is the reference time for relative dates (default: time.Now)
	Now func() time.Time
}

// Renderer writes launches to a terminal.
type Renderer struct {
	out    io.Writer
	colors bool
	now    func() time.Time
}

// New creates a renderer writing to w.
func New(w io.Writer, opts Options) *Renderer {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Renderer{out: w, colors: opts.Colors, now: opts.Now}
}

func (r *Renderer) paint(text string, attrs ...color.Attribute) string {
	if !r.colors {
		return text
	}
	c := color.New(attrs...)
	c.EnableColor()
	return c.Sprint(text)
}

// Header prints the list title.
func (r *Renderer) Header() {
	fmt.Fprintln(r.out, r.paint(Title, color.FgWhite, color.Bold))
	fmt.Fprintln(r.out, r.paint(strings.Repeat("─", len(Title)), color.FgWhite))
}

// StatusLabel returns the colored status of a launch.
func (r *Renderer) StatusLabel(s launch.Status) string {
	label := "[" + string(s) + "]"
	switch s {
	case launch.StatusSuccess:
		return r.paint(label, color.FgGreen)
	case launch.StatusFailed:
		return r.paint(label, color.FgRed)
	case launch.StatusUpcoming:
		return r.paint(label, color.FgCyan)
	default:
		return r.paint(label, color.FgYellow)
	}
}

// When returns the relative launch time, or the raw value if it does not
// parse.
func (r *Renderer) When(l launch.Launch) string {
	t, err := l.LaunchTime()
	if err != nil {
		return l.LaunchDateUTC
	}
	return launch.RelativeTime(t, r.now())
}

// Card writes one launch. Details and the image line are only shown when
// the card is expanded.
func (r *Renderer) Card(l launch.Launch, st ItemState) {
	fmt.Fprintf(r.out, "%s %s %s\n",
		r.paint(fmt.Sprintf("#%d", l.FlightNumber), color.Faint),
		r.paint(l.MissionName, color.Bold),
		r.StatusLabel(launch.StatusOf(l)))

	meta := []string{r.paint(r.When(l), color.Faint)}
	if l.Links.ArticleLink != "" {
		meta = append(meta, "Article: "+r.paint(l.Links.ArticleLink, color.FgBlue))
	}
	if l.Links.VideoLink != "" {
		meta = append(meta, "Video: "+r.paint(l.Links.VideoLink, color.FgBlue))
	}
	fmt.Fprintf(r.out, "    %s\n", strings.Join(meta, " | "))

	if !st.Expanded {
		return
	}

	if l.Links.MissionPatchSmall != "" {
		image := st.Image
		if image == "" {
			image = ImageLoading
		}
		fmt.Fprintf(r.out, "    Patch: %s (%s)\n", l.Links.MissionPatchSmall, r.imageLabel(image))
	} else {
		fmt.Fprintf(r.out, "    %s\n", r.paint(NoImageText, color.Faint))
	}

	if l.Details != "" {
		fmt.Fprintf(r.out, "    %s\n", l.Details)
	} else {
		fmt.Fprintf(r.out, "    %s\n", r.paint(NoDetailsText, color.Faint))
	}
}

func (r *Renderer) imageLabel(s ImageState) string {
	switch s {
	case ImageLoaded:
		return r.paint(string(s), color.FgGreen)
	case ImageUnavailable:
		return r.paint(string(s), color.FgRed)
	default:
		return r.paint(string(s), color.Faint)
	}
}

// Snapshot writes the whole list view: cards, then the loading indicator,
// error text and footer that apply.
func (r *Renderer) Snapshot(s feed.Snapshot, states *States) {
	if s.Searching {
		fmt.Fprintf(r.out, "%s %q\n", r.paint("Search:", color.FgCyan), s.Query)
	}

	for _, l := range s.Items {
		var st ItemState
		if states != nil {
			st = states.Get(l.FlightNumber)
		}
		r.Card(l, st)
	}

	switch {
	case s.NoResults:
		fmt.Fprintln(r.out, r.paint(NoResultsText, color.Faint))
	case s.Loading:
		fmt.Fprintln(r.out, r.paint(LoadingText, color.FgCyan))
	case s.NoMore:
		fmt.Fprintln(r.out, r.paint(NoMoreText, color.Faint))
	}

	if s.Error != "" {
		fmt.Fprintln(r.out, r.paint(s.Error, color.FgRed))
	}
}

// Cards writes launches as collapsed cards.
func (r *Renderer) Cards(launches []launch.Launch) {
	for _, l := range launches {
		r.Card(l, ItemState{})
	}
}

// Table writes launches as an aligned table.
func (r *Renderer) Table(launches []launch.Launch) error {
	table := tablewriter.NewTable(r.out,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoWrap: tw.WrapNone,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoFormat: tw.On,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{
					ShowHeader: tw.Off,
				},
			},
		}),
	)

	table.Header("Flight", "Mission", "Rocket", "Date", "When", "Status")
	rows := make([][]string, 0, len(launches))
	for _, l := range launches {
		date := l.LaunchDateUTC
		if t, err := l.LaunchTime(); err == nil {
			date = t.UTC().Format("2006-01-02")
		}
		rows = append(rows, []string{
			strconv.Itoa(l.FlightNumber),
			l.MissionName,
			l.Rocket.RocketName,
			date,
			r.When(l),
			string(launch.StatusOf(l)),
		})
	}
	if err := table.Bulk(rows); err != nil {
		return fmt.Errorf("table rows: %w", err)
	}
	return table.Render()
}

// JSON writes launches as an indented JSON array.
func (r *Renderer) JSON(launches []launch.Launch) error {
	if launches == nil {
		launches = []launch.Launch{}
	}
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(launches)
}

// Write renders launches in the given format.
func (r *Renderer) Write(format Format, launches []launch.Launch) error {
	switch format {
	case FormatTable:
		return r.Table(launches)
	case FormatJSON:
		return r.JSON(launches)
	default:
		r.Cards(launches)
		return nil
	}
}

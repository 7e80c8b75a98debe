package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/launchlist/internal/render"
	"github.com/Sternrassler/launchlist/pkg/feed"
	"github.com/Sternrassler/launchlist/pkg/launch"
	"github.com/spf13/cobra"
)

const browseHelp = `Commands:
  <enter> or n   scroll to the end of the list (loads the next page)
  /text          search loaded launches by mission name
  /              clear the search
  d <flight>     show or hide the details of a launch
  ?              show this help
  q              quit`

// imageTimeout bounds a single mission patch probe.
const imageTimeout = 10 * time.Second

// imageProber checks whether a mission patch URL can be fetched.
type imageProber interface {
	ProbeImage(ctx context.Context, imageURL string) error
}

func newBrowseCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Interactively browse and search launches",
		Long: `browse shows the launch list and reads commands from standard input.
Scrolling to the end loads the next page; typing /text filters everything
loaded so far by mission name.

` + browseHelp,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, cleanup, err := a.newClient()
			if err != nil {
				return err
			}
			defer cleanup()

			s := newSession(cmd.Context(), c, c, a.renderer(cmd.OutOrStdout()), cmd.OutOrStdout(), a.cfg.FeedOptions(nil))
			return s.run(cmd.InOrStdin())
		},
	}
}

// session is one interactive browse run. Output from the coordinator's
// callbacks and from image probes is serialized through mu.
type session struct {
	ctx    context.Context
	coord  *feed.Coordinator
	prober imageProber
	states *render.States
	r      *render.Renderer

	mu  sync.Mutex
	out io.Writer

	wg sync.WaitGroup
}

func newSession(ctx context.Context, fetcher feed.Fetcher, prober imageProber, r *render.Renderer, out io.Writer, opts feed.Options) *session {
	return &session{
		ctx:    ctx,
		coord:  feed.New(fetcher, opts),
		prober: prober,
		states: render.NewStates(),
		r:      r,
		out:    out,
	}
}

// run drives the session until q, end of input or context cancellation.
func (s *session) run(in io.Reader) error {
	defer s.close()

	unsubscribe := s.coord.Subscribe(s.onChange)
	defer unsubscribe()

	s.locked(func() {
		s.r.Header()
		fmt.Fprintln(s.out, browseHelp)
	})

	// Failures surface in the rendered snapshot.
	_ = s.coord.LoadInitial(s.ctx)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if quit := s.handle(scanner.Text()); quit {
			return nil
		}
		if s.ctx.Err() != nil {
			return nil
		}
	}
	return scanner.Err()
}

func (s *session) close() {
	s.coord.Close()
	s.wg.Wait()
}

func (s *session) locked(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

func (s *session) println(a ...any) {
	s.locked(func() { fmt.Fprintln(s.out, a...) })
}

// onChange redraws the list whenever the coordinator settles.
func (s *session) onChange(snap feed.Snapshot) {
	s.locked(func() {
		if snap.Loading {
			fmt.Fprintln(s.out, render.LoadingText)
			return
		}
		fmt.Fprintln(s.out, "---")
		s.r.Snapshot(snap, s.states)
	})
}

// handle executes one input line and reports whether to quit.
func (s *session) handle(line string) bool {
	switch {
	case line == "" || line == "n":
		s.scroll()
	case line == "q":
		return true
	case line == "?":
		s.println(browseHelp)
	case strings.HasPrefix(line, "/"):
		s.coord.SetQuery(strings.TrimPrefix(line, "/"))
	case strings.HasPrefix(line, "d "):
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "d ")))
		if err != nil {
			s.println("Usage: d <flight number>")
			return false
		}
		s.toggle(n)
	default:
		s.println("Unknown command. Type ? for help.")
	}
	return false
}

// scroll brings the last rendered item into view. With nothing rendered
// after a failed first load, it retries the first page.
func (s *session) scroll() {
	snap := s.coord.Snapshot()
	switch {
	case snap.Loading:
		return
	case snap.Searching:
		s.println("Clear the search with / to load more launches.")
		return
	case len(snap.Items) == 0 && snap.Error != "":
		_ = s.coord.LoadInitial(s.ctx)
		return
	case len(snap.Items) == 0:
		s.println("No launches.")
		return
	}

	last := snap.Items[len(snap.Items)-1].FlightNumber
	if s.coord.Visible(last, true) {
		return
	}
	if snap.NoMore {
		s.println(render.NoMoreText)
	}
}

// toggle expands or collapses a card and probes its patch image the first
// time the card is expanded.
func (s *session) toggle(flightNumber int) {
	l, ok := s.find(flightNumber)
	if !ok {
		s.println(fmt.Sprintf("No launch #%d in the list.", flightNumber))
		return
	}

	st := s.states.Toggle(flightNumber)
	s.locked(func() { s.r.Card(l, st) })

	if !st.Expanded || st.Image != render.ImageLoading {
		return
	}
	if l.Links.MissionPatchSmall == "" || s.prober == nil {
		s.states.SetImage(flightNumber, render.ImageUnavailable)
		return
	}
	if !s.states.StartProbe(flightNumber) {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(s.ctx, imageTimeout)
		defer cancel()

		image := render.ImageLoaded
		if err := s.prober.ProbeImage(ctx, l.Links.MissionPatchSmall); err != nil {
			image = render.ImageUnavailable
		}
		s.states.SetImage(flightNumber, image)

		if st := s.states.Get(flightNumber); st.Expanded {
			s.locked(func() { s.r.Card(l, st) })
		}
	}()
}

func (s *session) find(flightNumber int) (launch.Launch, bool) {
	for _, l := range s.coord.Snapshot().Items {
		if l.FlightNumber == flightNumber {
			return l, true
		}
	}
	return launch.Launch{}, false
}

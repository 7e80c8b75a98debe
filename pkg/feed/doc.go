// Package feed coordinates the launch list: incremental page loads driven by
// a scroll sentinel, one accumulating cache of every loaded launch, and a
// debounced search filter over that cache.
//
// Typical wiring:
//
//	coord := feed.New(apiClient, feed.Options{Order: feed.OrderOldestFirst})
//	defer coord.Close()
//
//	coord.Subscribe(func(s feed.Snapshot) { render(s) })
//	if err := coord.LoadInitial(ctx); err != nil {
//		// error text is already part of the snapshot
//	}
//
//	// the host reports visibility of the last rendered item
//	coord.Visible(lastFlightNumber, true)
//
//	// keystrokes go through the debouncer
//	coord.SetQuery("starlink")
//
// All state lives in one Coordinator. At most one page fetch is in flight;
// a response that arrives after a reset is dropped.
package feed

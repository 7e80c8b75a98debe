// Package pagination provides limit/offset arithmetic and parallel batch
// fetching for the launch collection.
//
// The API has no total count header, so the batch fetcher requests pages in
// waves of MaxConcurrency parallel requests and stops at the first page that
// is shorter than the page size.
//
// Example usage:
//
//	config := pagination.DefaultConfig()
//	fetcher := pagination.NewBatchFetcher(apiClient, config)
//	launches, err := fetcher.FetchAll(ctx)
//
// The batch fetcher:
//   - Fetches pages offset 0, n, 2n, ... in parallel waves (default 4)
//   - Keeps results in page order and drops duplicate flight numbers
//   - Stops after the first short page
//   - Returns the pages collected so far together with the first error
package pagination

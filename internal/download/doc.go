// Package download provides the orchestration logic for fetching every tile
// of a bounding box from a private tile server.
//
// # Manager
//
// The Manager coordinates the entire download process:
//
//  1. Check that the output path is a directory and create it
//  2. Walk the tile sequence of the Config lazily
//  3. Fetch tiles concurrently, at most FetchRate at a time
//  4. Skip tiles already present on disk
//  5. Write each tile atomically to <output>/<z>/<x>/<y>
//
// # Basic Usage
//
//	cfg := download.Config{
//	    BoundingBox: bbox,
//	    FetchRate:   5,
//	    OutputDir:   "tiles",
//	    URL:         "http://localhost:8080/{z}/{x}/{y}.png",
//	    MaxZoom:     18,
//	}
//
//	manager, err := download.NewManager(cfg,
//	    download.WithLogger(log),
//	    download.WithProgress(func(event download.ProgressEvent) {
//	        fmt.Println(event.Message)
//	    }),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := manager.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Failure Isolation
//
// A tile that cannot be fetched is logged with its coordinates and cause and
// reported as a LevelError ProgressEvent. The run carries on and Run still
// returns nil. Only a bad output path or cancellation make Run fail.
//
// # Trust Boundary
//
// Rendered URLs go through the policy of the shared http.Client before any
// request is made. Tiles rejected by it fail with Op OpPolicy.
//
// # Progress Tracking
//
// Progress returns atomic counters that can be polled while Run is active:
//
//	p := manager.Progress()
//	fmt.Printf("%d/%d\n", p.Completed, p.Total)
package download

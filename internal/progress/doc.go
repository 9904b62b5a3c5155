// Package progress prints line-based download progress for output that is
// not a terminal.
//
//	reporter := progress.NewReporter(manager, progress.Options{})
//	reporter.Start()
//	err := manager.Run(ctx)
//	reporter.Stop()
//
// Each line reports completed and total tiles, throughput, failures and an
// estimate of the remaining time.
package progress

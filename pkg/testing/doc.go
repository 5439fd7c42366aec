// Package testing provides helpers for testing code built on the fabric
// core.
//
// # Recording Delegate
//
// Install a Recorder to capture everything a scheduler delivers:
//
//	rec := fabrictest.NewRecorder()
//	defer scheduler.SetDelegate(rec)()
//
//	scheduler.StartSurface(ctx, 1, "App", nil, constraints, layoutCtx)
//	rec.WaitForCommits(t, 1, 1)
//	got := rec.Transactions(1)
//
// # Snapshot Testing
//
// Capture mutation lists or shadow trees and compare them with golden files:
//
//	snap := fabrictest.CaptureMutations(list)
//	snap.MatchesFile(t, "testdata/reorder.snapshot.json")
//
// Update snapshots with:
//
//	FABRIC_UPDATE_SNAPSHOTS=1 go test ./...
//
// # Time
//
// FakeClock makes commit timings deterministic.
//
// # Import Alias
//
// Since this package has the same name as the standard library testing
// package, import it with an alias:
//
//	import fabrictest "github.com/go-drift/fabric/pkg/testing"
package testing

package uimanager

import (
	"time"

	"github.com/go-drift/fabric/pkg/mounting"
	"github.com/go-drift/fabric/pkg/shadow"
)

// TransactionInfo carries the timing of one commit.
type TransactionInfo struct {
	CommitStart time.Time
	LayoutTime  time.Duration
}

// SchedulerDelegate consumes the scheduler's output. For one surface, calls
// arrive in commit order and never concurrently.
type SchedulerDelegate interface {
	// SchedulerDidFinishTransaction delivers the mutations of one commit.
	SchedulerDidFinishTransaction(surface shadow.SurfaceID, mutations mounting.MutationList, commitNumber uint64, info TransactionInfo)

	// SchedulerDidFinishUITransaction reports that a producer transaction
	// replacing the root's children was committed.
	SchedulerDidFinishUITransaction(surface shadow.SurfaceID, rootChildren []*shadow.Node, startCommitTime time.Time)

	// SchedulerDidCreateShadowNode is called for every node the scheduler's
	// builder creates. It may run on any goroutine and is advisory.
	SchedulerDidCreateShadowNode(node *shadow.Node)
}

// delegateRegistration identifies one SetDelegate call so that a stale
// unregister cannot clear a newer delegate.
type delegateRegistration struct {
	delegate SchedulerDelegate
}

package testing

import (
	"sync"
	"time"

	"github.com/go-drift/fabric/pkg/mounting"
	"github.com/go-drift/fabric/pkg/shadow"
	"github.com/go-drift/fabric/pkg/uimanager"
)

// waitTimeout bounds how long Wait helpers block.
const waitTimeout = 5 * time.Second

// Transaction is one delivered commit.
type Transaction struct {
	Surface      shadow.SurfaceID
	Mutations    mounting.MutationList
	CommitNumber uint64
	Info         uimanager.TransactionInfo
}

// UITransaction is one delivered producer transaction.
type UITransaction struct {
	Surface      shadow.SurfaceID
	RootChildren []*shadow.Node
	Start        time.Time
}

// Recorder is a uimanager.SchedulerDelegate that records every callback.
// It is safe for concurrent use.
type Recorder struct {
	mu             sync.Mutex
	transactions   []Transaction
	uiTransactions []UITransaction
	created        []*shadow.Node
	changed        chan struct{}

	// OnTransaction, when set, runs after a commit is recorded.
	OnTransaction func(Transaction)
}

var _ uimanager.SchedulerDelegate = (*Recorder)(nil)

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{changed: make(chan struct{})}
}

func (r *Recorder) SchedulerDidFinishTransaction(surface shadow.SurfaceID, mutations mounting.MutationList, commitNumber uint64, info uimanager.TransactionInfo) {
	tx := Transaction{Surface: surface, Mutations: mutations, CommitNumber: commitNumber, Info: info}
	r.mu.Lock()
	r.transactions = append(r.transactions, tx)
	r.notifyLocked()
	hook := r.OnTransaction
	r.mu.Unlock()
	if hook != nil {
		hook(tx)
	}
}

func (r *Recorder) SchedulerDidFinishUITransaction(surface shadow.SurfaceID, rootChildren []*shadow.Node, startCommitTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uiTransactions = append(r.uiTransactions, UITransaction{Surface: surface, RootChildren: rootChildren, Start: startCommitTime})
	r.notifyLocked()
}

func (r *Recorder) SchedulerDidCreateShadowNode(node *shadow.Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, node)
}

func (r *Recorder) notifyLocked() {
	close(r.changed)
	r.changed = make(chan struct{})
}

// Transactions returns the commits delivered for surface, in delivery order.
func (r *Recorder) Transactions(surface shadow.SurfaceID) []Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Transaction
	for _, tx := range r.transactions {
		if tx.Surface == surface {
			out = append(out, tx)
		}
	}
	return out
}

// CommitNumbers returns the delivered commit numbers of surface.
func (r *Recorder) CommitNumbers(surface shadow.SurfaceID) []uint64 {
	var out []uint64
	for _, tx := range r.Transactions(surface) {
		out = append(out, tx.CommitNumber)
	}
	return out
}

// Last returns the most recent commit delivered for surface.
func (r *Recorder) Last(surface shadow.SurfaceID) (Transaction, bool) {
	txs := r.Transactions(surface)
	if len(txs) == 0 {
		return Transaction{}, false
	}
	return txs[len(txs)-1], true
}

// UITransactions returns the producer transactions delivered for surface.
func (r *Recorder) UITransactions(surface shadow.SurfaceID) []UITransaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []UITransaction
	for _, tx := range r.uiTransactions {
		if tx.Surface == surface {
			out = append(out, tx)
		}
	}
	return out
}

// Created returns the nodes reported as created.
func (r *Recorder) Created() []*shadow.Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*shadow.Node(nil), r.created...)
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transactions = nil
	r.uiTransactions = nil
	r.created = nil
}

// WaitForCommits blocks until at least n commits of surface were delivered
// and fails t if that does not happen in time.
func (r *Recorder) WaitForCommits(t TestingT, surface shadow.SurfaceID, n int) {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		r.mu.Lock()
		count := 0
		for _, tx := range r.transactions {
			if tx.Surface == surface {
				count++
			}
		}
		changed := r.changed
		r.mu.Unlock()
		if count >= n {
			return
		}
		select {
		case <-changed:
		case <-deadline:
			t.Fatalf("timed out waiting for %d commits of surface %d, got %d", n, surface, count)
			return
		}
	}
}

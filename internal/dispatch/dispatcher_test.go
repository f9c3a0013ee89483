package dispatch

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"BeliefSentinel/internal/audit"
	"BeliefSentinel/internal/encryptor"
	"BeliefSentinel/internal/ledger"
	"BeliefSentinel/internal/model"
	"BeliefSentinel/internal/store"
	"BeliefSentinel/internal/vault"
)

type fixture struct {
	dispatcher *Dispatcher
	ledger     *ledger.Mock
	encrypter  *encryptor.Mock
	vault      *vault.Vault
	auditLog   *audit.Log
	activity   *audit.Feed
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend, err := store.NewSQLiteBackend(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	s, err := store.New(backend, "test-secret")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	f := &fixture{
		ledger:    ledger.NewMock(),
		encrypter: &encryptor.Mock{},
		vault:     vault.New(s),
		auditLog:  audit.NewLog(s),
		activity:  audit.NewFeed(),
	}
	f.dispatcher = &Dispatcher{
		Ledger:    f.ledger,
		Vault:     f.vault,
		Encrypter: f.encrypter,
		Audit:     f.auditLog,
		Activity:  f.activity,
		Book:      NewBook(),
		Stats:     NewStatsBook(s),
	}
	return f
}

func testRec(agentID uint64) model.Recommendation {
	return model.Recommendation{
		ID:             "rec-1",
		AgentID:        agentID,
		MarketID:       4,
		Symbol:         "WTI/USD",
		Direction:      true,
		Confidence:     72,
		SuggestedStake: 25,
		CurrentPrice:   82.5,
		TargetPrice:    80,
		Status:         model.RecPending,
	}
}

func lastAudit(t *testing.T, l *audit.Log, action model.AuditAction) model.AuditEntry {
	t.Helper()
	for _, e := range l.Entries() {
		if e.Action == action {
			return e
		}
	}
	t.Fatalf("no audit entry with action %q", action)
	return model.AuditEntry{}
}

func TestDispatchManualStaysPending(t *testing.T) {
	f := newFixture(t)
	profile := model.AgentProfile{ID: 1, Name: "Watcher", AutoExecute: false}

	out := f.dispatcher.Dispatch(context.Background(), profile, testRec(1))
	if out.Status != model.RecPending {
		t.Errorf("status = %q, want pending", out.Status)
	}
	if len(f.ledger.Submissions) != 0 {
		t.Error("manual dispatch must not submit")
	}
	if f.encrypter.Calls != 0 {
		t.Error("manual dispatch must not encrypt")
	}
	if !f.dispatcher.Book.HasPending(1) {
		t.Error("expected pending recommendation in book")
	}

	entry := lastAudit(t, f.auditLog, model.AuditRecommendation)
	if entry.Metadata["mode"] != "manual" {
		t.Errorf("audit mode = %v", entry.Metadata["mode"])
	}
	if !strings.Contains(entry.Summary, "WTI/USD") {
		t.Errorf("summary %q misses symbol", entry.Summary)
	}
}

func TestDispatchAutoExecutes(t *testing.T) {
	f := newFixture(t)
	if _, err := f.vault.Create(1); err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	profile := model.AgentProfile{ID: 1, Name: "Runner", AutoExecute: true}

	out := f.dispatcher.Dispatch(context.Background(), profile, testRec(1))
	if out.Status != model.RecExecuted {
		t.Errorf("status = %q, want executed", out.Status)
	}
	if out.TxHash == "" {
		t.Error("expected tx hash on success")
	}
	if len(f.ledger.Submissions) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(f.ledger.Submissions))
	}
	sub := f.ledger.Submissions[0]
	if sub.AgentID != 1 || sub.MarketID != 4 || sub.Stake != 25 {
		t.Errorf("wrong submission %+v", sub)
	}
	if f.encrypter.Calls != 1 {
		t.Errorf("encrypter calls = %d", f.encrypter.Calls)
	}
	if f.dispatcher.Book.HasPending(1) {
		t.Error("executed recommendation must not read as pending")
	}

	entry := lastAudit(t, f.auditLog, model.AuditExecuted)
	if entry.Metadata["tx_hash"] != out.TxHash {
		t.Errorf("audit tx %v vs %q", entry.Metadata["tx_hash"], out.TxHash)
	}
}

func TestDispatchAutoFailureIsTerminal(t *testing.T) {
	f := newFixture(t)
	if _, err := f.vault.Create(1); err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	f.ledger.SubmitErr = errors.New("rpc down")
	profile := model.AgentProfile{ID: 1, Name: "Runner", AutoExecute: true}

	out := f.dispatcher.Dispatch(context.Background(), profile, testRec(1))
	if out.Status != model.RecExecuted {
		t.Errorf("status = %q, want executed even on failure", out.Status)
	}
	if out.TxHash != "" {
		t.Errorf("unexpected tx hash %q", out.TxHash)
	}
	if f.dispatcher.Book.HasPending(1) {
		t.Error("failed execution must not block future scans as pending")
	}

	entry := lastAudit(t, f.auditLog, model.AuditError)
	if !strings.Contains(entry.Summary, "rpc down") {
		t.Errorf("error summary %q", entry.Summary)
	}
}

func TestDispatchAutoWithoutWallet(t *testing.T) {
	f := newFixture(t)
	profile := model.AgentProfile{ID: 1, Name: "Runner", AutoExecute: true}

	out := f.dispatcher.Dispatch(context.Background(), profile, testRec(1))
	if out.Status != model.RecExecuted || out.TxHash != "" {
		t.Errorf("got status %q tx %q", out.Status, out.TxHash)
	}
	if len(f.ledger.Submissions) != 0 {
		t.Error("must not submit without a delegate wallet")
	}
	lastAudit(t, f.auditLog, model.AuditError)
}

func TestApprove(t *testing.T) {
	f := newFixture(t)
	profile := model.AgentProfile{ID: 1, Name: "Watcher", AutoExecute: false}
	out := f.dispatcher.Dispatch(context.Background(), profile, testRec(1))

	if err := f.dispatcher.Approve(out.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	got, ok := f.dispatcher.Book.Get(out.ID)
	if !ok || got.Status != model.RecExecuted {
		t.Errorf("status after approve = %q", got.Status)
	}

	stats := f.dispatcher.Stats.Get(1)
	if stats.TotalApproved != 1 || stats.TotalExecuted != 1 {
		t.Errorf("stats %+v", stats)
	}
	entry := lastAudit(t, f.auditLog, model.AuditExecuted)
	if entry.Metadata["mode"] != "manual" {
		t.Errorf("audit mode = %v", entry.Metadata["mode"])
	}

	// Terminal: a second transition must fail.
	if err := f.dispatcher.Reject(out.ID); err == nil {
		t.Error("expected error rejecting an executed recommendation")
	}
}

func TestReject(t *testing.T) {
	f := newFixture(t)
	profile := model.AgentProfile{ID: 1, Name: "Watcher", AutoExecute: false}
	out := f.dispatcher.Dispatch(context.Background(), profile, testRec(1))

	if err := f.dispatcher.Reject(out.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	got, _ := f.dispatcher.Book.Get(out.ID)
	if got.Status != model.RecRejected {
		t.Errorf("status after reject = %q", got.Status)
	}
	if f.dispatcher.Book.HasPending(1) {
		t.Error("rejected recommendation still pending")
	}
	if f.dispatcher.Stats.Get(1).TotalRejected != 1 {
		t.Error("rejection not counted")
	}

	if err := f.dispatcher.Approve(out.ID); err == nil {
		t.Error("expected error approving a rejected recommendation")
	}
}

func TestApproveUnknownID(t *testing.T) {
	f := newFixture(t)
	if err := f.dispatcher.Approve("nope"); err == nil {
		t.Error("expected error for unknown id")
	}
}

func TestBookCap(t *testing.T) {
	b := NewBook()
	for i := 0; i < maxRecommendations+5; i++ {
		rec := testRec(1)
		rec.ID = string(rune('a'+i%26)) + "-" + rec.ID
		b.Add(rec)
	}
	if got := len(b.All()); got != maxRecommendations {
		t.Errorf("book holds %d, want %d", got, maxRecommendations)
	}
}

func TestRecordScanRunningMean(t *testing.T) {
	backend, err := store.NewSQLiteBackend(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	s, err := store.New(backend, "test-secret")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer s.Close()
	sb := NewStatsBook(s)

	sb.RecordScan(1, []model.Recommendation{
		{Confidence: 60, Status: model.RecExecuted},
		{Confidence: 80, Status: model.RecPending},
	})
	sb.RecordScan(1, nil)
	sb.RecordScan(1, []model.Recommendation{
		{Confidence: 90, Status: model.RecExecuted},
	})

	got := sb.Get(1)
	if got.TotalScans != 3 {
		t.Errorf("TotalScans = %d", got.TotalScans)
	}
	if got.TotalRecommendations != 3 {
		t.Errorf("TotalRecommendations = %d", got.TotalRecommendations)
	}
	if got.TotalExecuted != 2 {
		t.Errorf("TotalExecuted = %d", got.TotalExecuted)
	}
	want := (60.0 + 80.0 + 90.0) / 3.0
	if got.AvgConfidence < want-1e-9 || got.AvgConfidence > want+1e-9 {
		t.Errorf("AvgConfidence = %v, want %v", got.AvgConfidence, want)
	}
}

func TestConcurrentUpdatePersistsNewest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	backend, err := store.NewSQLiteBackend(path)
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	s, err := store.New(backend, "test-secret")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	sb := NewStatsBook(s)

	const writers = 8
	const perWriter = 25
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				sb.Update(1, func(st *model.AgentStats) { st.TotalScans++ })
			}
		}()
	}
	wg.Wait()

	want := writers * perWriter
	if got := sb.Get(1).TotalScans; got != want {
		t.Fatalf("in-memory TotalScans = %d, want %d", got, want)
	}
	s.Close()

	// A stale snapshot winning the last write would reload short.
	backend2, err := store.NewSQLiteBackend(path)
	if err != nil {
		t.Fatalf("reopen backend: %v", err)
	}
	s2, err := store.New(backend2, "test-secret")
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer s2.Close()
	if got := NewStatsBook(s2).Get(1).TotalScans; got != want {
		t.Errorf("persisted TotalScans = %d, want %d", got, want)
	}
}

func TestStatsPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	backend, err := store.NewSQLiteBackend(path)
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	s, err := store.New(backend, "test-secret")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	sb := NewStatsBook(s)
	sb.Update(3, func(st *model.AgentStats) { st.TotalScans = 7 })
	s.Close()

	backend2, err := store.NewSQLiteBackend(path)
	if err != nil {
		t.Fatalf("reopen backend: %v", err)
	}
	s2, err := store.New(backend2, "test-secret")
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer s2.Close()
	if got := NewStatsBook(s2).Get(3).TotalScans; got != 7 {
		t.Errorf("reloaded TotalScans = %d", got)
	}
}

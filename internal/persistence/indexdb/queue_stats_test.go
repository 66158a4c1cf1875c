package indexdb

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	persistlog "anthill.game/internal/persistence/log"
	"anthill.game/internal/persistence/snapshot"
	"anthill.game/internal/sim/colony"
)

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqTick, tick: colony.TickLogEntry{Tick: 1}}

	_ = s.WriteTick(colony.TickLogEntry{Tick: 2})
	_ = s.WriteAudit(persistlog.AuditEntry{Tick: 2})
	s.RecordSnapshot("/tmp/2.snap.zst", snapshot.Snapshot{})

	st := s.Stats()
	if st.DropTickTotal != 1 {
		t.Fatalf("DropTickTotal=%d want=1", st.DropTickTotal)
	}
	if st.DropAuditTotal != 1 {
		t.Fatalf("DropAuditTotal=%d want=1", st.DropAuditTotal)
	}
	if st.DropSnapshotTotal != 1 {
		t.Fatalf("DropSnapshotTotal=%d want=1", st.DropSnapshotTotal)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestD1Index_RetainsBatchOnFlushFailure(t *testing.T) {
	var mu sync.Mutex
	reqCount := 0
	applied := 0
	var kinds []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		reqCount++
		thisReq := reqCount
		mu.Unlock()

		if thisReq <= 3 {
			http.Error(w, "temporary failure", http.StatusInternalServerError)
			return
		}

		var body struct {
			Events []d1Event `json:"events"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		mu.Lock()
		applied += len(body.Events)
		for _, ev := range body.Events {
			kinds = append(kinds, ev.Kind)
		}
		mu.Unlock()

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	idx, err := OpenD1(D1Config{
		Endpoint:      srv.URL,
		RunID:         "run_1",
		BatchSize:     1,
		FlushInterval: 20 * time.Millisecond,
		HTTPTimeout:   2 * time.Second,
	})
	if err != nil {
		t.Fatalf("OpenD1: %v", err)
	}
	defer func() { _ = idx.Close() }()

	if err := idx.WriteTick(colony.TickLogEntry{Tick: 123, Digest: "abc"}); err != nil {
		t.Fatalf("WriteTick: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		done := applied >= 1
		mu.Unlock()
		if done {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	mu.Lock()
	finalApplied := applied
	finalReqCount := reqCount
	finalKinds := append([]string(nil), kinds...)
	mu.Unlock()

	if finalApplied < 1 {
		t.Fatalf("expected retained batch to be eventually delivered; applied=%d reqCount=%d", finalApplied, finalReqCount)
	}
	if finalKinds[0] != "tick" {
		t.Fatalf("kinds=%v", finalKinds)
	}

	st := idx.Stats()
	if st.FlushFailTotal == 0 {
		t.Fatalf("expected flush failures to be recorded, got 0")
	}
	if st.QueueDroppedTotal != 0 {
		t.Fatalf("unexpected queue drops: %d", st.QueueDroppedTotal)
	}
}

func TestOpenD1_RequiresEndpointAndRun(t *testing.T) {
	if _, err := OpenD1(D1Config{RunID: "r"}); err == nil {
		t.Fatalf("expected error for empty endpoint")
	}
	if _, err := OpenD1(D1Config{Endpoint: "http://127.0.0.1:1"}); err == nil {
		t.Fatalf("expected error for empty run id")
	}
}

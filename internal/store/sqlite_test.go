package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/nhle/mailsweep/internal/model"
	"github.com/nhle/mailsweep/tests/testutil"
)

func TestMergeScannedIDsUnionOnly(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	if err := s.MergeScannedIDs(ctx, []string{"id1@a.com", "id2@b.com"}); err != nil {
		t.Fatalf("MergeScannedIDs: %v", err)
	}

	count, err := s.CountScannedIDs(ctx)
	if err != nil {
		t.Fatalf("CountScannedIDs: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	// Re-merging existing ids plus one new one only grows the set.
	if err := s.MergeScannedIDs(ctx, []string{"id1@a.com", "id2@b.com", "id3@c.com"}); err != nil {
		t.Fatalf("MergeScannedIDs: %v", err)
	}

	ids, err := s.LoadScannedIDs(ctx)
	if err != nil {
		t.Fatalf("LoadScannedIDs: %v", err)
	}
	if len(ids) != 3 {
		t.Errorf("set size = %d, want 3", len(ids))
	}
	for _, id := range []string{"id1@a.com", "id2@b.com", "id3@c.com"} {
		if _, ok := ids[id]; !ok {
			t.Errorf("set missing %q", id)
		}
	}
}

func TestMergeScannedIDsEmptyBatch(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	if err := s.MergeScannedIDs(ctx, nil); err != nil {
		t.Fatalf("MergeScannedIDs(nil): %v", err)
	}
	count, err := s.CountScannedIDs(ctx)
	if err != nil {
		t.Fatalf("CountScannedIDs: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestContainsScannedID(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	if err := s.MergeScannedIDs(ctx, []string{"known@x.com"}); err != nil {
		t.Fatalf("MergeScannedIDs: %v", err)
	}

	ok, err := s.ContainsScannedID(ctx, "known@x.com")
	if err != nil {
		t.Fatalf("ContainsScannedID: %v", err)
	}
	if !ok {
		t.Error("ContainsScannedID(known) = false, want true")
	}

	ok, err = s.ContainsScannedID(ctx, "unknown@x.com")
	if err != nil {
		t.Fatalf("ContainsScannedID: %v", err)
	}
	if ok {
		t.Error("ContainsScannedID(unknown) = true, want false")
	}
}

func TestScanRunLifecycle(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	started := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	if err := s.BeginRun(ctx, "run-1", started); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	run := model.ScanRun{
		ID:         "run-1",
		FinishedAt: started.Add(2 * time.Minute),
		Processed:  40,
		Skipped:    10,
		Failed:     2,
	}
	if err := s.FinishRun(ctx, run); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
}

func TestOutcomesAppendOrder(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	attempted := time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC)
	outcomes := []model.UnsubscribeOutcome{
		{Domain: "shopco.com", Token: "abc123", AttemptedAt: attempted, Result: model.OutcomeSuccess, Detail: "HTTP 200 after 1 attempt(s)"},
		{Domain: "news.example", Token: "t9", AttemptedAt: attempted.Add(time.Second), Result: model.OutcomeFailed, Detail: "HTTP 404"},
		{Domain: "lists.example", Token: "leave@lists.example", AttemptedAt: attempted.Add(2 * time.Second), Result: model.OutcomeManualRequired, Detail: "mailto mechanism"},
	}
	for _, o := range outcomes {
		if err := s.AppendOutcome(ctx, o); err != nil {
			t.Fatalf("AppendOutcome(%s): %v", o.Domain, err)
		}
	}

	got, err := s.ListOutcomes(ctx)
	if err != nil {
		t.Fatalf("ListOutcomes: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, o := range got {
		if o.Domain != outcomes[i].Domain {
			t.Errorf("outcome[%d].Domain = %q, want %q", i, o.Domain, outcomes[i].Domain)
		}
		if o.Result != outcomes[i].Result {
			t.Errorf("outcome[%d].Result = %q, want %q", i, o.Result, outcomes[i].Result)
		}
		if o.Detail != outcomes[i].Detail {
			t.Errorf("outcome[%d].Detail = %q, want %q", i, o.Detail, outcomes[i].Detail)
		}
	}
}

func TestAppendOutcomeRejectsUnknownResult(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	err := s.AppendOutcome(ctx, model.UnsubscribeOutcome{
		Domain:      "x.example",
		Token:       "t",
		AttemptedAt: time.Now(),
		Result:      model.OutcomeResult("Bogus"),
	})
	if err == nil {
		t.Fatal("AppendOutcome accepted an unknown result value")
	}
}

package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/microcaplab/tradegate/internal/trade"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func sampleVerdicts() []trade.TradeVerdict {
	return []trade.TradeVerdict{
		{
			Candidate: trade.TradeCandidate{
				Action:       trade.Buy,
				Symbol:       "ABCD",
				Shares:       10,
				ClaimedPrice: decimal.RequireFromString("4.20"),
			},
			Status:           trade.Accepted,
			Reason:           trade.ReasonOK,
			Detail:           "executes at verified price $4.20",
			VerifiedPrice:    decimal.RequireFromString("4.20"),
			HasVerifiedPrice: true,
		},
		{
			Candidate: trade.TradeCandidate{
				Action:       trade.Sell,
				Symbol:       "WXYZ",
				Shares:       5,
				ClaimedPrice: decimal.RequireFromString("2.00"),
			},
			Status: trade.Rejected,
			Reason: trade.ReasonUnverifiedSymbol,
			Detail: "WXYZ is not in the verified dataset",
		},
	}
}

func TestJournalRecordAndRead(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	run := RunRecord{
		ID:               "run-1",
		Mode:             ModeLive,
		Model:            "gpt-4",
		SymbolsRequested: []string{"ABCD", "WXYZ"},
		SymbolsVerified:  []string{"ABCD"},
		SymbolsFailed:    []string{"WXYZ"},
		Confidence:       0.85,
		CashBefore:       "1000",
		CashAfter:        "958",
	}
	if err := j.RecordRun(ctx, run, sampleVerdicts(), true); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	runs, err := j.ListRuns(ctx, 0, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	got := runs[0]
	if got.ID != "run-1" || got.Mode != ModeLive || got.Model != "gpt-4" {
		t.Errorf("run fields wrong: %+v", got.RunRecord)
	}
	if len(got.SymbolsRequested) != 2 || got.SymbolsRequested[1] != "WXYZ" {
		t.Errorf("requested symbols = %v", got.SymbolsRequested)
	}
	if len(got.SymbolsVerified) != 1 || len(got.SymbolsFailed) != 1 {
		t.Errorf("verified/failed = %v / %v", got.SymbolsVerified, got.SymbolsFailed)
	}
	if got.CashBefore != "1000" || got.CashAfter != "958" {
		t.Errorf("cash = %s -> %s", got.CashBefore, got.CashAfter)
	}
	if got.StartedAt == "" {
		t.Error("started_at not populated")
	}

	verdicts, err := j.ListVerdicts(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListVerdicts: %v", err)
	}
	if len(verdicts) != 2 {
		t.Fatalf("expected 2 verdicts, got %d", len(verdicts))
	}
	first := verdicts[0]
	if first.Seq != 1 || first.Action != "BUY" || first.Symbol != "ABCD" || first.Shares != 10 {
		t.Errorf("first verdict wrong: %+v", first)
	}
	if first.VerifiedPrice != "4.2" || !first.Executed {
		t.Errorf("first verdict price/executed wrong: %+v", first)
	}
	second := verdicts[1]
	if second.Status != string(trade.Rejected) || second.Reason != string(trade.ReasonUnverifiedSymbol) {
		t.Errorf("second verdict wrong: %+v", second)
	}
	if second.VerifiedPrice != "" || second.Executed {
		t.Errorf("rejected verdict must not be executed: %+v", second)
	}
}

func TestJournalDryRunNeverExecuted(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	run := RunRecord{ID: "run-dry", Mode: ModeDryRun}
	if err := j.RecordRun(ctx, run, sampleVerdicts(), false); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	verdicts, err := j.ListVerdicts(ctx, "run-dry")
	if err != nil {
		t.Fatalf("ListVerdicts: %v", err)
	}
	for _, v := range verdicts {
		if v.Executed {
			t.Errorf("dry-run verdict marked executed: %+v", v)
		}
	}
}

func TestJournalGetRun(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	if err := j.RecordRun(ctx, RunRecord{ID: "run-x", Mode: ModeLive}, nil, true); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	got, err := j.GetRun(ctx, "run-x")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got == nil || got.ID != "run-x" {
		t.Fatalf("GetRun = %+v", got)
	}

	missing, err := j.GetRun(ctx, "never-ran")
	if err != nil {
		t.Fatalf("GetRun missing: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown run, got %+v", missing)
	}
}

func TestJournalPagination(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	for _, id := range []string{"run-a", "run-b", "run-c"} {
		if err := j.RecordRun(ctx, RunRecord{ID: id, Mode: ModeDryRun}, nil, false); err != nil {
			t.Fatalf("RecordRun %s: %v", id, err)
		}
	}

	page, err := j.ListRuns(ctx, 0, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(page) != 2 || page[0].ID != "run-c" || page[1].ID != "run-b" {
		t.Fatalf("first page wrong: %+v", page)
	}

	rest, err := j.ListRuns(ctx, page[1].RowID, 2)
	if err != nil {
		t.Fatalf("ListRuns cursor: %v", err)
	}
	if len(rest) != 1 || rest[0].ID != "run-a" {
		t.Fatalf("second page wrong: %+v", rest)
	}
}

func TestJournalRequiresRunID(t *testing.T) {
	j := openTestJournal(t)
	if err := j.RecordRun(context.Background(), RunRecord{}, nil, false); err == nil {
		t.Fatal("expected error for missing run id")
	}
}

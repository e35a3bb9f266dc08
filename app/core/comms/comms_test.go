package comms

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileSinkAppendsJSONLines(t *testing.T) {
	dir := t.TempDir()
	sink := NewFileSink(dir)

	ts := time.Date(2026, 8, 30, 14, 5, 0, 0, time.UTC)
	sink.Append(Record{
		Timestamp: ts,
		RequestID: "req-1",
		FromRole:  "orchestrator",
		ToRole:    "idea",
		Skill:     "generate_ideas",
		Attempt:   1,
		Status:    StatusSuccess,
	})
	sink.Append(Record{
		Timestamp: ts.Add(time.Second),
		RequestID: "req-2",
		FromRole:  "orchestrator",
		ToRole:    "critic",
		Skill:     "critique_idea",
		Attempt:   1,
		Status:    StatusError,
		Error:     "connection refused",
	})

	logPath := filepath.Join(dir, "2026-08-30", "comms_20260830-14.jsonl")
	f, err := os.Open(logPath)
	if err != nil {
		t.Fatalf("open log file failed: %v", err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("invalid JSON line: %v", err)
		}
		records = append(records, rec)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].RequestID != "req-1" || records[0].Status != StatusSuccess {
		t.Fatalf("unexpected first record: %+v", records[0])
	}
	if records[1].Error != "connection refused" {
		t.Fatalf("error message not preserved: %+v", records[1])
	}
}

func TestMemorySinkGroupsByRequestID(t *testing.T) {
	sink := NewMemorySink()

	sink.Append(Record{RequestID: "req-1", Attempt: 1, Status: StatusRetry})
	sink.Append(Record{RequestID: "req-1", Attempt: 2, Status: StatusSuccess})
	sink.Append(Record{RequestID: "req-2", Attempt: 1, Status: StatusSuccess})

	grouped := sink.ByRequestID()
	if len(grouped) != 2 {
		t.Fatalf("expected 2 logical calls, got %d", len(grouped))
	}
	if len(grouped["req-1"]) != 2 {
		t.Fatalf("expected 2 attempts for req-1, got %d", len(grouped["req-1"]))
	}
	if grouped["req-1"][0].Status != StatusRetry || grouped["req-1"][1].Status != StatusSuccess {
		t.Fatalf("attempt order lost: %+v", grouped["req-1"])
	}
}

func TestMemorySinkRecordsReturnsCopy(t *testing.T) {
	sink := NewMemorySink()
	sink.Append(Record{RequestID: "req-1"})

	first := sink.Records()
	first[0].RequestID = "mutated"

	if sink.Records()[0].RequestID != "req-1" {
		t.Fatal("caller mutation leaked into sink")
	}
}

package pdu

import (
	"regexp"
	"testing"
)

func TestParseDeliveryReportGood(t *testing.T) {
	good := "id:123123123 sub:001 dlvrd:001 submit date:1507011202 done date:1507011101 stat:DELIVRD err:000 text:Test information"
	report, ok := ParseDeliveryReport(nil, good)
	if !ok {
		t.Fatalf("expected report to match")
	}
	if report["id"] != "123123123" {
		t.Errorf("id = %q, want 123123123", report["id"])
	}
	if report["stat"] != "DELIVRD" {
		t.Errorf("stat = %q, want DELIVRD", report["stat"])
	}
	if report["done_date"] != "1507011101" {
		t.Errorf("done_date = %q, want 1507011101", report["done_date"])
	}
	if report["text"] != "Test information" {
		t.Errorf("text = %q, want Test information", report["text"])
	}
}

func TestParseDeliveryReportTruncatesText(t *testing.T) {
	long := "id:SM1 sub:001 dlvrd:001 submit date:1507011202 done date:1507011101 stat:DELIVRD err:000 text:this text is much longer than twenty characters"
	report, ok := ParseDeliveryReport(nil, long)
	if !ok {
		t.Fatalf("expected report to match")
	}
	if len(report["text"]) != 20 {
		t.Errorf("text length = %d, want 20 (truncated)", len(report["text"]))
	}
}

func TestParseDeliveryReportNoMatch(t *testing.T) {
	_, ok := ParseDeliveryReport(nil, "this is not a delivery report")
	if ok {
		t.Errorf("expected no match")
	}
}

func TestParseDeliveryReportCustomPattern(t *testing.T) {
	pattern := regexp.MustCompile(`MsgId=(?P<id>\w+) Status=(?P<stat>[A-Z]+)`)
	report, ok := ParseDeliveryReport(pattern, "MsgId=abc123 Status=DELIVRD")
	if !ok {
		t.Fatalf("expected custom pattern to match")
	}
	if report["id"] != "abc123" || report["stat"] != "DELIVRD" {
		t.Errorf("unexpected report: %+v", report)
	}
}

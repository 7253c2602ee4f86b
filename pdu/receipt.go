package pdu

import (
	"regexp"
)

// DelStat is the "stat" field of a delivery report as carried on the wire.
// SMSCs vary in exactly which of these they send; the worker layer maps the
// handful that matter (DELIVRD/0, REJECTD, anything else) down to a
// delivered/failed/pending tri-state.
type DelStat string

const (
	DelStatEnRoute       DelStat = "ENROUTE"
	DelStatDelivered     DelStat = "DELIVRD"
	DelStatExpired       DelStat = "EXPIRED"
	DelStatDeleted       DelStat = "DELETED"
	DelStatUndeliverable DelStat = "UNDELIV"
	DelStatAccepted      DelStat = "ACCEPTD"
	DelStatUnknown       DelStat = "UNKNOWN"
	DelStatRejected      DelStat = "REJECTD"
)

// DefaultDeliveryReportPattern is the regular expression used to recognize
// and parse a delivery report carried in the short_message of an unsolicited
// deliver_sm. Named capture groups become the keys of the map returned by
// ParseDeliveryReport. The text group is bounded to 20 characters, matching
// the conventional SMSC delivery receipt format; this is a known limitation
// of that format, not a bug, and callers should not rely on getting the
// full message text back out of a receipt.
var DefaultDeliveryReportPattern = regexp.MustCompile(
	`id:(?P<id>\S{0,65})` +
		` +sub:(?P<sub>...)` +
		` +dlvrd:(?P<dlvrd>...)` +
		` +submit date:(?P<submit_date>\d*)` +
		` +done date:(?P<done_date>\d*)` +
		` +stat:(?P<stat>[A-Z]{7})` +
		` +err:(?P<err>...)` +
		` +[Tt]ext:(?P<text>.{0,20})` +
		`.*`)

// LooksLikeDeliveryReport is a cheap pre-check used by the session to decide
// whether an unsolicited deliver_sm should be routed to the delivery_report
// callback instead of deliver_sm.
func LooksLikeDeliveryReport(esm EsmClass) bool {
	return esm.Type == DelRecEsmType
}

// ParseDeliveryReport matches text against pattern and, on success, returns
// the named capture groups as a string map keyed by group name (id, sub,
// dlvrd, submit_date, done_date, stat, err, text). ok is false if the
// pattern didn't match, in which case the caller should treat the PDU as a
// plain deliver_sm instead of a delivery report.
func ParseDeliveryReport(pattern *regexp.Regexp, text string) (map[string]string, bool) {
	if pattern == nil {
		pattern = DefaultDeliveryReportPattern
	}
	match := pattern.FindStringSubmatch(text)
	if match == nil {
		return nil, false
	}
	names := pattern.SubexpNames()
	out := make(map[string]string, len(names))
	for i, name := range names {
		if i == 0 || name == "" {
			continue
		}
		out[name] = match[i]
	}
	if out["id"] == "" || out["stat"] == "" {
		return nil, false
	}
	return out, true
}

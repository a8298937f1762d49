package nip56

import (
	"github.com/nbd-wtf/go-nostr"
	"github.com/paul/notecache/pkg/event"
)

// KindReport is the kind number of report events
const KindReport = 1984

// Report types defined in NIP-56
const (
	ReportTypeNudity        = "nudity"
	ReportTypeMalware       = "malware"
	ReportTypeProfanity     = "profanity"
	ReportTypeIllegal       = "illegal"
	ReportTypeSpam          = "spam"
	ReportTypeImpersonation = "impersonation"
	ReportTypeOther         = "other"
)

var validReportTypes = map[string]bool{
	ReportTypeNudity:        true,
	ReportTypeMalware:       true,
	ReportTypeProfanity:     true,
	ReportTypeIllegal:       true,
	ReportTypeSpam:          true,
	ReportTypeImpersonation: true,
	ReportTypeOther:         true,
}

// IsValidReportType checks if a report type is valid according to NIP-56
func IsValidReportType(reportType string) bool {
	return validReportTypes[reportType]
}

// ReportedEventIDs returns the ids of the notes being reported
func ReportedEventIDs(evt *event.Event) []string {
	if evt.Kind != KindReport {
		return nil
	}

	var ids []string
	for _, id := range evt.TagValues("e") {
		if nostr.IsValid32ByteHex(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// ReportedAddresses returns the addressable events being reported
func ReportedAddresses(evt *event.Event) []event.Address {
	if evt.Kind != KindReport {
		return nil
	}

	var addrs []event.Address
	for _, value := range evt.TagValues("a") {
		if addr, err := event.ParseAddress(value); err == nil {
			addrs = append(addrs, addr)
		}
	}
	return addrs
}

// ReportedPubKeys returns the users being reported
func ReportedPubKeys(evt *event.Event) []string {
	if evt.Kind != KindReport {
		return nil
	}

	var pubkeys []string
	for _, pk := range evt.TagValues("p") {
		if nostr.IsValid32ByteHex(pk) {
			pubkeys = append(pubkeys, pk)
		}
	}
	return pubkeys
}

// ReportType returns the report type from the first e or p tag that carries
// one, falling back to "other".
func ReportType(evt *event.Event) string {
	for _, tag := range evt.Tags {
		if len(tag) >= 3 && (tag[0] == "e" || tag[0] == "p") && IsValidReportType(tag[2]) {
			return tag[2]
		}
	}
	return ReportTypeOther
}

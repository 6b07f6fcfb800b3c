// Package warbeacon matches battle report links and fetches their killmail
// data from the WarBeacon API.
package warbeacon

import (
	"regexp"
	"strconv"
)

// Mode distinguishes the two battle report link shapes.
type Mode string

const (
	// ModeRelated is a single system + time window report.
	ModeRelated Mode = "related"
	// ModeReport is a saved, possibly multi-system combined report.
	ModeReport Mode = "report"
)

// Link is one matched battle report URL. Built once per detected link and
// discarded after the report has been posted.
type Link struct {
	URL      string
	Mode     Mode
	SystemID int64
	Time     string
	ReportID string
}

var (
	relatedRe = regexp.MustCompile(`(https?://(?:www\.)?warbeacon\.net/br/related/(\d+)/(\d{12})/?)`)
	reportRe  = regexp.MustCompile(`(https?://(?:www\.)?warbeacon\.net/br/report/([0-9a-fA-F-]+)/?)`)
)

// Match scans free form message text for a battle report link. Related links
// take precedence over combined report links. It never fails on arbitrary
// input, a non-conforming URL simply does not match.
func Match(content string) (Link, bool) {
	if groups := relatedRe.FindStringSubmatch(content); groups != nil {
		systemID, errParse := strconv.ParseInt(groups[2], 10, 64)
		if errParse != nil {
			return Link{}, false
		}

		return Link{
			URL:      groups[1],
			Mode:     ModeRelated,
			SystemID: systemID,
			Time:     groups[3],
		}, true
	}

	if groups := reportRe.FindStringSubmatch(content); groups != nil {
		return Link{
			URL:      groups[1],
			Mode:     ModeReport,
			ReportID: groups[2],
		}, true
	}

	return Link{}, false
}

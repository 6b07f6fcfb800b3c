package warbeacon

import (
	"errors"
	"time"
)

var ErrInvalidTime = errors.New("invalid related time")

const relatedTimeLayout = "200601021504"

// ParseRelatedTime parses the 12 digit YYYYMMDDHHMM time segment of a
// related battle report link into a UTC time.
func ParseRelatedTime(value string) (time.Time, error) {
	parsed, errParse := time.ParseInLocation(relatedTimeLayout, value, time.UTC)
	if errParse != nil {
		return time.Time{}, errors.Join(errParse, ErrInvalidTime)
	}

	return parsed, nil
}

// RelatedTimeToISO converts a related time like "202512030400" into the
// ISO8601 form the report endpoint expects, eg "2025-12-03T04:00:00Z".
func RelatedTimeToISO(value string) (string, error) {
	parsed, errParse := ParseRelatedTime(value)
	if errParse != nil {
		return "", errParse
	}

	return parsed.Format("2006-01-02T15:04:00Z"), nil
}

// Package discord hosts the bot session that watches chat for battle report
// links and posts embed summaries back.
package discord

import "errors"

var (
	ErrConfig        = errors.New("discord token must be configured")
	ErrSessionCreate = errors.New("failed to create discord session")
	ErrSessionOpen   = errors.New("failed to open discord session")
)

const (
	ColourSuccess = 302673
	ColourError   = 13631488
	ColourNeutral = 9605778
)

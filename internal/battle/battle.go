// Package battle computes opposing sides and win/loss attribution from the
// killmails that make up a battle report.
package battle

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrEmptyBattle       = errors.New("battle report contains no usable killmails")
	ErrMalformedKillmail = errors.New("killmail missing victim or affiliation data")
)

// Participant is one character appearing on a killmail, either as the victim
// or as one of the attackers. Affiliation ids are pointers since absence and
// zero are distinct on the wire.
type Participant struct {
	CharacterID   *int64  `json:"character_id"`
	CorporationID *int64  `json:"corporation_id"`
	AllianceID    *int64  `json:"alliance_id"`
	DamageDone    float64 `json:"damage_done"`
	FinalBlow     bool    `json:"final_blow"`
}

// Killmail is a single ship loss as returned by the WarBeacon API.
type Killmail struct {
	TotalValue float64       `json:"total_value"`
	Victim     *Participant  `json:"victim"`
	Attackers  []Participant `json:"attackers"`
}

// Names maps entity ids to display names and tickers for labelling sides.
type Names struct {
	Entities map[string]string `json:"entities"`
	Tickers  map[string]string `json:"tickers"`
}

// Report is the killmail portion of a WarBeacon API response.
type Report struct {
	Killmails []Killmail `json:"killmails"`
	Names     Names      `json:"names"`
}

// SideKey identifies one affiliation cluster, encoded as "a:<id>" for an
// alliance, "c:<id>" for a corporation or "p:<id>" for a lone character.
type SideKey string

const KeyUnknown SideKey = "unknown"

// KeyFor picks the side key for a participant, preferring alliance over
// corporation over character.
func KeyFor(participant *Participant) SideKey {
	if participant == nil {
		return KeyUnknown
	}

	switch {
	case participant.AllianceID != nil:
		return SideKey("a:" + strconv.FormatInt(*participant.AllianceID, 10))
	case participant.CorporationID != nil:
		return SideKey("c:" + strconv.FormatInt(*participant.CorporationID, 10))
	case participant.CharacterID != nil:
		return SideKey("p:" + strconv.FormatInt(*participant.CharacterID, 10))
	default:
		return KeyUnknown
	}
}

// Label resolves a side key to a human readable label, preferring the
// ticker, then the entity name, then the raw id.
func (key SideKey) Label(names Names) string {
	_, raw, found := strings.Cut(string(key), ":")
	if !found {
		return "Unknown"
	}

	id, errParse := strconv.ParseInt(raw, 10, 64)
	if errParse != nil {
		return "Unknown"
	}

	strID := strconv.FormatInt(id, 10)
	if ticker, ok := names.Tickers[strID]; ok && ticker != "" {
		return ticker
	}

	if name, ok := names.Entities[strID]; ok && name != "" {
		return name
	}

	return fmt.Sprintf("ID %d", id)
}

// Preferred holds the operator's affiliation allow-lists. A side matching
// either set is flagged as the home side for presentation.
type Preferred struct {
	Alliances map[int64]struct{}
	Corps     map[int64]struct{}
}

// Matches reports whether a side key belongs to a preferred alliance or corp.
func (p Preferred) Matches(key SideKey) bool {
	kind, raw, found := strings.Cut(string(key), ":")
	if !found {
		return false
	}

	id, errParse := strconv.ParseInt(raw, 10, 64)
	if errParse != nil {
		return false
	}

	switch kind {
	case "a":
		_, ok := p.Alliances[id]

		return ok
	case "c":
		_, ok := p.Corps[id]

		return ok
	default:
		return false
	}
}

// SideStats accumulates losses, kills and pilots for one affiliation side.
type SideStats struct {
	Key            SideKey
	Label          string
	ISKLost        float64
	ShipsLost      int
	ISKDestroyed   float64
	ShipsDestroyed int
	Pilots         map[int64]struct{}
}

func newSideStats(key SideKey, label string) *SideStats {
	return &SideStats{
		Key:    key,
		Label:  label,
		Pilots: map[int64]struct{}{},
	}
}

// LabelWithCount renders the side label with its pilot count, eg "INIT (15)".
func (s *SideStats) LabelWithCount() string {
	return fmt.Sprintf("%s (%d)", s.Label, len(s.Pilots))
}

// MergeFrom folds another side's stats into this one.
func (s *SideStats) MergeFrom(other *SideStats) {
	s.ISKLost += other.ISKLost
	s.ShipsLost += other.ShipsLost
	s.ISKDestroyed += other.ISKDestroyed
	s.ShipsDestroyed += other.ShipsDestroyed

	for pilot := range other.Pilots {
		s.Pilots[pilot] = struct{}{}
	}
}

// Copy returns an independent copy of this side's stats.
func (s *SideStats) Copy() *SideStats {
	dupe := &SideStats{
		Key:            s.Key,
		Label:          s.Label,
		ISKLost:        s.ISKLost,
		ShipsLost:      s.ShipsLost,
		ISKDestroyed:   s.ISKDestroyed,
		ShipsDestroyed: s.ShipsDestroyed,
		Pilots:         make(map[int64]struct{}, len(s.Pilots)),
	}

	for pilot := range s.Pilots {
		dupe.Pilots[pilot] = struct{}{}
	}

	return dupe
}

// Relation is a sparse side-to-side accumulation matrix.
type Relation[V float64 | int] map[SideKey]map[SideKey]V

func (r Relation[V]) Add(from SideKey, onto SideKey, value V) {
	row, ok := r[from]
	if !ok {
		row = map[SideKey]V{}
		r[from] = row
	}

	row[onto] += value
}

func (r Relation[V]) Get(from SideKey, onto SideKey) V {
	return r[from][onto]
}

// Analysis is the result of grouping a report's killmails into sides along
// with the kill and assist relationships between them. Sides are ordered by
// involvement, most involved first.
type Analysis struct {
	Sides         []*SideStats
	KillersOfSide Relation[float64]
	KillsBySide   Relation[float64]
	AssistsOnSide Relation[int]
	AssistsBySide Relation[int]
}

func newAnalysis() Analysis {
	return Analysis{
		KillersOfSide: Relation[float64]{},
		KillsBySide:   Relation[float64]{},
		AssistsOnSide: Relation[int]{},
		AssistsBySide: Relation[int]{},
	}
}

// Outcome classifies the battle result relative to the preferred sides.
type Outcome string

const (
	OutcomePreferredWin  Outcome = "preferred_win"
	OutcomePreferredLoss Outcome = "preferred_loss"
	OutcomeTie           Outcome = "tie"
	OutcomeNeutral       Outcome = "neutral"
)

// Color selects the embed colour for a summary.
type Color string

const (
	ColorGreen Color = "green"
	ColorRed   Color = "red"
	ColorGrey  Color = "grey"
)

// Team is an aggregated side of the battle ready for display.
type Team struct {
	Name           string
	LabelWithCount string
	PilotCount     int
	ISKLost        float64
	ShipsLost      int
	ISKDestroyed   float64
	ShipsDestroyed int
	IsHome         bool
}

func teamFromSide(side *SideStats, isHome bool) Team {
	return Team{
		Name:           side.Label,
		LabelWithCount: side.LabelWithCount(),
		PilotCount:     len(side.Pilots),
		ISKLost:        side.ISKLost,
		ShipsLost:      side.ShipsLost,
		ISKDestroyed:   side.ISKDestroyed,
		ShipsDestroyed: side.ShipsDestroyed,
		IsHome:         isHome,
	}
}

// Summary is a fully processed battle report ready for rendering. It is
// recomputed for every detected link and never persisted.
type Summary struct {
	URL         string
	SystemName  string
	Timestamp   string
	TotalISK    float64
	TotalShips  int
	TotalPilots int
	Attackers   Team
	Defenders   Team
	Outcome     Outcome
	Color       Color
}

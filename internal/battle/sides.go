package battle

import (
	"cmp"
	"log/slog"
	"slices"

	"github.com/solmirror/beacon/pkg/log"
)

// Analyze groups the report's killmails into affiliation sides and records
// the kill and assist relationships between them. Killmails without usable
// victim affiliation data are skipped with a warning. The result is fully
// deterministic for a given report: side ordering follows involvement with
// first-seen order breaking ties.
func Analyze(report Report) Analysis {
	analysis := newAnalysis()

	var (
		sides     = map[SideKey]*SideStats{}
		seenOrder []SideKey
	)

	ensureSide := func(key SideKey) *SideStats {
		side, ok := sides[key]
		if !ok {
			side = newSideStats(key, key.Label(report.Names))
			sides[key] = side
			seenOrder = append(seenOrder, key)
		}

		return side
	}

	for _, killmail := range report.Killmails {
		victimKey := KeyFor(killmail.Victim)
		if victimKey == KeyUnknown {
			slog.Warn("Skipping malformed killmail", log.ErrAttr(ErrMalformedKillmail))

			continue
		}

		victimSide := ensureSide(victimKey)
		victimSide.ISKLost += killmail.TotalValue
		victimSide.ShipsLost++

		if killmail.Victim.CharacterID != nil {
			victimSide.Pilots[*killmail.Victim.CharacterID] = struct{}{}
		}

		if len(killmail.Attackers) == 0 {
			continue
		}

		// Aggregate attacker stats by side for this kill, keeping the
		// first-seen side order so tie-breaks below stay deterministic.
		var (
			perSide   = map[SideKey]*killShare{}
			sideOrder []SideKey
		)

		for _, attacker := range killmail.Attackers {
			attackerKey := KeyFor(&attacker)
			if attackerKey == KeyUnknown {
				continue
			}

			attackerSide := ensureSide(attackerKey)
			if attacker.CharacterID != nil {
				attackerSide.Pilots[*attacker.CharacterID] = struct{}{}
			}

			share, ok := perSide[attackerKey]
			if !ok {
				share = &killShare{}
				perSide[attackerKey] = share
				sideOrder = append(sideOrder, attackerKey)
			}

			share.count++
			share.damage += attacker.DamageDone

			if attacker.FinalBlow {
				share.finalBlow = true
			}
		}

		for _, attackerKey := range sideOrder {
			if attackerKey != victimKey {
				analysis.AssistsOnSide.Add(victimKey, attackerKey, 1)
				analysis.AssistsBySide.Add(attackerKey, victimKey, 1)
			}
		}

		if killerKey, ok := determineKiller(perSide, sideOrder); ok {
			killerSide := ensureSide(killerKey)
			killerSide.ISKDestroyed += killmail.TotalValue
			killerSide.ShipsDestroyed++
			analysis.KillersOfSide.Add(victimKey, killerKey, killmail.TotalValue)
			analysis.KillsBySide.Add(killerKey, victimKey, killmail.TotalValue)
		}
	}

	for _, key := range seenOrder {
		analysis.Sides = append(analysis.Sides, sides[key])
	}

	slices.SortStableFunc(analysis.Sides, func(a *SideStats, b *SideStats) int {
		if diff := cmp.Compare(b.ISKLost, a.ISKLost); diff != 0 {
			return diff
		}

		return cmp.Compare(b.ISKDestroyed, a.ISKDestroyed)
	})

	return analysis
}

type killShare struct {
	count     int
	damage    float64
	finalBlow bool
}

// determineKiller picks which attacking side gets credit for a kill: final
// blow first, then most damage, then most attackers. The first-seen side
// wins exact ties.
func determineKiller(perSide map[SideKey]*killShare, sideOrder []SideKey) (SideKey, bool) {
	for _, key := range sideOrder {
		if perSide[key].finalBlow {
			return key, true
		}
	}

	var maxDamage float64
	for _, key := range sideOrder {
		maxDamage = max(maxDamage, perSide[key].damage)
	}

	if maxDamage > 0 {
		for _, key := range sideOrder {
			if perSide[key].damage == maxDamage {
				return key, true
			}
		}
	}

	var maxCount int
	for _, key := range sideOrder {
		maxCount = max(maxCount, perSide[key].count)
	}

	for _, key := range sideOrder {
		if perSide[key].count == maxCount {
			return key, true
		}
	}

	return KeyUnknown, false
}

// engagement measures how entangled a side is with a set of target sides,
// combining kill values and assist counts in both directions.
func engagement(key SideKey, targets map[SideKey]struct{}, analysis Analysis) float64 {
	var total float64

	for target := range targets {
		total += analysis.KillersOfSide.Get(key, target)
		total += analysis.KillsBySide.Get(key, target)
		total += float64(analysis.AssistsOnSide.Get(key, target))
		total += float64(analysis.AssistsBySide.Get(key, target))
	}

	return total
}

// Summarize runs the full side computation over a report and produces a
// renderable summary. It is a pure function of its inputs.
func Summarize(url string, systemName string, timestamp string, report Report, preferred Preferred) (Summary, error) {
	return BuildSummary(url, systemName, timestamp, Analyze(report), preferred)
}

// BuildSummary assigns the analyzed sides to two opposing teams and
// determines the outcome. When any side matches the preferred affiliations
// it anchors the home team and the most engaged opponent anchors the enemy
// team; otherwise the two most involved sides anchor the teams. Remaining
// third parties join whichever team they exclusively fought against, and
// genuinely neutral sides are left out of both teams while still counting
// toward the battle-wide totals.
func BuildSummary(url string, systemName string, timestamp string, analysis Analysis, preferred Preferred) (Summary, error) {
	sides := analysis.Sides
	if len(sides) == 0 {
		return Summary{}, ErrEmptyBattle
	}

	var (
		totalISK   float64
		totalShips int
		allPilots  = map[int64]struct{}{}
	)

	for _, side := range sides {
		totalISK += side.ISKLost
		totalShips += side.ShipsLost

		for pilot := range side.Pilots {
			allPilots[pilot] = struct{}{}
		}
	}

	var preferredSides []*SideStats

	for _, side := range sides {
		if preferred.Matches(side.Key) {
			preferredSides = append(preferredSides, side)
		}
	}

	var (
		attackers *SideStats
		defenders *SideStats
		outcome   Outcome
		color     Color
		isHome    bool
	)

	if len(preferredSides) > 0 {
		attackers, defenders, outcome, color = buildPreferredTeams(sides, preferredSides, analysis)
		isHome = true
	} else {
		attackers, defenders, outcome, color = buildNeutralTeams(sides, analysis)
	}

	slog.Debug("Final teams",
		slog.String("attackers", attackers.LabelWithCount()),
		slog.String("defenders", defenders.LabelWithCount()),
		slog.Int("pilots", len(allPilots)))

	return Summary{
		URL:         url,
		SystemName:  systemName,
		Timestamp:   timestamp,
		TotalISK:    totalISK,
		TotalShips:  totalShips,
		TotalPilots: len(allPilots),
		Attackers:   teamFromSide(attackers, isHome),
		Defenders:   teamFromSide(defenders, false),
		Outcome:     outcome,
		Color:       color,
	}, nil
}

// buildPreferredTeams merges all preferred sides into the home team, seeds
// the enemy team with the most engaged opponent and attributes third
// parties by who they fought.
func buildPreferredTeams(sides []*SideStats, preferredSides []*SideStats, analysis Analysis) (*SideStats, *SideStats, Outcome, Color) {
	preferredKeys := map[SideKey]struct{}{}
	for _, side := range preferredSides {
		preferredKeys[side.Key] = struct{}{}
	}

	home := preferredSides[0].Copy()
	for _, side := range preferredSides[1:] {
		home.MergeFrom(side)
	}

	var candidates []*SideStats

	for _, side := range sides {
		if _, ok := preferredKeys[side.Key]; !ok {
			candidates = append(candidates, side)
		}
	}

	var enemy *SideStats

	if seed := mostEngagedEnemy(candidates, preferredKeys, analysis); seed == nil {
		enemy = newSideStats("none", "No Opponent")
	} else {
		enemy = seed.Copy()
		enemyKeys := map[SideKey]struct{}{seed.Key: {}}

		for _, side := range candidates {
			if side.Key == seed.Key {
				continue
			}

			engagedHome := engagement(side.Key, preferredKeys, analysis)
			engagedEnemy := engagement(side.Key, enemyKeys, analysis)

			switch {
			case engagedEnemy > 0 && engagedHome == 0:
				home.MergeFrom(side)
			case engagedHome > 0 && engagedEnemy == 0:
				enemy.MergeFrom(side)
			}
		}
	}

	switch {
	case home.ISKLost < enemy.ISKLost:
		return home, enemy, OutcomePreferredWin, ColorGreen
	case home.ISKLost > enemy.ISKLost:
		return home, enemy, OutcomePreferredLoss, ColorRed
	default:
		return home, enemy, OutcomeTie, ColorGrey
	}
}

// buildNeutralTeams anchors the two most involved sides when no preferred
// affiliation took part. The team with less ISK lost is presented first.
func buildNeutralTeams(sides []*SideStats, analysis Analysis) (*SideStats, *SideStats, Outcome, Color) {
	ranked := slices.Clone(sides)
	slices.SortStableFunc(ranked, func(a *SideStats, b *SideStats) int {
		return cmp.Compare(b.ISKLost+b.ISKDestroyed, a.ISKLost+a.ISKDestroyed)
	})

	teamA := ranked[0].Copy()

	var teamB *SideStats

	if len(ranked) > 1 {
		seed := ranked[1]
		teamB = seed.Copy()

		keysA := map[SideKey]struct{}{teamA.Key: {}}
		keysB := map[SideKey]struct{}{seed.Key: {}}

		for _, side := range sides {
			if side.Key == teamA.Key || side.Key == seed.Key {
				continue
			}

			engagedA := engagement(side.Key, keysA, analysis)
			engagedB := engagement(side.Key, keysB, analysis)

			switch {
			case engagedA > 0 && engagedB == 0:
				teamB.MergeFrom(side)
			case engagedB > 0 && engagedA == 0:
				teamA.MergeFrom(side)
			}
		}
	} else {
		teamB = newSideStats("none", "No Opponent")
	}

	attackers, defenders := teamA, teamB
	if attackers.ISKLost > defenders.ISKLost {
		attackers, defenders = defenders, attackers
	}

	if attackers.ISKLost == defenders.ISKLost {
		return attackers, defenders, OutcomeTie, ColorGrey
	}

	return attackers, defenders, OutcomeNeutral, ColorGreen
}

// mostEngagedEnemy returns the candidate most entangled with the preferred
// sides, falling back to the most involved candidate overall.
func mostEngagedEnemy(candidates []*SideStats, preferredKeys map[SideKey]struct{}, analysis Analysis) *SideStats {
	if len(candidates) == 0 {
		return nil
	}

	var (
		best           *SideStats
		bestEngagement = -1.0
	)

	for _, side := range candidates {
		if engaged := engagement(side.Key, preferredKeys, analysis); engaged > bestEngagement {
			bestEngagement = engaged
			best = side
		}
	}

	return best
}

package discord

import (
	"fmt"
	"math"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	embed "github.com/leighmacdonald/discordgo-embed"
	"github.com/solmirror/beacon/internal/battle"
)

const providerName = "beacon"

func colourFor(color battle.Color) int {
	switch color {
	case battle.ColorGreen:
		return ColourSuccess
	case battle.ColorRed:
		return ColourError
	default:
		return ColourNeutral
	}
}

// FormatISKShort renders an ISK value in the compact killboard notation,
// eg "1.5b", "250.0m", "50.0k".
func FormatISKShort(value float64) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "N/A"
	}

	switch {
	case value >= 1_000_000_000:
		return fmt.Sprintf("%.1fb", value/1_000_000_000)
	case value >= 1_000_000:
		return fmt.Sprintf("%.1fm", value/1_000_000)
	case value >= 1_000:
		return fmt.Sprintf("%.1fk", value/1_000)
	default:
		return fmt.Sprintf("%d", int64(value))
	}
}

// RatioBar renders a fixed width loss ratio bar between two sides. A fully
// light bar means one side took no losses at all.
func RatioBar(aISK float64, bISK float64, length int) string {
	total := aISK + bISK
	if total <= 0 || aISK == 0 || bISK == 0 {
		return "`" + strings.Repeat("░", length) + "`"
	}

	aBlocks := int(math.Round(aISK / total * float64(length)))
	aBlocks = max(1, min(length-1, aBlocks))

	return "`" + strings.Repeat("▓", aBlocks) + strings.Repeat("░", length-aBlocks) + "`"
}

const fieldDivider = "--------------------"

// SummaryEmbed maps a battle summary onto the fixed embed template. Pure
// formatting, no decisions are made here beyond colour selection.
func SummaryEmbed(summary battle.Summary) *discordgo.MessageEmbed {
	msgEmbed := embed.NewEmbed().
		SetTitle("Battle Report - " + summary.SystemName).
		SetURL(summary.URL).
		SetDescription(summary.Timestamp + "\n" + fieldDivider).
		SetColor(colourFor(summary.Color))

	split := fmt.Sprintf("**%s** vs **%s**\n%s\n%s vs %s ISK lost",
		summary.Attackers.LabelWithCount,
		summary.Defenders.LabelWithCount,
		RatioBar(summary.Attackers.ISKLost, summary.Defenders.ISKLost, 20),
		FormatISKShort(summary.Attackers.ISKLost),
		FormatISKShort(summary.Defenders.ISKLost))
	msgEmbed.AddField("ISK Loss Split", split+"\n"+fieldDivider)

	totals := fmt.Sprintf("* **ISK lost:** %s\n* **Ships lost:** %s\n* **Pilots:** %s\n",
		FormatISKShort(summary.TotalISK),
		humanize.Comma(int64(summary.TotalShips)),
		humanize.Comma(int64(summary.TotalPilots)))
	msgEmbed.AddField("Totals", totals+fieldDivider)

	msgEmbed.AddField(summary.Attackers.LabelWithCount, teamText(summary.Attackers)).MakeFieldInline()
	msgEmbed.AddField(summary.Defenders.LabelWithCount, teamText(summary.Defenders)).MakeFieldInline()

	msgEmbed.SetFooter(providerName)

	return msgEmbed.MessageEmbed
}

func teamText(team battle.Team) string {
	return fmt.Sprintf("* **ISK lost:** %s\n* **Ships lost:** %s\n* **ISK destroyed:** %s\n* **Ships destroyed:** %s",
		FormatISKShort(team.ISKLost),
		humanize.Comma(int64(team.ShipsLost)),
		FormatISKShort(team.ISKDestroyed),
		humanize.Comma(int64(team.ShipsDestroyed)))
}

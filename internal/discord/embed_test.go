package discord_test

import (
	"math"
	"strings"
	"testing"

	"github.com/solmirror/beacon/internal/battle"
	"github.com/solmirror/beacon/internal/discord"
	"github.com/stretchr/testify/require"
)

func TestFormatISKShort(t *testing.T) {
	require.Equal(t, "1.5b", discord.FormatISKShort(1_500_000_000))
	require.Equal(t, "250.0m", discord.FormatISKShort(250_000_000))
	require.Equal(t, "50.0k", discord.FormatISKShort(50_000))
	require.Equal(t, "999", discord.FormatISKShort(999.9))
	require.Equal(t, "0", discord.FormatISKShort(0))
	require.Equal(t, "N/A", discord.FormatISKShort(math.NaN()))
	require.Equal(t, "N/A", discord.FormatISKShort(math.Inf(1)))
}

func TestRatioBar(t *testing.T) {
	// A wipe renders the empty bar.
	require.Equal(t, "`"+strings.Repeat("░", 20)+"`", discord.RatioBar(100, 0, 20))
	require.Equal(t, "`"+strings.Repeat("░", 20)+"`", discord.RatioBar(0, 0, 20))

	even := discord.RatioBar(100, 100, 20)
	require.Equal(t, 10, strings.Count(even, "▓"))
	require.Equal(t, 10, strings.Count(even, "░"))

	// A lopsided split still shows at least one block per side.
	lopsided := discord.RatioBar(1, 1_000_000, 20)
	require.Equal(t, 1, strings.Count(lopsided, "▓"))
	require.Equal(t, 19, strings.Count(lopsided, "░"))
}

func TestSummaryEmbed(t *testing.T) {
	summary := battle.Summary{
		URL:         "https://warbeacon.net/br/related/30004759/202512030400/",
		SystemName:  "1DQ1-A",
		Timestamp:   "12/03/2025",
		TotalISK:    1_500_000_000,
		TotalShips:  42,
		TotalPilots: 120,
		Attackers: battle.Team{
			Name:           "HOME",
			LabelWithCount: "HOME (60)",
			PilotCount:     60,
			ISKLost:        500_000_000,
			ShipsLost:      10,
			ISKDestroyed:   1_000_000_000,
			ShipsDestroyed: 32,
			IsHome:         true,
		},
		Defenders: battle.Team{
			Name:           "ENMY",
			LabelWithCount: "ENMY (55)",
			PilotCount:     55,
			ISKLost:        1_000_000_000,
			ShipsLost:      32,
			ISKDestroyed:   500_000_000,
			ShipsDestroyed: 10,
		},
		Outcome: battle.OutcomePreferredWin,
		Color:   battle.ColorGreen,
	}

	msgEmbed := discord.SummaryEmbed(summary)

	require.Equal(t, "Battle Report - 1DQ1-A", msgEmbed.Title)
	require.Equal(t, summary.URL, msgEmbed.URL)
	require.Equal(t, discord.ColourSuccess, msgEmbed.Color)
	require.Contains(t, msgEmbed.Description, "12/03/2025")
	require.Len(t, msgEmbed.Fields, 4)

	require.Equal(t, "ISK Loss Split", msgEmbed.Fields[0].Name)
	require.Contains(t, msgEmbed.Fields[0].Value, "**HOME (60)** vs **ENMY (55)**")
	require.Contains(t, msgEmbed.Fields[0].Value, "500.0m vs 1.0b ISK lost")

	require.Equal(t, "Totals", msgEmbed.Fields[1].Name)
	require.Contains(t, msgEmbed.Fields[1].Value, "**ISK lost:** 1.5b")
	require.Contains(t, msgEmbed.Fields[1].Value, "**Pilots:** 120")

	require.Equal(t, "HOME (60)", msgEmbed.Fields[2].Name)
	require.True(t, msgEmbed.Fields[2].Inline)
	require.Contains(t, msgEmbed.Fields[2].Value, "**ISK destroyed:** 1.0b")

	require.Equal(t, "ENMY (55)", msgEmbed.Fields[3].Name)
	require.True(t, msgEmbed.Fields[3].Inline)
}

func TestSummaryEmbedColours(t *testing.T) {
	base := battle.Summary{SystemName: "Jita"}

	base.Color = battle.ColorRed
	require.Equal(t, discord.ColourError, discord.SummaryEmbed(base).Color)

	base.Color = battle.ColorGrey
	require.Equal(t, discord.ColourNeutral, discord.SummaryEmbed(base).Color)
}

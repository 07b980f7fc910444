package warroom

import (
	"bytes"
	"fmt"
	"time"

	"guildwar/bot/common"
	"guildwar/domain/entities"
	"guildwar/domain/utils"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	log "github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
)

// ReportStyle defines the layout of a battle report image
type ReportStyle struct {
	Width     int
	Padding   int
	RowHeight int
	BarHeight int
}

// BattleReportRenderer draws the itemized score of a contested raid as a PNG
type BattleReportRenderer struct {
	style ReportStyle
}

// NewBattleReportRenderer creates a renderer with the default style
func NewBattleReportRenderer() *BattleReportRenderer {
	return &BattleReportRenderer{
		style: ReportStyle{
			Width:     480,
			Padding:   16,
			RowHeight: 20,
			BarHeight: 18,
		},
	}
}

var (
	attackerRGB = [3]float64{0.93, 0.35, 0.33}
	defenderRGB = [3]float64{0.35, 0.55, 0.95}
)

// Render returns the PNG bytes for a settled battle
func (r *BattleReportRenderer) Render(summary *entities.SettlementSummary) ([]byte, error) {
	if summary == nil || summary.Battle == nil || summary.Raid == nil {
		return nil, fmt.Errorf("settlement has no battle to draw")
	}
	start := time.Now()
	defer func() {
		log.WithField("duration_ms", time.Since(start).Milliseconds()).
			WithField("raid_id", summary.Raid.ID).
			Debug("Battle report image generation completed")
	}()

	battle := summary.Battle
	raid := summary.Raid
	s := r.style

	// Title, two score bars, the modifier table and a verdict line
	height := s.Padding*2 + 30 + 2*(s.BarHeight+14) + 24 + len(battle.Lines)*s.RowHeight + 40

	dc := gg.NewContext(s.Width, height)
	dc.SetFillRule(gg.FillRuleWinding)

	for i := 0; i < height; i++ {
		t := float64(i) / float64(height)
		dc.SetRGB(0.06+t*0.03, 0.05+t*0.03, 0.09+t*0.06)
		dc.DrawLine(0, float64(i), float64(s.Width), float64(i))
		dc.Stroke()
	}

	bold, err := loadFont(gobold.TTF, 16)
	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}
	mono, err := loadFont(gomono.TTF, 12)
	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	x := float64(s.Padding)
	y := float64(s.Padding) + 16

	dc.SetFontFace(bold)
	dc.SetRGB(1, 1, 1)
	dc.DrawString(fmt.Sprintf("Raid #%d  %s vs %s", raid.ID, raid.AttackerTag, raid.DefenderTag), x, y)
	y += 30

	dc.SetFontFace(mono)
	maxScore := battle.AttackerPower
	if battle.DefenseResistance > maxScore {
		maxScore = battle.DefenseResistance
	}
	if maxScore < 1 {
		maxScore = 1
	}
	barWidth := float64(s.Width - 2*s.Padding - 110)
	drawScoreBar(dc, "Power", battle.AttackerPower, maxScore, attackerRGB, x, y, barWidth, float64(s.BarHeight))
	y += float64(s.BarHeight + 14)
	drawScoreBar(dc, "Resist", battle.DefenseResistance, maxScore, defenderRGB, x, y, barWidth, float64(s.BarHeight))
	y += float64(s.BarHeight + 14)

	dc.SetRGBA(0.6, 0.6, 0.7, 0.7)
	dc.SetLineWidth(1)
	dc.DrawLine(x, y, float64(s.Width-s.Padding), y)
	dc.Stroke()
	y += 20

	for _, line := range battle.Lines {
		rgb := defenderRGB
		if line.Side == entities.RaidSideAttacker {
			rgb = attackerRGB
		}
		dc.SetRGB(rgb[0], rgb[1], rgb[2])
		dc.DrawString(common.Truncate(line.Source, 48), x, y)
		dc.SetRGB(1, 1, 1)
		dc.DrawStringAnchored(utils.FormatSigned(line.Value), float64(s.Width-s.Padding), y, 1, 0)
		y += float64(s.RowHeight)
	}

	y += 12
	dc.SetFontFace(bold)
	verdict, rgb := verdictLine(summary)
	dc.SetRGB(rgb[0], rgb[1], rgb[2])
	dc.DrawString(verdict, x, y)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode battle report: %w", err)
	}
	return buf.Bytes(), nil
}

func verdictLine(summary *entities.SettlementSummary) (string, [3]float64) {
	switch {
	case summary.Battle.Cataclysm:
		return fmt.Sprintf("CATACLYSM (%d%% chance) - the assault collapsed", summary.Battle.CataclysmChance), defenderRGB
	case summary.AttackerWon():
		return fmt.Sprintf("%s breaks through", summary.Raid.AttackerTag), attackerRGB
	default:
		return fmt.Sprintf("%s holds the walls", summary.Raid.DefenderTag), defenderRGB
	}
}

func drawScoreBar(dc *gg.Context, label string, value, maxValue int, rgb [3]float64, x, y, width, height float64) {
	dc.SetRGB(0.85, 0.85, 0.9)
	dc.DrawString(label, x, y+height-4)

	barX := x + 60
	dc.SetRGBA(1, 1, 1, 0.08)
	dc.DrawRoundedRectangle(barX, y, width, height, 4)
	dc.Fill()

	filled := width * float64(value) / float64(maxValue)
	if filled < 0 {
		filled = 0
	}
	dc.SetRGB(rgb[0], rgb[1], rgb[2])
	dc.DrawRoundedRectangle(barX, y, filled, height, 4)
	dc.Fill()

	dc.SetRGB(1, 1, 1)
	dc.DrawString(fmt.Sprintf("%d", value), barX+width+10, y+height-4)
}

// loadFont loads a font from byte data
func loadFont(fontData []byte, size float64) (font.Face, error) {
	f, err := truetype.Parse(fontData)
	if err != nil {
		return nil, err
	}
	face := truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	return face, nil
}

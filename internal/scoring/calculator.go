// Package scoring turns answer sets into normalized maturity scores and
// decides which stages of a pillar are open for editing.
package scoring

import "maturity/internal/domain"

// MaxScore is the top of the continuous score scale.
const MaxScore = 5.0

// ComputeScores maps answers (keyed by question id) onto theme, stage and
// overall scores. Questions without an answer count as unqualified. Empty
// themes, stages and pillars score 0. No rounding is applied.
func ComputeScores(answers map[string]domain.Answer, pillar domain.FullPillar) domain.ScoreSet {
    out := domain.ScoreSet{
        PerStage: make(map[string]float64, len(pillar.Stages)),
        PerTheme: make(map[string]float64),
    }
    var stageSum float64
    for _, stage := range pillar.Stages {
        var themeSum float64
        for _, theme := range stage.Themes {
            score := themeScore(answers, theme)
            out.PerTheme[theme.ID] = score
            themeSum += score
        }
        var stageScore float64
        if n := len(stage.Themes); n > 0 {
            stageScore = themeSum / float64(n)
        }
        out.PerStage[stage.ID] = stageScore
        stageSum += stageScore
    }
    if n := len(pillar.Stages); n > 0 {
        out.Overall = stageSum / float64(n)
    }
    return out
}

func themeScore(answers map[string]domain.Answer, theme domain.Theme) float64 {
    total := len(theme.Questions)
    if total == 0 {
        return 0
    }
    qualified := 0
    for _, q := range theme.Questions {
        if a, ok := answers[q.ID]; ok && a.IsQualified {
            qualified++
        }
    }
    // multiply before dividing so a fully qualified theme is exactly MaxScore
    return float64(qualified) * MaxScore / float64(total)
}

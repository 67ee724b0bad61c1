package scoring

import "maturity/internal/domain"

// UnlockThreshold is the predecessor stage score (80% of MaxScore) needed to
// unlock the next stage.
const UnlockThreshold = 4.0

// IsStageEditable reports whether the stage at stageIndex accepts answer
// changes given live per-stage scores. The first stage is always open.
func IsStageEditable(stageIndex int, perStage map[string]float64, stagesInOrder []string) bool {
    if stageIndex <= 0 {
        return true
    }
    if stageIndex >= len(stagesInOrder) {
        return false
    }
    return perStage[stagesInOrder[stageIndex-1]] >= UnlockThreshold
}

// EditableStages returns the editability flag of every stage keyed by id.
func EditableStages(perStage map[string]float64, stagesInOrder []string) map[string]bool {
    out := make(map[string]bool, len(stagesInOrder))
    for i, id := range stagesInOrder {
        out[id] = IsStageEditable(i, perStage, stagesInOrder)
    }
    return out
}

// CheckStage returns a policy error naming the locked stage and the
// predecessor score that keeps it locked.
func CheckStage(op string, pillar domain.FullPillar, stageIndex int, perStage map[string]float64) error {
    ids := pillar.StageIDs()
    if IsStageEditable(stageIndex, perStage, ids) {
        return nil
    }
    prev := pillar.Stages[stageIndex-1]
    return domain.Policy(op, domain.RuleStageLocked,
        "stage %q is locked: stage %q scores %.2f, needs %.1f",
        pillar.Stages[stageIndex].Code, prev.Code, perStage[prev.ID], UnlockThreshold)
}

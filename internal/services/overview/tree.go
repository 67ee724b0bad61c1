package overview

import (
    "fmt"
    "sort"

    "maturity/internal/domain"
)

// RootID is the id of the synthesized root used when the org tree has
// several top-level units. Underscores are appended while it matches a
// real unit id.
const RootID = "enterprise"

// PillarScore is one pillar's roll-up at a node.
type PillarScore struct {
    Score  float64            `json:"score"`
    Stages map[string]float64 `json:"stages"`
    // AssessmentID is set on leaves only.
    AssessmentID string `json:"assessmentId,omitempty"`
}

// Node is a unit of the annotated org tree.
type Node struct {
    ID       string                 `json:"id"`
    Name     string                 `json:"name"`
    Level    domain.OrgLevel        `json:"level"`
    Overall  float64                `json:"overall"`
    Scores   map[string]PillarScore `json:"scores"`
    Children []*Node                `json:"children,omitempty"`

    assessments []domain.Assessment
}

// Find returns the node with id in the subtree rooted at n.
func (n *Node) Find(id string) *Node {
    if n == nil {
        return nil
    }
    if n.ID == id {
        return n
    }
    for _, c := range n.Children {
        if f := c.Find(id); f != nil {
            return f
        }
    }
    return nil
}

type DiagnosticKind string

const (
    DiagOrphanAssessment DiagnosticKind = "orphan_assessment"
    DiagNonLeaf          DiagnosticKind = "non_leaf_assessment"
    DiagUnknownPillar    DiagnosticKind = "unknown_pillar"
    DiagUnknownParent    DiagnosticKind = "unknown_parent"
    DiagUnreachable      DiagnosticKind = "unreachable_unit"
)

// Diagnostic is a non-fatal inconsistency skipped while building.
type Diagnostic struct {
    Kind         DiagnosticKind `json:"kind"`
    OrgUnitID    string         `json:"orgUnitId,omitempty"`
    AssessmentID string         `json:"assessmentId,omitempty"`
    PillarID     string         `json:"pillarId,omitempty"`
    Message      string         `json:"message"`
}

// Overview is the annotated tree plus what was skipped to build it.
type Overview struct {
    Root        *Node        `json:"root"`
    Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// BuildOverview rolls assessment scores up the org tree. Leaves take the
// authoritative assessment per pillar; every ancestor averages over the
// children that expose a pillar or stage. Pillars absent at a child never
// count as zero.
func BuildOverview(units []domain.OrgUnit, assessments []domain.Assessment, pillars []domain.Pillar) Overview {
    var diags []Diagnostic
    nodes := make(map[string]*Node, len(units))
    for _, u := range units {
        nodes[u.ID] = &Node{ID: u.ID, Name: u.Name, Level: u.Level, Scores: map[string]PillarScore{}}
    }

    var tops []*Node
    for _, u := range units {
        n := nodes[u.ID]
        switch parent, ok := nodes[u.ParentID]; {
        case u.ParentID == "":
            tops = append(tops, n)
        case !ok:
            diags = append(diags, Diagnostic{Kind: DiagUnknownParent, OrgUnitID: u.ID,
                Message: fmt.Sprintf("parent %q does not exist; unit reported at top level", u.ParentID)})
            tops = append(tops, n)
        default:
            parent.Children = append(parent.Children, n)
        }
    }

    rootID := RootID
    for nodes[rootID] != nil {
        rootID += "_"
    }
    root := &Node{ID: rootID, Name: "Enterprise", Level: domain.LevelEnterprise, Scores: map[string]PillarScore{}}
    if len(tops) == 1 {
        root = tops[0]
    } else {
        root.Children = tops
    }

    reached := map[string]bool{}
    sortTree(root, reached)
    for _, u := range units {
        if !reached[u.ID] {
            diags = append(diags, Diagnostic{Kind: DiagUnreachable, OrgUnitID: u.ID,
                Message: "unit is part of a parent cycle and was left out"})
        }
    }

    known := make(map[string]bool, len(pillars))
    for _, p := range pillars {
        known[p.ID] = true
    }
    for _, a := range assessments {
        n, ok := nodes[a.OrgUnitID]
        switch {
        case !ok || !reached[a.OrgUnitID]:
            diags = append(diags, Diagnostic{Kind: DiagOrphanAssessment, AssessmentID: a.ID, OrgUnitID: a.OrgUnitID,
                Message: "assessment references a unit outside the org tree"})
        case len(pillars) > 0 && !known[a.PillarID]:
            diags = append(diags, Diagnostic{Kind: DiagUnknownPillar, AssessmentID: a.ID, PillarID: a.PillarID,
                Message: "assessment references a pillar outside the catalog"})
        case len(n.Children) > 0:
            diags = append(diags, Diagnostic{Kind: DiagNonLeaf, AssessmentID: a.ID, OrgUnitID: a.OrgUnitID,
                Message: "assessment attached to a unit with children"})
        default:
            n.assessments = append(n.assessments, a)
        }
    }

    rollUp(root)
    return Overview{Root: root, Diagnostics: diags}
}

func sortTree(n *Node, reached map[string]bool) {
    reached[n.ID] = true
    sort.Slice(n.Children, func(i, j int) bool {
        if n.Children[i].Name != n.Children[j].Name {
            return n.Children[i].Name < n.Children[j].Name
        }
        return n.Children[i].ID < n.Children[j].ID
    })
    for _, c := range n.Children {
        sortTree(c, reached)
    }
}

// rollUp is the post-order traversal shared by every level.
func rollUp(n *Node) {
    if len(n.Children) == 0 {
        scoreLeaf(n)
    } else {
        for _, c := range n.Children {
            rollUp(c)
        }
        averageChildren(n)
    }
    n.Overall = overall(n.Scores)
    n.assessments = nil
}

func scoreLeaf(n *Node) {
    byPillar := map[string][]domain.Assessment{}
    for _, a := range n.assessments {
        byPillar[a.PillarID] = append(byPillar[a.PillarID], a)
    }
    for pillarID, group := range byPillar {
        best, ok := SelectAuthoritative(group)
        if !ok {
            continue
        }
        stages := make(map[string]float64, len(best.ScoresByStage))
        for id, v := range best.ScoresByStage {
            stages[id] = v
        }
        n.Scores[pillarID] = PillarScore{Score: best.OverallScore, Stages: stages, AssessmentID: best.ID}
    }
}

type acc struct {
    sum   float64
    count int
}

func (a *acc) add(v float64) { a.sum += v; a.count++ }
func (a acc) mean() float64  { return a.sum / float64(a.count) }

func averageChildren(n *Node) {
    pillarAcc := map[string]*acc{}
    stageAcc := map[string]map[string]*acc{}
    for _, c := range n.Children {
        for pillarID, ps := range c.Scores {
            if pillarAcc[pillarID] == nil {
                pillarAcc[pillarID] = &acc{}
                stageAcc[pillarID] = map[string]*acc{}
            }
            pillarAcc[pillarID].add(ps.Score)
            for stageID, v := range ps.Stages {
                if stageAcc[pillarID][stageID] == nil {
                    stageAcc[pillarID][stageID] = &acc{}
                }
                stageAcc[pillarID][stageID].add(v)
            }
        }
    }
    for pillarID, pa := range pillarAcc {
        stages := make(map[string]float64, len(stageAcc[pillarID]))
        for stageID, sa := range stageAcc[pillarID] {
            stages[stageID] = sa.mean()
        }
        n.Scores[pillarID] = PillarScore{Score: pa.mean(), Stages: stages}
    }
}

func overall(scores map[string]PillarScore) float64 {
    if len(scores) == 0 {
        return 0
    }
    var a acc
    for _, ps := range scores {
        a.add(ps.Score)
    }
    return a.mean()
}

package domain

import (
    "errors"
    "fmt"
)

// ErrorKind classifies failures so callers can decide between surfacing,
// retrying and mapping to a transport status.
type ErrorKind string

const (
    KindValidation ErrorKind = "validation"
    KindNotFound   ErrorKind = "not_found"
    KindConflict   ErrorKind = "conflict"
    KindPolicy     ErrorKind = "policy"
)

// Rule identifiers carried by validation and policy errors.
const (
    RuleNoOpenPeriod       = "no_open_period"
    RuleLabel              = "label"
    RuleNotDepartment      = "not_department"
    RuleUnknownPillar      = "unknown_pillar"
    RuleGuidelineComplete  = "guidelines_incomplete"
    RuleUnknownGuideline   = "unknown_guideline"
    RuleModerationSource   = "moderation_source"
    RuleStageLocked        = "stage_locked"
    RuleAssessmentReadOnly = "assessment_read_only"
    RuleActiveSelf         = "active_self_assessment"
    RuleActivateBaseline   = "activate_baseline"
)

type Error struct {
    Kind    ErrorKind
    Op      string
    Rule    string
    Message string
    Err     error
}

func (e *Error) Error() string {
    msg := e.Message
    if e.Rule != "" {
        msg = fmt.Sprintf("%s [%s]", msg, e.Rule)
    }
    if e.Op != "" {
        msg = e.Op + ": " + msg
    }
    if e.Err != nil {
        msg += ": " + e.Err.Error()
    }
    return msg
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(op, rule, format string, args ...any) error {
    return &Error{Kind: KindValidation, Op: op, Rule: rule, Message: fmt.Sprintf(format, args...)}
}

func Policy(op, rule, format string, args ...any) error {
    return &Error{Kind: KindPolicy, Op: op, Rule: rule, Message: fmt.Sprintf(format, args...)}
}

func NotFound(op, what, id string) error {
    return &Error{Kind: KindNotFound, Op: op, Message: fmt.Sprintf("%s %q not found", what, id)}
}

func Conflict(op string, err error) error {
    return &Error{Kind: KindConflict, Op: op, Rule: RuleActiveSelf, Message: "lost concurrent activation", Err: err}
}

// KindOf returns the kind of the first domain error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
    var de *Error
    if errors.As(err, &de) {
        return de.Kind, true
    }
    return "", false
}

func is(err error, k ErrorKind) bool {
    got, ok := KindOf(err)
    return ok && got == k
}

func IsValidation(err error) bool { return is(err, KindValidation) }
func IsNotFound(err error) bool   { return is(err, KindNotFound) }
func IsConflict(err error) bool   { return is(err, KindConflict) }
func IsPolicy(err error) bool     { return is(err, KindPolicy) }

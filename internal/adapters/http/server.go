package httpadapter

import (
    "context"
    "encoding/json"
    "errors"
    "net/http"
    "time"

    "github.com/go-chi/chi/v5"
    "github.com/go-chi/chi/v5/middleware"
    "github.com/go-playground/validator/v10"
    "github.com/oapi-codegen/runtime"
    "go.uber.org/zap"

    "maturity/internal/domain"
    "maturity/internal/ports"
    "maturity/internal/services/answers"
    "maturity/internal/services/lifecycle"
    "maturity/internal/services/overview"
)

// Lifecycle creates and activates assessments.
type Lifecycle interface {
    CreateBlank(ctx context.Context, in lifecycle.BlankInput) (domain.Assessment, error)
    CreateFromCopy(ctx context.Context, sourceID, label, createdBy string) (domain.Assessment, error)
    CreateModeration(ctx context.Context, sourceID, label, createdBy string) (domain.Assessment, error)
    SetActive(ctx context.Context, id string) (domain.Assessment, error)
    List(ctx context.Context, f ports.AssessmentFilter) ([]domain.Assessment, error)
}

// Answers edits and reads answer sheets.
type Answers interface {
    Update(ctx context.Context, assessmentID, questionID string, p answers.Patch) (domain.Assessment, domain.Answer, error)
    Sheet(ctx context.Context, assessmentID string) (answers.Sheet, error)
}

// Overview serves the org roll-up.
type Overview interface {
    Get(ctx context.Context) (overview.Snapshot, error)
    Refresh(ctx context.Context) (overview.Snapshot, error)
}

type Server struct {
    catalog   ports.Catalog
    lifecycle Lifecycle
    answers   Answers
    overview  Overview
    validate  *validator.Validate
    log       *zap.Logger
}

func New(catalog ports.Catalog, lc Lifecycle, ans Answers, ov Overview, log *zap.Logger) *Server {
    return &Server{
        catalog:   catalog,
        lifecycle: lc,
        answers:   ans,
        overview:  ov,
        validate:  validator.New(),
        log:       log,
    }
}

// Routes returns a chi.Router with every endpoint mounted.
func (s *Server) Routes() chi.Router {
    r := chi.NewRouter()
    r.Use(middleware.RequestID)
    r.Use(middleware.Recoverer)
    r.Use(s.logRequests)

    r.Get("/healthz", s.getHealthz)
    r.Get("/pillars", s.listPillars)
    r.Get("/pillars/{id}", s.getPillar) // id or code

    r.Route("/assessments", func(r chi.Router) {
        r.Post("/", s.createAssessment)
        r.Get("/", s.listAssessments)
        r.Get("/{id}", s.getAssessment)
        r.Post("/{id}/copy", s.copyAssessment)
        r.Post("/{id}/moderation", s.moderateAssessment)
        r.Post("/{id}/activate", s.activateAssessment)
        r.Put("/{id}/answers/{questionId}", s.putAnswer)
    })

    r.Get("/overview", s.getOverview)
    r.Post("/overview/refresh", s.refreshOverview)
    return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
        start := time.Now()
        next.ServeHTTP(ww, r)
        s.log.Debug("request",
            zap.String("method", r.Method),
            zap.String("path", r.URL.Path),
            zap.Int("status", ww.Status()),
            zap.Duration("took", time.Since(start)),
            zap.String("request_id", middleware.GetReqID(r.Context())),
        )
    })
}

func (s *Server) getHealthz(w http.ResponseWriter, _ *http.Request) {
    writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ---- catalog ----

func (s *Server) listPillars(w http.ResponseWriter, _ *http.Request) {
    writeJSON(w, http.StatusOK, s.catalog.Pillars())
}

func (s *Server) getPillar(w http.ResponseWriter, r *http.Request) {
    id, ok := s.pathParam(w, r, "id")
    if !ok {
        return
    }
    p, found := s.catalog.Pillar(id)
    if !found {
        p, found = s.catalog.ByCode(id)
    }
    if !found {
        s.writeError(w, r, domain.NotFound("catalog.get", "pillar", id))
        return
    }
    writeJSON(w, http.StatusOK, p)
}

// ---- assessments ----

type createAssessmentRequest struct {
    OrgUnitID string `json:"orgUnitId" validate:"required"`
    PillarID  string `json:"pillarId" validate:"required"`
    PeriodID  string `json:"periodId" validate:"required"`
    Label     string `json:"label"`
    CreatedBy string `json:"createdBy" validate:"max=200"`
}

type deriveRequest struct {
    Label     string `json:"label"`
    CreatedBy string `json:"createdBy" validate:"max=200"`
}

type evidenceRequest struct {
    Name string `json:"name" validate:"required,max=200"`
    URL  string `json:"url" validate:"required,url"`
}

type answerRequest struct {
    CheckedGuidelines *[]string          `json:"checkedGuidelines"`
    IsQualified       *bool              `json:"isQualified"`
    Comments          *string            `json:"comments" validate:"omitempty,max=4000"`
    Evidence          *[]evidenceRequest `json:"evidence" validate:"omitempty,dive"`
    UpdatedBy         string             `json:"updatedBy" validate:"max=200"`
}

type listAssessmentsParams struct {
    OrgUnitID *string
    PillarID  *string
}

func (s *Server) createAssessment(w http.ResponseWriter, r *http.Request) {
    var req createAssessmentRequest
    if !s.decode(w, r, &req) {
        return
    }
    a, err := s.lifecycle.CreateBlank(r.Context(), lifecycle.BlankInput{
        OrgUnitID: req.OrgUnitID,
        PillarID:  req.PillarID,
        PeriodID:  req.PeriodID,
        Label:     req.Label,
        CreatedBy: req.CreatedBy,
    })
    if err != nil {
        s.writeError(w, r, err)
        return
    }
    writeJSON(w, http.StatusCreated, a)
}

func (s *Server) listAssessments(w http.ResponseWriter, r *http.Request) {
    var params listAssessmentsParams
    q := r.URL.Query()
    if err := runtime.BindQueryParameter("form", true, false, "orgUnitId", q, &params.OrgUnitID); err != nil {
        writeProblem(w, http.StatusBadRequest, "bad_request", "", err.Error())
        return
    }
    if err := runtime.BindQueryParameter("form", true, false, "pillarId", q, &params.PillarID); err != nil {
        writeProblem(w, http.StatusBadRequest, "bad_request", "", err.Error())
        return
    }
    var f ports.AssessmentFilter
    if params.OrgUnitID != nil {
        f.OrgUnitID = *params.OrgUnitID
    }
    if params.PillarID != nil {
        f.PillarID = *params.PillarID
    }
    list, err := s.lifecycle.List(r.Context(), f)
    if err != nil {
        s.writeError(w, r, err)
        return
    }
    if list == nil {
        list = []domain.Assessment{}
    }
    writeJSON(w, http.StatusOK, list)
}

func (s *Server) getAssessment(w http.ResponseWriter, r *http.Request) {
    id, ok := s.pathParam(w, r, "id")
    if !ok {
        return
    }
    sheet, err := s.answers.Sheet(r.Context(), id)
    if err != nil {
        s.writeError(w, r, err)
        return
    }
    writeJSON(w, http.StatusOK, sheet)
}

func (s *Server) copyAssessment(w http.ResponseWriter, r *http.Request) {
    s.derive(w, r, s.lifecycle.CreateFromCopy)
}

func (s *Server) moderateAssessment(w http.ResponseWriter, r *http.Request) {
    s.derive(w, r, s.lifecycle.CreateModeration)
}

func (s *Server) derive(w http.ResponseWriter, r *http.Request, create func(ctx context.Context, sourceID, label, createdBy string) (domain.Assessment, error)) {
    id, ok := s.pathParam(w, r, "id")
    if !ok {
        return
    }
    var req deriveRequest
    if !s.decode(w, r, &req) {
        return
    }
    a, err := create(r.Context(), id, req.Label, req.CreatedBy)
    if err != nil {
        s.writeError(w, r, err)
        return
    }
    writeJSON(w, http.StatusCreated, a)
}

func (s *Server) activateAssessment(w http.ResponseWriter, r *http.Request) {
    id, ok := s.pathParam(w, r, "id")
    if !ok {
        return
    }
    a, err := s.lifecycle.SetActive(r.Context(), id)
    if err != nil {
        s.writeError(w, r, err)
        return
    }
    writeJSON(w, http.StatusOK, a)
}

func (s *Server) putAnswer(w http.ResponseWriter, r *http.Request) {
    id, ok := s.pathParam(w, r, "id")
    if !ok {
        return
    }
    questionID, ok := s.pathParam(w, r, "questionId")
    if !ok {
        return
    }
    var req answerRequest
    if !s.decode(w, r, &req) {
        return
    }
    p := answers.Patch{
        CheckedGuidelines: req.CheckedGuidelines,
        IsQualified:       req.IsQualified,
        Comments:          req.Comments,
        UpdatedBy:         req.UpdatedBy,
    }
    if req.Evidence != nil {
        ev := make([]domain.Evidence, len(*req.Evidence))
        for i, e := range *req.Evidence {
            ev[i] = domain.Evidence{Name: e.Name, URL: e.URL}
        }
        p.Evidence = &ev
    }
    a, ans, err := s.answers.Update(r.Context(), id, questionID, p)
    if err != nil {
        s.writeError(w, r, err)
        return
    }
    writeJSON(w, http.StatusOK, struct {
        Assessment domain.Assessment `json:"assessment"`
        Answer     domain.Answer     `json:"answer"`
    }{a, ans})
}

// ---- overview ----

func (s *Server) getOverview(w http.ResponseWriter, r *http.Request) {
    snap, err := s.overview.Get(r.Context())
    if err != nil {
        s.writeError(w, r, err)
        return
    }
    writeJSON(w, http.StatusOK, snap)
}

func (s *Server) refreshOverview(w http.ResponseWriter, r *http.Request) {
    snap, err := s.overview.Refresh(r.Context())
    if err != nil {
        s.writeError(w, r, err)
        return
    }
    writeJSON(w, http.StatusOK, snap)
}

// ---- helpers ----

func (s *Server) pathParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
    var v string
    err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &v,
        runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
    if err != nil {
        writeProblem(w, http.StatusBadRequest, "bad_request", "", err.Error())
        return "", false
    }
    return v, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
    dec := json.NewDecoder(r.Body)
    dec.DisallowUnknownFields()
    if err := dec.Decode(dst); err != nil {
        writeProblem(w, http.StatusBadRequest, "bad_request", "", "invalid JSON body: "+err.Error())
        return false
    }
    if err := s.validate.Struct(dst); err != nil {
        var ve validator.ValidationErrors
        if errors.As(err, &ve) && len(ve) > 0 {
            fe := ve[0]
            writeProblem(w, http.StatusUnprocessableEntity, string(domain.KindValidation), "request",
                fe.Namespace()+" fails "+fe.Tag())
            return false
        }
        writeProblem(w, http.StatusBadRequest, "bad_request", "", err.Error())
        return false
    }
    return true
}

type problem struct {
    Kind    string `json:"kind"`
    Rule    string `json:"rule,omitempty"`
    Message string `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
    var de *domain.Error
    if errors.As(err, &de) {
        writeProblem(w, statusFor(de.Kind), string(de.Kind), de.Rule, de.Message)
        return
    }
    if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
        writeProblem(w, http.StatusServiceUnavailable, "unavailable", "", "request cancelled")
        return
    }
    s.log.Error("request failed",
        zap.String("method", r.Method),
        zap.String("path", r.URL.Path),
        zap.Error(err),
    )
    writeProblem(w, http.StatusInternalServerError, "internal", "", "internal error")
}

func statusFor(k domain.ErrorKind) int {
    switch k {
    case domain.KindValidation:
        return http.StatusUnprocessableEntity
    case domain.KindPolicy:
        return http.StatusForbidden
    case domain.KindNotFound:
        return http.StatusNotFound
    case domain.KindConflict:
        return http.StatusConflict
    }
    return http.StatusInternalServerError
}

func writeProblem(w http.ResponseWriter, code int, kind, rule, msg string) {
    writeJSON(w, code, map[string]problem{"error": {Kind: kind, Rule: rule, Message: msg}})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(code)
    _ = json.NewEncoder(w).Encode(v)
}

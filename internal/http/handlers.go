package http

import (
	"errors"
	"net/http"

	"budgetplan/internal/auth"
	"budgetplan/internal/core"
	"budgetplan/internal/log"
	"budgetplan/internal/services"
)

type budgetView struct {
	Month    string              `json:"month"`
	Relation string              `json:"relation"`
	Source   services.Source     `json:"source"`
	Template core.BudgetTemplate `json:"template"`
	Summary  core.Summary        `json:"summary"`
}

type mutationResult struct {
	Applied bool              `json:"applied"`
	Item    *core.Subcategory `json:"item,omitempty"`
	Budget  budgetView        `json:"budget"`
}

func (s *Server) view(sess *services.Session) budgetView {
	return budgetView{
		Month:    sess.Month().String(),
		Relation: s.planner.Engine().Relation(sess.Month()).String(),
		Source:   sess.Source(),
		Template: sess.Template(),
		Summary:  sess.Summary(),
	}
}

// handleGetBudget resolves the requested month and makes it the displayed
// month for subsequent edits.
func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	month, rerr := parseMonthQuery(r.URL.Query(), s.planner.Engine().Today())
	if rerr != nil {
		FromRequestError(rerr).Write(w)
		return
	}
	sess, err := s.planner.Open(r.Context(), userID, month)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to open budget",
			log.FieldUserID, userID, log.FieldMonth, month.String(), log.FieldError, err)
		InternalServerError("could not load budget").Write(w)
		return
	}
	NewJSONResponse().JSON(s.view(sess)).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	NewJSONResponse().JSON(struct {
		Month string `json:"month"`
		core.Summary
	}{sess.Month().String(), sess.Summary()}).Write(w)
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	NewJSONResponse().JSON(struct {
		Month string `json:"month"`
		core.Breakdown
	}{sess.Month().String(), sess.Breakdown()}).Write(w)
}

func (s *Server) handleMonths(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	engine := s.planner.Engine()
	year, rerr := parseYearQuery(r.URL.Query(), engine.Today())
	if rerr != nil {
		FromRequestError(rerr).Write(w)
		return
	}
	statuses, err := engine.MonthStatuses(r.Context(), userID, year)
	if err != nil {
		if errors.Is(err, core.ErrInvalidYear) {
			BadRequestError(err.Error()).Write(w)
			return
		}
		InternalServerError("could not list months").Write(w)
		return
	}
	NewJSONResponse().JSON(struct {
		Year   int                    `json:"year"`
		Months []services.MonthStatus `json:"months"`
	}{year, statuses}).Write(w)
}

func (s *Server) handleUpdateAmount(w http.ResponseWriter, r *http.Request) {
	var req updateAmountRequest
	s.mutate(w, r, &req, "update_amount", func(sess *services.Session) (bool, *core.Subcategory, error) {
		applied, err := sess.UpdateAmount(r.Context(), req.CategoryID, req.SubcategoryID, req.Amount.Decimal)
		return applied, nil, err
	}, func() (string, string) { return req.CategoryID, req.SubcategoryID })
}

func (s *Server) handleUpdateName(w http.ResponseWriter, r *http.Request) {
	var req updateNameRequest
	s.mutate(w, r, &req, "update_name", func(sess *services.Session) (bool, *core.Subcategory, error) {
		applied, err := sess.UpdateName(r.Context(), req.CategoryID, req.SubcategoryID, sanitizeInput(req.Name))
		return applied, nil, err
	}, func() (string, string) { return req.CategoryID, req.SubcategoryID })
}

func (s *Server) handleUpdateClassification(w http.ResponseWriter, r *http.Request) {
	var req updateClassificationRequest
	s.mutate(w, r, &req, "update_classification", func(sess *services.Session) (bool, *core.Subcategory, error) {
		applied, err := sess.UpdateClassification(r.Context(), req.CategoryID, req.SubcategoryID, core.Classification(req.Classification))
		return applied, nil, err
	}, func() (string, string) { return req.CategoryID, req.SubcategoryID })
}

func (s *Server) handleSetDueDate(w http.ResponseWriter, r *http.Request) {
	var req setDueDateRequest
	s.mutate(w, r, &req, "set_due_date", func(sess *services.Session) (bool, *core.Subcategory, error) {
		due, err := parseDueDate(req.DueDate)
		if err != nil {
			return false, nil, nil
		}
		applied, err := sess.SetDueDate(r.Context(), req.CategoryID, req.SubcategoryID, due)
		return applied, nil, err
	}, func() (string, string) { return req.CategoryID, req.SubcategoryID })
}

func (s *Server) handleMoveItem(w http.ResponseWriter, r *http.Request) {
	var req moveItemRequest
	s.mutate(w, r, &req, "move_item", func(sess *services.Session) (bool, *core.Subcategory, error) {
		var (
			applied bool
			err     error
		)
		if req.Direction == "up" {
			applied, err = sess.MoveUp(r.Context(), req.CategoryID, req.SubcategoryID)
		} else {
			applied, err = sess.MoveDown(r.Context(), req.CategoryID, req.SubcategoryID)
		}
		return applied, nil, err
	}, func() (string, string) { return req.CategoryID, req.SubcategoryID })
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	s.mutate(w, r, &req, "add_subcategory", func(sess *services.Session) (bool, *core.Subcategory, error) {
		added, applied, err := sess.AddSubcategory(r.Context(), req.CategoryID, sanitizeInput(req.Name), core.Classification(req.Classification))
		if !applied {
			return false, nil, err
		}
		return true, &added, err
	}, func() (string, string) { return req.CategoryID, "" })
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	var req itemRef
	s.mutate(w, r, &req, "delete_subcategory", func(sess *services.Session) (bool, *core.Subcategory, error) {
		applied, err := sess.DeleteSubcategory(r.Context(), req.CategoryID, req.SubcategoryID)
		return applied, nil, err
	}, func() (string, string) { return req.CategoryID, req.SubcategoryID })
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if err := s.planner.Reset(r.Context(), userID); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Budget reset failed",
			log.FieldUserID, userID, log.FieldError, err)
		InternalServerError("could not reset budget").Write(w)
		return
	}
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	NewJSONResponse().JSON(s.view(sess)).Write(w)
}

// currentSession returns the displayed month, opening today's when the
// user has none. It writes the error response itself.
func (s *Server) currentSession(w http.ResponseWriter, r *http.Request) (*services.Session, bool) {
	userID := auth.UserID(r.Context())
	sess, err := s.planner.Current(r.Context(), userID)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to open current budget",
			log.FieldUserID, userID, log.FieldError, err)
		InternalServerError("could not load budget").Write(w)
		return nil, false
	}
	return sess, true
}

// mutate decodes req, applies op to the user's displayed month and writes
// the resulting budget. Edits need a displayed month, otherwise 409.
// A failed write-through is a 500 and the change stays in memory.
func (s *Server) mutate(
	w http.ResponseWriter,
	r *http.Request,
	req any,
	op string,
	apply func(*services.Session) (bool, *core.Subcategory, error),
	target func() (categoryID, subID string),
) {
	if rerr := decodeJSON(w, r, req); rerr != nil {
		FromRequestError(rerr).Write(w)
		return
	}

	userID := auth.UserID(r.Context())
	sess, err := s.planner.Session(userID)
	if err != nil {
		ConflictError("no month is open, load one with GET /api/budget").Write(w)
		return
	}

	applied, item, err := apply(sess)
	catID, subID := target()
	s.requests.LogMutation(r.Context(), op, userID, sess.Month().String(), catID, subID, applied, err)

	if err != nil {
		InternalServerError("change applied but not saved").Write(w)
		return
	}
	NewJSONResponse().JSON(mutationResult{Applied: applied, Item: item, Budget: s.view(sess)}).Write(w)
}

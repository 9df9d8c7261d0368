// Package intake implements the form-intake gateway: a dispatcher over a
// closed set of actions that writes reviews, contact requests and tutor
// applications, and lists approved reviews for the public site.
package intake

import (
	"context"
	"log/slog"
	"slices"
	"time"
	_ "time/tzdata"

	"github.com/learningtriangle/ltgate/internal/apperr"
	"github.com/learningtriangle/ltgate/internal/metrics"
	"github.com/learningtriangle/ltgate/internal/storage"
)

// DisplayDateLayout renders timestamps the way the cs-CZ locale does.
const DisplayDateLayout = "2. 1. 2006 15:04:05"

// Store is the persistence the gateway needs.
type Store interface {
	CreateReview(ctx context.Context, r storage.Review) (string, error)
	ListReviews(ctx context.Context) ([]storage.Review, error)
	CreateIntakeRecord(ctx context.Context, rec storage.IntakeRecord) (string, error)
}

// Request is one gateway call.
type Request struct {
	Method  string
	Action  Action
	Payload Payload
}

// Result is the success body of an action: a *ReviewList or a *WriteResult.
type Result interface {
	isResult()
}

// PublicReview is a review as shown on the public site. Email is never exposed.
type PublicReview struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Rating    int    `json:"rating"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
	Approved  bool   `json:"approved"`
	Pending   bool   `json:"pending"`
}

// ReviewList is the get-reviews result. Reviews is never nil.
type ReviewList struct {
	Reviews []PublicReview `json:"reviews"`
}

// WriteResult is the result of the write actions. AutoApproved is set for
// reviews only.
type WriteResult struct {
	Success      bool  `json:"success"`
	AutoApproved *bool `json:"autoApproved,omitempty"`
}

func (*ReviewList) isResult()  {}
func (*WriteResult) isResult() {}

// Gateway dispatches intake requests.
type Gateway struct {
	store  Store
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

// NewGateway creates a Gateway. Display dates are rendered in loc; a nil loc
// means UTC.
func NewGateway(store Store, loc *time.Location) *Gateway {
	if loc == nil {
		loc = time.UTC
	}
	return &Gateway{
		store:  store,
		loc:    loc,
		now:    time.Now,
		logger: slog.Default(),
	}
}

// DecideApproval is the moderation rule: ratings of 4 and above are public
// immediately, anything lower waits in the moderation queue.
func DecideApproval(rating int) (approved, pending bool) {
	return rating >= 4, rating < 4
}

// Handle routes req to its action. Unknown actions and method/action
// mismatches are rejected before any validation runs.
func (g *Gateway) Handle(ctx context.Context, req Request) (Result, error) {
	if req.Action == ActionUnknown {
		metrics.RecordIntakeAction(req.Action.String(), "invalid")
		return nil, apperr.New(apperr.InvalidInput, MsgUnknownAction)
	}
	if req.Method != req.Action.Method() {
		metrics.RecordIntakeAction(req.Action.String(), "invalid")
		return nil, apperr.New(apperr.InvalidInput, MsgMethodMismatch)
	}

	var (
		res Result
		err error
	)
	switch req.Action {
	case ActionGetReviews:
		res, err = g.listReviews(ctx)
	case ActionAddReview:
		res, err = g.addReview(ctx, req.Payload)
	case ActionContact:
		res, err = g.addContact(ctx, req.Payload)
	case ActionTutorApply:
		res, err = g.addTutorApplication(ctx, req.Payload)
	default:
		panic("intake: unhandled action " + req.Action.String())
	}

	metrics.RecordIntakeAction(req.Action.String(), outcome(err))
	return res, err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case apperr.KindOf(err) == apperr.InvalidInput:
		return "invalid"
	default:
		return "error"
	}
}

func (g *Gateway) listReviews(ctx context.Context) (*ReviewList, error) {
	all, err := g.store.ListReviews(ctx)
	if err != nil {
		return nil, g.serverError("listing reviews", err)
	}

	out := make([]PublicReview, 0, len(all))
	for _, r := range all {
		if !r.Approved {
			continue
		}
		out = append(out, PublicReview{
			ID:        r.ID,
			Name:      r.Name,
			Rating:    r.Rating,
			Text:      r.Text,
			Timestamp: r.Timestamp,
			Approved:  r.Approved,
			Pending:   r.Pending,
		})
	}
	slices.Reverse(out)

	return &ReviewList{Reviews: out}, nil
}

func (g *Gateway) addReview(ctx context.Context, p Payload) (*WriteResult, error) {
	rating, err := validateReview(p)
	if err != nil {
		return nil, err
	}

	approved, pending := DecideApproval(rating)
	review := storage.Review{
		Name:      p.Name,
		Rating:    rating,
		Text:      p.Text,
		Timestamp: g.now().UnixMilli(),
		Approved:  approved,
		Pending:   pending,
	}
	if p.Email != "" {
		email := p.Email
		review.Email = &email
	}

	id, err := g.store.CreateReview(ctx, review)
	if err != nil {
		return nil, g.serverError("creating review", err)
	}
	g.logger.Info("review stored", "id", id, "rating", rating, "approved", approved)

	return &WriteResult{Success: true, AutoApproved: &approved}, nil
}

func (g *Gateway) addContact(ctx context.Context, p Payload) (*WriteResult, error) {
	if err := validateContact(p); err != nil {
		return nil, err
	}
	return g.writeRecord(ctx, storage.IntakeRecord{
		Kind:    storage.IntakeContact,
		Name:    p.Name,
		Email:   p.Email,
		Phone:   p.Phone,
		City:    p.City,
		Message: p.Message,
	})
}

func (g *Gateway) addTutorApplication(ctx context.Context, p Payload) (*WriteResult, error) {
	if err := validateTutor(p); err != nil {
		return nil, err
	}
	return g.writeRecord(ctx, storage.IntakeRecord{
		Kind:      storage.IntakeTutor,
		Name:      p.Name,
		Email:     p.Email,
		Phone:     p.Phone,
		Birthdate: p.Birthdate,
		Message:   p.Message,
	})
}

func (g *Gateway) writeRecord(ctx context.Context, rec storage.IntakeRecord) (*WriteResult, error) {
	now := g.now()
	rec.Timestamp = now.UnixMilli()
	rec.Date = now.In(g.loc).Format(DisplayDateLayout)
	rec.Status = "new"

	id, err := g.store.CreateIntakeRecord(ctx, rec)
	if err != nil {
		return nil, g.serverError("creating "+string(rec.Kind)+" record", err)
	}
	g.logger.Info("intake record stored", "id", id, "kind", rec.Kind)

	return &WriteResult{Success: true}, nil
}

// serverError logs err with full detail and returns the generic caller error.
func (g *Gateway) serverError(op string, err error) error {
	g.logger.Error("intake store operation failed", "op", op, "error", err)
	return apperr.Wrap(apperr.Server, MsgServerError, err)
}

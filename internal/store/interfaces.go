package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"dealroom.app/broker/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrUniqueViolation is returned when a write collides with a unique index,
// such as the one-open-offer-per-pair rule.
var ErrUniqueViolation = errors.New("unique violation")

// ErrConditionFailed is returned when a conditional update matched no row
// because the row changed since it was read.
var ErrConditionFailed = errors.New("condition failed")

// PartyStore defines the contract for the party directory
type PartyStore interface {
	GetByID(ctx context.Context, id int64) (*model.Party, error)
	GetByEmail(ctx context.Context, email string) (*model.Party, error)
	Create(ctx context.Context, party *model.Party) error
	ListByAdvisorCode(ctx context.Context, typ model.PartyType, code string) ([]model.Party, error)
}

// ListingStore defines the contract for the listing catalog
type ListingStore interface {
	GetByID(ctx context.Context, id int64) (*model.Listing, error)
	// FindOrCreate returns the listing for (targetID, kind), creating it with
	// defaults on first use. Concurrent callers receive the same row.
	FindOrCreate(ctx context.Context, id, targetID int64, kind model.ListingKind, defaults model.ListingDefaults) (*model.Listing, error)
}

// OfferStore defines the contract for plain offer data access
type OfferStore interface {
	GetByID(ctx context.Context, id int64) (*model.Offer, error)
	Create(ctx context.Context, offer *model.Offer) error
	// FindOpenByPair returns the non-rejected offer for the pair, if any.
	FindOpenByPair(ctx context.Context, investorID, startupID int64) (*model.Offer, error)
	DeleteRejectedByPair(ctx context.Context, investorID, startupID int64) (int64, error)
	CompareAndSetGate(ctx context.Context, id int64, gate model.Gate, expected, next model.ApprovalStatus) (model.ApprovalStatus, error)
	UpdateWorkflow(ctx context.Context, params UpdateOfferWorkflowParams) error
	ListByInvestor(ctx context.Context, investorID int64) ([]model.Offer, error)
	ListByStartup(ctx context.Context, startupID int64) ([]model.Offer, error)
	ListByAdvisorCode(ctx context.Context, code string) ([]model.Offer, error)
}

// OpportunityStore defines the contract for co-investment opportunity data access
type OpportunityStore interface {
	GetByID(ctx context.Context, id int64) (*model.CoInvestmentOpportunity, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*model.CoInvestmentOpportunity, error)
	Create(ctx context.Context, opp *model.CoInvestmentOpportunity) error
	FindActiveByPair(ctx context.Context, startupID, leadInvestorID int64) (*model.CoInvestmentOpportunity, error)
	CompareAndSetGate(ctx context.Context, id int64, gate model.Gate, expected, next model.ApprovalStatus) (model.ApprovalStatus, error)
	UpdateWorkflow(ctx context.Context, params UpdateOpportunityWorkflowParams) error
	SetStatus(ctx context.Context, id int64, status model.OpportunityStatus) error
	ListByLeadInvestor(ctx context.Context, leadInvestorID int64) ([]model.CoInvestmentOpportunity, error)
	ListByStartup(ctx context.Context, startupID int64) ([]model.CoInvestmentOpportunity, error)
	ListByAdvisorCode(ctx context.Context, code string) ([]model.CoInvestmentOpportunity, error)
	ListOpen(ctx context.Context) ([]model.CoInvestmentOpportunity, error)
}

// CoInvestmentOfferStore defines the contract for co-investment offer data access
type CoInvestmentOfferStore interface {
	GetByID(ctx context.Context, id int64) (*model.CoInvestmentOffer, error)
	Create(ctx context.Context, offer *model.CoInvestmentOffer) error
	FindOpenByPair(ctx context.Context, opportunityID, coInvestorID int64) (*model.CoInvestmentOffer, error)
	CompareAndSetGate(ctx context.Context, id int64, gate model.Gate, expected, next model.ApprovalStatus) (model.ApprovalStatus, error)
	UpdateWorkflow(ctx context.Context, params UpdateCoInvestmentOfferWorkflowParams) error
	SumAccepted(ctx context.Context, opportunityID int64) (decimal.Decimal, error)
	ListByCoInvestor(ctx context.Context, coInvestorID int64) ([]model.CoInvestmentOffer, error)
	ListByOpportunityLead(ctx context.Context, leadInvestorID int64) ([]model.CoInvestmentOffer, error)
	ListByStartup(ctx context.Context, startupID int64) ([]model.CoInvestmentOffer, error)
	ListByAdvisorCode(ctx context.Context, code string) ([]model.CoInvestmentOffer, error)
}

// NotificationStore defines the contract for notification data access
type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) error
	ListByRecipient(ctx context.Context, recipientID int64, unreadOnly bool, limit int32) ([]model.Notification, error)
	MarkRead(ctx context.Context, id, recipientID int64) error
}

type UpdateOfferWorkflowParams struct {
	ID                      int64
	ExpectedStage           int
	Stage                   int
	Status                  model.OfferStatus
	InvestorAdvisorApproval model.ApprovalStatus
	StartupAdvisorApproval  model.ApprovalStatus
	ContactDetailsRevealed  bool
}

type UpdateOpportunityWorkflowParams struct {
	ID                          int64
	ExpectedStage               int
	Stage                       int
	Status                      model.OpportunityStatus
	LeadInvestorAdvisorApproval model.ApprovalStatus
	StartupAdvisorApproval      model.ApprovalStatus
	StartupApprovalStatus       model.StartupApprovalStatus
}

type UpdateCoInvestmentOfferWorkflowParams struct {
	ID                            int64
	ExpectedStage                 int
	Stage                         int
	Status                        model.CoInvestmentOfferStatus
	InvestorAdvisorApprovalStatus model.ApprovalStatus
	LeadInvestorApprovalStatus    model.ApprovalStatus
}

const pgUniqueViolation = "23505"

// mapWriteErr translates driver errors callers branch on.
func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrUniqueViolation
	}
	return err
}

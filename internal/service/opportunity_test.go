package service_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"dealroom.app/broker/common/id"
	"dealroom.app/broker/internal/lifecycle"
	"dealroom.app/broker/internal/model"
	"dealroom.app/broker/internal/service"
)

var _ = Describe("OpportunityService", func() {
	var (
		ctx      context.Context
		mem      *memStores
		producer *recordingProducer
		svc      service.OpportunityService
	)

	BeforeEach(func() {
		ctx = context.Background()
		Expect(id.Init(1)).To(Succeed())
		mem = newMemStores()
		seedParties(mem)
		producer = &recordingProducer{}
		svc = service.NewOpportunityService(mem, &mockTxRunner{stores: mem}, producer, "USD")
	})

	input := func() service.SubmitOpportunityInput {
		return service.SubmitOpportunityInput{
			LeadInvestorID:   leadID,
			StartupID:        startupID,
			TotalAsk:         decimal.NewFromInt(100000),
			EquityPercentage: decimal.NewFromInt(10),
			MinTicket:        decimal.NewFromInt(10000),
			MaxTicket:        decimal.NewFromInt(60000),
			Description:      "seed extension",
		}
	}

	submit := func() *model.CoInvestmentOpportunity {
		opp, err := svc.Submit(ctx, input())
		Expect(err).NotTo(HaveOccurred())
		return opp
	}

	decide := func(oppID int64, gate model.Gate, d model.Decision, actor int64) (*model.CoInvestmentOpportunity, error) {
		return svc.Decide(ctx, service.DecisionInput{ItemID: oppID, Gate: gate, Decision: d, ActorID: actor})
	}

	It("opens for co-investment once the startup approves", func() {
		opp := submit()
		Expect(opp.Stage).To(Equal(lifecycle.StageReady))
		Expect(opp.Status).To(Equal(model.OpportunityStatusActive))
		Expect(opp.StartupApprovalStatus).To(Equal(model.StartupApprovalPending))
		Expect(opp.Currency).To(Equal("USD"))

		open, err := svc.ListOpen(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(open).To(BeEmpty())

		opp, err = decide(opp.ID, model.GateStartupFinal, model.DecisionApprove, startupID)
		Expect(err).NotTo(HaveOccurred())
		Expect(opp.Stage).To(Equal(lifecycle.StageAccepted))
		Expect(opp.Status).To(Equal(model.OpportunityStatusActive))
		Expect(opp.StartupApprovalStatus).To(Equal(model.StartupApprovalApproved))

		open, err = svc.ListOpen(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(open).To(HaveLen(1))
		Expect(producer.events[len(producer.events)-1].Terminal()).To(BeTrue())
	})

	It("keeps the startup out until the lead's advisor approves", func() {
		mem.setCode(leadID, "ADV-3")
		opp := submit()
		Expect(opp.Stage).To(Equal(lifecycle.StageFirstGate))
		Expect(producer.events[0].NextAdvisorCode).To(Equal("ADV-3"))

		_, err := decide(opp.ID, model.GateStartupFinal, model.DecisionApprove, startupID)
		Expect(errors.Is(err, lifecycle.ErrConflict)).To(BeTrue())

		seen, err := svc.ListVisible(ctx, model.RoleStartup, startupID)
		Expect(err).NotTo(HaveOccurred())
		Expect(seen).To(BeEmpty())

		opp, err = decide(opp.ID, model.GateInvestorAdvisor, model.DecisionApprove, leadAdvisorID)
		Expect(err).NotTo(HaveOccurred())
		Expect(opp.Stage).To(Equal(lifecycle.StageReady))
		Expect(opp.LeadInvestorAdvisorApproval).To(Equal(model.ApprovalApproved))

		seen, err = svc.ListVisible(ctx, model.RoleStartup, startupID)
		Expect(err).NotTo(HaveOccurred())
		Expect(seen).To(HaveLen(1))
	})

	It("names the next actor on every event after the transaction closes", func() {
		mem.setCode(leadID, "ADV-3")
		mem.setCode(startupID, "ADV-2")
		opp := submit()

		_, err := decide(opp.ID, model.GateInvestorAdvisor, model.DecisionApprove, leadAdvisorID)
		Expect(err).NotTo(HaveOccurred())
		_, err = decide(opp.ID, model.GateStartupAdvisor, model.DecisionApprove, stAdvisorID)
		Expect(err).NotTo(HaveOccurred())

		Expect(producer.events).To(HaveLen(3))
		Expect(producer.events[0].NextGate).To(Equal(model.GateInvestorAdvisor))
		Expect(producer.events[0].NextAdvisorCode).To(Equal("ADV-3"))
		Expect(producer.events[1].NextGate).To(Equal(model.GateStartupAdvisor))
		Expect(producer.events[1].NextAdvisorCode).To(Equal("ADV-2"))
		Expect(producer.events[2].NextGate).To(Equal(model.GateStartupFinal))
		Expect(producer.events[2].NextPartyID).To(Equal(startupID))
	})

	It("cancels the opportunity on rejection and frees the pair", func() {
		opp := submit()

		opp, err := decide(opp.ID, model.GateStartupFinal, model.DecisionReject, startupID)
		Expect(err).NotTo(HaveOccurred())
		Expect(opp.Status).To(Equal(model.OpportunityStatusCancelled))
		Expect(opp.StartupApprovalStatus).To(Equal(model.StartupApprovalRejected))

		again := submit()
		Expect(again.ID).NotTo(Equal(opp.ID))
	})

	It("refuses a second active opportunity for the pair", func() {
		first := submit()

		_, err := svc.Submit(ctx, input())

		Expect(conflictItem(err)).To(Equal(first.ID))
	})

	DescribeTable("rejects invalid bounds",
		func(mutate func(*service.SubmitOpportunityInput)) {
			in := input()
			mutate(&in)

			_, err := svc.Submit(ctx, in)

			Expect(errCode(err)).To(Equal(lifecycle.CodeInvalid))
		},
		Entry("max below min", func(in *service.SubmitOpportunityInput) { in.MaxTicket = decimal.NewFromInt(5000) }),
		Entry("min above ask", func(in *service.SubmitOpportunityInput) {
			in.MinTicket = decimal.NewFromInt(200000)
			in.MaxTicket = decimal.Zero
		}),
		Entry("negative min", func(in *service.SubmitOpportunityInput) { in.MinTicket = decimal.NewFromInt(-1) }),
		Entry("zero ask", func(in *service.SubmitOpportunityInput) { in.TotalAsk = decimal.Zero }),
		Entry("lead is a startup", func(in *service.SubmitOpportunityInput) { in.LeadInvestorID = startupID }),
	)

	It("shows open opportunities to any investor but pending ones only to the lead", func() {
		opp := submit()

		_, err := svc.Get(ctx, opp.ID, model.RoleInvestor, strangerID)
		Expect(errors.Is(err, lifecycle.ErrNotFound)).To(BeTrue())

		got, err := svc.Get(ctx, opp.ID, model.RoleInvestor, leadID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(opp.ID))

		_, err = decide(opp.ID, model.GateStartupFinal, model.DecisionApprove, startupID)
		Expect(err).NotTo(HaveOccurred())

		got, err = svc.Get(ctx, opp.ID, model.RoleInvestor, strangerID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(opp.ID))
	})
})

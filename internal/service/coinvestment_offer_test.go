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
	"dealroom.app/broker/internal/queue"
	"dealroom.app/broker/internal/service"
)

const oppID int64 = 7000

// seedOpenOpportunity stores an opportunity the startup already approved.
func seedOpenOpportunity(mem *memStores) *model.CoInvestmentOpportunity {
	opp := &model.CoInvestmentOpportunity{
		ID:                          oppID,
		StartupID:                   startupID,
		LeadInvestorID:              leadID,
		ListingID:                   8000,
		TotalAsk:                    decimal.NewFromInt(100000),
		EquityPercentage:            decimal.NewFromInt(10),
		MinTicket:                   decimal.NewFromInt(10000),
		MaxTicket:                   decimal.NewFromInt(60000),
		Currency:                    "USD",
		Stage:                       lifecycle.StageAccepted,
		Status:                      model.OpportunityStatusActive,
		LeadInvestorAdvisorApproval: model.ApprovalNotRequired,
		StartupAdvisorApproval:      model.ApprovalNotRequired,
		StartupApprovalStatus:       model.StartupApprovalApproved,
	}
	mem.opps[opp.ID] = opp
	return opp
}

var _ = Describe("CoInvestmentOfferService", func() {
	var (
		ctx      context.Context
		mem      *memStores
		producer *recordingProducer
		svc      service.CoInvestmentOfferService
	)

	BeforeEach(func() {
		ctx = context.Background()
		Expect(id.Init(1)).To(Succeed())
		mem = newMemStores()
		seedParties(mem)
		seedOpenOpportunity(mem)
		producer = &recordingProducer{}
		svc = service.NewCoInvestmentOfferService(mem, &mockTxRunner{stores: mem}, producer)
	})

	submitAs := func(investor int64, amount string) (*model.CoInvestmentOffer, error) {
		return svc.Submit(ctx, service.SubmitCoInvestmentOfferInput{
			OpportunityID: oppID,
			CoInvestorID:  investor,
			Terms:         terms(amount, "5"),
		})
	}

	decide := func(offerID int64, gate model.Gate, d model.Decision, actor int64) (*model.CoInvestmentOffer, error) {
		return svc.Decide(ctx, service.DecisionInput{ItemID: offerID, Gate: gate, Decision: d, ActorID: actor})
	}

	Describe("Submit", func() {
		It("goes straight to the startup when nobody is advised", func() {
			offer, err := submitAs(coInvestorID, "20000")

			Expect(err).NotTo(HaveOccurred())
			Expect(offer.Stage).To(Equal(lifecycle.StageReady))
			Expect(offer.Status).To(Equal(model.CoInvestmentStatusPendingStartup))
			Expect(offer.ListingID).To(Equal(int64(8000)))
			Expect(producer.events[0].NextPartyID).To(Equal(startupID))
		})

		It("routes through the lead investor when the lead is advisor-managed", func() {
			mem.setCode(leadID, "ADV-3")

			offer, err := submitAs(coInvestorID, "20000")

			Expect(err).NotTo(HaveOccurred())
			Expect(offer.Status).To(Equal(model.CoInvestmentStatusPendingLeadInvestor))
			Expect(producer.events[0].NextPartyID).To(Equal(leadID))
		})

		It("refuses opportunities the startup has not approved", func() {
			mem.opps[oppID].StartupApprovalStatus = model.StartupApprovalPending

			_, err := submitAs(coInvestorID, "20000")

			Expect(conflictItem(err)).To(Equal(oppID))
		})

		DescribeTable("rejects tickets the opportunity cannot take",
			func(investor int64, amount, currency string) {
				in := service.SubmitCoInvestmentOfferInput{OpportunityID: oppID, CoInvestorID: investor, Terms: terms(amount, "5")}
				in.Terms.Currency = currency

				_, err := svc.Submit(ctx, in)

				Expect(errCode(err)).To(Equal(lifecycle.CodeInvalid))
			},
			Entry("below min ticket", coInvestorID, "5000", "USD"),
			Entry("above max ticket", coInvestorID, "70000", "USD"),
			Entry("other currency", coInvestorID, "20000", "EUR"),
			Entry("lead investing in own round", leadID, "20000", "USD"),
		)

		It("keeps rejected tickets and allows a fresh one", func() {
			first, err := submitAs(coInvestorID, "20000")
			Expect(err).NotTo(HaveOccurred())
			_, err = decide(first.ID, model.GateStartupFinal, model.DecisionReject, startupID)
			Expect(err).NotTo(HaveOccurred())

			second, err := submitAs(coInvestorID, "25000")

			Expect(err).NotTo(HaveOccurred())
			Expect(second.ID).NotTo(Equal(first.ID))
			Expect(mem.coOffers).To(HaveKey(first.ID))
		})

		It("refuses a second open ticket from the same co-investor", func() {
			first, err := submitAs(coInvestorID, "20000")
			Expect(err).NotTo(HaveOccurred())

			_, err = submitAs(coInvestorID, "30000")

			Expect(conflictItem(err)).To(Equal(first.ID))
		})
	})

	Describe("Decide", func() {
		It("lets only the lead investor decide the lead gate", func() {
			mem.setCode(leadID, "ADV-3")
			offer, err := submitAs(coInvestorID, "20000")
			Expect(err).NotTo(HaveOccurred())

			_, err = decide(offer.ID, model.GateLeadInvestor, model.DecisionApprove, leadAdvisorID)
			Expect(errors.Is(err, lifecycle.ErrAuthorization)).To(BeTrue())

			offer, err = decide(offer.ID, model.GateLeadInvestor, model.DecisionApprove, leadID)
			Expect(err).NotTo(HaveOccurred())
			Expect(offer.Status).To(Equal(model.CoInvestmentStatusPendingStartup))
			Expect(offer.LeadInvestorApprovalStatus).To(Equal(model.ApprovalApproved))
		})

		It("completes the opportunity once accepted tickets cover the ask", func() {
			a, err := submitAs(coInvestorID, "50000")
			Expect(err).NotTo(HaveOccurred())
			b, err := submitAs(strangerID, "50000")
			Expect(err).NotTo(HaveOccurred())

			_, err = decide(a.ID, model.GateStartupFinal, model.DecisionApprove, startupID)
			Expect(err).NotTo(HaveOccurred())
			Expect(mem.opps[oppID].Status).To(Equal(model.OpportunityStatusActive))

			accepted, err := decide(b.ID, model.GateStartupFinal, model.DecisionApprove, startupID)
			Expect(err).NotTo(HaveOccurred())
			Expect(accepted.Status).To(Equal(model.CoInvestmentStatusAccepted))
			Expect(mem.opps[oppID].Status).To(Equal(model.OpportunityStatusCompleted))

			last := producer.events[len(producer.events)-1]
			Expect(last.Type).To(Equal(queue.EventTypeCompleted))
			Expect(last.ItemKind).To(Equal(model.KindOpportunity))
			Expect(last.SubmitterID).To(Equal(leadID))

			_, err = submitAs(coInvestorID+1000, "20000")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("closed rounds", func() {
		DescribeTable("refuses to accept a ticket once the round is no longer active",
			func(status model.OpportunityStatus) {
				offer, err := submitAs(coInvestorID, "20000")
				Expect(err).NotTo(HaveOccurred())
				mem.opps[oppID].Status = status

				_, err = decide(offer.ID, model.GateStartupFinal, model.DecisionApprove, startupID)

				Expect(conflictItem(err)).To(Equal(oppID))
				Expect(mem.coOffers[offer.ID].Status).To(Equal(model.CoInvestmentStatusPendingStartup))
				Expect(producer.events).To(HaveLen(1))
			},
			Entry("completed", model.OpportunityStatusCompleted),
			Entry("cancelled", model.OpportunityStatusCancelled),
		)

		It("still lets the startup reject a pending ticket", func() {
			offer, err := submitAs(coInvestorID, "20000")
			Expect(err).NotTo(HaveOccurred())
			mem.opps[oppID].Status = model.OpportunityStatusCompleted

			got, err := decide(offer.ID, model.GateStartupFinal, model.DecisionReject, startupID)

			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(model.CoInvestmentStatusRejected))
		})

		It("treats a repeated accept of the closing ticket as a no-op", func() {
			a, err := submitAs(coInvestorID, "50000")
			Expect(err).NotTo(HaveOccurred())
			b, err := submitAs(strangerID, "50000")
			Expect(err).NotTo(HaveOccurred())
			_, err = decide(a.ID, model.GateStartupFinal, model.DecisionApprove, startupID)
			Expect(err).NotTo(HaveOccurred())
			_, err = decide(b.ID, model.GateStartupFinal, model.DecisionApprove, startupID)
			Expect(err).NotTo(HaveOccurred())
			Expect(mem.opps[oppID].Status).To(Equal(model.OpportunityStatusCompleted))
			published := len(producer.events)

			again, err := decide(b.ID, model.GateStartupFinal, model.DecisionApprove, startupID)

			Expect(err).NotTo(HaveOccurred())
			Expect(again.Status).To(Equal(model.CoInvestmentStatusAccepted))
			Expect(producer.events).To(HaveLen(published))
		})
	})

	Describe("lifecycle events", func() {
		It("names the next actor on every event after the transaction closes", func() {
			mem.setCode(coInvestorID, "ADV-1")
			mem.setCode(leadID, "ADV-3")
			offer, err := submitAs(coInvestorID, "20000")
			Expect(err).NotTo(HaveOccurred())

			_, err = decide(offer.ID, model.GateInvestorAdvisor, model.DecisionApprove, invAdvisorID)
			Expect(err).NotTo(HaveOccurred())
			_, err = decide(offer.ID, model.GateLeadInvestor, model.DecisionApprove, leadID)
			Expect(err).NotTo(HaveOccurred())

			Expect(producer.events).To(HaveLen(3))
			Expect(producer.events[0].NextGate).To(Equal(model.GateInvestorAdvisor))
			Expect(producer.events[0].NextAdvisorCode).To(Equal("ADV-1"))
			Expect(producer.events[1].NextGate).To(Equal(model.GateLeadInvestor))
			Expect(producer.events[1].NextPartyID).To(Equal(leadID))
			Expect(producer.events[2].NextGate).To(Equal(model.GateStartupFinal))
			Expect(producer.events[2].NextPartyID).To(Equal(startupID))
		})
	})

	Describe("visibility", func() {
		It("shows the lead investor tickets that reached the lead gate", func() {
			mem.setCode(coInvestorID, "ADV-1")
			mem.setCode(leadID, "ADV-3")
			offer, err := submitAs(coInvestorID, "20000")
			Expect(err).NotTo(HaveOccurred())

			seen, err := svc.ListVisible(ctx, model.RoleLeadInvestor, leadID)
			Expect(err).NotTo(HaveOccurred())
			Expect(seen).To(BeEmpty())

			_, err = decide(offer.ID, model.GateInvestorAdvisor, model.DecisionApprove, invAdvisorID)
			Expect(err).NotTo(HaveOccurred())

			seen, err = svc.ListVisible(ctx, model.RoleLeadInvestor, leadID)
			Expect(err).NotTo(HaveOccurred())
			Expect(seen).To(HaveLen(1))

			got, err := svc.Get(ctx, offer.ID, model.RoleInvestor, coInvestorID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(offer.ID))
		})
	})
})

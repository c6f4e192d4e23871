package lifecycle_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"dealroom.app/broker/internal/lifecycle"
	"dealroom.app/broker/internal/model"
)

var _ = Describe("Visible", func() {
	offerParties := lifecycle.Parties{Investor: investorID, Startup: startupID}
	startup := lifecycle.Viewer{Role: model.RoleStartup, PartyID: startupID}

	place := func(chain lifecycle.ChainDescriptor, facts lifecycle.Facts, parties lifecycle.Parties) lifecycle.Item {
		wf, _ := lifecycle.Resolve(chain, lifecycle.NewWorkflow(), facts)
		return lifecycle.Item{ID: itemID, Parties: parties, Workflow: wf}
	}

	It("hides items from other startups", func() {
		item := place(lifecycle.OfferChain, lifecycle.NewFacts("", "", ""), offerParties)

		ok, err := lifecycle.Visible(lifecycle.OfferChain, item, lifecycle.NewFacts("", "", ""),
			lifecycle.Viewer{Role: model.RoleStartup, PartyID: strangerID})

		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("never shows the startup an item whose governing gate is pending", func() {
		for _, codes := range [][2]string{{"ADV-1", ""}, {"", "ADV-2"}, {"ADV-1", "ADV-2"}} {
			facts := lifecycle.NewFacts(codes[0], codes[1], "")
			item := place(lifecycle.OfferChain, facts, offerParties)

			ok, err := lifecycle.Visible(lifecycle.OfferChain, item, facts, startup)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		}
	})

	It("fails closed when a skipped gate's party has since gained an advisor", func() {
		item := place(lifecycle.OfferChain, lifecycle.NewFacts("", "", ""), offerParties)

		ok, err := lifecycle.Visible(lifecycle.OfferChain, item, lifecycle.NewFacts("", "ADV-2", ""), startup)

		Expect(ok).To(BeFalse())
		Expect(errors.Is(err, lifecycle.ErrInconsistentState)).To(BeTrue())
	})

	It("keeps accepted items visible after affiliations change", func() {
		item := place(lifecycle.OfferChain, lifecycle.NewFacts("", "", ""), offerParties)
		item.Workflow = item.Workflow.With(model.GateStartupFinal, model.ApprovalApproved)
		item.Workflow.Stage = lifecycle.StageAccepted

		ok, err := lifecycle.Visible(lifecycle.OfferChain, item, lifecycle.NewFacts("ADV-1", "ADV-2", ""), startup)

		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
	})

	It("shows the startup its own rejection but not an advisor's", func() {
		facts := lifecycle.NewFacts("", "", "")
		item := place(lifecycle.OfferChain, facts, offerParties)
		item.Workflow = item.Workflow.With(model.GateStartupFinal, model.ApprovalRejected)

		ok, err := lifecycle.Visible(lifecycle.OfferChain, item, facts, startup)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())

		facts = lifecycle.NewFacts("ADV-1", "", "")
		item = place(lifecycle.OfferChain, facts, offerParties)
		item.Workflow = item.Workflow.With(model.GateInvestorAdvisor, model.ApprovalRejected)

		ok, err = lifecycle.Visible(lifecycle.OfferChain, item, facts, startup)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("always shows investors their own items", func() {
		facts := lifecycle.NewFacts("ADV-1", "", "")
		item := place(lifecycle.OfferChain, facts, offerParties)

		ok, err := lifecycle.Visible(lifecycle.OfferChain, item, facts, lifecycle.Viewer{Role: model.RoleInvestor, PartyID: investorID})

		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
	})

	Context("advisors", func() {
		It("see items whose gate for their code is in play", func() {
			facts := lifecycle.NewFacts("ADV-1", "ADV-2", "")
			item := place(lifecycle.OfferChain, facts, offerParties)

			ok, _ := lifecycle.Visible(lifecycle.OfferChain, item, facts, lifecycle.Viewer{Role: model.RoleAdvisor, AdvisorCode: "ADV-1"})
			Expect(ok).To(BeTrue())

			ok, _ = lifecycle.Visible(lifecycle.OfferChain, item, facts, lifecycle.Viewer{Role: model.RoleAdvisor, AdvisorCode: "ADV-2"})
			Expect(ok).To(BeFalse())

			ok, _ = lifecycle.Visible(lifecycle.OfferChain, item, facts, lifecycle.Viewer{Role: model.RoleAdvisor, AdvisorCode: "  "})
			Expect(ok).To(BeFalse())
		})
	})

	Context("lead investors", func() {
		coParties := lifecycle.Parties{Investor: investorID, Startup: startupID, Lead: leadID}
		lead := lifecycle.Viewer{Role: model.RoleLeadInvestor, PartyID: leadID}

		It("do not see co-investment offers still with the investor's advisor", func() {
			facts := lifecycle.NewFacts("ADV-1", "", "ADV-3")
			item := place(lifecycle.CoInvestmentOfferChain, facts, coParties)

			ok, err := lifecycle.Visible(lifecycle.CoInvestmentOfferChain, item, facts, lead)

			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("see co-investment offers awaiting their review", func() {
			facts := lifecycle.NewFacts("", "", "ADV-3")
			item := place(lifecycle.CoInvestmentOfferChain, facts, coParties)

			ok, err := lifecycle.Visible(lifecycle.CoInvestmentOfferChain, item, facts, lead)

			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		})

		It("see their own opportunities", func() {
			facts := lifecycle.NewFacts("ADV-1", "", "")
			item := place(lifecycle.OpportunityChain, facts, lifecycle.Parties{Investor: leadID, Startup: startupID})

			ok, err := lifecycle.Visible(lifecycle.OpportunityChain, item, facts, lead)

			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		})
	})
})

package service_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"dealroom.app/broker/common/id"
	"dealroom.app/broker/internal/model"
	"dealroom.app/broker/internal/service"
)

var _ = Describe("tracing", func() {
	var (
		recorder *tracetest.SpanRecorder
		prev     trace.TracerProvider
		mem      *memStores
		producer *recordingProducer
		svc      service.OfferService
	)

	BeforeEach(func() {
		recorder = tracetest.NewSpanRecorder()
		prev = otel.GetTracerProvider()
		otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
		DeferCleanup(func() { otel.SetTracerProvider(prev) })

		Expect(id.Init(1)).To(Succeed())
		mem = newMemStores()
		seedParties(mem)
		producer = &recordingProducer{}
		svc = service.NewOfferService(mem, &mockTxRunner{stores: mem}, producer, "USD")
	})

	It("stamps published events with the operation's trace", func() {
		offer, err := svc.Submit(context.Background(), service.SubmitOfferInput{
			InvestorID: investorID,
			StartupID:  startupID,
			Terms:      terms("50000", "5"),
		})
		Expect(err).NotTo(HaveOccurred())

		_, err = svc.Decide(context.Background(), service.DecisionInput{
			ItemID: offer.ID, Gate: model.GateStartupFinal, Decision: model.DecisionApprove, ActorID: startupID,
		})
		Expect(err).NotTo(HaveOccurred())

		spans := recorder.Ended()
		Expect(spans).To(HaveLen(2))
		Expect(spans[0].Name()).To(Equal("offer.submit"))
		Expect(spans[1].Name()).To(Equal("offer.decide"))

		Expect(producer.events).To(HaveLen(2))
		for i, ev := range producer.events {
			Expect(ev.TraceID).NotTo(BeNil())
			Expect(*ev.TraceID).To(Equal(spans[i].SpanContext().TraceID().String()))
		}
	})

	It("marks the span as failed when the operation errors", func() {
		_, err := svc.Decide(context.Background(), service.DecisionInput{
			ItemID: 4242, Gate: model.GateStartupFinal, Decision: model.DecisionApprove, ActorID: startupID,
		})
		Expect(err).To(HaveOccurred())

		spans := recorder.Ended()
		Expect(spans).To(HaveLen(1))
		Expect(spans[0].Status().Code.String()).To(Equal("Error"))
	})
})

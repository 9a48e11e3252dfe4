package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/models"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/service/servicetest"
)

func seedAwaitingTicket(store *servicetest.Store, serviceType string) models.Ticket {
	tk := models.Ticket{
		ID:                   "t1",
		CustomerID:           testCustomer.ID,
		AssignedTechnicianID: strPtr(testTech.ID),
		Title:                "Brake noise",
		Status:               models.StatusAwaitingPayment,
		ServiceType:          strPtr(serviceType),
		EstimatedCost:        200,
		VehicleMake:          "Toyota",
		VehicleModel:         "Corolla",
		VehicleYear:          2019,
		PaymentMade:          true,
		PaymentAmount:        100,
		PaymentReference:     "TRX-1",
	}
	store.Tickets[tk.ID] = tk
	return tk
}

func TestConfirmInitialPaymentRunsAllSteps(t *testing.T) {
	store := servicetest.NewStore()
	seedProfiles(store)
	seedAwaitingTicket(store, models.ServiceOnSite)
	svc, notifier := newTestService(store)

	c, err := svc.ConfirmInitialPayment(context.Background(), testAdmin, "t1")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if c.Status != models.ConfirmationCompleted || len(c.Warnings) != 0 {
		t.Fatalf("unexpected confirmation %+v", c)
	}
	tk := store.Tickets["t1"]
	if !tk.PaymentConfirmed || !tk.WorkAuthorized || tk.Status != models.StatusInProgress {
		t.Fatalf("ticket not confirmed: %+v", tk)
	}
	if len(store.Payments) != 1 || store.Payments[0].Amount != 100 || store.Payments[0].ConfirmedBy != testAdmin.ID {
		t.Fatalf("unexpected payments %+v", store.Payments)
	}
	if len(store.Invoices) != 1 {
		t.Fatalf("expected one invoice, got %d", len(store.Invoices))
	}
	inv := store.Invoices[0]
	if inv.InvoiceNumber != "INV-2026-000001" || inv.Total != 100 || !strings.Contains(inv.VehicleInfo, "Toyota Corolla") {
		t.Fatalf("unexpected invoice %+v", inv)
	}
	msgs, _ := store.ListMessages(context.Background(), "t1")
	if len(msgs) != 1 || msgs[0].MessageType != models.MessageSystem {
		t.Fatalf("expected one system message, got %+v", msgs)
	}
	if len(notifier.sent) == 0 || notifier.sent[len(notifier.sent)-1].UserID != testCustomer.ID {
		t.Fatalf("expected customer to be notified, got %+v", notifier.sent)
	}
}

func TestConfirmUsesFallbackInvoiceNumber(t *testing.T) {
	store := servicetest.NewStore()
	seedProfiles(store)
	seedAwaitingTicket(store, models.ServiceRemote)
	store.InvoiceNumberErr = errors.New("rpc unavailable")
	svc, _ := newTestService(store)

	c, err := svc.ConfirmInitialPayment(context.Background(), testAdmin, "t1")
	if err != nil {
		t.Fatalf("confirm should not fail on invoice number error: %v", err)
	}
	if c.Status != models.ConfirmationWarnings {
		t.Fatalf("expected warnings status, got %s", c.Status)
	}
	want := fmt.Sprintf("INV-%d", testNow.UnixMilli())
	if len(store.Invoices) != 1 || store.Invoices[0].InvoiceNumber != want {
		t.Fatalf("expected invoice %s, got %+v", want, store.Invoices)
	}
	if !store.Tickets["t1"].PaymentConfirmed {
		t.Fatalf("confirmation must stay applied")
	}

	again, err := svc.ConfirmInitialPayment(context.Background(), testAdmin, "t1")
	if err != nil || again.Status != models.ConfirmationWarnings || len(store.Invoices) != 1 {
		t.Fatalf("finished run should be returned as stored, got %+v err=%v", again, err)
	}
}

func TestConfirmRetryFinishesMissingSteps(t *testing.T) {
	store := servicetest.NewStore()
	seedProfiles(store)
	seedAwaitingTicket(store, models.ServiceRemote)
	store.InvoiceErr = errors.New("insert failed")
	svc, _ := newTestService(store)

	c, err := svc.ConfirmInitialPayment(context.Background(), testAdmin, "t1")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if c.Status != models.ConfirmationWarnings || c.InvoiceID != nil || len(store.Invoices) != 0 {
		t.Fatalf("expected missing invoice with warnings, got %+v", c)
	}

	store.InvoiceErr = nil
	c, err = svc.ConfirmInitialPayment(context.Background(), testAdmin, "t1")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if c.Status != models.ConfirmationCompleted || c.InvoiceID == nil {
		t.Fatalf("retry should complete, got %+v", c)
	}
	if len(store.Payments) != 1 || len(store.Invoices) != 1 {
		t.Fatalf("retry must not duplicate rows: payments=%d invoices=%d", len(store.Payments), len(store.Invoices))
	}
	if store.Invoices[0].InvoiceNumber != "INV-2026-000001" {
		t.Fatalf("retry should reuse the reserved invoice number, got %s", store.Invoices[0].InvoiceNumber)
	}
	if store.InvoiceSeq != 1 {
		t.Fatalf("invoice number generated %d times", store.InvoiceSeq)
	}
}

func TestConfirmIsIdempotent(t *testing.T) {
	store := servicetest.NewStore()
	seedProfiles(store)
	seedAwaitingTicket(store, models.ServiceRemote)
	svc, _ := newTestService(store)

	first, err := svc.ConfirmInitialPayment(context.Background(), testAdmin, "t1")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	second, err := svc.ConfirmInitialPayment(context.Background(), testAdmin, "t1")
	if err != nil {
		t.Fatalf("second confirm: %v", err)
	}
	if first.ID != second.ID || len(store.Payments) != 1 || len(store.Invoices) != 1 {
		t.Fatalf("expected a single payment and invoice, got %d/%d", len(store.Payments), len(store.Invoices))
	}
}

func TestConfirmFailsWhenFlagsCannotApply(t *testing.T) {
	store := servicetest.NewStore()
	seedProfiles(store)
	tk := seedAwaitingTicket(store, models.ServiceRemote)
	tk.PaymentMade = false
	tk.PaymentReference = ""
	store.Tickets[tk.ID] = tk
	svc, _ := newTestService(store)

	c, err := svc.ConfirmInitialPayment(context.Background(), testAdmin, "t1")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if c.Status != models.ConfirmationFailed || len(store.Payments) != 0 {
		t.Fatalf("unexpected failed run %+v", c)
	}
}

func TestConfirmPaymentInsertFailureFailsRequest(t *testing.T) {
	store := servicetest.NewStore()
	seedProfiles(store)
	seedAwaitingTicket(store, models.ServiceRemote)
	store.PaymentErr = errors.New("db down")
	svc, _ := newTestService(store)

	c, err := svc.ConfirmInitialPayment(context.Background(), testAdmin, "t1")
	if err == nil || c.Status != models.ConfirmationFailed || !c.Done(StepFlags) {
		t.Fatalf("expected failed run after flags, got %+v err=%v", c, err)
	}
	store.PaymentErr = nil
	c, err = svc.ConfirmInitialPayment(context.Background(), testAdmin, "t1")
	if err != nil || c.Status != models.ConfirmationCompleted {
		t.Fatalf("retry should complete, got %+v err=%v", c, err)
	}
}

func TestConfirmRequiresAdmin(t *testing.T) {
	store := servicetest.NewStore()
	seedAwaitingTicket(store, models.ServiceRemote)
	svc, _ := newTestService(store)
	if _, err := svc.ConfirmInitialPayment(context.Background(), testCustomer, "t1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestConfirmSubscriptionActivates(t *testing.T) {
	store := servicetest.NewStore()
	seedProfiles(store)
	store.Plans["p1"] = models.SubscriptionPlan{ID: "p1", Name: "Gold", Price: 49.99, VehicleLimit: 2, Active: true}
	store.Subscriptions["s1"] = models.CustomerSubscription{ID: "s1", UserID: testCustomer.ID, SubscriptionPlanID: "p1",
		Status: models.SubscriptionPendingPayment, PaymentReference: "SUB-1", VehicleCount: 1}
	svc, _ := newTestService(store)

	c, err := svc.ConfirmSubscriptionPayment(context.Background(), testAdmin, "s1")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if c.Status != models.ConfirmationCompleted || c.Done(StepMessage) {
		t.Fatalf("unexpected confirmation %+v", c)
	}
	sub := store.Subscriptions["s1"]
	if sub.Status != models.SubscriptionActive || !sub.PaymentConfirmed || sub.StartedAt == nil {
		t.Fatalf("subscription not activated: %+v", sub)
	}
	if len(store.Invoices) != 1 || store.Invoices[0].Total != 49.99 || store.Invoices[0].SubscriptionID == nil {
		t.Fatalf("unexpected invoices %+v", store.Invoices)
	}
	ok, _ := svc.HasActiveSubscription(context.Background(), testCustomer.ID)
	if !ok {
		t.Fatalf("expected active subscription")
	}
}

func TestNewPaymentCycleStartsFreshConfirmation(t *testing.T) {
	store := servicetest.NewStore()
	seedProfiles(store)
	seedAwaitingTicket(store, models.ServiceRemote)
	svc, _ := newTestService(store)
	ctx := context.Background()

	if _, err := svc.ConfirmInitialPayment(ctx, testAdmin, "t1"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	tk := store.Tickets["t1"]
	tk.Status = models.StatusAwaitingPayment
	tk.PaymentConfirmed = false
	tk.PaymentReference = "TRX-2"
	store.Tickets["t1"] = tk

	c, err := svc.ConfirmInitialPayment(ctx, testAdmin, "t1")
	if err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if c.Reference != "TRX-2" || len(store.Payments) != 2 || !store.Tickets["t1"].PaymentConfirmed {
		t.Fatalf("expected a second confirmation, got %+v", c)
	}
}

func TestReopenedTicketReusingReferencesIsConfirmedAgain(t *testing.T) {
	store := servicetest.NewStore()
	seedProfiles(store)
	store.Tickets["t1"] = models.Ticket{ID: "t1", CustomerID: testCustomer.ID, Title: "Brake noise", Status: models.StatusOpen}
	svc, _ := newTestService(store)
	ctx := context.Background()

	cycle := func(cost float64) {
		t.Helper()
		if _, err := svc.AssignTicket(ctx, testAdmin, "t1", testTech.ID); err != nil {
			t.Fatalf("assign: %v", err)
		}
		tk, err := svc.EstimateTicket(ctx, testTech, "t1", EstimateInput{ServiceType: models.ServiceOnSite, EstimatedCost: cost})
		if err != nil {
			t.Fatalf("estimate: %v", err)
		}
		half := AmountDue(tk, models.PaymentInitial)
		if _, err := svc.PayTicket(ctx, testCustomer, "t1", models.PaymentInitial, PaymentInput{Amount: half, Reference: "REF-1"}); err != nil {
			t.Fatalf("pay initial: %v", err)
		}
		if _, err := svc.ConfirmInitialPayment(ctx, testAdmin, "t1"); err != nil {
			t.Fatalf("confirm initial: %v", err)
		}
		tk = store.Tickets["t1"]
		if !tk.PaymentConfirmed || !tk.WorkAuthorized || tk.Status != models.StatusInProgress {
			t.Fatalf("initial payment of %.2f not confirmed: %+v", cost, tk)
		}
		if _, err := svc.PayTicket(ctx, testCustomer, "t1", models.PaymentFinal, PaymentInput{Amount: AmountDue(tk, models.PaymentFinal), Reference: "REF-2"}); err != nil {
			t.Fatalf("pay final: %v", err)
		}
		if _, err := svc.ConfirmFinalPayment(ctx, testAdmin, "t1"); err != nil {
			t.Fatalf("confirm final: %v", err)
		}
		if !store.Tickets["t1"].FinalPaymentConfirmed {
			t.Fatalf("final payment of %.2f not confirmed", cost)
		}
		if _, err := svc.CompleteTicket(ctx, testTech, "t1"); err != nil {
			t.Fatalf("complete: %v", err)
		}
	}

	cycle(200)
	cycle(50)
	if len(store.Payments) != 4 || len(store.Invoices) != 4 {
		t.Fatalf("expected a payment and invoice per confirmation, got %d/%d", len(store.Payments), len(store.Invoices))
	}
	if store.Payments[2].Amount != 25 {
		t.Fatalf("second cycle recorded %.2f", store.Payments[2].Amount)
	}
}

func TestConcurrentConfirmationsRecordOnePayment(t *testing.T) {
	store := servicetest.NewStore()
	seedProfiles(store)
	seedAwaitingTicket(store, models.ServiceRemote)
	svc, _ := newTestService(store)

	const admins = 8
	errs := make(chan error, admins)
	var wg sync.WaitGroup
	for i := 0; i < admins; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ConfirmInitialPayment(context.Background(), testAdmin, "t1")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil && !errors.Is(err, ErrInProgress) {
			t.Fatalf("unexpected error %v", err)
		}
	}
	if len(store.Payments) != 1 || len(store.Invoices) != 1 {
		t.Fatalf("expected one payment and invoice, got %d/%d", len(store.Payments), len(store.Invoices))
	}
}

func TestRunningConfirmationBlocksUntilLeaseExpires(t *testing.T) {
	store := servicetest.NewStore()
	seedProfiles(store)
	seedAwaitingTicket(store, models.ServiceRemote)
	svc, _ := newTestService(store)
	store.Confirmations["initial:t1"] = models.PaymentConfirmation{
		ID: "initial:t1", Kind: models.PaymentInitial, TargetID: "t1", Reference: "TRX-1",
		Status: models.ConfirmationRunning, Attempt: 1, ClaimedAt: testNow.Add(-time.Second),
	}
	if _, err := svc.ConfirmInitialPayment(context.Background(), testAdmin, "t1"); !errors.Is(err, ErrInProgress) {
		t.Fatalf("expected in-progress error, got %v", err)
	}
	if len(store.Payments) != 0 {
		t.Fatalf("no step may run while another admin holds the claim")
	}

	c := store.Confirmations["initial:t1"]
	c.ClaimedAt = testNow.Add(-ConfirmationLease - time.Second)
	store.Confirmations["initial:t1"] = c
	got, err := svc.ConfirmInitialPayment(context.Background(), testAdmin, "t1")
	if err != nil {
		t.Fatalf("stale claim should be taken over: %v", err)
	}
	if got.Status != models.ConfirmationCompleted || got.Attempt != 2 || len(store.Payments) != 1 {
		t.Fatalf("unexpected takeover %+v", got)
	}
}

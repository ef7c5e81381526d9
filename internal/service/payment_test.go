package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"carpool/internal/domain"
	"carpool/internal/ledger"
	"carpool/internal/repository"
	"carpool/internal/tests"
)

type paymentFixture struct {
	requests  *tests.MockRideRequestRepository
	payments  *tests.MockPaymentRepository
	wallets   *tests.MockWalletRepository
	verifier  *tests.MockVerifier
	explorer  *tests.MockExplorer
	locks     *tests.MockLockStore
	publisher *tests.MockPublisher
	service   *PaymentService
}

const (
	senderWallet    = "0xAbCdEf0000000000000000000000000000000001"
	receivingWallet = "0x9999000000000000000000000000000000000002"
)

func newPaymentFixture(explorers ...ledger.Explorer) *paymentFixture {
	requests := tests.NewMockRideRequestRepository()
	payments := tests.NewMockPaymentRepository(requests)
	wallets := &tests.MockWalletRepository{Wallets: []*domain.WalletAddress{{
		ID:            "w-1",
		Chain:         domain.ChainEthereum,
		Currency:      "USDT",
		Address:       receivingWallet,
		TokenContract: "0xdac17f958d2ee523a2206206994597c13d831ec7",
		TokenDecimals: 6,
		IsActive:      true,
	}}}
	verifier := &tests.MockVerifier{Result: true}
	explorer := &tests.MockExplorer{ChainName: domain.ChainEthereum}
	if len(explorers) == 0 {
		explorers = []ledger.Explorer{explorer}
	}
	locks := tests.NewMockLockStore()
	publisher := &tests.MockPublisher{}

	svc := NewPaymentService(payments, requests, wallets, verifier, ledger.NewRegistry(explorers...), locks,
		NewNotificationService(publisher), PaymentPolicy{
			DetectionWindow: 72 * time.Hour,
			AmountEpsilon:   0.001,
			ExplorerTimeout: time.Second,
		})

	requests.AddRequest(&domain.RideRequest{
		ID:              "r-1",
		RequesterName:   "Dana",
		RequestedTime:   baseTime,
		Status:          domain.RideRequestStatusPending,
		PaymentRequired: true,
		PaymentAmount:   50,
		PaymentCurrency: "USDT",
		PaymentStatus:   domain.RequestPaymentPending,
		SenderWallet:    senderWallet,
	})

	return &paymentFixture{
		requests:  requests,
		payments:  payments,
		wallets:   wallets,
		verifier:  verifier,
		explorer:  explorer,
		locks:     locks,
		publisher: publisher,
		service:   svc,
	}
}

func transferAt(value float64, at time.Time) domain.LedgerTransfer {
	return domain.LedgerTransfer{
		Hash:      fmt.Sprintf("0xhash-%v", value),
		From:      "0xabcdef0000000000000000000000000000000001",
		To:        receivingWallet,
		Value:     value,
		Timestamp: at.Unix(),
	}
}

func TestCreatePayment_PendingWithoutTxHash(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture()

	payment, err := f.service.Create(context.Background(), CreatePaymentRequest{
		RideRequestID: "r-1",
		Amount:        50,
		Currency:      "usdt",
		WalletAddress: receivingWallet,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payment.Status != domain.PaymentStatusPending || payment.ConfirmedAt != nil {
		t.Errorf("expected pending payment without confirmation, got %+v", payment)
	}
	if payment.Currency != "USDT" || payment.PaymentMethod != defaultPaymentMethod {
		t.Errorf("unexpected normalisation: %+v", payment)
	}
	if f.verifier.CallCount != 0 {
		t.Error("verifier should not run without a tx hash")
	}
	if got := f.requests.Request("r-1").PaymentStatus; got != domain.RequestPaymentPending {
		t.Errorf("request payment status changed to %s", got)
	}
}

func TestCreatePayment_WithTxHash_ConfirmsImmediately(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture()

	payment, err := f.service.Create(context.Background(), CreatePaymentRequest{
		RideRequestID: "r-1",
		Amount:        50,
		Currency:      "USDT",
		WalletAddress: receivingWallet,
		TxHash:        "0xabc",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payment.Status != domain.PaymentStatusConfirmed || payment.ConfirmedAt == nil {
		t.Fatalf("expected confirmed payment, got %+v", payment)
	}
	req := f.requests.Request("r-1")
	if req.PaymentStatus != domain.RequestPaymentConfirmed || req.TxHash != "0xabc" {
		t.Errorf("expected request confirmed with hash, got %s/%s", req.PaymentStatus, req.TxHash)
	}
}

func TestCreatePayment_VerifierDown_LeavesPending(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture()
	f.verifier.Error = errors.New("connection refused")

	payment, err := f.service.Create(context.Background(), CreatePaymentRequest{
		RideRequestID: "r-1",
		Amount:        50,
		Currency:      "USDT",
		WalletAddress: receivingWallet,
		TxHash:        "0xabc",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payment.Status != domain.PaymentStatusPending {
		t.Errorf("expected pending, got %s", payment.Status)
	}
}

func TestCreatePayment_Validation(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture()

	testCases := []struct {
		name string
		req  CreatePaymentRequest
		want error
	}{
		{name: "missing request", req: CreatePaymentRequest{Amount: 1, Currency: "USDT", WalletAddress: "w"}, want: ErrInvalidRideRequestID},
		{name: "zero amount", req: CreatePaymentRequest{RideRequestID: "r-1", Currency: "USDT", WalletAddress: "w"}, want: ErrInvalidPaymentAmount},
		{name: "no currency", req: CreatePaymentRequest{RideRequestID: "r-1", Amount: 1, WalletAddress: "w"}, want: ErrInvalidCurrency},
		{name: "no wallet", req: CreatePaymentRequest{RideRequestID: "r-1", Amount: 1, Currency: "USDT"}, want: ErrInvalidWallet},
		{name: "unknown request", req: CreatePaymentRequest{RideRequestID: "ghost", Amount: 1, Currency: "USDT", WalletAddress: "w"}, want: repository.ErrNotFound},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.service.Create(context.Background(), tc.req); !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestConfirmPayment_VerifiedConfirmsPaymentAndRequest(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture()
	f.payments.AddPayment(&domain.Payment{ID: "p-1", RideRequestID: "r-1", Amount: 50, Currency: "USDT", Status: domain.PaymentStatusPending})

	ok, err := f.service.Confirm(context.Background(), "p-1", "0xfeed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected confirmation")
	}

	payment, _ := f.payments.GetByID(context.Background(), "p-1")
	if payment.Status != domain.PaymentStatusConfirmed || payment.ConfirmedAt == nil || payment.TxHash != "0xfeed" {
		t.Errorf("unexpected payment %+v", payment)
	}
	if got := f.requests.Request("r-1").PaymentStatus; got != domain.RequestPaymentConfirmed {
		t.Errorf("expected request confirmed, got %s", got)
	}
	if keys := f.publisher.Published(); len(keys) != 1 || keys[0] != string(EventPaymentConfirmed) {
		t.Errorf("expected payment.confirmed event, got %v", keys)
	}
}

func TestConfirmPayment_AlreadyConfirmed_IsNoOp(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture()
	confirmedAt := baseTime.Add(-time.Hour)
	f.payments.AddPayment(&domain.Payment{
		ID:            "p-1",
		RideRequestID: "r-1",
		Status:        domain.PaymentStatusConfirmed,
		TxHash:        "0xfeed",
		ConfirmedAt:   &confirmedAt,
	})

	for i := 0; i < 2; i++ {
		ok, err := f.service.Confirm(context.Background(), "p-1", "0xfeed")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			t.Fatal("expected true for an already confirmed payment")
		}
	}

	payment, _ := f.payments.GetByID(context.Background(), "p-1")
	if !payment.ConfirmedAt.Equal(confirmedAt) {
		t.Errorf("confirmed_at changed: %v", payment.ConfirmedAt)
	}
	if f.verifier.CallCount != 0 || f.payments.ConfirmCallCount != 0 {
		t.Error("expected no verification or write for an already confirmed payment")
	}
}

func TestConfirmPayment_NotVerified_StaysPending(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture()
	f.verifier.Result = false
	f.payments.AddPayment(&domain.Payment{ID: "p-1", RideRequestID: "r-1", Status: domain.PaymentStatusPending})

	ok, err := f.service.Confirm(context.Background(), "p-1", "0xfeed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected false when verification does not check out")
	}

	payment, _ := f.payments.GetByID(context.Background(), "p-1")
	if payment.Status != domain.PaymentStatusPending {
		t.Errorf("failed verification must not fail the payment, got %s", payment.Status)
	}
}

func TestConfirmPayment_VerifierError_Inconclusive(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture()
	f.verifier.Error = errors.New("timeout")
	f.payments.AddPayment(&domain.Payment{ID: "p-1", RideRequestID: "r-1", Status: domain.PaymentStatusPending})

	_, err := f.service.Confirm(context.Background(), "p-1", "0xfeed")
	if !errors.Is(err, ErrVerificationInconclusive) {
		t.Fatalf("expected ErrVerificationInconclusive, got %v", err)
	}

	payment, _ := f.payments.GetByID(context.Background(), "p-1")
	if payment.Status != domain.PaymentStatusPending {
		t.Errorf("expected payment untouched, got %s", payment.Status)
	}
}

func TestConfirmPayment_ClosedPaymentsNotReverified(t *testing.T) {
	tests := []struct {
		name   string
		status domain.PaymentStatus
	}{
		{name: "failed", status: domain.PaymentStatusFailed},
		{name: "expired", status: domain.PaymentStatusExpired},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newPaymentFixture()
			f.payments.AddPayment(&domain.Payment{ID: "p-1", RideRequestID: "r-1", Amount: 50, Currency: "USDT", Status: tc.status})

			ok, err := f.service.Confirm(context.Background(), "p-1", "0xabc")
			if !errors.Is(err, ErrPaymentNotPending) {
				t.Fatalf("expected ErrPaymentNotPending, got ok=%v err=%v", ok, err)
			}
			if ok {
				t.Error("expected false")
			}

			payment, _ := f.payments.GetByID(context.Background(), "p-1")
			if payment.Status != tc.status || payment.ConfirmedAt != nil {
				t.Errorf("payment changed: %+v", payment)
			}
			if f.verifier.CallCount != 0 {
				t.Error("expected no verification")
			}
		})
	}
}

func TestConfirmPayment_AfterAdminFailure_Rejected(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture()
	f.payments.AddPayment(&domain.Payment{ID: "p-1", RideRequestID: "r-1", Amount: 50, Currency: "USDT", Status: domain.PaymentStatusPending})

	if _, err := f.service.UpdateStatus(context.Background(), "p-1", domain.PaymentStatusFailed, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := f.service.Confirm(context.Background(), "p-1", "0xabc"); !errors.Is(err, ErrPaymentNotPending) {
		t.Errorf("expected ErrPaymentNotPending, got %v", err)
	}

	// A newer attempt cannot confirm the request past the administrator either.
	f.payments.AddPayment(&domain.Payment{ID: "p-2", RideRequestID: "r-1", Amount: 50, Currency: "USDT", Status: domain.PaymentStatusPending})
	if _, err := f.service.Confirm(context.Background(), "p-2", "0xabc"); !errors.Is(err, ErrPaymentNotPending) {
		t.Errorf("expected ErrPaymentNotPending for a new attempt, got %v", err)
	}
	if got := f.requests.Request("r-1").PaymentStatus; got != domain.RequestPaymentFailed {
		t.Errorf("expected request to stay failed, got %s", got)
	}
	if keys := f.publisher.Published(); len(keys) != 1 || keys[0] != string(EventPaymentFailed) {
		t.Errorf("unexpected events %v", keys)
	}
}

func TestConfirmPayment_RequiresTxHash(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture()
	f.payments.AddPayment(&domain.Payment{ID: "p-1", RideRequestID: "r-1", Status: domain.PaymentStatusPending})

	if _, err := f.service.Confirm(context.Background(), "p-1", " "); !errors.Is(err, ErrInvalidTxHash) {
		t.Errorf("expected ErrInvalidTxHash, got %v", err)
	}
	if _, err := f.service.Confirm(context.Background(), "ghost", "0x1"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAutoDetect_MatchWithinEpsilonConfirms(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture()
	f.explorer.Result = []domain.LedgerTransfer{transferAt(49.9999, baseTime.Add(2*time.Hour))}

	result, err := f.service.AutoDetect(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Found || result.AlreadyConfirmed {
		t.Fatalf("expected a new match, got %+v", result)
	}
	if result.Chain != domain.ChainEthereum || result.WalletAddress != receivingWallet {
		t.Errorf("unexpected match details %+v", result)
	}

	req := f.requests.Request("r-1")
	if req.PaymentStatus != domain.RequestPaymentConfirmed || req.TxHash != result.TxHash {
		t.Errorf("expected request confirmed with %s, got %s/%s", result.TxHash, req.PaymentStatus, req.TxHash)
	}

	q := f.explorer.Queries[0]
	if !q.From.Equal(baseTime) || !q.To.Equal(baseTime.Add(72*time.Hour)) {
		t.Errorf("unexpected query window %v..%v", q.From, q.To)
	}
	if q.TokenDecimals != 6 || q.Address != receivingWallet {
		t.Errorf("unexpected query %+v", q)
	}
	if f.locks.Held("r-1") {
		t.Error("expected detection lock to be released")
	}
}

func TestAutoDetect_ConfirmsLatestPendingAttempt(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture()
	f.payments.AddPayment(&domain.Payment{ID: "p-old", RideRequestID: "r-1", Amount: 50, Currency: "USDT",
		Status: domain.PaymentStatusPending, CreatedAt: baseTime.Add(-2 * time.Hour)})
	f.payments.AddPayment(&domain.Payment{ID: "p-new", RideRequestID: "r-1", Amount: 50, Currency: "USDT",
		Status: domain.PaymentStatusPending, CreatedAt: baseTime.Add(-time.Hour)})
	f.explorer.Result = []domain.LedgerTransfer{transferAt(50, baseTime.Add(time.Hour))}

	result, err := f.service.AutoDetect(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Found || result.PaymentID != "p-new" {
		t.Fatalf("expected p-new confirmed with the request, got %+v", result)
	}

	latest, _ := f.payments.GetByID(context.Background(), "p-new")
	if latest.Status != domain.PaymentStatusConfirmed || latest.TxHash != result.TxHash || latest.ConfirmedAt == nil {
		t.Errorf("unexpected latest attempt %+v", latest)
	}
	older, _ := f.payments.GetByID(context.Background(), "p-old")
	if older.Status != domain.PaymentStatusPending {
		t.Errorf("older attempt changed to %s", older.Status)
	}

	// The sweep no longer expires an attempt whose request is paid.
	if n, _ := f.service.ExpireStale(context.Background()); n != 1 {
		t.Errorf("expired %d attempts, want only the older one", n)
	}
	latest, _ = f.payments.GetByID(context.Background(), "p-new")
	if latest.Status != domain.PaymentStatusConfirmed {
		t.Errorf("confirmed attempt expired: %s", latest.Status)
	}
}

func TestAutoDetect_AdminFailedRequestNotReopened(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture()
	f.payments.AddPayment(&domain.Payment{ID: "p-1", RideRequestID: "r-1", Amount: 50, Currency: "USDT", Status: domain.PaymentStatusPending})
	f.explorer.Result = []domain.LedgerTransfer{transferAt(50, baseTime.Add(time.Hour))}

	if _, err := f.service.UpdateStatus(context.Background(), "p-1", domain.PaymentStatusFailed, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := f.service.AutoDetect(context.Background(), "r-1"); !errors.Is(err, ErrPaymentNotPending) {
		t.Fatalf("expected ErrPaymentNotPending, got %v", err)
	}
	if got := f.requests.Request("r-1").PaymentStatus; got != domain.RequestPaymentFailed {
		t.Errorf("expected request to stay failed, got %s", got)
	}
	if len(f.explorer.Queries) != 0 || f.payments.ConfirmDetectedCallCount != 0 {
		t.Error("expected no ledger scan or confirmation write")
	}

	// After the re-audit the same transfer is picked up.
	if _, err := f.service.UpdateStatus(context.Background(), "p-1", domain.PaymentStatusPending, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result, err := f.service.AutoDetect(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Found || result.PaymentID != "p-1" {
		t.Errorf("expected p-1 confirmed after re-audit, got %+v", result)
	}
}

func TestAutoDetect_WrongAmount_NotFoundAndUnchanged(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture()
	f.explorer.Result = []domain.LedgerTransfer{transferAt(40, baseTime.Add(2*time.Hour))}

	result, err := f.service.AutoDetect(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Found {
		t.Fatalf("expected no match, got %+v", result)
	}
	if got := f.requests.Request("r-1").PaymentStatus; got != domain.RequestPaymentPending {
		t.Errorf("payment status changed to %s", got)
	}
	if f.payments.ConfirmDetectedCallCount != 0 {
		t.Error("expected no confirmation write")
	}
}

func TestAutoDetect_FiltersSenderRecipientAndWindow(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture()

	otherSender := transferAt(50, baseTime.Add(time.Hour))
	otherSender.From = "0x1111000000000000000000000000000000000000"
	otherRecipient := transferAt(50, baseTime.Add(time.Hour))
	otherRecipient.To = "0x2222000000000000000000000000000000000000"
	tooEarly := transferAt(50, baseTime.Add(-time.Minute))
	tooLate := transferAt(50, baseTime.Add(72*time.Hour+time.Minute))

	f.explorer.Result = []domain.LedgerTransfer{otherSender, otherRecipient, tooEarly, tooLate}

	result, err := f.service.AutoDetect(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Found {
		t.Fatalf("expected no match, got %+v", result)
	}
}

func TestAutoDetect_PicksEarliestMatch(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture()
	later := transferAt(50, baseTime.Add(5*time.Hour))
	later.Hash = "0xlater"
	earlier := transferAt(50.0005, baseTime.Add(time.Hour))
	earlier.Hash = "0xearlier"
	f.explorer.Result = []domain.LedgerTransfer{later, earlier}

	result, err := f.service.AutoDetect(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TxHash != "0xearlier" {
		t.Errorf("expected earliest transfer, got %s", result.TxHash)
	}
}

func TestAutoDetect_ExplorerUnavailable_Inconclusive(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture()
	f.explorer.Error = fmt.Errorf("%w: status 503", ledger.ErrUnavailable)

	_, err := f.service.AutoDetect(context.Background(), "r-1")
	if !errors.Is(err, ErrVerificationInconclusive) {
		t.Fatalf("expected ErrVerificationInconclusive, got %v", err)
	}
	if got := f.requests.Request("r-1").PaymentStatus; got != domain.RequestPaymentPending {
		t.Errorf("payment status changed to %s", got)
	}
}

func TestAutoDetect_MalformedResponse_IsHardError(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture()
	f.explorer.Error = fmt.Errorf("%w: bad json", ledger.ErrMalformedResponse)

	_, err := f.service.AutoDetect(context.Background(), "r-1")
	if !errors.Is(err, ledger.ErrMalformedResponse) {
		t.Fatalf("expected malformed response error, got %v", err)
	}
}

func TestAutoDetect_OneChainDown_OtherMatches(t *testing.T) {
	t.Parallel()

	eth := &tests.MockExplorer{ChainName: domain.ChainEthereum, Error: ledger.ErrUnavailable}
	tron := &tests.MockExplorer{ChainName: domain.ChainTron, Result: []domain.LedgerTransfer{{
		Hash:      "tron-tx",
		From:      senderWallet,
		To:        "TXYZtronwallet",
		Value:     50,
		Timestamp: baseTime.Add(time.Hour).Unix(),
	}}}

	f := newPaymentFixture(eth, tron)
	f.wallets.Wallets = append(f.wallets.Wallets, &domain.WalletAddress{
		ID:       "w-2",
		Chain:    domain.ChainTron,
		Currency: "USDT",
		Address:  "TXYZtronwallet",
		IsActive: true,
	})

	result, err := f.service.AutoDetect(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Found || result.TxHash != "tron-tx" {
		t.Fatalf("expected tron match, got %+v", result)
	}
	if len(result.FailedChains) != 1 || result.FailedChains[0] != domain.ChainEthereum {
		t.Errorf("expected ethereum reported as failed, got %v", result.FailedChains)
	}
}

func TestAutoDetect_Preconditions(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture()
	f.requests.AddRequest(&domain.RideRequest{ID: "no-wallet", PaymentAmount: 50, PaymentCurrency: "USDT"})
	f.requests.AddRequest(&domain.RideRequest{ID: "paid", PaymentStatus: domain.RequestPaymentConfirmed, TxHash: "0xdone"})

	if _, err := f.service.AutoDetect(context.Background(), "no-wallet"); !errors.Is(err, ErrMissingSenderWallet) {
		t.Errorf("expected ErrMissingSenderWallet, got %v", err)
	}

	result, err := f.service.AutoDetect(context.Background(), "paid")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Found || !result.AlreadyConfirmed || result.TxHash != "0xdone" {
		t.Errorf("expected already confirmed result, got %+v", result)
	}
}

func TestAutoDetect_ConcurrentDetectionRejected(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture()
	if _, ok, _ := f.locks.AcquireDetectionLock(context.Background(), "r-1", time.Minute); !ok {
		t.Fatal("failed to take lock")
	}

	if _, err := f.service.AutoDetect(context.Background(), "r-1"); !errors.Is(err, ErrDetectionInProgress) {
		t.Errorf("expected ErrDetectionInProgress, got %v", err)
	}
}

func TestUpdatePaymentStatus_AdminOverride(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture()
	f.payments.AddPayment(&domain.Payment{ID: "p-1", RideRequestID: "r-1", Amount: 50, Currency: "USDT", Status: domain.PaymentStatusPending})

	payment, err := f.service.UpdateStatus(context.Background(), "p-1", domain.PaymentStatusFailed, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payment.Status != domain.PaymentStatusFailed {
		t.Errorf("expected failed, got %s", payment.Status)
	}
	if got := f.requests.Request("r-1").PaymentStatus; got != domain.RequestPaymentFailed {
		t.Errorf("expected request failed, got %s", got)
	}

	// Re-audit: failed back to pending.
	if _, err := f.service.UpdateStatus(context.Background(), "p-1", domain.PaymentStatusPending, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.requests.Request("r-1").PaymentStatus; got != domain.RequestPaymentPending {
		t.Errorf("expected request pending after re-audit, got %s", got)
	}

	payment, err = f.service.UpdateStatus(context.Background(), "p-1", domain.PaymentStatusConfirmed, "0xmanual")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payment.ConfirmedAt == nil || payment.TxHash != "0xmanual" {
		t.Errorf("expected manual confirmation recorded, got %+v", payment)
	}

	if _, err := f.service.UpdateStatus(context.Background(), "p-1", "refunded", ""); !errors.Is(err, ErrInvalidPaymentStatus) {
		t.Errorf("expected ErrInvalidPaymentStatus, got %v", err)
	}

	keys := f.publisher.Published()
	if len(keys) != 2 || keys[0] != string(EventPaymentFailed) || keys[1] != string(EventPaymentConfirmed) {
		t.Errorf("unexpected events %v", keys)
	}
}

func TestExpireStale_ExpiresOldPendingOnly(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture()
	old := time.Now().Add(-8 * 24 * time.Hour)
	f.payments.AddPayment(&domain.Payment{ID: "old", RideRequestID: "r-1", Status: domain.PaymentStatusPending, CreatedAt: old})
	f.payments.AddPayment(&domain.Payment{ID: "fresh", RideRequestID: "r-1", Status: domain.PaymentStatusPending, CreatedAt: time.Now()})
	f.payments.AddPayment(&domain.Payment{ID: "done", RideRequestID: "r-1", Status: domain.PaymentStatusConfirmed, CreatedAt: old})

	n, err := f.service.ExpireStale(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected one expired payment, got %d", n)
	}

	p, _ := f.payments.GetByID(context.Background(), "old")
	if p.Status != domain.PaymentStatusExpired {
		t.Errorf("expected old payment expired, got %s", p.Status)
	}
}

func TestReceivingWallets(t *testing.T) {
	f := newPaymentFixture()

	wallets, err := f.service.ReceivingWallets(context.Background(), " usdt ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(wallets) != 1 || wallets[0].Address != receivingWallet {
		t.Errorf("wallets = %+v, want the USDT wallet", wallets)
	}

	if _, err := f.service.ReceivingWallets(context.Background(), ""); !errors.Is(err, ErrInvalidCurrency) {
		t.Errorf("expected ErrInvalidCurrency, got %v", err)
	}
}

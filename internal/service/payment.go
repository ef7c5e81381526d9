package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"carpool/internal/domain"
	"carpool/internal/ledger"
	"carpool/internal/redis"
	"carpool/internal/repository"
)

const (
	defaultDetectionWindow = 72 * time.Hour
	defaultPaymentExpiry   = 7 * 24 * time.Hour
	defaultExplorerTimeout = 10 * time.Second
	defaultLedgerParallel  = 4
	detectionLockTTL       = 2 * time.Minute
	defaultPaymentMethod   = "crypto"
)

// PaymentVerifier checks a transaction hash against what a payment expects.
type PaymentVerifier interface {
	Verify(ctx context.Context, paymentID, txHash string) (bool, error)
}

// ExplorerRegistry resolves the block explorer of a chain.
type ExplorerRegistry interface {
	Get(chain domain.Chain) (ledger.Explorer, error)
}

// PaymentPolicy holds the reconciliation tunables.
type PaymentPolicy struct {
	DetectionWindow time.Duration
	AmountEpsilon   float64
	Expiry          time.Duration
	ExplorerTimeout time.Duration
	Parallelism     int
}

func (p PaymentPolicy) withDefaults() PaymentPolicy {
	if p.DetectionWindow <= 0 {
		p.DetectionWindow = defaultDetectionWindow
	}
	if p.AmountEpsilon <= 0 {
		p.AmountEpsilon = domain.DefaultAmountEpsilon
	}
	if p.Expiry <= 0 {
		p.Expiry = defaultPaymentExpiry
	}
	if p.ExplorerTimeout <= 0 {
		p.ExplorerTimeout = defaultExplorerTimeout
	}
	if p.Parallelism <= 0 {
		p.Parallelism = defaultLedgerParallel
	}
	return p
}

// PaymentService records payment claims and reconciles them with the ledger.
type PaymentService struct {
	paymentRepo repository.PaymentRepository
	requestRepo repository.RideRequestRepository
	walletRepo  repository.WalletRepository
	verifier    PaymentVerifier
	explorers   ExplorerRegistry
	lockStore   redis.LockStoreInterface
	notifier    *NotificationService
	policy      PaymentPolicy
}

// NewPaymentService creates a new PaymentService. lockStore may be nil.
func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	requestRepo repository.RideRequestRepository,
	walletRepo repository.WalletRepository,
	verifier PaymentVerifier,
	explorers ExplorerRegistry,
	lockStore redis.LockStoreInterface,
	notifier *NotificationService,
	policy PaymentPolicy,
) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		requestRepo: requestRepo,
		walletRepo:  walletRepo,
		verifier:    verifier,
		explorers:   explorers,
		lockStore:   lockStore,
		notifier:    notifier,
		policy:      policy.withDefaults(),
	}
}

// CreatePaymentRequest contains the parameters for recording a payment attempt.
type CreatePaymentRequest struct {
	RideRequestID string
	Amount        float64
	Currency      string
	WalletAddress string
	Method        string
	TxHash        string // optional; when set the payment is verified right away
}

// Create records a pending payment attempt. When a transaction hash is
// supplied the attempt is verified immediately; an inconclusive verification
// leaves it pending.
func (s *PaymentService) Create(ctx context.Context, req CreatePaymentRequest) (*domain.Payment, error) {
	if req.RideRequestID == "" {
		return nil, ErrInvalidRideRequestID
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidPaymentAmount
	}
	if strings.TrimSpace(req.Currency) == "" {
		return nil, ErrInvalidCurrency
	}
	if strings.TrimSpace(req.WalletAddress) == "" {
		return nil, ErrInvalidWallet
	}

	if _, err := s.requestRepo.GetByID(ctx, req.RideRequestID); err != nil {
		return nil, err
	}

	method := req.Method
	if method == "" {
		method = defaultPaymentMethod
	}

	payment := &domain.Payment{
		ID:            uuid.New().String(),
		RideRequestID: req.RideRequestID,
		Amount:        req.Amount,
		Currency:      strings.ToUpper(strings.TrimSpace(req.Currency)),
		WalletAddress: strings.TrimSpace(req.WalletAddress),
		PaymentMethod: method,
		TxHash:        strings.TrimSpace(req.TxHash),
		Status:        domain.PaymentStatusPending,
		CreatedAt:     time.Now(),
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, err
	}

	if payment.TxHash == "" {
		return payment, nil
	}

	if _, err := s.Confirm(ctx, payment.ID, payment.TxHash); err != nil {
		if errors.Is(err, ErrVerificationInconclusive) || errors.Is(err, ErrPaymentNotPending) {
			log.Printf("payment %s left pending: %v", payment.ID, err)
			return payment, nil
		}
		return nil, err
	}

	return s.paymentRepo.GetByID(ctx, payment.ID)
}

// Confirm verifies txHash for a payment and, when it checks out, confirms the
// payment and its ride request together. A false result means the payment
// stays pending for manual confirmation. Confirming an already confirmed
// payment returns true and changes nothing. Failed and expired payments are
// left to the administrative override and return ErrPaymentNotPending.
func (s *PaymentService) Confirm(ctx context.Context, paymentID, txHash string) (bool, error) {
	if paymentID == "" {
		return false, ErrInvalidPaymentID
	}

	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return false, err
	}

	switch payment.Status {
	case domain.PaymentStatusConfirmed:
		return true, nil
	case domain.PaymentStatusPending:
	default:
		return false, ErrPaymentNotPending
	}

	txHash = strings.TrimSpace(txHash)
	if txHash == "" {
		txHash = payment.TxHash
	}
	if txHash == "" {
		return false, ErrInvalidTxHash
	}

	ok, err := s.verifier.Verify(ctx, paymentID, txHash)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrVerificationInconclusive, err)
	}
	if !ok {
		return false, nil
	}

	confirmed, err := s.paymentRepo.ConfirmPending(ctx, paymentID, txHash, time.Now())
	if err != nil {
		if !errors.Is(err, repository.ErrStateConflict) {
			return false, err
		}
		// A concurrent confirmation may have won; anything else is closed.
		current, getErr := s.paymentRepo.GetByID(ctx, paymentID)
		if getErr != nil {
			return false, getErr
		}
		if current.Status == domain.PaymentStatusConfirmed {
			return true, nil
		}
		return false, ErrPaymentNotPending
	}

	s.notifier.NotifyPaymentConfirmed(ctx, confirmed.RideRequestID, confirmed.ID, confirmed.TxHash)
	return true, nil
}

// DetectionResult reports the outcome of scanning the ledger for a payment.
// Found is false when no matching transfer exists yet; that is retryable.
type DetectionResult struct {
	Found            bool
	AlreadyConfirmed bool
	TxHash           string
	Chain            domain.Chain
	Amount           float64
	WalletAddress    string
	// FailedChains lists chains whose explorer could not be queried.
	FailedChains []domain.Chain
	// PaymentID is the pending attempt confirmed alongside the request, if any.
	PaymentID string
}

type detectedTransfer struct {
	transfer domain.LedgerTransfer
	wallet   *domain.WalletAddress
}

// AutoDetect scans the explorers of every active receiving wallet in the
// request's currency for a transfer from the request's sender wallet. A
// transfer matches when it lands within the detection window after the
// requested time and its amount is within epsilon of the amount owed.
// Requests whose payment was failed by an administrator are not scanned.
func (s *PaymentService) AutoDetect(ctx context.Context, rideRequestID string) (*DetectionResult, error) {
	if rideRequestID == "" {
		return nil, ErrInvalidRideRequestID
	}

	req, err := s.requestRepo.GetByID(ctx, rideRequestID)
	if err != nil {
		return nil, err
	}

	if req.PaymentStatus == domain.RequestPaymentConfirmed {
		return &DetectionResult{Found: true, AlreadyConfirmed: true, TxHash: req.TxHash, Amount: req.PaymentAmount}, nil
	}
	if strings.TrimSpace(req.SenderWallet) == "" {
		return nil, ErrMissingSenderWallet
	}
	if req.PaymentAmount <= 0 {
		return nil, ErrInvalidPaymentAmount
	}
	if req.PaymentCurrency == "" {
		return nil, ErrInvalidCurrency
	}
	if !domain.CanTransitionAutomatically(req.PaymentStatus, domain.RequestPaymentConfirmed) {
		return nil, ErrPaymentNotPending
	}

	if s.lockStore != nil {
		token, acquired, err := s.lockStore.AcquireDetectionLock(ctx, req.ID, detectionLockTTL)
		switch {
		case err != nil:
			log.Printf("detection lock unavailable for %s: %v", req.ID, err)
		case !acquired:
			return nil, ErrDetectionInProgress
		default:
			defer func() {
				if err := s.lockStore.ReleaseDetectionLock(context.Background(), req.ID, token); err != nil {
					log.Printf("failed to release detection lock for %s: %v", req.ID, err)
				}
			}()
		}
	}

	wallets, err := s.walletRepo.ListActiveByCurrency(ctx, req.PaymentCurrency)
	if err != nil {
		return nil, err
	}

	match, failed, err := s.scan(ctx, req, wallets)
	if err != nil {
		return nil, err
	}

	if match == nil {
		if len(wallets) > 0 && len(failed) == len(wallets) {
			return nil, fmt.Errorf("%w: no explorer answered", ErrVerificationInconclusive)
		}
		return &DetectionResult{Found: false, FailedChains: failed}, nil
	}

	payment, changed, err := s.paymentRepo.ConfirmDetected(ctx, req.ID, match.transfer.Hash, time.Now())
	if err != nil {
		return nil, err
	}

	var paymentID string
	if changed {
		if payment != nil {
			paymentID = payment.ID
		}
		s.notifier.NotifyPaymentConfirmed(ctx, req.ID, paymentID, match.transfer.Hash)
	} else {
		// The status moved while scanning.
		current, err := s.requestRepo.GetByID(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		if current.PaymentStatus != domain.RequestPaymentConfirmed {
			return nil, ErrPaymentNotPending
		}
	}

	return &DetectionResult{
		Found:            true,
		AlreadyConfirmed: !changed,
		PaymentID:        paymentID,
		TxHash:           match.transfer.Hash,
		Chain:            match.wallet.Chain,
		Amount:           match.transfer.Value,
		WalletAddress:    match.wallet.Address,
		FailedChains:     failed,
	}, nil
}

// scan queries one explorer per wallet in parallel and returns the earliest
// matching transfer. Unavailable explorers are reported in failed; a malformed
// answer is returned as an error unless another wallet produced a match.
func (s *PaymentService) scan(ctx context.Context, req *domain.RideRequest, wallets []*domain.WalletAddress) (*detectedTransfer, []domain.Chain, error) {
	from := req.RequestedTime
	to := from.Add(s.policy.DetectionWindow)

	var (
		mu        sync.Mutex
		best      *detectedTransfer
		failed    []domain.Chain
		malformed error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.policy.Parallelism)

	for _, wallet := range wallets {
		wallet := wallet
		g.Go(func() error {
			transfers, err := s.transfers(gctx, wallet, from, to)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				if errors.Is(err, ledger.ErrMalformedResponse) && malformed == nil {
					malformed = err
				}
				log.Printf("explorer %s failed for wallet %s: %v", wallet.Chain, wallet.Address, err)
				failed = append(failed, wallet.Chain)
				return nil
			}

			for _, t := range transfers {
				if !s.matches(req, wallet, t, from, to) {
					continue
				}
				if best == nil || t.Timestamp < best.transfer.Timestamp {
					best = &detectedTransfer{transfer: t, wallet: wallet}
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	if best == nil && malformed != nil {
		return nil, failed, malformed
	}
	return best, failed, nil
}

func (s *PaymentService) transfers(ctx context.Context, wallet *domain.WalletAddress, from, to time.Time) ([]domain.LedgerTransfer, error) {
	explorer, err := s.explorers.Get(wallet.Chain)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.policy.ExplorerTimeout)
	defer cancel()

	return explorer.Transfers(ctx, ledger.TransferQuery{
		Address:       wallet.Address,
		TokenContract: wallet.TokenContract,
		TokenDecimals: wallet.TokenDecimals,
		From:          from,
		To:            to,
	})
}

func (s *PaymentService) matches(req *domain.RideRequest, wallet *domain.WalletAddress, t domain.LedgerTransfer, from, to time.Time) bool {
	if !ledger.SameAddress(wallet.Chain, t.From, req.SenderWallet) {
		return false
	}
	if !ledger.SameAddress(wallet.Chain, t.To, wallet.Address) {
		return false
	}
	if t.Timestamp < from.Unix() || t.Timestamp > to.Unix() {
		return false
	}
	return domain.AmountsMatch(t.Value, req.PaymentAmount, s.policy.AmountEpsilon)
}

// UpdateStatus is the administrative override. Any transition is allowed,
// including moving a confirmed or failed payment back to pending for re-audit.
func (s *PaymentService) UpdateStatus(ctx context.Context, paymentID string, status domain.PaymentStatus, txHash string) (*domain.Payment, error) {
	if paymentID == "" {
		return nil, ErrInvalidPaymentID
	}
	if !status.Valid() {
		return nil, ErrInvalidPaymentStatus
	}

	txHash = strings.TrimSpace(txHash)

	var payment *domain.Payment
	var err error
	if status == domain.PaymentStatusConfirmed {
		payment, err = s.paymentRepo.Confirm(ctx, paymentID, txHash, time.Now())
		if err != nil {
			return nil, err
		}
	} else {
		if err := s.paymentRepo.UpdateStatus(ctx, paymentID, status, txHash); err != nil {
			return nil, err
		}
		payment, err = s.paymentRepo.GetByID(ctx, paymentID)
		if err != nil {
			return nil, err
		}
	}

	switch status {
	case domain.PaymentStatusConfirmed:
		s.notifier.NotifyPaymentConfirmed(ctx, payment.RideRequestID, payment.ID, payment.TxHash)
	case domain.PaymentStatusFailed:
		s.notifier.NotifyPaymentFailed(ctx, payment)
	}

	return payment, nil
}

// Get retrieves a payment by ID.
func (s *PaymentService) Get(ctx context.Context, paymentID string) (*domain.Payment, error) {
	if paymentID == "" {
		return nil, ErrInvalidPaymentID
	}
	return s.paymentRepo.GetByID(ctx, paymentID)
}

// ListByRideRequest retrieves all payment attempts for a ride request.
func (s *PaymentService) ListByRideRequest(ctx context.Context, rideRequestID string) ([]*domain.Payment, error) {
	if rideRequestID == "" {
		return nil, ErrInvalidRideRequestID
	}
	return s.paymentRepo.ListByRideRequest(ctx, rideRequestID)
}

// ExpireStale marks payments pending for longer than the expiry as expired.
func (s *PaymentService) ExpireStale(ctx context.Context) (int64, error) {
	return s.paymentRepo.ExpirePendingBefore(ctx, time.Now().Add(-s.policy.Expiry))
}

// ReceivingWallets lists the active wallets a passenger may pay into for a currency.
func (s *PaymentService) ReceivingWallets(ctx context.Context, currency string) ([]*domain.WalletAddress, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return nil, ErrInvalidCurrency
	}
	return s.walletRepo.ListActiveByCurrency(ctx, currency)
}

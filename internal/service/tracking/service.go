package tracking

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/agritrace/internal/config"
	"github.com/mamadbah2/agritrace/internal/domain/models"
	"github.com/mamadbah2/agritrace/internal/ledger"
	"github.com/mamadbah2/agritrace/internal/lifecycle"
	"github.com/mamadbah2/agritrace/internal/session"
	"github.com/mamadbah2/agritrace/pkg/clients/provider"
)

// ActivityStore is the slice of the repository the tracking service
// uses to correlate confirmed writes.
type ActivityStore interface {
	InsertActivity(ctx context.Context, activity models.Activity) error
}

// Service orchestrates one batch operation end to end: the session
// manager supplies the signing identity, the ledger client performs the
// external call, the lifecycle tracker shapes the result. On a network
// change the ledger client is rebuilt wholesale, never repaired.
type Service struct {
	provider provider.Client
	session  *session.Manager
	cfg      config.ChainConfig
	store    ActivityStore
	logger   *zap.Logger

	mu     sync.RWMutex
	ledger *ledger.Client
}

// NewService builds the orchestrator and its initial ledger client.
func NewService(client provider.Client, sess *session.Manager, cfg config.ChainConfig, store ActivityStore, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	led, err := ledger.NewClient(client, sess, cfg, logger.Named("ledger"))
	if err != nil {
		return nil, err
	}

	return &Service{
		provider: client,
		session:  sess,
		cfg:      cfg,
		store:    store,
		logger:   logger,
		ledger:   led,
	}, nil
}

// ConsumeEvents drains the session manager's change channel. It returns
// when the channel is closed.
func (s *Service) ConsumeEvents() {
	for ev := range s.session.Events() {
		switch ev.Kind {
		case session.EventNetworkChanged:
			if err := s.rebuildLedger(); err != nil {
				s.logger.Error("ledger rebuild failed after chain change", zap.Error(err))
				continue
			}
			s.logger.Info("ledger client rebuilt", zap.String("chain_id", ev.ChainID))
		case session.EventIdentityChanged:
			s.logger.Info("identity switched", zap.String("identity", ev.Identity))
		case session.EventIdentityCleared:
			s.logger.Info("identity revoked by agent")
		}
	}
}

// rebuildLedger replaces the ledger client with a freshly parsed one.
func (s *Service) rebuildLedger() error {
	led, err := ledger.NewClient(s.provider, s.session, s.cfg, s.logger.Named("ledger"))
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.ledger = led
	s.mu.Unlock()
	return nil
}

func (s *Service) currentLedger() *ledger.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger
}

// CreateBatch opens a new batch and returns its ledger-assigned id.
func (s *Service) CreateBatch(ctx context.Context, in models.CreateBatchInput) (string, error) {
	if err := validateCreate(in); err != nil {
		return "", err
	}

	batchID, err := s.currentLedger().CreateBatch(ctx, in)
	if err != nil {
		return "", err
	}

	s.recordActivity(ctx, batchID, models.ActivityCreateBatch, batchID)
	return batchID, nil
}

// AppendDistributor records a distributor handover and returns the
// transaction hash as a correlation token.
func (s *Service) AppendDistributor(ctx context.Context, in models.AppendDistributorInput) (string, error) {
	if err := validateDistributor(in); err != nil {
		return "", err
	}

	txHash, err := s.currentLedger().AppendDistributor(ctx, in)
	if err != nil {
		return "", err
	}

	s.recordActivity(ctx, in.BatchID, models.ActivityAppendDistributor, txHash)
	return txHash, nil
}

// AppendRetailer records a retail entry and returns the transaction hash.
func (s *Service) AppendRetailer(ctx context.Context, in models.AppendRetailerInput) (string, error) {
	if err := validateRetailer(in); err != nil {
		return "", err
	}

	txHash, err := s.currentLedger().AppendRetailer(ctx, in)
	if err != nil {
		return "", err
	}

	s.recordActivity(ctx, in.BatchID, models.ActivityAppendRetailer, txHash)
	return txHash, nil
}

// GetBatch re-fetches the aggregate from the ledger and shapes it for
// display. Nothing is served from a cache.
func (s *Service) GetBatch(ctx context.Context, batchID string) (lifecycle.BatchView, error) {
	record, err := s.currentLedger().FetchBatch(ctx, batchID)
	if err != nil {
		return lifecycle.BatchView{}, err
	}
	return lifecycle.Inspect(record), nil
}

// ListFarmerBatches returns the batch ids created by the given farmer
// identity, defaulting to the connected identity when empty.
func (s *Service) ListFarmerBatches(ctx context.Context, identity string) ([]string, error) {
	if identity == "" {
		identity = s.session.CurrentIdentity()
		if identity == "" {
			return nil, models.ErrNotConnected
		}
	}
	return s.currentLedger().ListBatchesForFarmer(ctx, identity)
}

// QRPayload returns the scannable payload for a batch: the literal
// batch identifier, no additional schema.
func (s *Service) QRPayload(batchID string) string {
	return batchID
}

// Status reports agent and contract diagnostics.
type Status struct {
	Agent      session.AgentStatus `json:"agent"`
	Identity   string              `json:"identity,omitempty"`
	ChainID    string              `json:"chainId,omitempty"`
	BatchNonce string              `json:"batchNonce,omitempty"`
}

// LedgerStatus probes the agent and, when connected, the contract's
// batch counter.
func (s *Service) LedgerStatus(ctx context.Context) Status {
	st := Status{
		Agent:    s.session.Probe(ctx),
		Identity: s.session.CurrentIdentity(),
		ChainID:  s.session.ChainID(),
	}

	if st.Identity != "" {
		nonce, err := s.currentLedger().BatchNonce(ctx)
		if err != nil {
			s.logger.Debug("batch nonce lookup failed", zap.Error(err))
		} else {
			st.BatchNonce = nonce
		}
	}

	return st
}

// recordActivity appends to the audit trail. Failures are logged only:
// the write already confirmed on the ledger and must not be reported
// as failed because of a bookkeeping miss.
func (s *Service) recordActivity(ctx context.Context, batchID, action, txHash string) {
	if s.store == nil {
		return
	}

	err := s.store.InsertActivity(ctx, models.Activity{
		BatchID:   batchID,
		Action:    action,
		TxHash:    txHash,
		Actor:     s.session.CurrentIdentity(),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn("activity record failed",
			zap.String("batch_id", batchID),
			zap.String("action", action),
			zap.Error(err))
	}
}

func validateCreate(in models.CreateBatchInput) error {
	switch {
	case in.FarmerName == "":
		return &models.ValidationError{Field: "farmerName", Reason: "must not be empty"}
	case in.CropName == "":
		return &models.ValidationError{Field: "cropName", Reason: "must not be empty"}
	case in.Location == "":
		return &models.ValidationError{Field: "location", Reason: "must not be empty"}
	case in.Quantity == 0:
		return &models.ValidationError{Field: "quantity", Reason: "must be positive"}
	case in.PricePerKg == 0:
		return &models.ValidationError{Field: "pricePerKg", Reason: "must be positive"}
	}
	return nil
}

func validateDistributor(in models.AppendDistributorInput) error {
	switch {
	case in.DistributorName == "":
		return &models.ValidationError{Field: "distributorName", Reason: "must not be empty"}
	case in.QuantityReceived == 0:
		return &models.ValidationError{Field: "quantityReceived", Reason: "must be positive"}
	}
	return nil
}

func validateRetailer(in models.AppendRetailerInput) error {
	switch {
	case in.RetailerName == "":
		return &models.ValidationError{Field: "retailerName", Reason: "must not be empty"}
	case in.DistributorName == "":
		return &models.ValidationError{Field: "distributorName", Reason: "must not be empty"}
	case in.RetailQuantity == 0:
		return &models.ValidationError{Field: "retailQuantity", Reason: "must be positive"}
	}
	return nil
}

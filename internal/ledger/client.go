package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"github.com/mamadbah2/agritrace/internal/config"
	"github.com/mamadbah2/agritrace/internal/domain/models"
	"github.com/mamadbah2/agritrace/internal/session"
	"github.com/mamadbah2/agritrace/pkg/clients/provider"
)

// Client is the typed facade over the SupplyChainTracker contract.
// Writes are signed and broadcast by the signing agent and confirmed
// by receipt polling before any result is returned; reads are plain
// eth_call lookups.
//
// Prices are whole currency units on both paths: the uint256 the
// contract stores is exactly the amount the user entered, with no
// base-unit scaling applied anywhere.
type Client struct {
	provider provider.Client
	session  *session.Manager
	logger   *zap.Logger

	contract     common.Address
	contractABI  abi.ABI
	confirmWait  time.Duration
	pollInterval time.Duration
}

// NewClient parses the contract interface and binds it to the given
// session and provider.
func NewClient(client provider.Client, sess *session.Manager, cfg config.ChainConfig, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("invalid contract address %q", cfg.ContractAddress)
	}

	parsed, err := abi.JSON(strings.NewReader(supplyChainABI))
	if err != nil {
		return nil, fmt.Errorf("parse contract abi: %w", err)
	}

	return &Client{
		provider:     client,
		session:      sess,
		logger:       logger,
		contract:     common.HexToAddress(cfg.ContractAddress),
		contractABI:  parsed,
		confirmWait:  cfg.ConfirmTimeout,
		pollInterval: cfg.ReceiptPollInterval,
	}, nil
}

// CreateBatch submits a farmer-initiated write that opens a batch and
// returns the ledger-assigned batch identifier, extracted from the
// first topic after the event signature of the confirmation's first
// log entry.
func (c *Client) CreateBatch(ctx context.Context, in models.CreateBatchInput) (string, error) {
	receipt, _, err := c.submit(ctx, "createProduce",
		in.FarmerName,
		in.CropName,
		new(big.Int).SetUint64(in.Quantity),
		new(big.Int).SetUint64(in.PricePerKg),
		in.Location,
	)
	if err != nil {
		return "", err
	}

	if len(receipt.Logs) == 0 || len(receipt.Logs[0].Topics) < 2 {
		return "", fmt.Errorf("%w: confirmation carried no batch event", models.ErrSubmissionFailed)
	}

	batchID := receipt.Logs[0].Topics[1]
	c.logger.Info("batch created",
		zap.String("batch_id", batchID),
		zap.String("tx_hash", receipt.TransactionHash))
	return batchID, nil
}

// AppendDistributor submits one distributor entry and returns the
// confirmed transaction hash. The hash is a correlation token only; it
// is not the batch identifier.
func (c *Client) AppendDistributor(ctx context.Context, in models.AppendDistributorInput) (string, error) {
	batchID, err := parseBatchID(in.BatchID)
	if err != nil {
		return "", err
	}

	receipt, txHash, err := c.submit(ctx, "addDistributor",
		batchID,
		in.CropName,
		in.DistributorName,
		new(big.Int).SetUint64(in.QuantityReceived),
		new(big.Int).SetUint64(in.PurchasePrice),
		in.TransportDetails,
		in.WarehouseLocation,
		new(big.Int).SetUint64(in.HandoverDate),
	)
	if err != nil {
		return "", err
	}

	c.logger.Info("distributor appended",
		zap.String("batch_id", in.BatchID),
		zap.String("tx_hash", receipt.TransactionHash))
	return txHash, nil
}

// AppendRetailer submits one retail entry and returns the confirmed
// transaction hash.
func (c *Client) AppendRetailer(ctx context.Context, in models.AppendRetailerInput) (string, error) {
	batchID, err := parseBatchID(in.BatchID)
	if err != nil {
		return "", err
	}

	receipt, txHash, err := c.submit(ctx, "addRetailer",
		batchID,
		in.CropName,
		in.DistributorName,
		in.RetailerName,
		in.ShopLocation,
		new(big.Int).SetUint64(in.RetailQuantity),
		new(big.Int).SetUint64(in.RetailPurchasePrice),
		new(big.Int).SetUint64(in.ConsumerPrice),
		new(big.Int).SetUint64(in.ExpiryDate),
	)
	if err != nil {
		return "", err
	}

	c.logger.Info("retailer appended",
		zap.String("batch_id", in.BatchID),
		zap.String("tx_hash", receipt.TransactionHash))
	return txHash, nil
}

// FetchBatch reads the full aggregate for a batch. Every uint256 is
// normalized to a decimal string before it leaves this package.
func (c *Client) FetchBatch(ctx context.Context, rawBatchID string) (*models.BatchRecord, error) {
	batchID, err := parseBatchID(rawBatchID)
	if err != nil {
		return nil, err
	}

	vals, err := c.callView(ctx, "getProduce", batchID)
	if err != nil {
		return nil, err
	}

	produce := abi.ConvertType(vals[0], new(produceTuple)).(*produceTuple)

	record := &models.BatchRecord{
		BatchID: hexutil.Encode(batchID[:]),
		FarmerInfo: models.FarmerInfo{
			FarmerName:        produce.FarmerInfo.FarmerName,
			CropName:          produce.FarmerInfo.CropName,
			Quantity:          decimal(produce.FarmerInfo.Quantity),
			RemainingQuantity: decimal(produce.FarmerInfo.RemainingQuantity),
			PricePerKg:        decimal(produce.FarmerInfo.PricePerKg),
			Location:          produce.FarmerInfo.Location,
			CreatedDate:       decimal(produce.FarmerInfo.CreatedDate),
			Farmer:            produce.FarmerInfo.Farmer.Hex(),
		},
		Distributors: make([]models.DistributorRecord, 0, len(produce.Distributors)),
		Retailers:    make([]models.RetailRecord, 0, len(produce.Retailers)),
		StoredStage:  models.Stage(produce.Stage),
	}

	for _, d := range produce.Distributors {
		record.Distributors = append(record.Distributors, models.DistributorRecord{
			DistributorName:   d.DistributorName,
			QuantityReceived:  decimal(d.QuantityReceived),
			RemainingQuantity: decimal(d.RemainingQuantity),
			PurchasePrice:     decimal(d.PurchasePrice),
			TransportDetails:  d.TransportDetails,
			WarehouseLocation: d.WarehouseLocation,
			HandoverDate:      decimal(d.HandoverDate),
			Timestamp:         decimal(d.Timestamp),
			Distributor:       d.Distributor.Hex(),
		})
	}

	for _, r := range produce.Retailers {
		record.Retailers = append(record.Retailers, models.RetailRecord{
			RetailerName:        r.RetailerName,
			ShopLocation:        r.ShopLocation,
			RetailQuantity:      decimal(r.RetailQuantity),
			RetailPurchasePrice: decimal(r.RetailPurchasePrice),
			ConsumerPrice:       decimal(r.ConsumerPrice),
			ExpiryDate:          decimal(r.ExpiryDate),
			Timestamp:           decimal(r.Timestamp),
			Retailer:            r.Retailer.Hex(),
			DistributorName:     r.DistributorName,
		})
	}

	return record, nil
}

// ListBatchesForFarmer returns every batch identifier created by the
// given farmer identity.
func (c *Client) ListBatchesForFarmer(ctx context.Context, identity string) ([]string, error) {
	if !common.IsHexAddress(identity) {
		return nil, &models.ValidationError{Field: "farmer", Reason: "not a hex address"}
	}

	vals, err := c.callView(ctx, "getFarmerBatches", common.HexToAddress(identity))
	if err != nil {
		return nil, err
	}

	raw := *abi.ConvertType(vals[0], new([][32]byte)).(*[][32]byte)
	ids := make([]string, 0, len(raw))
	for _, id := range raw {
		ids = append(ids, hexutil.Encode(id[:]))
	}
	return ids, nil
}

// FarmerRemaining returns the farmer's undistributed quantity for a batch.
func (c *Client) FarmerRemaining(ctx context.Context, rawBatchID string) (string, error) {
	batchID, err := parseBatchID(rawBatchID)
	if err != nil {
		return "", err
	}
	return c.viewUint(ctx, "getFarmerRemainingQuantity", batchID)
}

// DistributorRemaining returns the unretailed quantity held by the
// distributor at the given index.
func (c *Client) DistributorRemaining(ctx context.Context, rawBatchID string, index uint64) (string, error) {
	batchID, err := parseBatchID(rawBatchID)
	if err != nil {
		return "", err
	}
	return c.viewUint(ctx, "getDistributorRemainingQuantity", batchID, new(big.Int).SetUint64(index))
}

// BatchNonce returns the contract's running batch counter.
func (c *Client) BatchNonce(ctx context.Context) (string, error) {
	return c.viewUint(ctx, "batchNonce")
}

// submit packs a write, hands it to the signing agent and blocks until
// the receipt arrives or the confirmation window closes. No automatic
// resubmission: a retry of a non-idempotent write is left to explicit
// user action.
func (c *Client) submit(ctx context.Context, method string, args ...any) (*provider.Receipt, string, error) {
	identity := c.session.CurrentIdentity()
	if identity == "" {
		return nil, "", models.ErrNotConnected
	}

	data, err := c.contractABI.Pack(method, args...)
	if err != nil {
		return nil, "", fmt.Errorf("pack %s: %w", method, err)
	}

	txHash, err := c.provider.SendTransaction(ctx, provider.TxArgs{
		From: identity,
		To:   c.contract.Hex(),
		Data: hexutil.Encode(data),
	})
	if err != nil {
		var rpcErr *provider.RPCError
		if errors.As(err, &rpcErr) && rpcErr.Code == provider.CodeUserRejected {
			return nil, "", fmt.Errorf("%w: %s", models.ErrUserRejected, rpcErr.Message)
		}
		return nil, "", fmt.Errorf("%w: %v", models.ErrSubmissionFailed, err)
	}

	c.logger.Debug("transaction submitted",
		zap.String("method", method),
		zap.String("tx_hash", txHash))

	receipt, err := c.waitReceipt(ctx, txHash)
	if err != nil {
		return nil, "", err
	}
	return receipt, txHash, nil
}

// waitReceipt polls for the receipt of a submitted transaction until it
// is mined or the confirmation window closes.
func (c *Client) waitReceipt(ctx context.Context, txHash string) (*provider.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, c.confirmWait)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.provider.TransactionReceipt(waitCtx, txHash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil {
			c.logger.Debug("receipt lookup failed", zap.String("tx_hash", txHash), zap.Error(err))
		}

		select {
		case <-waitCtx.Done():
			return nil, fmt.Errorf("%w: %s", models.ErrConfirmationTimeout, txHash)
		case <-ticker.C:
		}
	}
}

// callView performs a read-only contract call and unpacks its outputs.
func (c *Client) callView(ctx context.Context, method string, args ...any) ([]any, error) {
	if c.session.CurrentIdentity() == "" {
		return nil, models.ErrNotConnected
	}

	data, err := c.contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	out, err := c.provider.CallContract(ctx, c.contract.Hex(), hexutil.Encode(data))
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	raw, err := hexutil.Decode(out)
	if err != nil {
		return nil, fmt.Errorf("decode %s response: %w", method, err)
	}

	vals, err := c.contractABI.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return vals, nil
}

func (c *Client) viewUint(ctx context.Context, method string, args ...any) (string, error) {
	vals, err := c.callView(ctx, method, args...)
	if err != nil {
		return "", err
	}
	return decimal(abi.ConvertType(vals[0], new(big.Int)).(*big.Int)), nil
}

// parseBatchID validates the opaque 32-byte batch handle.
func parseBatchID(raw string) ([32]byte, error) {
	var id [32]byte
	decoded, err := hexutil.Decode(raw)
	if err != nil || len(decoded) != 32 {
		return id, &models.ValidationError{Field: "batchId", Reason: "must be a 0x-prefixed 32-byte hex string"}
	}
	copy(id[:], decoded)
	return id, nil
}

// decimal normalizes a ledger-native integer to a decimal string so no
// fixed-point representation leaks to callers.
func decimal(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

package models

// Stage is the lifecycle phase of a produce batch. It is derived from
// which record types exist on the batch; the value stored on the ledger
// is treated as advisory only.
type Stage uint8

const (
	StageCreated Stage = iota
	StageDistributed
	StageRetail
)

// String returns the human readable stage label.
func (s Stage) String() string {
	switch s {
	case StageCreated:
		return "Created"
	case StageDistributed:
		return "Distributed"
	case StageRetail:
		return "Retail"
	default:
		return "Unknown"
	}
}

// FarmerInfo is the immutable origin record of a batch. RemainingQuantity
// is the only field the ledger mutates after creation and it never grows.
type FarmerInfo struct {
	FarmerName        string `json:"farmerName"`
	CropName          string `json:"cropName"`
	Quantity          string `json:"quantity"`
	RemainingQuantity string `json:"remainingQuantity"`
	PricePerKg        string `json:"pricePerKg"`
	Location          string `json:"location"`
	CreatedDate       string `json:"createdDate"`
	Farmer            string `json:"farmer"`
}

// DistributorRecord is one append-only distributor entry. Array index in
// BatchRecord.Distributors equals chronological order.
type DistributorRecord struct {
	DistributorName   string `json:"distributorName"`
	QuantityReceived  string `json:"quantityReceived"`
	RemainingQuantity string `json:"remainingQuantity"`
	PurchasePrice     string `json:"purchasePrice"`
	TransportDetails  string `json:"transportDetails"`
	WarehouseLocation string `json:"warehouseLocation"`
	HandoverDate      string `json:"handoverDate"`
	Timestamp         string `json:"timestamp"`
	Distributor       string `json:"distributor"`
}

// RetailRecord is one append-only retailer entry. DistributorName is a
// denormalized name reference, not an ownership link.
type RetailRecord struct {
	RetailerName        string `json:"retailerName"`
	ShopLocation        string `json:"shopLocation"`
	RetailQuantity      string `json:"retailQuantity"`
	RetailPurchasePrice string `json:"retailPurchasePrice"`
	ConsumerPrice       string `json:"consumerPrice"`
	ExpiryDate          string `json:"expiryDate"`
	Timestamp           string `json:"timestamp"`
	Retailer            string `json:"retailer"`
	DistributorName     string `json:"distributorName"`
}

// BatchRecord is the full aggregate as read from the ledger. Every
// numeric field is a decimal string; identities are 0x-prefixed hex.
// The ledger is the sole source of truth: records are never cached
// across calls, each read re-fetches the aggregate.
type BatchRecord struct {
	BatchID      string              `json:"batchId"`
	FarmerInfo   FarmerInfo          `json:"farmerInfo"`
	Distributors []DistributorRecord `json:"distributors"`
	Retailers    []RetailRecord      `json:"retailers"`
	// StoredStage is the stage value embedded in the ledger record.
	// Callers wanting the authoritative stage use lifecycle.DeriveStage.
	StoredStage Stage `json:"storedStage"`
}

// CreateBatchInput carries the farmer-initiated write that opens a batch.
type CreateBatchInput struct {
	FarmerName string `json:"farmerName"`
	CropName   string `json:"cropName"`
	Quantity   uint64 `json:"quantity"`
	PricePerKg uint64 `json:"pricePerKg"`
	Location   string `json:"location"`
}

// AppendDistributorInput carries one distributor handover entry.
type AppendDistributorInput struct {
	BatchID           string `json:"batchId"`
	CropName          string `json:"cropName"`
	DistributorName   string `json:"distributorName"`
	QuantityReceived  uint64 `json:"quantityReceived"`
	PurchasePrice     uint64 `json:"purchasePrice"`
	TransportDetails  string `json:"transportDetails"`
	WarehouseLocation string `json:"warehouseLocation"`
	HandoverDate      uint64 `json:"handoverDate"`
}

// AppendRetailerInput carries one retail entry drawing from a distributor.
type AppendRetailerInput struct {
	BatchID             string `json:"batchId"`
	CropName            string `json:"cropName"`
	DistributorName     string `json:"distributorName"`
	RetailerName        string `json:"retailerName"`
	ShopLocation        string `json:"shopLocation"`
	RetailQuantity      uint64 `json:"retailQuantity"`
	RetailPurchasePrice uint64 `json:"retailPurchasePrice"`
	ConsumerPrice       uint64 `json:"consumerPrice"`
	ExpiryDate          uint64 `json:"expiryDate"`
}

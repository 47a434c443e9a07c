package models

import "time"

// Activity actions recorded for each confirmed ledger write.
const (
	ActivityCreateBatch       = "create_batch"
	ActivityAppendDistributor = "append_distributor"
	ActivityAppendRetailer    = "append_retailer"
)

// Activity is one confirmed write correlated to its transaction hash.
// It is an audit trail only: no batch state is duplicated here, the
// ledger stays the sole source of truth for the aggregate.
type Activity struct {
	BatchID   string    `bson:"batch_id" json:"batchId"`
	Action    string    `bson:"action" json:"action"`
	TxHash    string    `bson:"tx_hash" json:"txHash"`
	Actor     string    `bson:"actor" json:"actor"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

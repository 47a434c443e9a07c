package ledger

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// supplyChainABI is the interface description of the deployed
// SupplyChainTracker contract. It is a versioned external contract:
// renaming a field or changing a type here requires revisiting every
// mapping site in client.go.
const supplyChainABI = `[
  {
    "name": "createProduce",
    "type": "function",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "farmerName", "type": "string"},
      {"name": "cropName", "type": "string"},
      {"name": "quantity", "type": "uint256"},
      {"name": "pricePerKg", "type": "uint256"},
      {"name": "location", "type": "string"}
    ],
    "outputs": [{"name": "", "type": "bytes32"}]
  },
  {
    "name": "addDistributor",
    "type": "function",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "batchId", "type": "bytes32"},
      {"name": "cropName", "type": "string"},
      {"name": "distributorName", "type": "string"},
      {"name": "quantityReceived", "type": "uint256"},
      {"name": "purchasePrice", "type": "uint256"},
      {"name": "transportDetails", "type": "string"},
      {"name": "warehouseLocation", "type": "string"},
      {"name": "handoverDate", "type": "uint256"}
    ],
    "outputs": []
  },
  {
    "name": "addRetailer",
    "type": "function",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "batchId", "type": "bytes32"},
      {"name": "cropName", "type": "string"},
      {"name": "distributorName", "type": "string"},
      {"name": "retailerName", "type": "string"},
      {"name": "shopLocation", "type": "string"},
      {"name": "retailQuantity", "type": "uint256"},
      {"name": "retailPurchasePrice", "type": "uint256"},
      {"name": "consumerPrice", "type": "uint256"},
      {"name": "expiryDate", "type": "uint256"}
    ],
    "outputs": []
  },
  {
    "name": "getProduce",
    "type": "function",
    "stateMutability": "view",
    "inputs": [{"name": "batchId", "type": "bytes32"}],
    "outputs": [
      {
        "name": "",
        "type": "tuple",
        "components": [
          {
            "name": "farmerInfo",
            "type": "tuple",
            "components": [
              {"name": "farmerName", "type": "string"},
              {"name": "cropName", "type": "string"},
              {"name": "quantity", "type": "uint256"},
              {"name": "remainingQuantity", "type": "uint256"},
              {"name": "pricePerKg", "type": "uint256"},
              {"name": "location", "type": "string"},
              {"name": "createdDate", "type": "uint256"},
              {"name": "farmer", "type": "address"}
            ]
          },
          {
            "name": "distributors",
            "type": "tuple[]",
            "components": [
              {"name": "distributorName", "type": "string"},
              {"name": "quantityReceived", "type": "uint256"},
              {"name": "remainingQuantity", "type": "uint256"},
              {"name": "purchasePrice", "type": "uint256"},
              {"name": "transportDetails", "type": "string"},
              {"name": "warehouseLocation", "type": "string"},
              {"name": "handoverDate", "type": "uint256"},
              {"name": "timestamp", "type": "uint256"},
              {"name": "distributor", "type": "address"}
            ]
          },
          {
            "name": "retailers",
            "type": "tuple[]",
            "components": [
              {"name": "retailerName", "type": "string"},
              {"name": "shopLocation", "type": "string"},
              {"name": "retailQuantity", "type": "uint256"},
              {"name": "retailPurchasePrice", "type": "uint256"},
              {"name": "consumerPrice", "type": "uint256"},
              {"name": "expiryDate", "type": "uint256"},
              {"name": "timestamp", "type": "uint256"},
              {"name": "retailer", "type": "address"},
              {"name": "distributorName", "type": "string"}
            ]
          },
          {"name": "stage", "type": "uint8"}
        ]
      }
    ]
  },
  {
    "name": "getFarmerBatches",
    "type": "function",
    "stateMutability": "view",
    "inputs": [{"name": "farmer", "type": "address"}],
    "outputs": [{"name": "", "type": "bytes32[]"}]
  },
  {
    "name": "getFarmerRemainingQuantity",
    "type": "function",
    "stateMutability": "view",
    "inputs": [{"name": "batchId", "type": "bytes32"}],
    "outputs": [{"name": "", "type": "uint256"}]
  },
  {
    "name": "getDistributorRemainingQuantity",
    "type": "function",
    "stateMutability": "view",
    "inputs": [
      {"name": "batchId", "type": "bytes32"},
      {"name": "distributorIndex", "type": "uint256"}
    ],
    "outputs": [{"name": "", "type": "uint256"}]
  },
  {
    "name": "batchNonce",
    "type": "function",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{"name": "", "type": "uint256"}]
  }
]`

// Tuple shapes matching the getProduce return value. Field order and
// names mirror the ABI components; the abi package binds them by name.
type farmerTuple struct {
	FarmerName        string
	CropName          string
	Quantity          *big.Int
	RemainingQuantity *big.Int
	PricePerKg        *big.Int
	Location          string
	CreatedDate       *big.Int
	Farmer            common.Address
}

type distributorTuple struct {
	DistributorName   string
	QuantityReceived  *big.Int
	RemainingQuantity *big.Int
	PurchasePrice     *big.Int
	TransportDetails  string
	WarehouseLocation string
	HandoverDate      *big.Int
	Timestamp         *big.Int
	Distributor       common.Address
}

type retailTuple struct {
	RetailerName        string
	ShopLocation        string
	RetailQuantity      *big.Int
	RetailPurchasePrice *big.Int
	ConsumerPrice       *big.Int
	ExpiryDate          *big.Int
	Timestamp           *big.Int
	Retailer            common.Address
	DistributorName     string
}

type produceTuple struct {
	FarmerInfo   farmerTuple
	Distributors []distributorTuple
	Retailers    []retailTuple
	Stage        uint8
}

package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/chamapesa/backend/pkg/models"
)

// factoryABI is the read-only subset of the group factory contract used by
// the backend.
const factoryABI = `[
	{"inputs":[],"name":"getAllGroups","outputs":[{"name":"","type":"address[]"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"creator","type":"address"}],"name":"getCreatorGroups","outputs":[{"name":"","type":"address[]"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"groupCounter","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

// Client talks to the Avalanche C-Chain group factory
type Client struct {
	logger  *zap.Logger
	db      *gorm.DB
	eth     *ethclient.Client
	abi     abi.ABI
	factory common.Address
}

// NewClient dials the RPC endpoint and binds the factory contract
func NewClient(logger *zap.Logger, db *gorm.DB, rpcURL, factoryAddress string) (*Client, error) {
	if !common.IsHexAddress(factoryAddress) {
		return nil, fmt.Errorf("invalid factory address: %s", factoryAddress)
	}
	eth, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc: %w", err)
	}
	parsed, err := abi.JSON(strings.NewReader(factoryABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse factory abi: %w", err)
	}
	return &Client{
		logger:  logger,
		db:      db,
		eth:     eth,
		abi:     parsed,
		factory: common.HexToAddress(factoryAddress),
	}, nil
}

// Close releases the underlying RPC connection
func (c *Client) Close() {
	c.eth.Close()
}

// Status reports the chain connection and factory state
func (c *Client) Status(ctx context.Context) (*models.ChainStatus, error) {
	status := &models.ChainStatus{FactoryAddress: c.factory.Hex()}

	chainID, err := c.eth.ChainID(ctx)
	if err != nil {
		return status, nil
	}
	status.Connected = true
	status.ChainID = chainID.String()

	if block, err := c.eth.BlockNumber(ctx); err == nil {
		status.LatestBlock = block
	}
	if counter, err := c.groupCounter(ctx); err == nil {
		status.GroupCounter = counter
	} else {
		c.logger.Warn("Factory group counter unavailable", zap.Error(err))
	}
	return status, nil
}

// TxStatus resolves a transaction hash to pending, confirmed or failed
func (c *Client) TxStatus(ctx context.Context, hash string) (string, error) {
	if len(hash) != 66 || !strings.HasPrefix(hash, "0x") {
		return "", fmt.Errorf("invalid transaction hash: %s", hash)
	}
	receipt, err := c.eth.TransactionReceipt(ctx, common.HexToHash(hash))
	if err != nil {
		// No receipt yet means the transaction is still in flight
		return "pending", nil
	}
	if receipt.Status == 1 {
		return "confirmed", nil
	}
	return "failed", nil
}

// SyncGroups reconciles on-chain factory groups with the local database:
// groups whose contract address is known locally count as synced, unknown
// addresses are reported as errors.
func (c *Client) SyncGroups(ctx context.Context) (*models.ChainSyncResult, error) {
	addresses, err := c.allGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch factory groups: %w", err)
	}

	result := &models.ChainSyncResult{
		TotalOnChainGroups: len(addresses),
		Errors:             []string{},
	}
	for _, addr := range addresses {
		var count int64
		err := c.db.WithContext(ctx).Model(&models.Group{}).
			Where("LOWER(contract_address) = LOWER(?)", addr.Hex()).
			Count(&count).Error
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", addr.Hex(), err))
			continue
		}
		if count == 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: no matching local group", addr.Hex()))
			continue
		}
		result.SyncedCount++
	}

	c.logger.Info("Chain sync completed",
		zap.Int("on_chain", result.TotalOnChainGroups),
		zap.Int("synced", result.SyncedCount),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}

func (c *Client) groupCounter(ctx context.Context) (uint64, error) {
	out, err := c.call(ctx, "groupCounter")
	if err != nil {
		return 0, err
	}
	counter, ok := out[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("unexpected groupCounter result type %T", out[0])
	}
	return counter.Uint64(), nil
}

func (c *Client) allGroups(ctx context.Context) ([]common.Address, error) {
	out, err := c.call(ctx, "getAllGroups")
	if err != nil {
		return nil, err
	}
	addresses, ok := out[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("unexpected getAllGroups result type %T", out[0])
	}
	return addresses, nil
}

func (c *Client) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	raw, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &c.factory, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}
	out, err := c.abi.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s returned no values", method)
	}
	return out, nil
}

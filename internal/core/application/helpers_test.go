package application_test

import (
	"context"
	"math/big"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/crosswap-network/crosswap-daemon/internal/core/application"
	"github.com/crosswap-network/crosswap-daemon/internal/core/ports"
	"github.com/crosswap-network/crosswap-daemon/internal/infrastructure/storage/db/inmemory"
	"github.com/crosswap-network/crosswap-daemon/pkg/explorer"
)

func newTestRegistry() *application.Registry {
	return application.NewRegistry(
		[]application.Market{
			{BaseAsset: "ETH", QuoteAsset: "USDT", Symbol: "ETH/USDT"},
			{BaseAsset: "BTC", QuoteAsset: "USDT", Symbol: "BTC/USDT"},
		},
		[]application.NetworkInfo{
			{Name: "ethereum", Type: "evm", ChainId: 1, NativeAsset: "ETH"},
			{Name: "polygon", Type: "evm", ChainId: 137, NativeAsset: "POL"},
			{Name: "bitcoin", Type: "utxo", NativeAsset: "BTC"},
		},
		[]application.AssetDeployment{
			{Asset: "USDT", Network: "ethereum", Contract: "0xdac17f", Decimals: 6},
			{Asset: "USDT", Network: "polygon", Contract: "0xc2132d", Decimals: 6},
			{Asset: "ETH", Network: "ethereum", Contract: "", Decimals: 18},
		},
	)
}

func newTestRepos() *inmemory.RepoManager {
	return inmemory.NewRepoManager()
}

type stubLiquiditySource struct {
	name string
	book *ports.OrderBook
	err  error
}

func (s stubLiquiditySource) Name() string { return s.name }

func (s stubLiquiditySource) GetOrderBook(
	context.Context, string,
) (*ports.OrderBook, error) {
	return s.book, s.err
}

type stubPricer struct {
	usdPrices map[string]decimal.Decimal
}

func newStubPricer() stubPricer {
	return stubPricer{usdPrices: map[string]decimal.Decimal{
		"ETH":  decimal.NewFromInt(2500),
		"BTC":  decimal.NewFromInt(60000),
		"POL":  decimal.NewFromFloat(0.5),
		"USDT": decimal.NewFromInt(1),
	}}
}

func (s stubPricer) UsdValue(
	asset string, amount decimal.Decimal,
) (decimal.Decimal, error) {
	return amount.Mul(s.usdPrices[asset]), nil
}

func (s stubPricer) Convert(
	fromAsset, toAsset string, amount decimal.Decimal,
) (decimal.Decimal, error) {
	if fromAsset == toAsset {
		return amount, nil
	}
	return amount.Mul(s.usdPrices[fromAsset]).Div(s.usdPrices[toAsset]), nil
}

type stubSettlement struct {
	gasPrice   *big.Int
	callResult *ports.CallResult
	callErr    error

	lock            sync.Mutex
	calls           int
	nativePayouts   []decimal.Decimal
	tokenPayouts    []decimal.Decimal
	tokenChainIds   []uint64
	tokenRecipients []string
	payoutErr       error
}

func newStubSettlement() *stubSettlement {
	return &stubSettlement{
		gasPrice: big.NewInt(50000000000),
		callResult: &ports.CallResult{
			TxHash:            "0xsource",
			GasUsed:           100000,
			EffectiveGasPrice: big.NewInt(50000000000),
		},
	}
}

func (s *stubSettlement) ExecuteContractCall(
	context.Context, string, ports.PermitParams, uint64,
) (*ports.CallResult, error) {
	s.lock.Lock()
	s.calls++
	s.lock.Unlock()
	return s.callResult, s.callErr
}

func (s *stubSettlement) ExecuteMetaTransaction(
	context.Context, uint64, ports.ForwardRequest, []byte,
) (*ports.CallResult, error) {
	s.lock.Lock()
	s.calls++
	s.lock.Unlock()
	return s.callResult, s.callErr
}

func (s *stubSettlement) PayoutNative(
	_ context.Context, _ uint64, _ string, amount decimal.Decimal,
) (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.payoutErr != nil {
		return "", s.payoutErr
	}
	s.nativePayouts = append(s.nativePayouts, amount)
	return "0xdest", nil
}

func (s *stubSettlement) PayoutToken(
	_ context.Context, chainId uint64, _, recipient string,
	amount decimal.Decimal, _ int32,
) (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.payoutErr != nil {
		return "", s.payoutErr
	}
	s.tokenPayouts = append(s.tokenPayouts, amount)
	s.tokenChainIds = append(s.tokenChainIds, chainId)
	s.tokenRecipients = append(s.tokenRecipients, recipient)
	return "0xdest", nil
}

func (s *stubSettlement) SuggestGasPrice(
	context.Context, uint64,
) (*big.Int, error) {
	return s.gasPrice, nil
}

type stubPayoutService struct {
	fee     uint64
	feeErr  error
	txHash  string
	err     error
	payouts []uint64
	lock    sync.Mutex
}

func (s *stubPayoutService) Payout(
	_ context.Context, _ string, amount uint64,
) (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.payouts = append(s.payouts, amount)
	return s.txHash, nil
}

func (s *stubPayoutService) EstimatePayoutFee(context.Context) (uint64, error) {
	return s.fee, s.feeErr
}

type stubWalletService struct {
	lock  sync.Mutex
	index int
}

func (s *stubWalletService) AllocateNewAddress(
	context.Context,
) (*application.AddressInfo, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	info := &application.AddressInfo{
		Address:        "bc1qtest" + string(rune('a'+s.index)),
		DerivationPath: "m/84'/0'/0'/0/0",
		Index:          uint32(s.index),
	}
	s.index++
	return info, nil
}

type recordingPubSub struct {
	lock     sync.Mutex
	messages map[string][]string
}

func newRecordingPubSub() *recordingPubSub {
	return &recordingPubSub{messages: map[string][]string{}}
}

func (s *recordingPubSub) Publish(topic string, message string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.messages[topic] = append(s.messages[topic], message)
	return nil
}

func (s *recordingPubSub) topicCount(topic string) int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.messages[topic])
}

func (s *recordingPubSub) topicMessages(topic string) []string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]string{}, s.messages[topic]...)
}

type stubExplorer struct {
	lock        sync.Mutex
	utxos       []explorer.Utxo
	utxosErr    error
	txs         []explorer.Tx
	feeRate     float64
	blockHeight int64
	broadcasted []string
}

func (s *stubExplorer) GetUnspents(string) ([]explorer.Utxo, error) {
	return s.utxos, s.utxosErr
}

func (s *stubExplorer) GetTransactionsForAddress(string) ([]explorer.Tx, error) {
	return s.txs, nil
}

func (s *stubExplorer) GetFeeRate() (float64, error) {
	return s.feeRate, nil
}

func (s *stubExplorer) BroadcastTransaction(txHex string) (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.broadcasted = append(s.broadcasted, txHex)
	return "broadcast-tx-hash", nil
}

func (s *stubExplorer) GetBlockHeight() (int64, error) {
	return s.blockHeight, nil
}

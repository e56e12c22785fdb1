// Command verify checks credentials and connectivity without placing an
// order: it fetches the live ticker, derives the order that would be sent,
// and prints the signed request headers.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ceotaagc-lang/Arbitage/internal/bitget"
	"github.com/ceotaagc-lang/Arbitage/internal/config"
	"github.com/ceotaagc-lang/Arbitage/internal/logging"
	"github.com/ceotaagc-lang/Arbitage/internal/market"
	"github.com/ceotaagc-lang/Arbitage/internal/order"
)

const (
	defaultBaseURL  = "https://api.bitget.com"
	defaultTimeout  = 10 * time.Second
	defaultNotional = 10.0
	placeOrderPath  = "/api/v2/spot/trade/place-order"
)

func main() {
	configPath := flag.String("config", "", "optional config path for exchange settings")
	token := flag.String("token", "eth", "token symbol to verify against")
	sideFlag := flag.String("side", "buy", "order side to derive")
	notional := flag.Float64("notional", defaultNotional, "order notional in USDT")
	flag.Parse()

	if err := config.LoadEnv(".env"); err != nil {
		fatal(err)
	}

	bitgetCfg := config.BitgetConfig{BaseURL: defaultBaseURL, Timeout: defaultTimeout, ReceiveWindowMS: 5000}
	quote := "USDT"
	decimals := int32(6)
	var overrides map[string]int32
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			fatal(err)
		}
		bitgetCfg = cfg.Bitget
		quote = cfg.Trade.QuoteAsset
		decimals = cfg.Trade.SizeDecimals
		overrides = cfg.Trade.SizeDecimalOverrides
	}

	side, err := order.ParseSide(*sideFlag)
	if err != nil {
		fatal(err)
	}
	creds := config.CredentialsFromEnv()
	log := logging.New(config.LoggingConfig{Level: "warn"})
	defer log.Sync()

	client := bitget.New(bitgetCfg, creds, log)
	ctx, cancel := context.WithTimeout(context.Background(), bitgetCfg.Timeout)
	defer cancel()

	pair := strings.ToUpper(*token) + quote
	payload, err := client.FetchTicker(ctx, pair)
	if err != nil {
		fatal(fmt.Errorf("ticker fetch failed: %w", err))
	}
	reading, ok := market.Normalize(payload, market.ExchangeBitget, pair)
	if !ok {
		fatal(fmt.Errorf("ticker payload for %s held no usable price", pair))
	}
	fmt.Printf("ticker ok: %s = %.8f\n", pair, reading.Price)

	if !creds.Complete() {
		fmt.Println("credentials: NOT configured (set BITGET_API_KEY, BITGET_API_SECRET, BITGET_API_PASSPHRASE)")
		return
	}
	fmt.Println("credentials: configured")

	builder := order.NewBuilder(decimals, overrides)
	req, err := builder.Build(order.Directive{
		Symbol:       pair,
		Side:         side,
		NotionalUSDT: *notional,
		Token:        *token,
	}, reading.Price, defaultNotional)
	if err != nil {
		fatal(err)
	}

	body, err := bitget.OrderBody(req)
	if err != nil {
		fatal(err)
	}
	signed := bitget.NewSignedRequest(creds.APISecret, time.Now().UnixMilli(), http.MethodPost, placeOrderPath, string(body))

	fmt.Printf("derived order: %s %s size=%s clientOid=%s\n", req.Side, req.Symbol, req.WireSize(), req.ClientOrderID)
	fmt.Printf("ACCESS-TIMESTAMP: %d\n", signed.TimestampMillis)
	fmt.Printf("ACCESS-SIGN: %s\n", signed.Signature)
	fmt.Println("dry run only; no order was sent")
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/WinneR641/crypto-arbitrage-bot/internal/bot"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/config"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/discovery"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/engine"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/feed"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/fiat"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/history"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/metrics"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/monitor"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/notify"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/predict"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/risk"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/snapshot"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/types"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/venue"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/venue/binance"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/venue/bybit"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/venue/okx"
)

func main() {
	cfgPath := flag.String("config", "./config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one scan, log the results and exit")
	flag.Parse()

	logger, err := bot.NewLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		logger.Warn("received signal, shutting down")
		cancel()
	}()

	metrics.Serve(ctx, cfg.Metrics.ListenAddr, nil, logger)

	gateways := buildGateways(ctx, cfg, logger)
	defer func() {
		for _, gw := range gateways {
			_ = gw.Close()
		}
	}()

	collector := snapshot.NewCollector(gateways, cfg.VenueTimeout(), cfg.Snapshot.Depth, logger)

	if _, err := discovery.NewService(gateways, logger).Validate(ctx, cfg.Symbols()); err != nil {
		var cfgErr *discovery.ConfigurationError
		if errors.As(err, &cfgErr) {
			logger.Fatal("configured markets do not exist", zap.Error(err))
		}
		logger.Fatal("market validation failed", zap.Error(err))
	}

	// History, predictor, feed and the durable subscriber set all need
	// Redis; without it the scanner still runs, just without them.
	var (
		advisor  engine.SpreadAdvisor
		hist     engine.HistorySink
		pub      bot.Feed
		registry monitor.Registry = monitor.NewMemRegistry()
	)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store := history.New(rdb, cfg.Predictor.HistoryCap)
		hist = store
		advisor = predict.New(store, predict.Config{
			MinSamples:  cfg.Predictor.MinSamples,
			MinR2:       cfg.Predictor.MinR2,
			WidenFactor: cfg.Predictor.WidenFactor,
		}, logger)
		pub = feed.NewPublisher(rdb, cfg.Redis.Stream, 0)
		registry = monitor.NewRedisRegistry(rdb)
	} else {
		logger.Warn("redis not configured: no history, predictions or feed")
	}

	eng := engine.New(collector, advisor, hist, logger)
	gate := risk.NewEngine(cfg.Monitor.NotifyMinPercent)
	rates := fiat.NewNBU(cfg.NBU.URL)

	if *once {
		runOnce(ctx, cfg, eng, logger)
		return
	}

	if cfg.Telegram.Token == "" {
		logger.Fatal("TELEGRAM_BOT_TOKEN is not set; use -once for a scan without the bot")
	}
	tg := notify.NewTelegram(cfg.Telegram.Token, "")

	logger.Info("scanner started",
		zap.Strings("pairs", cfg.Pairs),
		zap.Int("venues", len(gateways)),
		zap.Duration("monitor_interval", cfg.MonitorInterval()),
	)
	bot.New(cfg, eng, registry, gate, tg, pub, rates, logger).Run(ctx)
}

func buildGateways(ctx context.Context, cfg *config.Config, logger *zap.Logger) []venue.Gateway {
	var out []venue.Gateway
	for _, id := range cfg.EnabledVenues() {
		vcfg, _ := cfg.Venue(id)
		switch id {
		case types.VenueBinance:
			c := binance.NewClient(vcfg, logger)
			if err := c.StartBookStream(ctx, cfg.Symbols()); err != nil {
				logger.Warn("binance ws unavailable, falling back to REST", zap.Error(err))
			}
			out = append(out, c)
		case types.VenueBybit:
			out = append(out, bybit.NewClient(vcfg, logger))
		case types.VenueOKX:
			out = append(out, okx.NewClient(vcfg, logger))
		}
	}
	return out
}

// runOnce executes every strategy a single time and logs the results, the
// scripting- and cron-friendly mode.
func runOnce(ctx context.Context, cfg *config.Config, eng *engine.Engine, logger *zap.Logger) {
	cctx, cancel := context.WithTimeout(ctx, cfg.CycleDeadline())
	defer cancel()

	amount := decimal.NewFromFloat(cfg.TradeAmount)
	var all []types.Opportunity
	for _, sym := range cfg.Symbols() {
		all = append(all, eng.EvaluateInterVenue(cctx, sym, amount)...)
	}
	for _, tri := range cfg.Triangles {
		all = append(all, eng.EvaluateTriangularAll(cctx, tri.Assets)...)
	}
	if cfg.P2P.Crypto != "" {
		all = append(all, eng.EvaluateP2P(cctx,
			cfg.P2P.Crypto, cfg.P2P.Fiat, decimal.NewFromFloat(cfg.P2P.Amount))...)
	}

	if len(all) == 0 {
		logger.Info("no profitable opportunities")
		return
	}
	for _, op := range all {
		logger.Info("opportunity",
			zap.String("kind", string(op.Kind)),
			zap.String("buy_venue", string(op.BuyVenue)),
			zap.String("sell_venue", string(op.SellVenue)),
			zap.String("venue", string(op.Venue)),
			zap.String("profit", op.Profit.String()),
			zap.String("profit_percent", op.ProfitPercent.StringFixed(4)),
			zap.Bool("recommended", op.Recommended),
			zap.Time("ts", op.Ts),
		)
	}
}

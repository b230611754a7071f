// feedtail follows the scanner's opportunity stream and logs each entry,
// a quick way to watch a running scanner without Telegram.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/WinneR641/crypto-arbitrage-bot/internal/bot"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/config"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/feed"
)

func main() {
	cfgPath := flag.String("config", "./config.yaml", "path to config file")
	from := flag.String("from", "$", "stream ID to resume from; 0 replays everything")
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
	if cfg.Redis.Addr == "" {
		logger.Fatal("redis.addr is not configured")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		cancel()
	}()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	consumer := feed.NewConsumer(rdb, cfg.Redis.Stream)
	logger.Info("tailing feed", zap.String("stream", cfg.Redis.Stream), zap.String("from", *from))

	lastID := *from
	for ctx.Err() == nil {
		records, next, err := consumer.Read(ctx, lastID, 100, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("stream read failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		lastID = next
		for _, r := range records {
			op := r.Opportunity
			logger.Info("opportunity",
				zap.String("id", r.StreamID),
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
}

// Package bot ties the scanner to Telegram: a command loop for on-demand
// scans and a periodic monitor loop that pushes digests to subscribers.
package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/WinneR641/crypto-arbitrage-bot/internal/config"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/engine"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/monitor"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/notify"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/rank"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/risk"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/types"
)

// Messenger is the Telegram surface the bot drives; *notify.TelegramClient
// satisfies it and tests substitute a recorder.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	GetUpdates(ctx context.Context, offset int64) ([]notify.Update, error)
}

// Feed receives every monitor cycle's ranked opportunities before the
// notification gate is applied.
type Feed interface {
	Publish(ctx context.Context, ops []types.Opportunity) error
}

// RateSource resolves the official fiat reference rate shown next to
// peer-to-peer results.
type RateSource interface {
	Rate(ctx context.Context, code string) (decimal.Decimal, error)
}

type Bot struct {
	cfg      *config.Config
	eng      *engine.Engine
	registry monitor.Registry
	gate     *risk.Engine
	tg       Messenger
	feed     Feed       // optional
	rates    RateSource // optional
	log      *zap.Logger
}

func New(cfg *config.Config, eng *engine.Engine, registry monitor.Registry, gate *risk.Engine, tg Messenger, feed Feed, rates RateSource, log *zap.Logger) *Bot {
	return &Bot{
		cfg:      cfg,
		eng:      eng,
		registry: registry,
		gate:     gate,
		tg:       tg,
		feed:     feed,
		rates:    rates,
		log:      log,
	}
}

// Run drives both loops until the context is cancelled.
func (b *Bot) Run(ctx context.Context) {
	go b.monitorLoop(ctx)
	b.commandLoop(ctx)
}

func (b *Bot) commandLoop(ctx context.Context) {
	var offset int64
	for {
		if ctx.Err() != nil {
			return
		}
		updates, err := b.tg.GetUpdates(ctx, offset)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			b.log.Warn("poll updates failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(3 * time.Second):
			}
			continue
		}
		for _, u := range updates {
			offset = u.ID + 1
			b.handleCommand(ctx, u)
		}
	}
}

func (b *Bot) handleCommand(ctx context.Context, u notify.Update) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(u.Message.Text)))
	if len(fields) == 0 {
		return
	}
	cmd := fields[0]
	chatID := u.Message.Chat.ID
	switch cmd {
	case "/start":
		b.reply(ctx, chatID, helpText)

	case "/arbitrage":
		kind := types.Kind("")
		if len(fields) > 1 {
			var ok bool
			if kind, ok = parseKind(fields[1]); !ok {
				b.reply(ctx, chatID, "Unknown strategy, use: cross, triangular or p2p.")
				return
			}
		}
		b.reply(ctx, chatID, "Scanning, this takes a few seconds...")
		ops := filterKind(b.scanAll(ctx), kind)
		b.reply(ctx, chatID, b.render(ctx, rank.Top(ops, b.cfg.Monitor.TopN)))

	case "/monitor":
		on, err := b.toggleMonitor(ctx, chatID)
		if err != nil {
			b.log.Warn("monitor toggle failed", zap.Int64("chat", chatID), zap.Error(err))
			b.reply(ctx, chatID, "Could not update your subscription, try again.")
			return
		}
		if on {
			b.reply(ctx, chatID, "Monitoring enabled. You will get a digest every "+
				b.cfg.MonitorInterval().String()+" when something clears the threshold.")
		} else {
			b.reply(ctx, chatID, "Monitoring disabled.")
		}

	default:
		// Non-commands and unknown commands are ignored, not answered.
	}
}

func (b *Bot) toggleMonitor(ctx context.Context, chatID int64) (bool, error) {
	subscribed, err := b.registry.Contains(ctx, chatID)
	if err != nil {
		return false, err
	}
	if subscribed {
		return false, b.registry.Remove(ctx, chatID)
	}
	return true, b.registry.Add(ctx, chatID)
}

func (b *Bot) monitorLoop(ctx context.Context) {
	ticker := time.NewTicker(b.cfg.MonitorInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.monitorCycle(ctx)
		}
	}
}

// monitorCycle scans everything once, publishes the full ranked list to the
// feed, then pushes only threshold-clearing results to subscribers.
func (b *Bot) monitorCycle(ctx context.Context) {
	ops := b.scanAll(ctx)

	if b.feed != nil && len(ops) > 0 {
		if err := b.feed.Publish(ctx, ops); err != nil {
			b.log.Warn("feed publish failed", zap.Error(err))
		}
	}

	notable := rank.Top(b.gate.FilterNotify(ops), b.cfg.Monitor.TopN)
	if len(notable) == 0 {
		return
	}

	users, err := b.registry.List(ctx)
	if err != nil {
		b.log.Warn("subscriber list unavailable", zap.Error(err))
		return
	}
	if len(users) == 0 {
		return
	}

	msg := b.render(ctx, notable)
	for _, uid := range users {
		if err := b.tg.SendMessage(ctx, uid, msg); err != nil {
			b.log.Warn("digest delivery failed", zap.Int64("chat", uid), zap.Error(err))
		}
	}
	b.log.Info("monitor digest sent",
		zap.Int("opportunities", len(notable)),
		zap.Int("subscribers", len(users)),
	)
}

// scanAll runs every configured strategy concurrently under one cycle
// deadline and merges the ranked results.
func (b *Bot) scanAll(ctx context.Context) []types.Opportunity {
	cctx, cancel := context.WithTimeout(ctx, b.cfg.CycleDeadline())
	defer cancel()

	var (
		mu  sync.Mutex
		all []types.Opportunity
	)
	collect := func(ops []types.Opportunity) {
		mu.Lock()
		all = append(all, ops...)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(cctx)
	g.Go(func() error {
		amount := decimal.NewFromFloat(b.cfg.TradeAmount)
		for _, sym := range b.cfg.Symbols() {
			collect(b.eng.EvaluateInterVenue(gctx, sym, amount))
		}
		return nil
	})
	g.Go(func() error {
		for _, tri := range b.cfg.Triangles {
			collect(b.eng.EvaluateTriangularAll(gctx, tri.Assets))
		}
		return nil
	})
	if b.cfg.P2P.Crypto != "" {
		g.Go(func() error {
			collect(b.eng.EvaluateP2P(gctx,
				b.cfg.P2P.Crypto, b.cfg.P2P.Fiat, decimal.NewFromFloat(b.cfg.P2P.Amount)))
			return nil
		})
	}
	_ = g.Wait()
	return rank.Rank(all)
}

func parseKind(s string) (types.Kind, bool) {
	switch s {
	case "cross", "inter":
		return types.KindCrossVenue, true
	case "triangular", "tri":
		return types.KindTriangular, true
	case "p2p":
		return types.KindPeerToPeer, true
	}
	return "", false
}

// filterKind keeps one strategy's results; an empty kind keeps everything.
func filterKind(ops []types.Opportunity, kind types.Kind) []types.Opportunity {
	if kind == "" {
		return ops
	}
	out := make([]types.Opportunity, 0, len(ops))
	for _, op := range ops {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}

const helpText = `Arbitrage scanner.

/arbitrage [cross|triangular|p2p] - scan now, optionally one strategy
/monitor - toggle periodic digests for this chat`

// render formats a ranked list as one Markdown message.
func (b *Bot) render(ctx context.Context, ops []types.Opportunity) string {
	if len(ops) == 0 {
		return "No profitable opportunities right now."
	}

	var sb strings.Builder
	sb.WriteString("*Top opportunities*\n")
	for i, op := range ops {
		sb.WriteString("\n")
		sb.WriteString(renderOne(i+1, op))
	}
	if rate := b.referenceRate(ctx, ops); !rate.IsZero() {
		sb.WriteString("\n\nOfficial " + b.cfg.P2P.Fiat + "/USD rate: " + rate.StringFixed(2))
	}
	return sb.String()
}

func renderOne(n int, op types.Opportunity) string {
	var sb strings.Builder
	switch op.Kind {
	case types.KindTriangular:
		sb.WriteString(strconv.Itoa(n) + ". triangular on " + string(op.Venue) + ": ")
		for i, s := range op.Path {
			if i > 0 {
				sb.WriteString(" > ")
			}
			sb.WriteString(string(s))
		}
	case types.KindPeerToPeer:
		sb.WriteString(strconv.Itoa(n) + ". p2p: buy on " + string(op.BuyVenue) +
			" at " + op.BuyPrice.StringFixed(2) +
			", sell on " + string(op.SellVenue) + " at " + op.SellPrice.StringFixed(2))
	default:
		sb.WriteString(strconv.Itoa(n) + ". " + string(op.BuyVenue) + " " + op.BuyPrice.String() +
			" -> " + string(op.SellVenue) + " " + op.SellPrice.String())
	}
	sb.WriteString("\n   profit " + op.Profit.StringFixed(4) + " (" + op.ProfitPercent.StringFixed(2) + "%)")
	if op.Recommended {
		sb.WriteString(" [recommended]")
	}
	return sb.String()
}

// referenceRate fetches the official fiat rate when the list contains a
// peer-to-peer result. Failures just drop the footer.
func (b *Bot) referenceRate(ctx context.Context, ops []types.Opportunity) decimal.Decimal {
	if b.rates == nil {
		return decimal.Zero
	}
	for _, op := range ops {
		if op.Kind == types.KindPeerToPeer {
			rate, err := b.rates.Rate(ctx, "USD")
			if err != nil {
				b.log.Debug("reference rate unavailable", zap.Error(err))
				return decimal.Zero
			}
			return rate
		}
	}
	return decimal.Zero
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if err := b.tg.SendMessage(ctx, chatID, text); err != nil {
		b.log.Warn("reply failed", zap.Int64("chat", chatID), zap.Error(err))
	}
}

// NewLogger builds the process-wide JSON logger.
func NewLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.CallerKey = "caller"
	cfg.EncoderConfig.StacktraceKey = "stacktrace"
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
	return cfg.Build()
}

package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/romanzzaa/md5-predictor-bot/internal/analyzer"
	"github.com/romanzzaa/md5-predictor-bot/internal/domain"
	"github.com/romanzzaa/md5-predictor-bot/internal/license"
	"github.com/romanzzaa/md5-predictor-bot/internal/worker"
)

// Сколько ключей админ может выпустить одной командой
const maxKeysPerCommand = 20

// Sender - часть tgbotapi.BotAPI, нужная для ответов
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// UpdateSource - часть tgbotapi.BotAPI, отдающая апдейты
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// AccessGateway - операции ядра, которые нужны транспорту
type AccessGateway interface {
	Redeem(ctx context.Context, principal, code string) (domain.GatewayOutcome, error)
	IsActivated(principal string) bool
	IssueKey(ctx context.Context, isAuthorized bool) (domain.ActivationKey, error)
	Stats() license.Stats
}

type Handler struct {
	bot     Sender
	access  AccessGateway
	pool    *worker.Pool
	adminID int64
	timeout time.Duration
	logger  *slog.Logger
}

func NewHandler(
	bot Sender,
	access AccessGateway,
	pool *worker.Pool,
	adminID int64,
	timeout time.Duration,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		bot:     bot,
		access:  access,
		pool:    pool,
		adminID: adminID,
		timeout: timeout,
		logger:  logger.With("component", "bot_handler"),
	}
}

// Start читает апдейты, пока не отменен ctx. Обработка идет в пуле воркеров.
func (h *Handler) Start(ctx context.Context, source UpdateSource) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := source.GetUpdatesChan(u)
	defer source.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}
			msg := update.Message
			// Пул переполнен: апдейт теряется, прием не ждет Telegram
			if !h.pool.Submit(func(ctx context.Context) { h.HandleMessage(ctx, msg) }) {
				h.logger.Warn("update dropped", slog.Int("update_id", update.UpdateID))
			}
		}
	}
}

// HandleMessage обрабатывает одно сообщение синхронно
func (h *Handler) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}

	if !msg.IsCommand() {
		h.send(msg.Chat.ID, msg.MessageID, textFallback)
		return
	}

	switch msg.Command() {
	case "start":
		h.cmdStart(msg)
	case "genkey":
		h.cmdGenKey(ctx, msg)
	case "redeem":
		h.cmdRedeem(ctx, msg)
	case "md5":
		h.cmdMD5(msg)
	case "status":
		h.cmdStatus(msg)
	default:
		h.send(msg.Chat.ID, msg.MessageID, textFallback)
	}
}

// --- Commands ---

func (h *Handler) cmdStart(msg *tgbotapi.Message) {
	h.send(msg.Chat.ID, msg.MessageID, fmt.Sprintf(textWelcome, msg.From.FirstName))
}

func (h *Handler) cmdGenKey(ctx context.Context, msg *tgbotapi.Message) {
	isAdmin := msg.From.ID == h.adminID

	count := 1
	if arg := strings.TrimSpace(msg.CommandArguments()); arg != "" && isAdmin {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 || n > maxKeysPerCommand {
			h.send(msg.Chat.ID, msg.MessageID, fmt.Sprintf(textGenKeyUsage, maxKeysPerCommand))
			return
		}
		count = n
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var codes []string
	for i := 0; i < count; i++ {
		key, err := h.access.IssueKey(ctx, isAdmin)
		if errors.Is(err, domain.ErrUnauthorized) {
			// Как и раньше: не-админ не получает никакого ответа
			h.logger.Warn("unauthorized genkey attempt", slog.Int64("tg_id", msg.From.ID))
			return
		}
		if err != nil {
			h.logger.Error("failed to issue key", slog.String("error", err.Error()))
			if len(codes) == 0 {
				h.send(msg.Chat.ID, msg.MessageID, textInternalError)
				return
			}
			break
		}
		codes = append(codes, key.Code)
	}

	h.send(msg.Chat.ID, msg.MessageID, formatKeys(codes))
}

func (h *Handler) cmdRedeem(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 1 {
		h.send(msg.Chat.ID, msg.MessageID, textRedeemUsage)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	principal := principalID(msg)
	outcome, err := h.access.Redeem(ctx, principal, args[0])
	if err != nil {
		h.logger.Error("redeem failed",
			slog.Int64("tg_id", msg.From.ID),
			slog.String("error", err.Error()))
		h.send(msg.Chat.ID, msg.MessageID, textInternalError)
		return
	}

	switch outcome {
	case domain.OutcomeActivated:
		h.logger.Info("user activated", slog.Int64("tg_id", msg.From.ID))
		h.send(msg.Chat.ID, msg.MessageID, textActivated)
	case domain.OutcomeKeyAlreadyUsed:
		h.send(msg.Chat.ID, msg.MessageID, textKeyUsed)
	default:
		h.send(msg.Chat.ID, msg.MessageID, textKeyNotFound)
	}
}

func (h *Handler) cmdMD5(msg *tgbotapi.Message) {
	if !h.access.IsActivated(principalID(msg)) {
		h.send(msg.Chat.ID, msg.MessageID, textLocked)
		return
	}

	args := strings.Fields(msg.CommandArguments())
	if len(args) != 1 {
		h.send(msg.Chat.ID, msg.MessageID, textMD5Usage)
		return
	}

	res, err := analyzer.Analyze(args[0])
	if err != nil {
		h.send(msg.Chat.ID, msg.MessageID, textInvalidMD5)
		return
	}

	h.send(msg.Chat.ID, msg.MessageID, formatResult(res))
}

func (h *Handler) cmdStatus(msg *tgbotapi.Message) {
	var sb strings.Builder
	if h.access.IsActivated(principalID(msg)) {
		sb.WriteString(textStatusActive)
	} else {
		sb.WriteString(textLocked)
	}

	if msg.From.ID == h.adminID {
		st := h.access.Stats()
		sb.WriteString(fmt.Sprintf(textAdminStats, st.KeysIssued, st.KeysRedeemed, st.Activated))
	}

	h.send(msg.Chat.ID, msg.MessageID, sb.String())
}

// --- Helpers ---

func principalID(msg *tgbotapi.Message) string {
	return strconv.FormatInt(msg.From.ID, 10)
}

func (h *Handler) send(chatID int64, replyTo int, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyToMessageID = replyTo
	if _, err := h.bot.Send(msg); err != nil {
		h.logger.Error("failed to send message", slog.Int64("chat_id", chatID), slog.String("error", err.Error()))
	}
}

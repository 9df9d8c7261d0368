// Package chat implements the chat proxy: it forwards a visitor's message to
// the completion service and keeps a best-effort log of the exchange.
package chat

import (
	"context"
	"errors"
	"log/slog"

	"github.com/learningtriangle/ltgate/internal/apperr"
	"github.com/learningtriangle/ltgate/internal/completion"
	"github.com/learningtriangle/ltgate/internal/metrics"
	"github.com/learningtriangle/ltgate/internal/storage"
)

// SystemInstruction is the fixed persona sent with every message.
const SystemInstruction = `Jsi přátelský AI asistent pro Learning Triangle.
Nabízíme doučování: matematiku, češtinu, angličtinu a další předměty.
Připravujeme na CERMAT. Kontakt: info@learningtriangle.cz.
Odpovídej stručně (max 3 věty), česky a s emojis.`

// FallbackReply is returned when the service produces no candidate text.
const FallbackReply = "Omlouvám se, ale nevím, co odpovědět."

// Caller-facing messages.
const (
	MsgMethodNotAllowed = "Metoda není povolena"
	MsgEmptyMessage     = "Zpráva je prázdná"
	MsgMissingAPIKey    = "Chyba konfigurace serveru - chybí API klíč"
	MsgUpstreamRejected = "AI služba odmítla požadavek"
	MsgInternal         = "Něco se pokazilo na serveru."
)

// LogStore appends chat log entries.
type LogStore interface {
	AppendChatLog(ctx context.Context, e storage.ChatLogEntry) (string, error)
}

// Request is one inbound chat message.
type Request struct {
	Message  string
	SourceIP string
}

// Response carries the reply shown to the visitor.
type Response struct {
	Reply string `json:"reply"`
}

// Service orchestrates one chat exchange.
type Service struct {
	logs      LogStore
	completer completion.Client
	logger    *slog.Logger
}

// NewService creates a Service. A nil completer means the API key is not
// configured and every request fails with a config error.
func NewService(logs LogStore, completer completion.Client) *Service {
	return &Service{
		logs:      logs,
		completer: completer,
		logger:    slog.Default(),
	}
}

// Handle validates req, logs it, asks the completion service for a reply,
// logs the reply and returns it. Log failures never affect the result.
func (s *Service) Handle(ctx context.Context, req Request) (Response, error) {
	if s.completer == nil {
		return Response{}, apperr.New(apperr.Config, MsgMissingAPIKey)
	}
	if req.Message == "" {
		return Response{}, apperr.New(apperr.InvalidInput, MsgEmptyMessage)
	}

	userEntry := storage.ChatLogEntry{Sender: storage.SenderUser, Message: req.Message}
	if req.SourceIP != "" {
		ip := req.SourceIP
		userEntry.SourceIP = &ip
	}
	s.tryLog(ctx, userEntry)

	text, err := s.completer.Complete(ctx, completion.Request{
		SystemInstruction: SystemInstruction,
		Message:           req.Message,
	})
	if err != nil {
		var upErr *completion.UpstreamError
		if errors.As(err, &upErr) {
			metrics.RecordCompletion("upstream_error")
			s.logger.Error("completion service rejected request", "status", upErr.StatusCode, "body", upErr.Body)
			return Response{}, apperr.Wrap(apperr.Upstream, MsgUpstreamRejected, err).WithDetails(upErr.Body)
		}
		metrics.RecordCompletion("error")
		s.logger.Error("completion call failed", "error", err)
		return Response{}, apperr.Wrap(apperr.Internal, MsgInternal, err).WithDetails(err.Error())
	}

	reply := text
	if reply == "" {
		metrics.RecordCompletion("empty")
		reply = FallbackReply
	} else {
		metrics.RecordCompletion("ok")
	}

	s.tryLog(ctx, storage.ChatLogEntry{Sender: storage.SenderBot, Message: reply})

	return Response{Reply: reply}, nil
}

// tryLog appends e and swallows any failure.
func (s *Service) tryLog(ctx context.Context, e storage.ChatLogEntry) {
	if s.logs == nil {
		return
	}
	if _, err := s.logs.AppendChatLog(ctx, e); err != nil {
		metrics.RecordChatLogFailure(string(e.Sender))
		s.logger.Warn("failed to log chat message", "sender", e.Sender, "error", err)
	}
}

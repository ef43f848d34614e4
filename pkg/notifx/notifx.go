package notifx

import (
	"context"
	"net/http"

	"github.com/Abraxas-365/authgate/pkg/errx"
)

// EmailMessage is one outbound email.
type EmailMessage struct {
	To       []string
	From     string
	Subject  string
	HTMLBody string
	TextBody string
}

// EmailSender delivers email. Implementations must be safe for concurrent
// use; the auth flows call Send from request handlers.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("NOTIFX")

var (
	CodeSendFailed     = ErrRegistry.Register("SEND_FAILED", errx.TypeExternal, http.StatusBadGateway, "Email delivery failed")
	CodeTemplateFailed = ErrRegistry.Register("TEMPLATE_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Email template rendering failed")
)

func ErrSendFailed() *errx.Error {
	return ErrRegistry.New(CodeSendFailed)
}

func ErrTemplateFailed() *errx.Error {
	return ErrRegistry.New(CodeTemplateFailed)
}

// Copyright (c) 2026 Folio Works. All rights reserved.

package auth

import (
	"context"
	"log/slog"
)

// LogMailer is the default [Mailer] used when no delivery provider is
// configured. It writes the reset token to the structured log so operators
// can complete the flow manually in development environments.
//
// TODO: add an SMTP-backed Mailer once the transactional email account is
// provisioned.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer constructs a [LogMailer].
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// SendPasswordReset logs the reset token instead of emailing it.
func (mailer *LogMailer) SendPasswordReset(_ context.Context, email, token string) error {
	mailer.logger.Info("password_reset_requested",
		slog.String("email", email),
		slog.String("reset_token", token),
	)
	return nil
}

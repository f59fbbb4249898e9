package forwarder

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/kiribu/actor-relay/internal/pkg/identity"
	"go.uber.org/zap"
)

// Forwarder posts raw updates to actor services with an identity token scoped
// to the actor's URL. Failures are logged and dropped: nothing is retried and
// nothing reaches the webhook caller.
type Forwarder struct {
	issuer  identity.Issuer
	client  *http.Client
	timeout time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup
}

func NewForwarder(issuer identity.Issuer, timeout time.Duration, logger *zap.Logger) *Forwarder {
	return &Forwarder{
		issuer:  issuer,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		logger:  logger,
	}
}

// Forward delivers payload to targetURL and blocks until the call finishes or
// times out.
func (f *Forwarder) Forward(ctx context.Context, targetURL string, payload []byte) {
	start := time.Now()
	if err := f.forward(ctx, targetURL, payload); err != nil {
		f.logger.Error("failed to forward update",
			zap.String("target_url", targetURL),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return
	}
	f.logger.Info("update forwarded",
		zap.String("target_url", targetURL),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// Dispatch runs Forward in the background. The call outlives the inbound
// request but is tracked, so Wait can drain it before the process exits.
func (f *Forwarder) Dispatch(ctx context.Context, targetURL string, payload []byte) {
	ctx = context.WithoutCancel(ctx)

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				f.logger.Error("panic while forwarding update", zap.Any("recover", r))
			}
		}()
		f.Forward(ctx, targetURL, payload)
	}()
}

// Wait blocks until every dispatched forward has finished or ctx is done.
func (f *Forwarder) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Forwarder) forward(ctx context.Context, targetURL string, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	token, err := f.issuer.IdentityToken(ctx, targetURL)
	if err != nil {
		return fmt.Errorf("failed to get identity token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("actor responded with status %d", resp.StatusCode)
	}

	return nil
}

package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"smsbridge/internal/metrics"
)

// EndpointPath is the fixed inbound webhook path registered with Twilio.
const EndpointPath = "/twilio"

const maxBodyBytes = 1 << 20 // 1MB max

// ProviderConfig configures the webhook event provider.
type ProviderConfig struct {
	Host        string
	Port        int
	Handler     *Handler
	Stream      *EventStream // optional live event stream at /events
	MetricsPath string       // empty disables the metrics endpoint
	Logger      *slog.Logger
}

// Provider owns the webhook handler and the HTTP server exposing it. It is a
// long-lived listener: all work happens synchronously inside request
// handling, and Start blocks until the context is cancelled.
type Provider struct {
	host        string
	port        int
	handler     *Handler
	stream      *EventStream
	metricsPath string
	logger      *slog.Logger
	server      *http.Server
}

func NewProvider(cfg ProviderConfig) *Provider {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	return &Provider{
		host:        cfg.Host,
		port:        cfg.Port,
		handler:     cfg.Handler,
		stream:      cfg.Stream,
		metricsPath: cfg.MetricsPath,
		logger:      cfg.Logger,
	}
}

// Start runs the HTTP server until ctx is cancelled, then shuts it down
// gracefully. A listener error is returned immediately.
func (p *Provider) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+EndpointPath, p.handleInbound)
	mux.HandleFunc("GET /healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		io.WriteString(rw, "ok\n")
	})
	if p.stream != nil {
		mux.HandleFunc("GET /events", p.stream.handleUpgrade)
	}
	if p.metricsPath != "" {
		mux.HandleFunc("GET "+p.metricsPath, metrics.Collector.Handler())
	}

	p.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", p.host, p.port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	p.logger.Info("webhook provider starting", "addr", p.server.Addr, "path", EndpointPath)

	errCh := make(chan error, 1)
	go func() {
		if err := p.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		p.logger.Info("webhook provider shutting down")
		if p.stream != nil {
			p.stream.closeAll()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return p.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("webhook provider: %w", err)
	}
}

func (p *Provider) handleInbound(rw http.ResponseWriter, r *http.Request) {
	metrics.InboundReceived.Inc()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(rw, "Bad Request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	fields, err := p.handler.Handle(r.Context(), r.Header.Get("Content-Type"), string(body))
	if err != nil {
		p.logger.Warn("inbound webhook rejected", "err", err)
		http.Error(rw, publicError(err), statusFor(err))
		return
	}

	// Echo the decoded payload for traceability; Twilio does not act on it.
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(http.StatusOK)
	json.NewEncoder(rw).Encode(fields)
}

// statusFor maps pipeline errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnsupportedContentType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrMalformedPayload), errors.Is(err, ErrMissingField):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// publicError returns a response body safe to show the provider, without
// leaking internal detail.
func publicError(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedContentType):
		return "unsupported content type"
	case errors.Is(err, ErrMalformedPayload):
		return "malformed payload"
	case errors.Is(err, ErrMissingField):
		return err.Error()
	default:
		return "internal error"
	}
}

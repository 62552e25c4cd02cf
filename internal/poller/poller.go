package poller

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog"

	"campus-store/internal/dto"
	"campus-store/internal/model"
)

var logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

const (
	DefaultInterval = 3 * time.Second
	DefaultTimeout  = 120 * time.Second
)

// Errores que cortan el polling: reintentar no cambia la respuesta.
var (
	ErrOrderNotFound = errors.New("order not found")
	ErrForbidden     = errors.New("forbidden")
	ErrUnauthorized  = errors.New("unauthorized")
)

type StatusFetcher interface {
	FetchStatus(ctx context.Context, orderID string) (*dto.PaymentStatusResponse, error)
}

type Outcome string

const (
	Paid     Outcome = "Paid"
	Failed   Outcome = "Failed"
	TimedOut Outcome = "TimedOut"
)

type Result struct {
	Outcome  Outcome
	Status   *dto.PaymentStatusResponse
	Attempts int
}

type Poller struct {
	Client   StatusFetcher
	Interval time.Duration
	Timeout  time.Duration
}

// New usa los valores por defecto cuando interval o timeout son cero.
func New(client StatusFetcher, interval, timeout time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Poller{Client: client, Interval: interval, Timeout: timeout}
}

// Wait consulta el estado de la orden hasta que se pague, falle o se cumpla Timeout.
// Primera consulta inmediata, después una por Interval y nunca dos a la vez.
// TimedOut no es error; la cancelación del ctx padre sí.
func (p *Poller) Wait(ctx context.Context, orderID string) (Result, error) {
	var res Result

	pollCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		res.Attempts++
		st, err := p.Client.FetchStatus(pollCtx, orderID)
		switch {
		case err == nil:
			res.Status = st
			if st.IsPaid {
				res.Outcome = Paid
				return res, nil
			}
			if st.PaymentStatus == model.PaymentFailed {
				res.Outcome = Failed
				return res, nil
			}
		case errors.Is(err, ErrOrderNotFound), errors.Is(err, ErrForbidden), errors.Is(err, ErrUnauthorized):
			return res, err
		case pollCtx.Err() == nil:
			logger.Warn().Err(err).Str("orderId", orderID).Int("attempt", res.Attempts).Msg("Falló la consulta de estado, reintentando")
		}

		select {
		case <-pollCtx.Done():
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.Outcome = TimedOut
			return res, nil
		case <-ticker.C:
		}
	}
}

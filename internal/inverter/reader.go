package inverter

import (
	"context"
	"io"
	"time"

	"github.com/nerrad567/solar-poller/internal/schedule"
	"gopkg.in/resty.v1"
)

// Default request settings.
const (
	defaultTimeout     = 15 * time.Second
	defaultMaxAttempts = 10
)

// Config holds the inverter endpoints and the two credential pairs.
type Config struct {
	StatusURL      string
	StatusUser     string
	StatusPassword string

	LoginURL      string
	LoginUser     string
	LoginPassword string

	// Timeout applies to every request. Default: 15s
	Timeout time.Duration

	// MaxAttempts bounds status requests per FetchPower call. Default: 10
	MaxAttempts int
}

// Logger defines the logging interface for the reader.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Reader fetches the power reading from the inverter status page.
// It is not safe for concurrent use.
type Reader struct {
	cfg     Config
	client  *resty.Client
	offline *schedule.Schedule
	logger  Logger
}

// New creates a Reader. offline paces login retries while the inverter is
// unreachable and should share its start instant with the poll schedule.
func New(cfg Config, offline *schedule.Schedule) *Reader {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetLogger(io.Discard)

	return &Reader{
		cfg:     cfg,
		client:  client,
		offline: offline,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the reader.
func (r *Reader) SetLogger(logger Logger) {
	r.logger = logger
}

// FetchPower returns the current power output in watts.
//
// ok is false when no usable page was obtained or the page carried no
// integer reading; the cause is logged. Network faults never surface as
// errors: err is non-nil only when ctx is cancelled, which can happen
// during an arbitrarily long offline wait.
func (r *Reader) FetchPower(ctx context.Context) (watts int, ok bool, err error) {
	resp, err := r.fetchStatus(ctx)
	if err != nil {
		return 0, false, err
	}
	if resp == nil {
		r.logger.Error("no response obtained from inverter", "attempts", r.cfg.MaxAttempts)
		return 0, false, nil
	}

	body := string(resp.Body())
	watts, ok = ExtractPower(body)
	if !ok {
		r.logger.Error("power output was not found or not a number",
			"status", resp.StatusCode(),
			"body_prefix", preview(body),
		)
		return 0, false, nil
	}
	return watts, true, nil
}

// fetchStatus runs the bounded retry loop and returns the last response
// obtained, which may be a login page or an error page once attempts are
// exhausted. A nil response means nothing was ever received.
func (r *Reader) fetchStatus(ctx context.Context) (*resty.Response, error) {
	var last *resty.Response

attempts:
	for attempt := 0; attempt < r.cfg.MaxAttempts; attempt++ {
		r.logger.Info("getting data from inverter", "attempt", attempt)

		resp, err := r.getStatus(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		if err == nil {
			last = resp
			if !resp.IsError() {
				r.logger.Info("inverter responded",
					"attempt", attempt,
					"body_prefix", preview(string(resp.Body())),
				)
				break attempts
			}

			r.logger.Warn("inverter returned error status",
				"attempt", attempt,
				"kind", KindHTTPStatus.String(),
				"status", resp.Status(),
			)
			if login := r.relogin(ctx); login != nil {
				last = login
			}
			continue
		}

		kind := classify(err)
		if kind == KindMalformed {
			r.logger.Error("malformed response from inverter, retrying",
				"attempt", attempt,
				"kind", kind.String(),
				"error", err,
			)
			continue
		}

		r.logger.Warn("cannot reach inverter",
			"attempt", attempt,
			"kind", kind.String(),
			"error", err,
		)
		resp, done, err := r.waitOnline(ctx)
		if err != nil {
			return nil, err
		}
		if resp != nil {
			last = resp
		}
		if done {
			break attempts
		}
	}

	return last, nil
}

// relogin makes a best-effort request to the login page. Its failure is
// swallowed; a response it returns is handed back to become the last response.
func (r *Reader) relogin(ctx context.Context) *resty.Response {
	r.logger.Info("attempting re-login")

	resp, err := r.getLogin(ctx)
	if err != nil {
		r.logger.Debug("re-login failed", "error", err)
		return nil
	}
	return resp
}

// waitOnline blocks until the inverter accepts a login, retrying on the
// offline schedule without limit. It then makes one status request.
// done reports whether that request produced a response; resp is the most
// recent response seen. err is non-nil only on ctx cancellation.
func (r *Reader) waitOnline(ctx context.Context) (resp *resty.Response, done bool, err error) {
	for {
		r.logger.Warn("connection lost, inverter is offline",
			"retry_in", r.offline.Remaining().Round(time.Second).String(),
		)
		if err := r.offline.Wait(ctx); err != nil {
			return nil, false, err
		}

		r.logger.Info("retrying inverter login")
		login, loginErr := r.getLogin(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, false, ctxErr
		}

		if loginErr != nil {
			if kind := classify(loginErr); kind == KindConnection {
				r.logger.Error("inverter still unreachable", "kind", kind.String(), "error", loginErr)
			} else {
				r.logger.Error("inverter login failed", "kind", kind.String(), "error", loginErr)
			}
			continue
		}

		resp = login
		if login.IsError() {
			r.logger.Error("inverter login failed", "kind", KindHTTPStatus.String(), "status", login.Status())
			continue
		}

		r.logger.Info("inverter is back online")
		break
	}

	status, err := r.getStatus(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, false, ctxErr
	}
	if err != nil {
		r.logger.Warn("status request after login failed", "kind", classify(err).String(), "error", err)
		return resp, false, nil
	}
	return status, true, nil
}

func (r *Reader) getStatus(ctx context.Context) (*resty.Response, error) {
	return r.client.R().
		SetContext(ctx).
		SetBasicAuth(r.cfg.StatusUser, r.cfg.StatusPassword).
		Get(r.cfg.StatusURL)
}

func (r *Reader) getLogin(ctx context.Context) (*resty.Response, error) {
	return r.client.R().
		SetContext(ctx).
		SetBasicAuth(r.cfg.LoginUser, r.cfg.LoginPassword).
		Get(r.cfg.LoginURL)
}

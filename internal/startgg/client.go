// Package startgg is the GraphQL client for the start.gg tournament API.
// Requests are rate limited, guarded by a circuit breaker and collapsed with
// singleflight when identical reads are in flight.
package startgg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/sony/gobreaker"
	"github.com/wukrit/fightrise-bot-sub001/pkg/attr"
	"github.com/wukrit/fightrise-bot-sub001/pkg/metrics"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	defaultAPIURL   = "https://api.start.gg/gql/alpha"
	maxResponseSize = 6 << 20
)

// Config configures a Client.
type Config struct {
	APIURL            string
	Token             string
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
	// HTTPClient overrides the transport. Its RoundTripper is wrapped with
	// the bearer token source.
	HTTPClient *http.Client
}

// Client talks to start.gg.
type Client struct {
	httpClient *http.Client
	apiURL     string
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	flight     singleflight.Group
	timeout    time.Duration
	validate   *validator.Validate
	logger     *slog.Logger
	metrics    metrics.RemoteMetrics
}

// NewClient builds a Client from cfg.
func NewClient(cfg Config, logger *slog.Logger, m metrics.RemoteMetrics) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.NewNoop()
	}

	apiURL := strings.TrimSpace(cfg.APIURL)
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 80.0 / 60.0
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	base := http.DefaultTransport
	if cfg.HTTPClient != nil && cfg.HTTPClient.Transport != nil {
		base = cfg.HTTPClient.Transport
	}
	httpClient := &http.Client{
		Timeout: timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"}),
			Base:   base,
		},
	}

	c := &Client{
		httpClient: httpClient,
		apiURL:     apiURL,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		timeout:    timeout,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		logger:     logger,
		metrics:    m,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "startgg",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Only transport trouble opens the breaker. A rejected token or a
		// missing tournament is a healthy answer from the API.
		IsSuccessful: func(err error) bool {
			return err == nil || !IsTransient(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				attr.String("breaker", name),
				attr.String("from", from.String()),
				attr.String("to", to.String()),
			)
		},
	})
	return c
}

// FetchTournament loads a tournament and its events by slug.
func (c *Client) FetchTournament(ctx context.Context, slug string) (*Tournament, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, fmt.Errorf("%w: empty slug", ErrNotFound)
	}
	data, err := query[tournamentData](ctx, c, "fetch_tournament", tournamentQuery, map[string]any{"slug": slug}, true)
	if err != nil {
		return nil, err
	}
	if data.Tournament == nil {
		return nil, fmt.Errorf("%w: tournament %q", ErrNotFound, slug)
	}

	src := data.Tournament
	t := &Tournament{
		ID:     src.ID.String(),
		Slug:   src.Slug,
		Name:   src.Name,
		Events: make([]Event, 0, len(src.Events)),
	}
	if src.State != nil {
		t.State = TournamentState(*src.State)
	}
	if src.IsRegistrationOpen != nil {
		t.RegistrationOpen = *src.IsRegistrationOpen
	}
	if src.RegistrationClosesAt != nil {
		closes := time.Unix(*src.RegistrationClosesAt, 0).UTC()
		t.RegistrationClosesAt = &closes
	}
	for _, e := range src.Events {
		ev := Event{ID: e.ID.String(), Name: e.Name, State: e.State}
		if e.NumEntrants != nil {
			ev.NumEntrants = *e.NumEntrants
		}
		t.Events = append(t.Events, ev)
	}

	if err := c.validate.StructCtx(ctx, t); err != nil {
		return nil, fmt.Errorf("%w: tournament %q: %v", ErrInvalidResponse, slug, err)
	}
	return t, nil
}

// FetchSets loads one page of sets for an event. Pages start at 1.
func (c *Client) FetchSets(ctx context.Context, eventID string, page, perPage int) (*SetPage, error) {
	vars := map[string]any{"eventId": eventID, "page": page, "perPage": perPage}
	data, err := query[eventSetsData](ctx, c, "fetch_sets", eventSetsQuery, vars, true)
	if err != nil {
		return nil, err
	}
	if data.Event == nil {
		return nil, fmt.Errorf("%w: event %s", ErrNotFound, eventID)
	}

	out := &SetPage{}
	if data.Event.Sets == nil {
		return out, nil
	}
	out.TotalPages = data.Event.Sets.PageInfo.TotalPages
	out.Items = make([]Set, 0, len(data.Event.Sets.Nodes))
	for _, n := range data.Event.Sets.Nodes {
		s := Set{
			ID:         n.ID.String(),
			Identifier: n.Identifier,
			RoundText:  n.FullRoundText,
		}
		if n.Round != nil {
			s.Round = *n.Round
		}
		if n.State != nil {
			s.State = SetState(*n.State)
		}
		for i, slot := range n.Slots {
			if i >= len(s.Slots) {
				break
			}
			if slot.Entrant != nil {
				s.Slots[i].EntrantID = slot.Entrant.ID.String()
				s.Slots[i].Name = slot.Entrant.Name
			}
			if slot.Standing != nil && slot.Standing.Stats != nil &&
				slot.Standing.Stats.Score != nil && slot.Standing.Stats.Score.Value != nil {
				score := int(math.Round(*slot.Standing.Stats.Score.Value))
				s.Slots[i].Score = &score
			}
		}
		out.Items = append(out.Items, s)
	}

	if err := c.validate.StructCtx(ctx, out); err != nil {
		return nil, fmt.Errorf("%w: sets for event %s: %v", ErrInvalidResponse, eventID, err)
	}
	return out, nil
}

// FetchEntrants loads one page of entrants for an event with their linked
// Discord accounts.
func (c *Client) FetchEntrants(ctx context.Context, eventID string, page, perPage int) (*EntrantPage, error) {
	vars := map[string]any{"eventId": eventID, "page": page, "perPage": perPage}
	data, err := query[eventEntrantsData](ctx, c, "fetch_entrants", eventEntrantsQuery, vars, true)
	if err != nil {
		return nil, err
	}
	if data.Event == nil {
		return nil, fmt.Errorf("%w: event %s", ErrNotFound, eventID)
	}

	out := &EntrantPage{}
	if data.Event.Entrants == nil {
		return out, nil
	}
	out.TotalPages = data.Event.Entrants.PageInfo.TotalPages
	out.Items = make([]Entrant, 0, len(data.Event.Entrants.Nodes))
	for _, n := range data.Event.Entrants.Nodes {
		e := Entrant{ID: n.ID.String(), Name: n.Name}
		for _, p := range n.Participants {
			if p.User == nil {
				continue
			}
			for _, a := range p.User.Authorizations {
				if a.ExternalID != "" {
					e.DiscordIDs = append(e.DiscordIDs, a.ExternalID)
				}
			}
		}
		out.Items = append(out.Items, e)
	}

	if err := c.validate.StructCtx(ctx, out); err != nil {
		return nil, fmt.Errorf("%w: entrants for event %s: %v", ErrInvalidResponse, eventID, err)
	}
	return out, nil
}

// ReportResult reports the winner of a set.
func (c *Client) ReportResult(ctx context.Context, setID, winnerEntrantID string) error {
	if setID == "" || winnerEntrantID == "" {
		return fmt.Errorf("%w: set and winner ids are required", ErrInvalidResponse)
	}
	vars := map[string]any{"setId": setID, "winnerId": winnerEntrantID}
	data, err := query[reportSetData](ctx, c, "report_result", reportSetMutation, vars, false)
	if err != nil {
		return err
	}
	if len(data.ReportBracketSet) == 0 {
		return fmt.Errorf("%w: report for set %s returned no sets", ErrInvalidResponse, setID)
	}
	return nil
}

// query runs a GraphQL operation and decodes its data. Reads with identical
// variables share a single request.
func query[T any](ctx context.Context, c *Client, op, q string, vars map[string]any, read bool) (T, error) {
	var zero T
	start := time.Now()

	body, err := sonic.Marshal(graphQLRequest{Query: q, Variables: vars})
	if err != nil {
		return zero, fmt.Errorf("startgg: encode %s: %w", op, err)
	}

	var raw []byte
	if read {
		// The shared request must not die with whichever caller started it.
		ch := c.flight.DoChan(op+":"+string(body), func() (any, error) {
			shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
			defer cancel()
			return c.execute(shared, body)
		})
		select {
		case res := <-ch:
			err = res.Err
			if res.Val != nil {
				raw = res.Val.([]byte)
			}
		case <-ctx.Done():
			err = fmt.Errorf("startgg %s: %w", op, ctx.Err())
		}
	} else {
		raw, err = c.execute(ctx, body)
	}
	if err == nil {
		var env graphQLResponse[T]
		if derr := sonic.Unmarshal(raw, &env); derr != nil {
			err = fmt.Errorf("%w: decode %s: %v", ErrInvalidResponse, op, derr)
		} else if gerr := envelopeError(env.Errors, env.Success, env.Message); gerr != nil {
			err = fmt.Errorf("startgg %s: %w", op, gerr)
		} else {
			c.metrics.RecordRemoteRequest(ctx, op, "success", time.Since(start))
			return env.Data, nil
		}
	}

	c.metrics.RecordRemoteRequest(ctx, op, outcome(err), time.Since(start))
	c.logger.WarnContext(ctx, "start.gg request failed",
		attr.String("operation", op),
		attr.Error(err),
	)
	return zero, err
}

func (c *Client) execute(ctx context.Context, body []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("startgg: rate limiter: %w", err)
	}
	v, err := c.breaker.Execute(func() (any, error) {
		return c.post(ctx, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *Client) post(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("startgg: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrTransient, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrTransient, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: status %d: %s", ErrInvalidResponse, resp.StatusCode, snippet(raw))
	}
	return raw, nil
}

func envelopeError(errs []graphQLError, success *bool, message string) error {
	if success != nil && !*success {
		return classifyMessage(message)
	}
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		if err := classifyMessage(e.Message); !errors.Is(err, ErrInvalidResponse) {
			return err
		}
		msgs = append(msgs, e.Message)
	}
	return fmt.Errorf("%w: %s", ErrInvalidResponse, strings.Join(msgs, "; "))
}

func classifyMessage(msg string) error {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "invalid authentication token"),
		strings.Contains(lower, "unauthorized"):
		return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
	case strings.Contains(lower, "rate limit"):
		return fmt.Errorf("%w: %s", ErrTransient, msg)
	case strings.Contains(lower, "not found"):
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	default:
		return fmt.Errorf("%w: %s", ErrInvalidResponse, msg)
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case IsAuthError(err):
		return "unauthorized"
	case IsTransient(err):
		return "transient"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func snippet(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		return s[:200] + "..." + strconv.Itoa(len(s)-200) + " more bytes"
	}
	return s
}

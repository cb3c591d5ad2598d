// Package eventsapi adapts the generated Workspace Events client to the
// subscription reconciler.
package eventsapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	workspaceevents "google.golang.org/api/workspaceevents/v1"
)

// MaxTTL asks the API for the longest lifetime it allows.
const MaxTTL = "0s"

// ErrOperationPending is returned when a long running operation has not
// completed by the time the API answered. The subscription may still appear.
var ErrOperationPending = errors.New("eventsapi: operation not done")

// Subscription is the remote record.
type Subscription struct {
	Name           string
	UID            string
	TargetResource string
	EventTypes     []string
	Topic          string
	State          string
	ExpireTime     time.Time
}

type CreateRequest struct {
	TargetResource string
	EventTypes     []string
	Topic          string
	TTL            time.Duration
}

type Config struct {
	// Endpoint overrides the service root, e.g. "http://127.0.0.1:9000/".
	// Empty uses the library default.
	Endpoint string
	Timeout  time.Duration
	// Transport is the base round tripper; nil uses http.DefaultTransport.
	Transport http.RoundTripper
}

type Client struct {
	endpoint  string
	timeout   time.Duration
	transport http.RoundTripper
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{endpoint: cfg.Endpoint, timeout: timeout, transport: cfg.Transport}
}

// service builds a generated client that acts as the owner of token.
func (c *Client) service(ctx context.Context, token string) (*workspaceevents.Service, error) {
	httpClient := &http.Client{
		Timeout: c.timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   c.transport,
		},
	}
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}
	return workspaceevents.NewService(ctx, opts...)
}

func (c *Client) CreateSubscription(ctx context.Context, token string, req CreateRequest) (Subscription, error) {
	svc, err := c.service(ctx, token)
	if err != nil {
		return Subscription{}, err
	}
	// expireTime is left unset: it is mutually exclusive with ttl.
	op, err := svc.Subscriptions.Create(&workspaceevents.Subscription{
		TargetResource:       req.TargetResource,
		EventTypes:           req.EventTypes,
		NotificationEndpoint: &workspaceevents.NotificationEndpoint{PubsubTopic: req.Topic},
		PayloadOptions:       &workspaceevents.PayloadOptions{IncludeResource: false},
		Ttl:                  formatTTL(req.TTL),
	}).Context(ctx).Do()
	if err != nil {
		return Subscription{}, fromGoogleAPI(err)
	}
	return operationSubscription(op)
}

// ListSubscriptions returns a single page of subscriptions matching filter.
func (c *Client) ListSubscriptions(ctx context.Context, token, filter string, pageSize int) ([]Subscription, error) {
	svc, err := c.service(ctx, token)
	if err != nil {
		return nil, err
	}
	call := svc.Subscriptions.List().Filter(filter).Context(ctx)
	if pageSize > 0 {
		call = call.PageSize(int64(pageSize))
	}
	resp, err := call.Do()
	if err != nil {
		return nil, fromGoogleAPI(err)
	}
	out := make([]Subscription, 0, len(resp.Subscriptions))
	for _, s := range resp.Subscriptions {
		out = append(out, fromRemote(s))
	}
	return out, nil
}

// RenewSubscription extends the subscription to the maximum TTL.
func (c *Client) RenewSubscription(ctx context.Context, token, name string) (Subscription, error) {
	svc, err := c.service(ctx, token)
	if err != nil {
		return Subscription{}, err
	}
	op, err := svc.Subscriptions.Patch(name, &workspaceevents.Subscription{Ttl: MaxTTL}).
		UpdateMask("ttl").
		Context(ctx).
		Do()
	if err != nil {
		return Subscription{}, fromGoogleAPI(err)
	}
	return operationSubscription(op)
}

// DeleteSubscription removes name. A subscription that is already gone is
// not an error.
func (c *Client) DeleteSubscription(ctx context.Context, token, name string) error {
	svc, err := c.service(ctx, token)
	if err != nil {
		return err
	}
	op, err := svc.Subscriptions.Delete(name).AllowMissing(true).Context(ctx).Do()
	if err != nil {
		err = fromGoogleAPI(err)
		if IsNotFound(err) {
			return nil
		}
		return err
	}
	if op.Done && op.Error != nil {
		if opErr := operationError(op.Error); !IsNotFound(opErr) {
			return opErr
		}
	}
	return nil
}

func fromRemote(s *workspaceevents.Subscription) Subscription {
	if s == nil {
		return Subscription{}
	}
	out := Subscription{
		Name:           s.Name,
		UID:            s.Uid,
		TargetResource: s.TargetResource,
		EventTypes:     s.EventTypes,
		State:          s.State,
	}
	if s.NotificationEndpoint != nil {
		out.Topic = s.NotificationEndpoint.PubsubTopic
	}
	if t, err := time.Parse(time.RFC3339Nano, s.ExpireTime); err == nil {
		out.ExpireTime = t
	}
	return out
}

func formatTTL(d time.Duration) string {
	if d <= 0 {
		return MaxTTL
	}
	return strconv.FormatInt(int64(d/time.Second), 10) + "s"
}

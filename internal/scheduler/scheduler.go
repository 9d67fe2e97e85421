// Package scheduler runs the daily digest: on a cron schedule it asks the
// agent for a summary of open todos and delivers the reply.
package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/chris/todoagent/internal/logging"
)

// DigestPrompt is submitted to the agent on every digest run.
const DigestPrompt = "List my todos that are not completed yet and summarize what is due today."

// Submitter runs one request and returns the reply text.
type Submitter interface {
	Submit(ctx context.Context, input string) (string, error)
}

type Scheduler struct {
	cron       *cron.Cron
	agent      Submitter
	webhookURL string
	dmUser     func() (string, bool)
	dmSend     func(userID, content string) error
	httpClient *http.Client
	log        zerolog.Logger

	mu      sync.Mutex
	entryID cron.EntryID
}

type Option func(*Scheduler)

// WithDirectMessages delivers digests to the user returned by lookup,
// falling back to the webhook when there is none or sending fails.
func WithDirectMessages(lookup func() (string, bool), send func(userID, content string) error) Option {
	return func(s *Scheduler) {
		s.dmUser = lookup
		s.dmSend = send
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(s *Scheduler) { s.httpClient = c }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

func New(ag Submitter, webhookURL string, opts ...Option) *Scheduler {
	s := &Scheduler{
		cron:       cron.New(),
		agent:      ag,
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        logging.Component("scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start registers the digest under a standard five-field cron expression
// and starts the cron runner.
func (s *Scheduler) Start(spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cron.AddFunc(spec, s.RunDigest)
	if err != nil {
		return fmt.Errorf("invalid digest schedule %q: %w", spec, err)
	}
	s.entryID = id
	s.cron.Start()

	s.log.Info().Str("cron", spec).Time("next", s.cron.Entry(id).Next).Msg("scheduler started")
	return nil
}

// Stop halts the cron runner and waits for a running digest to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunDigest submits the digest prompt once and delivers the reply.
func (s *Scheduler) RunDigest() {
	reply, err := s.agent.Submit(context.Background(), DigestPrompt)
	if err != nil {
		s.log.Warn().Err(err).Msg("digest skipped")
		return
	}
	via, err := s.deliver(reply)
	if err != nil {
		s.log.Error().Err(err).Msg("digest not delivered")
		return
	}
	s.log.Info().Str("via", via).Msg("digest delivered")
}

var errNoDelivery = errors.New("no delivery method available (no DM user and no webhook)")

// deliver sends content by DM when a user is known, otherwise to the
// webhook. It reports which route succeeded.
func (s *Scheduler) deliver(content string) (string, error) {
	if s.dmUser != nil && s.dmSend != nil {
		if userID, ok := s.dmUser(); ok {
			if err := s.dmSend(userID, content); err != nil {
				s.log.Warn().Err(err).Str("user", userID).Msg("DM send failed")
			} else {
				return "dm", nil
			}
		}
	}
	if s.webhookURL == "" {
		return "", errNoDelivery
	}
	if err := s.postWebhook(content); err != nil {
		return "", err
	}
	return "webhook", nil
}

func (s *Scheduler) postWebhook(content string) error {
	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return fmt.Errorf("encoding webhook payload: %w", err)
	}
	resp, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("posting webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

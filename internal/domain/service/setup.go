package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"
	"myhome-bridge/internal/domain/model"
	"myhome-bridge/internal/ports"
)

const defaultUsername = "admin"

// SetupService validates user or discovery input and creates hub entries.
type SetupService struct {
	repo      ports.EntryRepository
	newClient ports.HubClientFactory
	logger    zerolog.Logger
	onCreated func(ctx context.Context, entry *model.HubEntry)
	onUpdated func(ctx context.Context, entry *model.HubEntry)
}

func NewSetupService(repo ports.EntryRepository, newClient ports.HubClientFactory, logger zerolog.Logger) *SetupService {
	return &SetupService{
		repo:      repo,
		newClient: newClient,
		logger:    logger.With().Str("component", "setup").Logger(),
	}
}

// OnEntryCreated sets a callback run after a new entry has been saved.
func (s *SetupService) OnEntryCreated(fn func(ctx context.Context, entry *model.HubEntry)) {
	s.onCreated = fn
}

// OnEntryUpdated sets a callback run after an existing entry was saved with
// a new host.
func (s *SetupService) OnEntryUpdated(fn func(ctx context.Context, entry *model.HubEntry)) {
	s.onUpdated = fn
}

// ValidateInput checks that the hub answers and accepts the credentials.
func (s *SetupService) ValidateInput(ctx context.Context, in model.SetupInput) error {
	s.logger.Debug().Str("username", in.Username).Str("host", in.Host).Msg("validating account")
	session := NewHubSession(in.Host, s.newClient(in.Host), s.logger)
	defer session.Close()

	if _, ok := session.ProbeIdentity(ctx); !ok {
		return ErrCannotConnect
	}
	ok, err := session.Authenticate(ctx, in.Username, in.Password)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidAuth
	}
	return nil
}

func (s *SetupService) serialForHost(ctx context.Context, host string) (string, error) {
	client := s.newClient(host)
	defer client.Close()

	serial, err := client.ServerSerial(ctx)
	if err != nil {
		if errors.Is(err, ports.ErrTransport) {
			return "", fmt.Errorf("%w: %w", ErrCannotConnect, err)
		}
		return "", err
	}
	return serial, nil
}

// SetupUser runs the manual setup step for a host entered by the user.
func (s *SetupService) SetupUser(ctx context.Context, in model.SetupInput) model.SetupResult {
	if in.Username == "" {
		in.Username = defaultUsername
	}
	s.logger.Debug().
		Str("host", in.Host).
		Str("username", in.Username).
		Int("password_len", len(in.Password)).
		Msg("user configuration")

	return s.setup(ctx, in)
}

// SetupDiscovered runs setup for a hub found by SSDP. The host is taken from
// the LOCATION url of the discovery response.
func (s *SetupService) SetupDiscovered(ctx context.Context, location string, in model.SetupInput) model.SetupResult {
	u, err := url.Parse(location)
	if err != nil || u.Hostname() == "" {
		s.logger.Debug().Str("location", location).Msg("discovery location without host")
		return model.SetupResult{Error: model.SetupErrorCannotConnect}
	}
	in.Host = u.Hostname()
	if in.Username == "" {
		in.Username = defaultUsername
	}
	return s.setup(ctx, in)
}

func (s *SetupService) setup(ctx context.Context, in model.SetupInput) model.SetupResult {
	serial, err := s.serialForHost(ctx, in.Host)
	if err != nil {
		return s.formError(err)
	}
	s.logger.Debug().Str("serial", serial).Msg("serial retrieved")

	if err := s.abortIfConfigured(ctx, serial, in.Host); err != nil {
		if errors.Is(err, ErrAlreadyConfigured) {
			return model.SetupResult{Abort: model.SetupAbortAlreadyConfigured}
		}
		return s.formError(err)
	}

	if err := s.ValidateInput(ctx, in); err != nil {
		return s.formError(err)
	}

	entry := &model.HubEntry{
		Serial:   serial,
		Title:    model.EntryTitle(serial),
		Host:     in.Host,
		Username: in.Username,
		Password: in.Password,
	}
	if err := s.repo.Save(ctx, entry); err != nil {
		return s.formError(err)
	}
	s.logger.Info().Str("serial", serial).Str("host", in.Host).Msg("hub entry created")

	if s.onCreated != nil {
		s.onCreated(ctx, entry)
	}
	return model.SetupResult{Entry: entry}
}

// abortIfConfigured returns ErrAlreadyConfigured when the serial has an
// entry, updating that entry's host first and reporting the update.
func (s *SetupService) abortIfConfigured(ctx context.Context, serial, host string) error {
	existing, err := s.repo.Get(ctx, serial)
	if errors.Is(err, ports.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.Host != host {
		updated := *existing
		updated.Host = host
		if err := s.repo.Save(ctx, &updated); err != nil {
			return err
		}
		s.logger.Info().Str("serial", serial).Str("host", host).Msg("hub entry host updated")
		if s.onUpdated != nil {
			s.onUpdated(ctx, &updated)
		}
	}
	return ErrAlreadyConfigured
}

func (s *SetupService) formError(err error) model.SetupResult {
	switch {
	case errors.Is(err, ErrCannotConnect):
		return model.SetupResult{Error: model.SetupErrorCannotConnect}
	case errors.Is(err, ErrInvalidAuth):
		return model.SetupResult{Error: model.SetupErrorInvalidAuth}
	default:
		s.logger.Error().Err(err).Msg("unexpected exception")
		return model.SetupResult{Error: model.SetupErrorUnknown}
	}
}

var _ ports.SetupPort = (*SetupService)(nil)

// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package privatedns

import (
	"fmt"
	"log/slog"
)

// rootUID is the UID that is privileged by default.
const rootUID = 0

// Caller identifies who is asking to change a configuration.
type Caller struct {
	UID int
	PID int
}

// ResolverConfig is the Private DNS part of a network's resolver
// configuration.
type ResolverConfig struct {
	NetID         int
	Mark          uint32
	Servers       []string
	TLSName       string
	CACertificate string
}

// Service is the caller-facing entry point in front of a [Coordinator].
// It enforces that only privileged callers may override the CA used to
// verify strict-mode servers.
type Service struct {
	coordinator *Coordinator
	privileged  map[int]struct{}
	logger      *slog.Logger
}

// ServiceOption is a functional option for configuring a [Service].
type ServiceOption func(*Service)

// WithPrivilegedUIDs replaces the set of UIDs allowed to pass a CA
// certificate override. The default is root only.
func WithPrivilegedUIDs(uids ...int) ServiceOption {
	return func(s *Service) {
		s.privileged = make(map[int]struct{}, len(uids))
		for _, uid := range uids {
			s.privileged[uid] = struct{}{}
		}
	}
}

// WithServiceLogger sets the logger of the service.
func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a [Service] backed by c.
func NewService(c *Coordinator, opts ...ServiceOption) *Service {
	s := &Service{
		coordinator: c,
		privileged:  map[int]struct{}{rootUID: {}},
		logger:      c.logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsPrivileged reports whether caller may override the CA certificate.
func (s *Service) IsPrivileged(caller Caller) bool {
	_, ok := s.privileged[caller.UID]
	return ok
}

// SetResolverConfiguration applies cfg on behalf of caller. A CA
// certificate override from a non-privileged caller is rejected with
// [ErrPermissionDenied] before anything changes.
func (s *Service) SetResolverConfiguration(caller Caller, cfg ResolverConfig) error {
	if cfg.CACertificate != "" && !s.IsPrivileged(caller) {
		s.logger.Warn("rejected CA certificate override from unprivileged caller",
			"netid", cfg.NetID, "uid", caller.UID, "pid", caller.PID)
		return fmt.Errorf("%w: uid %d may not override the CA certificate", ErrPermissionDenied, caller.UID)
	}
	return s.coordinator.Set(cfg.NetID, cfg.Mark, cfg.Servers, cfg.TLSName, cfg.CACertificate)
}

// GetStatus returns the Private DNS status of a network.
func (s *Service) GetStatus(netID int) Status {
	return s.coordinator.GetStatus(netID)
}

// DestroyNetwork drops all Private DNS state of a network.
func (s *Service) DestroyNetwork(netID int) {
	s.coordinator.Clear(netID)
}

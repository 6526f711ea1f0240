package provider

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/fluxpay/pspcore/internal/domain"
)

// Sim is an in-memory rail provider. Submissions are acknowledged
// immediately with a deterministic provider reference; status can be
// scripted per payee reference to drive return and failure paths.
type Sim struct {
	name   string
	rail   domain.Rail
	logger zerolog.Logger

	mu        sync.Mutex
	submitted map[string]domain.InstructionStatus
	scripted  map[string]error
}

// NewACHSim creates a simulated ACH gateway.
func NewACHSim(logger zerolog.Logger) *Sim {
	return newSim("ach-sim", domain.RailACH, logger)
}

// NewFedNowSim creates a simulated FedNow gateway.
func NewFedNowSim(logger zerolog.Logger) *Sim {
	return newSim("fednow-sim", domain.RailFedNow, logger)
}

func newSim(name string, rail domain.Rail, logger zerolog.Logger) *Sim {
	return &Sim{
		name:      name,
		rail:      rail,
		logger:    logger.With().Str("provider", name).Logger(),
		submitted: make(map[string]domain.InstructionStatus),
		scripted:  make(map[string]error),
	}
}

// Name returns the provider name.
func (s *Sim) Name() string { return s.name }

// Rail returns the rail this provider serves.
func (s *Sim) Rail() domain.Rail { return s.rail }

// ScriptError makes the next submission for the payee reference fail with
// the given error. Used to exercise retry and failure paths.
func (s *Sim) ScriptError(payeeRef string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scripted[payeeRef] = err
}

// Submit acknowledges the instruction and returns the provider reference.
func (s *Sim) Submit(ctx context.Context, instr *domain.PaymentInstruction) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.scripted[instr.PayeeAccountReference]; ok {
		delete(s.scripted, instr.PayeeAccountReference)

		s.logger.Warn().
			Str("instruction_id", instr.ID).
			Err(err).
			Msg("scripted submission failure")

		return "", err
	}

	ref := s.name + "-" + instr.ID

	s.submitted[ref] = domain.InstructionStatusSubmitted

	s.logger.Info().
		Str("instruction_id", instr.ID).
		Str("provider_reference", ref).
		Str("amount", instr.Amount.String()).
		Msg("instruction submitted")

	return ref, nil
}

// PollStatus reports the last status the simulator recorded for the
// provider reference.
func (s *Sim) PollStatus(ctx context.Context, providerRef string) (domain.InstructionStatus, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	status, ok := s.submitted[providerRef]
	if !ok {
		return "", NewPermanentError(s.name, "unknown_ref", "no submission with reference "+providerRef)
	}

	return status, nil
}

// SetStatus records a provider-side status change, as a real gateway's
// backend would ahead of a callback or feed record.
func (s *Sim) SetStatus(providerRef string, status domain.InstructionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.submitted[providerRef] = status
}

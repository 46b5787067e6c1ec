package accounting

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/dropDatabas3/authledger/internal/domain/repository"
	"github.com/dropDatabas3/authledger/internal/jobs"
	"github.com/dropDatabas3/authledger/internal/observability/logger"
)

// JobTypeAuthEvent es el discriminador de tipo de los jobs de accounting.
const JobTypeAuthEvent = "authentication-event"

// Mode decide cómo se persiste un evento entrante.
type Mode string

const (
	// ModeSync resuelve el evento en el request.
	ModeSync Mode = "sync"
	// ModeAsync encola el evento para el job runner.
	ModeAsync Mode = "async"
)

// Service es la puerta de entrada del accounting: recibe eventos y los
// persiste en línea o los encola, según el modo configurado.
type Service struct {
	resolver *Resolver
	queue    *jobs.Queue
	mode     Mode
	log      *zap.Logger
}

func NewService(resolver *Resolver, queue *jobs.Queue, mode Mode) *Service {
	if mode != ModeAsync {
		mode = ModeSync
	}
	return &Service{
		resolver: resolver,
		queue:    queue,
		mode:     mode,
		log:      logger.Named("accounting.service"),
	}
}

// Submit procesa un evento según el modo.
func (s *Service) Submit(ctx context.Context, ev *Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}

	if s.mode == ModeAsync {
		payload, err := json.Marshal(ev)
		if err != nil {
			return &repository.UnexpectedValueError{What: "event is not serializable"}
		}
		return s.queue.Enqueue(ctx, JobTypeAuthEvent, payload)
	}

	_, err := s.resolver.Record(ctx, ev)
	return err
}

// Consumer retorna el consumer que el runner registra para drenar los
// eventos encolados por Submit.
func (s *Service) Consumer() jobs.Consumer {
	return jobs.ConsumerFunc(func(ctx context.Context, job *repository.Job) error {
		var ev Event
		if err := json.Unmarshal(job.Payload, &ev); err != nil {
			return &repository.UnexpectedValueError{What: "job payload is not a valid event"}
		}
		linkID, err := s.resolver.Record(ctx, &ev)
		if err != nil {
			return err
		}
		s.log.Debug("authentication event recorded",
			logger.JobID(job.ID), logger.RowID(linkID))
		return nil
	})
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/emrgen/pidkeeper/internal/metrics"
	"github.com/emrgen/pidkeeper/internal/model"
	"github.com/emrgen/pidkeeper/internal/pid"
	"github.com/emrgen/pidkeeper/internal/queue"
	"github.com/emrgen/pidkeeper/internal/store"
)

// Exception is the structured failure descriptor carried in a Result. The
// engine reports failures in-band rather than through raised errors so batch
// drivers keep processing subsequent documents.
type Exception struct {
	Action string `json:"action"`
	Type   string `json:"type"`
	Msg    string `json:"msg"`
}

// Result is a registration outcome: the normalized input plus exactly one of
// {Registered, Created, Exception}. The one exception to "exactly one": an
// ambiguous match is recorded in Exception for observability while the call
// still proceeds to Created.
type Result struct {
	Input      pid.Input         `json:"input"`
	Registered *model.Document   `json:"registered,omitempty"`
	Created    *model.Document   `json:"created,omitempty"`
	Warning    map[string]string `json:"warning,omitempty"`
	Exception  *Exception        `json:"exception,omitempty"`
}

// NewRegistrationService wires the registration coordinator. generate may be
// nil to use the default v3 generator; events may be nil to disable event
// publishing.
func NewRegistrationService(s store.Store, generate pid.Generator, events queue.EventQueue) *RegistrationService {
	if generate == nil {
		generate = pid.NewV3
	}
	if events == nil {
		events = queue.NewNop()
	}
	return &RegistrationService{
		store:    s,
		generate: generate,
		events:   events,
	}
}

// RegistrationService decides, per submitted document, whether it is already
// registered (return the canonical record unchanged) or new (mint or recover
// a v3 and persist one row). The whole match -> recover -> allocate ->
// persist sequence runs inside a single transaction.
type RegistrationService struct {
	store    store.Store
	generate pid.Generator
	events   queue.EventQueue
}

// Register runs the full registration state machine for one document. It
// always returns a Result, never an error: every failure kind ends up in
// Result.Exception.
func (s *RegistrationService) Register(ctx context.Context, raw pid.Raw) Result {
	in := pid.Normalize(raw)
	res := Result{Input: in}

	if in.V2 == "" {
		res.Exception = &Exception{
			Action: "register: validating input",
			Type:   exceptionType(ErrMissingV2),
			Msg:    ErrMissingV2.Error(),
		}
		metrics.RegistrationsFailed.Inc()
		return res
	}

	err := s.store.Transaction(ctx, func(tx store.Store) error {
		return s.register(ctx, tx, in, &res)
	})
	if err != nil {
		// the transaction rolled back; nothing was persisted
		res.Created = nil
		res.Exception = &Exception{
			Action: "register: registering document",
			Type:   exceptionType(err),
			Msg:    err.Error(),
		}
		metrics.RegistrationsFailed.Inc()
		return res
	}

	s.report(ctx, &res)
	return res
}

func (s *RegistrationService) register(ctx context.Context, tx store.Store, in pid.Input, res *Result) error {
	m := &matcher{store: tx}

	found, err := m.findIssue(ctx, in)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRegistration, err)
	}

	var recovered *Match
	switch {
	case found == nil:
		recovered, err = m.recover(ctx, in)
		if err != nil {
			if !errors.Is(err, ErrMoreThanOneRecord) {
				return fmt.Errorf("%w: %v", ErrRegistration, err)
			}
			// better to create a new record and reconcile the ambiguity
			// later than to recover the wrong one
			logrus.Warnf("ambiguous match for v2=%s: %v", in.V2, err)
			metrics.AmbiguousMatches.Inc()
			res.Exception = &Exception{
				Action: "register: querying record",
				Type:   exceptionType(err),
				Msg:    err.Error(),
			}
			recovered = nil
		}
	case found.V2 == in.V2:
		res.Registered = found
		return nil
	default:
		// same issue under a new v2: the new row keeps the old canonical
		// v3, so one v3 now has two v2 aliases across time
		recovered = &Match{
			Source:   SourceCurrent,
			V3:       found.V3,
			V3Origin: found.V3Origin,
			AOP:      found.AOP,
		}
	}

	doc := buildDocument(in, recovered)
	if doc.V3 == "" || recovered == nil || recovered.V3 == "" {
		a := &allocator{store: tx, generate: s.generate}
		v3, origin, err := a.allocate(ctx, doc.V3)
		if err != nil {
			if errors.Is(err, ErrGenerator) {
				return err
			}
			return fmt.Errorf("%w: %v", ErrRegistration, err)
		}
		doc.V3 = v3
		if origin != "" {
			doc.V3Origin = origin
		}
	}

	if err := tx.CreateDocument(ctx, doc); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return fmt.Errorf("%w: %v", ErrAlreadyRegistered, err)
		}
		return fmt.Errorf("%w: %v", ErrRegistration, err)
	}

	res.Created = doc
	return nil
}

// buildDocument seeds a new row from the normalized input, with the recovered
// fragment taking precedence over caller-supplied v3/aop values.
func buildDocument(in pid.Input, recovered *Match) *model.Document {
	doc := &model.Document{
		V2:         in.V2,
		V3:         in.V3,
		V3Origin:   in.V3Origin,
		AOP:        in.AOP,
		Filename:   in.Filename,
		DOI:        in.DOI,
		ISSN:       in.ISSN,
		PubYear:    in.PubYear,
		IssueOrder: in.IssueOrder,
		Volume:     in.Volume,
		Number:     in.Number,
		Suppl:      in.Suppl,
		Elocation:  in.Elocation,
		Fpage:      in.Fpage,
		Lpage:      in.Lpage,

		FirstAuthorSurname: in.FirstAuthorSurname,
		LastAuthorSurname:  in.LastAuthorSurname,
		ArticleTitle:       in.ArticleTitle,
		OtherPids:          in.OtherPids,
		Status:             in.Status,
	}

	if recovered != nil && recovered.V3 != "" {
		doc.V3 = recovered.V3
		doc.V3Origin = recovered.V3Origin
		if recovered.AOP != "" {
			doc.AOP = recovered.AOP
		}
	}
	return doc
}

func (s *RegistrationService) report(ctx context.Context, res *Result) {
	var outcome string
	var doc *model.Document

	switch {
	case res.Registered != nil:
		metrics.RegistrationsFound.Inc()
		outcome, doc = "found", res.Registered
	case res.Created != nil:
		metrics.RegistrationsCreated.Inc()
		outcome, doc = "created", res.Created
		logrus.Infof("registered v2=%s v3=%s origin=%s", doc.V2, doc.V3, doc.V3Origin)
	default:
		return
	}

	err := s.events.PublishRegistration(ctx, &queue.RegistrationEvent{
		Outcome:  outcome,
		V2:       doc.V2,
		V3:       doc.V3,
		V3Origin: doc.V3Origin,
		AOP:      doc.AOP,
		DOI:      doc.DOI,
		At:       time.Now().UTC(),
	})
	if err != nil {
		logrus.Errorf("publishing registration event: %v", err)
	}
}

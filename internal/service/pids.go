package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/emrgen/pidkeeper/internal/model"
	"github.com/emrgen/pidkeeper/internal/pid"
	"github.com/emrgen/pidkeeper/internal/store"
)

const maxPidFilename = 80

// PidInput is a submission against the transitional `pids` schema, keyed
// only on codes and filename, without bibliographic metadata.
type PidInput struct {
	V2       string `json:"v2"`
	V3       string `json:"v3"`
	AOP      string `json:"aop"`
	Filename string `json:"filename"`
	DOI      string `json:"doi"`
	Status   string `json:"status"`
}

// PidRecord is the outward view of a matched row, tagged with the schema
// generation it came from instead of leaving callers to sniff fields.
type PidRecord struct {
	Source   string     `json:"source"` // "pids" or "pid_versions"
	V2       string     `json:"v2"`
	V3       string     `json:"v3"`
	AOP      string     `json:"aop,omitempty"`
	DOI      string     `json:"doi,omitempty"`
	Status   string     `json:"status,omitempty"`
	Filename string     `json:"filename,omitempty"`
	Created  *time.Time `json:"created,omitempty"`
	Updated  *time.Time `json:"updated,omitempty"`
}

type PidResult struct {
	Input      PidInput          `json:"input"`
	Registered *PidRecord        `json:"registered,omitempty"`
	Saved      *PidRecord        `json:"saved,omitempty"`
	Warning    map[string]string `json:"warning,omitempty"`
	Error      string            `json:"error,omitempty"`
}

func NewPidService(s store.Store, generate pid.Generator) *PidService {
	if generate == nil {
		generate = pid.NewV3
	}
	return &PidService{store: s, generate: generate}
}

// PidService registers documents into the transitional `pids` table. Unlike
// the full registration path it back-fills empty fields on a re-observed
// record and falls back to the legacy table to keep an old v3 alive.
type PidService struct {
	store    store.Store
	generate pid.Generator
}

// Manage looks a document up by its codes/filename/doi, then creates or
// updates the transitional row, reusing any previously issued v3.
func (s *PidService) Manage(ctx context.Context, in PidInput) PidResult {
	res := PidResult{Input: in}

	if in.V2 == "" {
		res.Error = ErrMissingV2.Error()
		return res
	}
	if utf8.RuneCountInString(in.Filename) > maxPidFilename {
		res.Warning = map[string]string{"filename": in.Filename}
		in.Filename = string([]rune(in.Filename)[:maxPidFilename])
	}

	err := s.store.Transaction(ctx, func(tx store.Store) error {
		return s.manage(ctx, tx, in, &res)
	})
	if err != nil {
		res.Saved = nil
		res.Error = err.Error()
	}
	return res
}

func (s *PidService) manage(ctx context.Context, tx store.Store, in PidInput, res *PidResult) error {
	row, err := tx.FindPid(ctx, in.V2, in.Filename, in.DOI, in.AOP)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRegistration, err)
	}

	if row != nil {
		res.Registered = pidRecord(row)
		saved, err := s.update(ctx, tx, in, row)
		if err != nil {
			return err
		}
		res.Saved = saved
		return nil
	}

	legacy, err := tx.FindLatestPidVersion(ctx, in.V2, in.AOP)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRegistration, err)
	}
	if legacy != nil {
		// registered before the schema migration: carry its v3 forward
		res.Registered = &PidRecord{Source: "pid_versions", V2: legacy.V2, V3: legacy.V3}
		in.V3 = legacy.V3
	} else {
		a := &allocator{store: tx, generate: s.generate}
		v3, _, err := a.allocate(ctx, in.V3)
		if err != nil {
			return err
		}
		in.V3 = v3
	}

	saved, err := s.create(ctx, tx, in)
	if err != nil {
		return err
	}
	res.Saved = saved
	return nil
}

func (s *PidService) create(ctx context.Context, tx store.Store, in PidInput) (*PidRecord, error) {
	row := &model.Pid{
		V2:        in.V2,
		V3:        in.V3,
		AOP:       in.AOP,
		Filename:  in.Filename,
		DOI:       in.DOI,
		Status:    in.Status,
		PrefixV2:  model.Prefix(in.V2),
		PrefixAOP: model.Prefix(in.AOP),
	}
	if err := tx.CreatePid(ctx, row); err != nil {
		return nil, wrapPersist(err)
	}

	logrus.Infof("registered pid v2=%s v3=%s", row.V2, row.V3)
	return pidRecord(row), nil
}

// update patches empty fields from the submission without ever blanking a
// stored value; the v2 follows the submission (a changed v2 replaces the old
// one, the v3 never changes).
func (s *PidService) update(ctx context.Context, tx store.Store, in PidInput, row *model.Pid) (*PidRecord, error) {
	row.V2 = in.V2
	row.V3 = orElse(in.V3, row.V3)
	row.AOP = orElse(in.AOP, row.AOP)
	row.DOI = orElse(in.DOI, row.DOI)
	row.Filename = orElse(in.Filename, row.Filename)
	row.Status = orElse(in.Status, row.Status)
	row.PrefixV2 = orElse(model.Prefix(row.V2), row.PrefixV2)
	row.PrefixAOP = orElse(model.Prefix(row.AOP), row.PrefixAOP)

	if err := tx.UpdatePid(ctx, row); err != nil {
		return nil, wrapPersist(err)
	}
	return pidRecord(row), nil
}

func pidRecord(row *model.Pid) *PidRecord {
	created, updated := row.Created, row.Updated
	return &PidRecord{
		Source:   "pids",
		V2:       row.V2,
		V3:       row.V3,
		AOP:      row.AOP,
		DOI:      row.DOI,
		Status:   row.Status,
		Filename: row.Filename,
		Created:  &created,
		Updated:  &updated,
	}
}

func wrapPersist(err error) error {
	if errors.Is(err, store.ErrDuplicateKey) {
		return fmt.Errorf("%w: %v", ErrAlreadyRegistered, err)
	}
	return fmt.Errorf("%w: %v", ErrRegistration, err)
}

func orElse(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

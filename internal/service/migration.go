package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/emrgen/pidkeeper/internal/sitestore"
	"github.com/emrgen/pidkeeper/internal/store"
)

// MigrationInput is one classic-site row to carry into the registry.
type MigrationInput struct {
	Filename string `json:"filename"`
	DOI      string `json:"doi"`
	V2       string `json:"v2"`
	AOP      string `json:"aop"`
	V3       string `json:"v3"`
}

// NewMigrationService builds the migration driver. finder may be nil when no
// new-site store is reachable; migration then falls back to the legacy table
// and the classic-site data alone.
func NewMigrationService(s store.Store, pids *PidService, finder sitestore.ArticleFinder) *MigrationService {
	return &MigrationService{store: s, pids: pids, finder: finder}
}

// MigrationService registers classic-site documents, preferring identifiers
// the new site already published so that a v3 issued before the schema
// migration survives unchanged.
type MigrationService struct {
	store  store.Store
	pids   *PidService
	finder sitestore.ArticleFinder
}

// Migrate resolves one row against the new-site store (then the legacy
// table) and registers the winning identifier set.
func (s *MigrationService) Migrate(ctx context.Context, in MigrationInput) PidResult {
	article, err := s.findArticle(ctx, in.DOI, in.V2, in.V3, in.AOP)
	if err != nil {
		return PidResult{Input: PidInput{V2: in.V2, V3: in.V3}, Error: err.Error()}
	}

	v3 := in.V3
	if article == nil {
		legacy, err := s.store.FindLatestPidVersion(ctx, in.V2, in.AOP)
		if err != nil {
			return PidResult{Input: PidInput{V2: in.V2, V3: in.V3}, Error: err.Error()}
		}
		if legacy != nil {
			v3 = legacy.V3
			article, err = s.findArticle(ctx, in.DOI, in.V2, v3, in.AOP)
			if err != nil {
				return PidResult{Input: PidInput{V2: in.V2, V3: v3}, Error: err.Error()}
			}
		}
	}

	if article != nil {
		logrus.Infof("migrating %s with new-site identifiers v3=%s", in.V2, article.ID)
		return s.pids.Manage(ctx, PidInput{
			V2:       article.PID,
			V3:       article.ID,
			AOP:      article.AOPPid,
			Filename: in.Filename,
			DOI:      orElse(article.DOI, in.DOI),
			Status:   "active",
		})
	}

	logrus.Infof("migrating %s with classic-site identifiers", in.V2)
	return s.pids.Manage(ctx, PidInput{
		V2:       in.V2,
		V3:       v3,
		AOP:      in.AOP,
		Filename: in.Filename,
		DOI:      in.DOI,
		Status:   "active",
	})
}

func (s *MigrationService) findArticle(ctx context.Context, doi, v2, v3, aop string) (*sitestore.Article, error) {
	if s.finder == nil {
		return nil, nil
	}
	return s.finder.Find(ctx, doi, v2, v3, aop)
}

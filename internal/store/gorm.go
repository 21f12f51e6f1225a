package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/emrgen/pidkeeper/internal/model"
)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db: db,
	}
}

var _ Store = (*GormStore)(nil)

type GormStore struct {
	db *gorm.DB
}

func (g *GormStore) CreateDocument(ctx context.Context, doc *model.Document) error {
	err := g.db.WithContext(ctx).Create(doc).Error
	if err != nil {
		return translate(err)
	}
	return nil
}

func (g *GormStore) FindIssueDocument(ctx context.Context, key IssueKey, v2 string) (*model.Document, error) {
	cond := issueConditions(key)
	if v2 != "" {
		cond["v2"] = v2
	}

	var doc model.Document
	err := g.db.WithContext(ctx).Where(cond).Order("id desc").First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying docs by issue key: %w", err)
	}
	return &doc, nil
}

func (g *GormStore) FindAOPCandidates(ctx context.Context, key IssueKey) ([]*model.Document, error) {
	cond := map[string]interface{}{
		"issn":                 key.ISSN,
		"pub_year":             key.PubYear,
		"doi":                  key.DOI,
		"first_author_surname": key.FirstAuthorSurname,
		"last_author_surname":  key.LastAuthorSurname,
		// a pre-print has no issue position yet
		"volume": "",
		"number": "",
		"suppl":  "",
		"fpage":  "",
		"lpage":  "",
	}

	var docs []*model.Document
	err := g.db.WithContext(ctx).Where(cond).Order("id").Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("querying docs for aop version: %w", err)
	}
	return docs, nil
}

func (g *GormStore) GetDocumentByV3(ctx context.Context, v3 string) (*model.Document, error) {
	var doc model.Document
	err := g.db.WithContext(ctx).Where("v3 = ?", v3).Order("id desc").First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying docs by v3: %w", err)
	}
	return &doc, nil
}

func (g *GormStore) FindDuplicateDocuments(ctx context.Context) ([]DuplicateGroup, error) {
	var groups []DuplicateGroup
	err := g.db.WithContext(ctx).Model(&model.Document{}).
		Select("issn, pub_year, issue_order, doi, first_author_surname, count(distinct v3) as v3_count").
		Group("issn, pub_year, issue_order, elocation, fpage, lpage, doi, first_author_surname, last_author_surname").
		Having("count(distinct v3) > 1").
		Scan(&groups).Error
	if err != nil {
		return nil, fmt.Errorf("querying duplicate docs: %w", err)
	}
	return groups, nil
}

func (g *GormStore) CreatePid(ctx context.Context, p *model.Pid) error {
	err := g.db.WithContext(ctx).Create(p).Error
	if err != nil {
		return translate(err)
	}
	return nil
}

func (g *GormStore) UpdatePid(ctx context.Context, p *model.Pid) error {
	err := g.db.WithContext(ctx).Save(p).Error
	if err != nil {
		return translate(err)
	}
	return nil
}

func (g *GormStore) FindPidsByFilenameDOI(ctx context.Context, filename, doi string) ([]*model.Pid, error) {
	var pids []*model.Pid
	err := g.db.WithContext(ctx).
		Where("filename = ? AND upper(doi) = ?", filename, doi).
		Order("id").Find(&pids).Error
	if err != nil {
		return nil, fmt.Errorf("querying pids by filename and doi: %w", err)
	}
	return pids, nil
}

func (g *GormStore) FindPid(ctx context.Context, v2, filename, doi, aop string) (*model.Pid, error) {
	if filename != "" {
		if doi != "" {
			if p, err := g.firstPid(ctx, "doi = ? AND filename = ?", doi, filename); p != nil || err != nil {
				return p, err
			}
		}
		for _, code := range []string{aop, v2} {
			prefix := model.Prefix(code)
			if prefix == "" {
				continue
			}
			if p, err := g.firstPid(ctx, "prefix_v2 = ? AND filename = ?", prefix, filename); p != nil || err != nil {
				return p, err
			}
			if p, err := g.firstPid(ctx, "prefix_aop = ? AND filename = ?", prefix, filename); p != nil || err != nil {
				return p, err
			}
		}
	}
	if doi != "" {
		if p, err := g.firstPid(ctx, "doi = ?", doi); p != nil || err != nil {
			return p, err
		}
	}
	for _, code := range []string{aop, v2} {
		if code == "" {
			continue
		}
		if p, err := g.firstPid(ctx, "v2 = ?", code); p != nil || err != nil {
			return p, err
		}
		if p, err := g.firstPid(ctx, "aop = ?", code); p != nil || err != nil {
			return p, err
		}
	}
	return nil, nil
}

func (g *GormStore) firstPid(ctx context.Context, query string, args ...interface{}) (*model.Pid, error) {
	var p model.Pid
	err := g.db.WithContext(ctx).Where(query, args...).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying pids: %w", err)
	}
	return &p, nil
}

func (g *GormStore) CreatePidVersion(ctx context.Context, pv *model.PidVersion) error {
	err := g.db.WithContext(ctx).Create(pv).Error
	if err != nil {
		return translate(err)
	}
	return nil
}

func (g *GormStore) FindPidVersionsByV2(ctx context.Context, v2 string) ([]*model.PidVersion, error) {
	var rows []*model.PidVersion
	err := g.db.WithContext(ctx).Where("v2 = ?", v2).Order("id").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("querying pid_versions by v2: %w", err)
	}
	return rows, nil
}

func (g *GormStore) FindLatestPidVersion(ctx context.Context, v2, aop string) (*model.PidVersion, error) {
	codes := make([]string, 0, 2)
	for _, code := range []string{aop, v2} {
		if code != "" {
			codes = append(codes, code)
		}
	}
	if len(codes) == 0 {
		return nil, nil
	}

	var row model.PidVersion
	err := g.db.WithContext(ctx).Where("v2 IN ?", codes).Order("id desc").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying pid_versions: %w", err)
	}
	return &row, nil
}

func (g *GormStore) V3Exists(ctx context.Context, v3 string) (bool, error) {
	for _, m := range []interface{}{&model.Document{}, &model.Pid{}, &model.PidVersion{}} {
		var count int64
		err := g.db.WithContext(ctx).Model(m).Where("v3 = ?", v3).Count(&count).Error
		if err != nil {
			return false, fmt.Errorf("checking v3 registration: %w", err)
		}
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}

func (g *GormStore) Migrate() error {
	return model.Migrate(g.db)
}

func (g *GormStore) Transaction(ctx context.Context, f func(tx Store) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return f(&GormStore{db: tx})
	})
}

func issueConditions(key IssueKey) map[string]interface{} {
	return map[string]interface{}{
		"issn":                 key.ISSN,
		"pub_year":             key.PubYear,
		"doi":                  key.DOI,
		"first_author_surname": key.FirstAuthorSurname,
		"last_author_surname":  key.LastAuthorSurname,
		"issue_order":          key.IssueOrder,
		"elocation":            key.Elocation,
		"fpage":                key.Fpage,
		"lpage":                key.Lpage,
	}
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	}
	return err
}

package sitestore

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

func NewGormFinder(db *gorm.DB) *GormFinder {
	return &GormFinder{db: db}
}

var _ ArticleFinder = (*GormFinder)(nil)

type GormFinder struct {
	db *gorm.DB
}

func (g *GormFinder) Find(ctx context.Context, doi, v2, v3, aop string) (*Article, error) {
	for _, query := range []func(context.Context) ([]*Article, error){
		func(ctx context.Context) ([]*Article, error) { return g.byV3(ctx, v3) },
		func(ctx context.Context) ([]*Article, error) { return g.byDOI(ctx, doi) },
		func(ctx context.Context) ([]*Article, error) { return g.byCode(ctx, aop) },
		func(ctx context.Context) ([]*Article, error) { return g.byCode(ctx, v2) },
	} {
		found, err := query(ctx)
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			continue
		}
		for _, a := range found {
			if a.Carries(v2) || a.Carries(aop) {
				return a, nil
			}
		}
		// first non-empty result set wins even when no row passes the
		// code filter; weaker lookups must not override it
		return nil, nil
	}
	return nil, nil
}

func (g *GormFinder) byV3(ctx context.Context, v3 string) ([]*Article, error) {
	if v3 == "" {
		return nil, nil
	}
	var articles []*Article
	err := g.db.WithContext(ctx).
		Where("is_public = ?", true).
		Where("id = ? OR other_pids LIKE ?", v3, like(v3)).
		Find(&articles).Error
	if err != nil {
		return nil, fmt.Errorf("querying articles by v3: %w", err)
	}
	return articles, nil
}

func (g *GormFinder) byDOI(ctx context.Context, doi string) ([]*Article, error) {
	if doi == "" {
		return nil, nil
	}
	var articles []*Article
	err := g.db.WithContext(ctx).
		Where("is_public = ?", true).
		Where("doi = ?", doi).
		Find(&articles).Error
	if err != nil {
		return nil, fmt.Errorf("querying articles by doi: %w", err)
	}
	return articles, nil
}

func (g *GormFinder) byCode(ctx context.Context, code string) ([]*Article, error) {
	if code == "" {
		return nil, nil
	}
	var articles []*Article
	err := g.db.WithContext(ctx).
		Where("is_public = ?", true).
		Where("pid = ? OR aop_pid = ? OR other_pids LIKE ?", code, code, like(code)).
		Find(&articles).Error
	if err != nil {
		return nil, fmt.Errorf("querying articles by code: %w", err)
	}
	return articles, nil
}

// like widens an exact code into a substring pattern for the alias list;
// candidates are re-checked with Carries afterwards.
func like(code string) string {
	return "%" + code + "%"
}

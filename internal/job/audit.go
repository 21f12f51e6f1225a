// Package job holds background maintenance work that runs alongside the
// serving process.
package job

import (
	"context"

	"github.com/robfig/cron"
	"github.com/sirupsen/logrus"

	"github.com/emrgen/pidkeeper/internal/store"
)

// DuplicateAudit periodically reports bibliographic keys that accumulated
// more than one v3. Concurrent first-sight registrations can produce such
// orphan aliases; the engine accepts the race, so an operator has to
// reconcile them out of band. The audit only reports, it never merges.
type DuplicateAudit struct {
	store    store.Store
	schedule string
	cron     *cron.Cron
}

func NewDuplicateAudit(s store.Store, schedule string) *DuplicateAudit {
	return &DuplicateAudit{
		store:    s,
		schedule: schedule,
		cron:     cron.New(),
	}
}

func (a *DuplicateAudit) Start() error {
	if err := a.cron.AddFunc(a.schedule, a.Run); err != nil {
		return err
	}
	a.cron.Start()
	return nil
}

func (a *DuplicateAudit) Stop() {
	a.cron.Stop()
}

// Run executes one audit pass.
func (a *DuplicateAudit) Run() {
	groups, err := a.store.FindDuplicateDocuments(context.Background())
	if err != nil {
		logrus.Errorf("duplicate audit failed: %v", err)
		return
	}
	if len(groups) == 0 {
		logrus.Debug("duplicate audit: no orphan aliases")
		return
	}

	for _, g := range groups {
		logrus.WithFields(logrus.Fields{
			"issn":        g.ISSN,
			"pub_year":    g.PubYear,
			"issue_order": g.IssueOrder,
			"doi":         g.DOI,
			"surname":     g.FirstAuthorSurname,
			"v3_count":    g.V3Count,
		}).Warn("duplicate audit: bibliographic key holds multiple v3 codes")
	}
}

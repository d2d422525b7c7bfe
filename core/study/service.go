package study

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/studygroups/core"
)

type (
	// Repository persists the whole catalog state.
	Repository interface {
		LoadSnapshot(ctx context.Context) (Snapshot, error)
		SaveSnapshot(ctx context.Context, snap Snapshot) error
	}

	Options struct {
		AppName string
		Policy  Policy
		Rand    *rand.Rand // nil: seeded from the clock
	}

	// PoolView is the read model of a Pool.
	PoolView struct {
		Subject       string              `json:"subject"`
		Language      string              `json:"language"`
		Groups        []Group             `json:"groups"`
		Waiting       map[Label][]Student `json:"waiting"`
		WaitingCounts Composition         `json:"waiting_counts"`
	}

	Service struct {
		mu      sync.Mutex
		catalog *Catalog
		policy  Policy
		rnd     *rand.Rand
		repo    Repository
		mailSvc core.EmailService
		logger  core.Logger
		appName string
	}
)

// NewService loads the persisted state and returns a ready Service.
func NewService(ctx context.Context, repo Repository, mailSvc core.EmailService, logger core.Logger, opts Options) (*Service, error) {
	if err := opts.Policy.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating policy")
	}
	rnd := opts.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	snap, err := repo.LoadSnapshot(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading snapshot")
	}
	catalog, err := Restore(snap, opts.Policy, rnd)
	if err != nil {
		return nil, errors.Wrap(err, "restoring catalog")
	}

	return &Service{
		catalog: catalog,
		policy:  opts.Policy,
		rnd:     rnd,
		repo:    repo,
		mailSvc: mailSvc,
		logger:  logger,
		appName: opts.AppName,
	}, nil
}

// clientError turns rule violations into validation errors; lookups failures are left as is.
func clientError(err error) error {
	if err == nil || IsNotFound(err) || core.IsValidationError(err) {
		return err
	}
	switch errors.Cause(err) {
	case ErrSubjectExists:
		return core.NewFieldValidationError("code", err)
	case ErrLanguageExists:
		return core.NewFieldValidationError("language", err)
	case ErrStudentExists:
		return core.NewFieldValidationError("id", err)
	case ErrRatingOutOfRange:
		return core.NewFieldValidationError("rating", err)
	case ErrNotEnoughWaiting, ErrSameGroup, ErrIncompatibleGroups, ErrEmptyGroup:
		return core.NewValidationError(err)
	}
	return err
}

func (svc *Service) read(fn func(c *Catalog) error) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return clientError(fn(svc.catalog))
}

// mutate applies fn and persists the result. The previous state is restored when saving fails.
func (svc *Service) mutate(ctx context.Context, fn func(c *Catalog) error) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	prev := svc.catalog.Snapshot()
	if err := fn(svc.catalog); err != nil {
		return clientError(err)
	}
	if err := svc.repo.SaveSnapshot(ctx, svc.catalog.Snapshot()); err != nil {
		restored, rErr := Restore(prev, svc.policy, svc.rnd)
		if rErr != nil {
			return core.NewShutdownError(fmt.Sprintf("state lost after failed save: %v: %v", err, rErr))
		}
		svc.catalog = restored
		return errors.Wrap(err, "saving snapshot")
	}
	return nil
}

func (svc *Service) withPool(code, language string, fn func(p *Pool) error) func(c *Catalog) error {
	return func(c *Catalog) error {
		p, err := c.Pool(code, language)
		if err != nil {
			return err
		}
		return fn(p)
	}
}

// Subjects & Languages

func (svc *Service) Subjects(ctx context.Context) []string {
	var res []string
	_ = svc.read(func(c *Catalog) error {
		res = c.Subjects()
		return nil
	})
	return res
}

func (svc *Service) AddSubject(ctx context.Context, ns NewSubject) (string, error) {
	var code string
	err := svc.mutate(ctx, func(c *Catalog) (err error) {
		code, err = c.AddSubject(ns.Code)
		return err
	})
	return code, err
}

func (svc *Service) RenameSubject(ctx context.Context, code string, ns NewSubject) (string, error) {
	var newCode string
	err := svc.mutate(ctx, func(c *Catalog) (err error) {
		newCode, err = c.RenameSubject(code, ns.Code)
		return err
	})
	return newCode, err
}

func (svc *Service) RemoveSubject(ctx context.Context, code string) error {
	return svc.mutate(ctx, func(c *Catalog) error {
		return c.RemoveSubject(code)
	})
}

func (svc *Service) Languages(ctx context.Context, code string) ([]string, error) {
	var res []string
	err := svc.read(func(c *Catalog) (err error) {
		res, err = c.Languages(code)
		return err
	})
	return res, err
}

func (svc *Service) AddLanguage(ctx context.Context, code string, nl NewLanguage) (string, error) {
	var lang string
	err := svc.mutate(ctx, func(c *Catalog) (err error) {
		lang, err = c.AddLanguage(code, nl.Language)
		return err
	})
	return lang, err
}

func (svc *Service) RemoveLanguage(ctx context.Context, code, language string) error {
	return svc.mutate(ctx, func(c *Catalog) error {
		return c.RemoveLanguage(code, language)
	})
}

// Pools & Groups

func (svc *Service) Pool(ctx context.Context, code, language string) (PoolView, error) {
	var view PoolView
	err := svc.read(svc.withPool(code, language, func(p *Pool) error {
		view = PoolView{
			Subject:       p.Subject,
			Language:      p.Language,
			Groups:        cloneGroups(p.Groups()),
			Waiting:       make(map[Label][]Student, len(Labels)),
			WaitingCounts: p.WaitingCounts(),
		}
		for _, l := range Labels {
			view.Waiting[l] = p.Waiting(l)
		}
		return nil
	}))
	return view, err
}

func (svc *Service) Groups(ctx context.Context, code, language string) ([]Group, error) {
	var res []Group
	err := svc.read(svc.withPool(code, language, func(p *Pool) error {
		res = cloneGroups(p.Groups())
		return nil
	}))
	return res, err
}

func (svc *Service) Group(ctx context.Context, code, language string, id int) (Group, error) {
	var res Group
	err := svc.read(svc.withPool(code, language, func(p *Pool) error {
		g, err := p.Group(id)
		if err != nil {
			return err
		}
		res = g.clone()
		return nil
	}))
	return res, err
}

func (svc *Service) CreateGroup(ctx context.Context, code, language string) (Group, error) {
	var res Group
	var subject, lang string
	err := svc.mutate(ctx, svc.withPool(code, language, func(p *Pool) error {
		g, err := p.CreateGroup()
		if err != nil {
			return err
		}
		res, subject, lang = g.clone(), p.Subject, p.Language
		return nil
	}))
	if err != nil {
		return Group{}, err
	}
	svc.send(svc.groupFormedMessages(subject, lang, res)...)
	return res, nil
}

// FormGroups creates as many groups as the waiting lists allow.
func (svc *Service) FormGroups(ctx context.Context, code, language string) ([]Group, error) {
	var res []Group
	var subject, lang string
	err := svc.mutate(ctx, svc.withPool(code, language, func(p *Pool) error {
		res = cloneGroups(p.FormGroups())
		subject, lang = p.Subject, p.Language
		return nil
	}))
	if err != nil {
		return nil, err
	}
	for _, g := range res {
		svc.send(svc.groupFormedMessages(subject, lang, g)...)
	}
	return res, nil
}

func (svc *Service) Disband(ctx context.Context, code, language string, id int) ([]Student, error) {
	var res []Student
	err := svc.mutate(ctx, svc.withPool(code, language, func(p *Pool) (err error) {
		res, err = p.Disband(id)
		return err
	}))
	return res, err
}

func (svc *Service) Reshuffle(ctx context.Context, code, language string, gp GroupPair) ([]Group, error) {
	var res []Group
	err := svc.mutate(ctx, svc.withPool(code, language, func(p *Pool) error {
		if err := p.Reshuffle(gp.GroupIDs[0], gp.GroupIDs[1]); err != nil {
			return err
		}
		for _, id := range gp.GroupIDs {
			g, _ := p.Group(id)
			res = append(res, g.clone())
		}
		return nil
	}))
	return res, err
}

func (svc *Service) Merge(ctx context.Context, code, language string, gp GroupPair) (Group, error) {
	var res Group
	err := svc.mutate(ctx, svc.withPool(code, language, func(p *Pool) error {
		if err := p.Merge(gp.GroupIDs[0], gp.GroupIDs[1]); err != nil {
			return err
		}
		g, _ := p.Group(gp.GroupIDs[0])
		res = g.clone()
		return nil
	}))
	return res, err
}

// RemoveMember takes a student out of a group and returns the group and the backfilled student, if any.
// The group may have been merged away (empty) when no backfill was available.
func (svc *Service) RemoveMember(ctx context.Context, code, language string, groupID, studentID int) (Group, *Student, error) {
	var res Group
	var backfill *Student
	var subject, lang string
	err := svc.mutate(ctx, svc.withPool(code, language, func(p *Pool) (err error) {
		_, backfill, err = p.RemoveMember(groupID, studentID)
		if err != nil {
			return err
		}
		g, _ := p.Group(groupID)
		res, subject, lang = g.clone(), p.Subject, p.Language
		return nil
	}))
	if err != nil {
		return Group{}, nil, err
	}
	if backfill != nil {
		svc.logger.Info(fmt.Sprintf("%s/%s: student %d took the seat of %d in group %d", subject, lang, backfill.ID, studentID, groupID))
		if msg := svc.seatFilledMessage(subject, lang, groupID, *backfill); msg != nil {
			svc.send(msg)
		}
	}
	return res, backfill, nil
}

func (svc *Service) AddRating(ctx context.Context, code, language string, groupID int, nr NewRating) (Group, error) {
	var res Group
	err := svc.mutate(ctx, svc.withPool(code, language, func(p *Pool) error {
		var rating float64
		if nr.Rating != nil {
			rating = *nr.Rating
		}
		g, err := p.AddRating(groupID, rating)
		if err != nil {
			return err
		}
		res = g.clone()
		return nil
	}))
	return res, err
}

// Students

func (svc *Service) Enqueue(ctx context.Context, code, language string, ns NewStudent) (Student, error) {
	var res Student
	err := svc.mutate(ctx, svc.withPool(code, language, func(p *Pool) (err error) {
		res, err = p.Enqueue(ns.student())
		return err
	}))
	return res, err
}

func (svc *Service) Withdraw(ctx context.Context, code, language string, studentID int) (Student, error) {
	var res Student
	err := svc.mutate(ctx, svc.withPool(code, language, func(p *Pool) (err error) {
		res, err = p.Withdraw(studentID)
		return err
	}))
	return res, err
}

func (svc *Service) FindStudent(ctx context.Context, code, language string, studentID int) (Placement, error) {
	var res Placement
	err := svc.read(svc.withPool(code, language, func(p *Pool) (err error) {
		res, err = p.Find(studentID)
		return err
	}))
	return res, err
}

func (svc *Service) UpdateMarks(ctx context.Context, code, language string, studentID int, um UpdateMarks) (Student, error) {
	var res Student
	err := svc.mutate(ctx, svc.withPool(code, language, func(p *Pool) (err error) {
		var marks float64
		if um.Marks != nil {
			marks = *um.Marks
		}
		res, err = p.UpdateMarks(studentID, marks)
		return err
	}))
	return res, err
}

// Sweeps

func (svc *Service) Sweep(ctx context.Context, code, language string) (SweepReport, error) {
	var report SweepReport
	var formed []Group
	err := svc.mutate(ctx, svc.withPool(code, language, func(p *Pool) error {
		report = p.Sweep()
		formed = svc.collect(p, report.Formed)
		return nil
	}))
	if err != nil {
		return SweepReport{}, err
	}
	svc.afterSweep(report, formed)
	return report, nil
}

// SweepAll sweeps every pool in one persisted step.
func (svc *Service) SweepAll(ctx context.Context) ([]SweepReport, error) {
	var reports []SweepReport
	formed := make(map[string][]Group)
	err := svc.mutate(ctx, func(c *Catalog) error {
		for _, p := range c.Pools() {
			r := p.Sweep()
			reports = append(reports, r)
			formed[r.ID] = svc.collect(p, r.Formed)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, r := range reports {
		svc.afterSweep(r, formed[r.ID])
	}
	return reports, nil
}

func (svc *Service) collect(p *Pool, ids []int) []Group {
	res := make([]Group, 0, len(ids))
	for _, id := range ids {
		if g, err := p.Group(id); err == nil {
			res = append(res, g.clone())
		}
	}
	return res
}

func (svc *Service) afterSweep(r SweepReport, formed []Group) {
	if !r.Changed() {
		svc.logger.Debug(fmt.Sprintf("sweep %s %s/%s: nothing to do", r.ID, r.Subject, r.Language))
		return
	}
	svc.logger.Info(
		fmt.Sprintf("sweep %s %s/%s", r.ID, r.Subject, r.Language),
		map[string]interface{}{
			"disbanded":  r.Disbanded,
			"reshuffled": r.Reshuffled,
			"formed":     r.Formed,
			"merged":     r.Merged,
		},
	)
	for _, g := range formed {
		svc.send(svc.groupFormedMessages(r.Subject, r.Language, g)...)
	}
}

// Snapshots

func (svc *Service) Export(ctx context.Context) Snapshot {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.catalog.Snapshot()
}

// Import replaces the whole state with snap.
func (svc *Service) Import(ctx context.Context, snap Snapshot) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	catalog, err := Restore(snap, svc.policy, svc.rnd)
	if err != nil {
		return core.NewValidationError(errors.Wrap(err, "invalid snapshot"))
	}
	if err := svc.repo.SaveSnapshot(ctx, catalog.Snapshot()); err != nil {
		return errors.Wrap(err, "saving snapshot")
	}
	svc.catalog = catalog
	return nil
}

func cloneGroups(groups []*Group) []Group {
	res := make([]Group, 0, len(groups))
	for _, g := range groups {
		res = append(res, g.clone())
	}
	return res
}

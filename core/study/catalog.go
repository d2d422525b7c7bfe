package study

import (
	"math/rand"

	"github.com/emirpasic/gods/v2/maps/linkedhashmap"
	"github.com/pkg/errors"

	"github.com/trezcool/studygroups/core"
)

// subject maps language names to their pool, in registration order.
type subject struct {
	code      string
	languages *linkedhashmap.Map[string, *Pool]
}

// Catalog is the subject -> language -> Pool registry.
type Catalog struct {
	policy   Policy
	rnd      *rand.Rand
	subjects *linkedhashmap.Map[string, *subject]
}

func NewCatalog(policy Policy, rnd *rand.Rand) *Catalog {
	return &Catalog{
		policy:   policy,
		rnd:      rnd,
		subjects: linkedhashmap.New[string, *subject](),
	}
}

func (c *Catalog) subject(code string) (*subject, error) {
	if s, ok := c.subjects.Get(core.CleanCode(code)); ok {
		return s, nil
	}
	return nil, ErrSubjectNotFound
}

func (c *Catalog) AddSubject(code string) (string, error) {
	code = core.CleanCode(code)
	if c.HasSubject(code) {
		return "", ErrSubjectExists
	}
	c.subjects.Put(code, &subject{code: code, languages: linkedhashmap.New[string, *Pool]()})
	return code, nil
}

func (c *Catalog) RemoveSubject(code string) error {
	s, err := c.subject(code)
	if err != nil {
		return err
	}
	c.subjects.Remove(s.code)
	return nil
}

// RenameSubject changes a course code; languages and groups follow.
func (c *Catalog) RenameSubject(oldCode, newCode string) (string, error) {
	s, err := c.subject(oldCode)
	if err != nil {
		return "", err
	}
	newCode = core.CleanCode(newCode)
	if c.HasSubject(newCode) {
		return "", ErrSubjectExists
	}
	c.subjects.Remove(s.code)
	s.code = newCode
	for _, p := range s.languages.Values() {
		p.Subject = newCode
	}
	c.subjects.Put(newCode, s)
	return newCode, nil
}

func (c *Catalog) Subjects() []string { return c.subjects.Keys() }

func (c *Catalog) HasSubject(code string) bool {
	_, ok := c.subjects.Get(core.CleanCode(code))
	return ok
}

func (c *Catalog) AddLanguage(code, language string) (string, error) {
	s, err := c.subject(code)
	if err != nil {
		return "", err
	}
	language = core.CleanString(language)
	if _, ok := s.languages.Get(language); ok {
		return "", ErrLanguageExists
	}
	s.languages.Put(language, newPool(s.code, language, c.policy, c.rnd))
	return language, nil
}

func (c *Catalog) RemoveLanguage(code, language string) error {
	s, err := c.subject(code)
	if err != nil {
		return err
	}
	language = core.CleanString(language)
	if _, ok := s.languages.Get(language); !ok {
		return ErrLanguageNotFound
	}
	s.languages.Remove(language)
	return nil
}

func (c *Catalog) Languages(code string) ([]string, error) {
	s, err := c.subject(code)
	if err != nil {
		return nil, err
	}
	return s.languages.Keys(), nil
}

func (c *Catalog) HasLanguage(code, language string) bool {
	_, err := c.Pool(code, language)
	return err == nil
}

func (c *Catalog) Pool(code, language string) (*Pool, error) {
	s, err := c.subject(code)
	if err != nil {
		return nil, err
	}
	if p, ok := s.languages.Get(core.CleanString(language)); ok {
		return p, nil
	}
	return nil, ErrLanguageNotFound
}

// Pools lists every pool, subjects and languages in registration order.
func (c *Catalog) Pools() []*Pool {
	var pools []*Pool
	for _, s := range c.subjects.Values() {
		pools = append(pools, s.languages.Values()...)
	}
	return pools
}

func (c *Catalog) Snapshot() Snapshot {
	var snap Snapshot
	for _, s := range c.subjects.Values() {
		ss := SubjectSnapshot{Code: s.code}
		for _, p := range s.languages.Values() {
			ss.Languages = append(ss.Languages, p.snapshot())
		}
		snap.Subjects = append(snap.Subjects, ss)
	}
	return snap
}

// Restore rebuilds a Catalog from a Snapshot.
func Restore(snap Snapshot, policy Policy, rnd *rand.Rand) (*Catalog, error) {
	c := NewCatalog(policy, rnd)
	for _, ss := range snap.Subjects {
		if !courseCodeRegex.MatchString(core.CleanCode(ss.Code)) {
			return nil, errors.Wrapf(ErrInvalidCourseCode, "restoring subject %q", ss.Code)
		}
		code, err := c.AddSubject(ss.Code)
		if err != nil {
			return nil, errors.Wrapf(err, "restoring subject %q", ss.Code)
		}
		for _, ps := range ss.Languages {
			lang, err := c.AddLanguage(code, ps.Language)
			if err != nil {
				return nil, errors.Wrapf(err, "restoring language %q of %s", ps.Language, code)
			}
			p, _ := c.Pool(code, lang)
			if err := p.restore(ps); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

package study

import (
	"math/rand"
	"strings"

	"github.com/emirpasic/gods/v2/maps/linkedhashmap"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Pool holds the groups and the waiting lists of one subject taught in one language.
// A Pool is not safe for concurrent use; Service serializes access.
type Pool struct {
	Subject  string
	Language string

	policy      Policy
	rnd         *rand.Rand
	groups      *linkedhashmap.Map[int, *Group]
	waiting     map[Label]*waitingList
	nextGroupID int
}

func newPool(subject, language string, policy Policy, rnd *rand.Rand) *Pool {
	return &Pool{
		Subject:  subject,
		Language: language,
		policy:   policy,
		rnd:      rnd,
		groups:   linkedhashmap.New[int, *Group](),
		waiting: map[Label]*waitingList{
			LabelLow:  newWaitingList(),
			LabelMid:  newWaitingList(),
			LabelHigh: newWaitingList(),
		},
		nextGroupID: 1,
	}
}

// Enqueue registers a student on the waiting list matching their marks.
func (p *Pool) Enqueue(s Student) (Student, error) {
	if _, err := p.Find(s.ID); err == nil {
		return Student{}, ErrStudentExists
	}
	s.Name = strings.TrimSpace(s.Name)
	s.Language = p.Language
	s.Label = p.policy.Label(s.Marks)
	p.waiting[s.Label].enqueue(s)
	return s, nil
}

// Withdraw removes a student from the waiting lists.
func (p *Pool) Withdraw(studentID int) (Student, error) {
	for _, l := range Labels {
		if s, ok := p.waiting[l].remove(studentID); ok {
			return s, nil
		}
	}
	return Student{}, ErrStudentNotFound
}

func (p *Pool) WaitingCounts() Composition {
	return Composition{
		Low:  p.waiting[LabelLow].size(),
		Mid:  p.waiting[LabelMid].size(),
		High: p.waiting[LabelHigh].size(),
	}
}

func (p *Pool) Waiting(l Label) []Student {
	if wl, ok := p.waiting[l]; ok {
		return wl.students()
	}
	return nil
}

func (p *Pool) Groups() []*Group { return p.groups.Values() }

func (p *Pool) Group(id int) (*Group, error) {
	if g, ok := p.groups.Get(id); ok {
		return g, nil
	}
	return nil, ErrGroupNotFound
}

func (p *Pool) firstEmptyGroup() *Group {
	for _, g := range p.groups.Values() {
		if g.IsEmpty() {
			return g
		}
	}
	return nil
}

// CreateGroup forms one balanced group out of the waiting lists.
// The first empty group is reused before a new id is allocated.
func (p *Pool) CreateGroup() (*Group, error) {
	if !p.WaitingCounts().Covers(p.policy.Quota) {
		return nil, ErrNotEnoughWaiting
	}

	g := p.firstEmptyGroup()
	if g == nil {
		g = &Group{ID: p.nextGroupID}
		p.nextGroupID++
		p.groups.Put(g.ID, g)
	}
	g.ResetRatings()

	for _, l := range Labels {
		for i := 0; i < p.policy.Quota.Of(l); i++ {
			s, ok := p.waiting[l].dequeue()
			if !ok { // covered above
				return nil, errors.Errorf("waiting list %q drained while forming group %d", l, g.ID)
			}
			g.add(s)
		}
	}
	return g, nil
}

// FormGroups creates groups until the waiting lists run short.
func (p *Pool) FormGroups() []*Group {
	var formed []*Group
	for {
		g, err := p.CreateGroup()
		if err != nil {
			return formed
		}
		formed = append(formed, g)
	}
}

// Classify splits groups into full ones (quota size) and the others.
func (p *Pool) Classify() (full, partial []*Group) {
	size := p.policy.Quota.Size()
	for _, g := range p.groups.Values() {
		if g.Size() == size {
			full = append(full, g)
		} else {
			partial = append(partial, g)
		}
	}
	return full, partial
}

// Disband empties a group and puts its members back on the waiting lists.
func (p *Pool) Disband(id int) ([]Student, error) {
	g, err := p.Group(id)
	if err != nil {
		return nil, err
	}
	members := g.Members
	g.clearMembers()
	for _, m := range members {
		p.waiting[m.Label].enqueue(m)
	}
	return members, nil
}

func (p *Pool) pair(a, b int) (*Group, *Group, error) {
	if a == b {
		return nil, nil, ErrSameGroup
	}
	ga, err := p.Group(a)
	if err != nil {
		return nil, nil, err
	}
	gb, err := p.Group(b)
	if err != nil {
		return nil, nil, err
	}
	return ga, gb, nil
}

// Reshuffle mixes the members of two groups. Group a is dealt members until it
// matches the quota for their label; everyone else lands in group b.
func (p *Pool) Reshuffle(a, b int) error {
	ga, gb, err := p.pair(a, b)
	if err != nil {
		return err
	}

	members := make([]Student, 0, ga.Size()+gb.Size())
	members = append(members, ga.Members...)
	members = append(members, gb.Members...)
	p.rnd.Shuffle(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] })

	ga.clearMembers()
	gb.clearMembers()

	var dealt Composition
	for _, m := range members {
		if dealt.Of(m.Label) < p.policy.Quota.Of(m.Label) {
			ga.add(m)
			dealt.add(m.Label, 1)
		} else {
			gb.add(m)
		}
	}
	return nil
}

// Merge moves the members of b into a when together they form exactly one balanced group.
func (p *Pool) Merge(a, b int) error {
	ga, gb, err := p.pair(a, b)
	if err != nil {
		return err
	}
	if ga.IsEmpty() || gb.IsEmpty() {
		return ErrEmptyGroup
	}
	if ga.Counts().Plus(gb.Counts()) != p.policy.Quota {
		return ErrIncompatibleGroups
	}
	members := gb.Members
	gb.clearMembers()
	ga.ResetRatings()
	for _, m := range members {
		ga.add(m)
	}
	return nil
}

// MergePartials merges pairs of under-filled groups whose union is balanced.
// Later groups are merged into earlier ones.
func (p *Pool) MergePartials() [][2]int {
	var merged [][2]int
	_, partial := p.Classify()
	for i, later := range partial {
		if later.IsEmpty() {
			continue
		}
		for _, earlier := range partial[:i] {
			if earlier.IsEmpty() {
				continue
			}
			if err := p.Merge(earlier.ID, later.ID); err == nil {
				merged = append(merged, [2]int{earlier.ID, later.ID})
				break
			}
		}
	}
	return merged
}

// RemoveMember takes a student out of a group. A waiting student with the same
// label takes the seat when available. Under-filled groups are merged afterwards.
func (p *Pool) RemoveMember(groupID, studentID int) (removed Student, backfill *Student, err error) {
	g, err := p.Group(groupID)
	if err != nil {
		return Student{}, nil, err
	}
	removed, ok := g.remove(studentID)
	if !ok {
		return Student{}, nil, ErrStudentNotFound
	}
	if s, ok := p.waiting[removed.Label].dequeue(); ok {
		g.add(s)
		backfill = &s
	}
	p.MergePartials()
	return removed, backfill, nil
}

// UpdateMarks relabels a student wherever they are.
// A waiting student whose label changes moves to the tail of their new waiting list.
func (p *Pool) UpdateMarks(studentID int, marks float64) (Student, error) {
	label := p.policy.Label(marks)
	for _, g := range p.groups.Values() {
		if i := g.index(studentID); i >= 0 {
			g.Members[i].Marks = marks
			g.Members[i].Label = label
			return g.Members[i], nil
		}
	}
	for _, l := range Labels {
		s, ok := p.waiting[l].find(studentID)
		if !ok {
			continue
		}
		s.Marks = marks
		s.Label = label
		if l == label {
			p.waiting[l].replace(s)
		} else {
			p.waiting[l].remove(studentID)
			p.waiting[label].enqueue(s)
		}
		return s, nil
	}
	return Student{}, ErrStudentNotFound
}

func (p *Pool) AddRating(groupID int, rating float64) (*Group, error) {
	if rating < 0 || rating > p.policy.MaxRating {
		return nil, ErrRatingOutOfRange
	}
	g, err := p.Group(groupID)
	if err != nil {
		return nil, err
	}
	if g.IsEmpty() {
		return nil, ErrEmptyGroup
	}
	g.Ratings = append(g.Ratings, rating)
	return g, nil
}

func (p *Pool) Find(studentID int) (Placement, error) {
	pl := Placement{Subject: p.Subject, Language: p.Language}
	for _, g := range p.groups.Values() {
		if s, ok := g.Member(studentID); ok {
			pl.GroupID = g.ID
			pl.Student = s
			return pl, nil
		}
	}
	for _, l := range Labels {
		if s, ok := p.waiting[l].find(studentID); ok {
			pl.Waiting = true
			pl.Student = s
			return pl, nil
		}
	}
	return Placement{}, ErrStudentNotFound
}

// Students lists every student of the pool, group members first.
func (p *Pool) Students() []Placement {
	var res []Placement
	for _, g := range p.groups.Values() {
		for _, m := range g.Members {
			res = append(res, Placement{Subject: p.Subject, Language: p.Language, GroupID: g.ID, Student: m})
		}
	}
	for _, l := range Labels {
		for _, s := range p.waiting[l].students() {
			res = append(res, Placement{Subject: p.Subject, Language: p.Language, Waiting: true, Student: s})
		}
	}
	return res
}

func (p *Pool) lowRated(g *Group) bool {
	return g.IsRated() && g.AvgRating() < p.policy.MinAvgRating
}

// Sweep applies the rating rules to the full groups:
// imbalanced low-rated groups are disbanded, balanced low-rated groups are
// reshuffled as a ring. Waiting students are then grouped and under-filled groups merged.
func (p *Pool) Sweep() SweepReport {
	report := SweepReport{ID: uuid.New().String(), Subject: p.Subject, Language: p.Language}

	full, _ := p.Classify()
	var ring []*Group
	for _, g := range full {
		if !p.lowRated(g) {
			continue
		}
		if g.Counts() != p.policy.Quota {
			if _, err := p.Disband(g.ID); err == nil {
				report.Disbanded = append(report.Disbanded, g.ID)
			}
			continue
		}
		ring = append(ring, g)
	}

	for i := 0; i+1 < len(ring); i++ {
		if err := p.Reshuffle(ring[i].ID, ring[i+1].ID); err == nil {
			report.Reshuffled = append(report.Reshuffled, [2]int{ring[i].ID, ring[i+1].ID})
		}
	}
	if n := len(ring); n > 2 {
		if err := p.Reshuffle(ring[n-1].ID, ring[0].ID); err == nil {
			report.Reshuffled = append(report.Reshuffled, [2]int{ring[n-1].ID, ring[0].ID})
		}
	}

	for _, g := range p.FormGroups() {
		report.Formed = append(report.Formed, g.ID)
	}
	report.Merged = p.MergePartials()
	return report
}

func (p *Pool) snapshot() PoolSnapshot {
	ps := PoolSnapshot{Language: p.Language, NextGroupID: p.nextGroupID}
	for _, g := range p.groups.Values() {
		ps.Groups = append(ps.Groups, g.clone())
	}
	for _, l := range Labels {
		ps.Waiting = append(ps.Waiting, p.waiting[l].students()...)
	}
	return ps
}

// checkStudent rejects ids and marks a NewStudent could never carry.
func checkStudent(s Student) error {
	if s.ID <= 0 {
		return errors.Wrapf(ErrInvalidStudentID, "student %d", s.ID)
	}
	if s.Marks < 0 || s.Marks > MaxMarks {
		return errors.Wrapf(ErrMarksOutOfRange, "student %d marks %v", s.ID, s.Marks)
	}
	return nil
}

func (p *Pool) restore(ps PoolSnapshot) error {
	seen := make(map[int]bool)
	for _, g := range ps.Groups {
		if g.ID <= 0 {
			return errors.Wrapf(ErrInvalidGroupID, "group %d in %s/%s", g.ID, p.Subject, p.Language)
		}
		if _, ok := p.groups.Get(g.ID); ok {
			return errors.Errorf("duplicate group %d in %s/%s", g.ID, p.Subject, p.Language)
		}
		for _, r := range g.Ratings {
			if r < 0 || r > p.policy.MaxRating {
				return errors.Wrapf(ErrRatingOutOfRange, "group %d rating %v in %s/%s", g.ID, r, p.Subject, p.Language)
			}
		}
		gc := g.clone()
		for i := range gc.Members {
			if err := checkStudent(gc.Members[i]); err != nil {
				return errors.Wrapf(err, "restoring group %d in %s/%s", g.ID, p.Subject, p.Language)
			}
			if seen[gc.Members[i].ID] {
				return errors.Wrapf(ErrStudentExists, "restoring student %d in %s/%s", gc.Members[i].ID, p.Subject, p.Language)
			}
			seen[gc.Members[i].ID] = true
			gc.Members[i].Language = p.Language
			gc.Members[i].Label = p.policy.Label(gc.Members[i].Marks)
		}
		p.groups.Put(gc.ID, &gc)
		if gc.ID >= p.nextGroupID {
			p.nextGroupID = gc.ID + 1
		}
	}
	if ps.NextGroupID > p.nextGroupID {
		p.nextGroupID = ps.NextGroupID
	}
	for _, s := range ps.Waiting {
		if err := checkStudent(s); err != nil {
			return errors.Wrapf(err, "restoring waiting list of %s/%s", p.Subject, p.Language)
		}
		if _, err := p.Enqueue(s); err != nil {
			return errors.Wrapf(err, "restoring student %d in %s/%s", s.ID, p.Subject, p.Language)
		}
	}
	return nil
}

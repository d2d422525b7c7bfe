package study

import (
	"github.com/pkg/errors"
)

// Label is the performance category of a student.
type Label string

const (
	LabelLow  Label = "low"
	LabelMid  Label = "mid"
	LabelHigh Label = "high"
)

// Labels in group formation order.
var Labels = []Label{LabelHigh, LabelMid, LabelLow}

// Composition counts students per label. It is both a group quota and a count summary.
type Composition struct {
	Low  int `json:"low" yaml:"low"`
	Mid  int `json:"mid" yaml:"mid"`
	High int `json:"high" yaml:"high"`
}

func (c Composition) Size() int { return c.Low + c.Mid + c.High }

func (c Composition) Of(l Label) int {
	switch l {
	case LabelLow:
		return c.Low
	case LabelMid:
		return c.Mid
	case LabelHigh:
		return c.High
	}
	return 0
}

func (c *Composition) add(l Label, n int) {
	switch l {
	case LabelLow:
		c.Low += n
	case LabelMid:
		c.Mid += n
	case LabelHigh:
		c.High += n
	}
}

func (c Composition) Plus(o Composition) Composition {
	return Composition{Low: c.Low + o.Low, Mid: c.Mid + o.Mid, High: c.High + o.High}
}

// Covers reports whether c holds at least as many of each label as o.
func (c Composition) Covers(o Composition) bool {
	return c.Low >= o.Low && c.Mid >= o.Mid && c.High >= o.High
}

// MaxMarks is the top of the marks scale.
const MaxMarks = 100

// Policy holds the grouping rules.
type Policy struct {
	MidCutoff    float64     // marks below are low
	HighCutoff   float64     // marks below are mid, the rest high
	Quota        Composition // balanced group composition
	MinAvgRating float64     // groups rated below are disbanded or reshuffled
	MaxRating    float64
}

var DefaultPolicy = Policy{
	MidCutoff:    40,
	HighCutoff:   75,
	Quota:        Composition{Low: 2, Mid: 3, High: 2},
	MinAvgRating: 2,
	MaxRating:    5,
}

func (p Policy) Validate() error {
	if p.MidCutoff > p.HighCutoff {
		return errors.Errorf("mid cutoff %v is above high cutoff %v", p.MidCutoff, p.HighCutoff)
	}
	if p.Quota.Low < 0 || p.Quota.Mid < 0 || p.Quota.High < 0 || p.Quota.Size() == 0 {
		return errors.Errorf("invalid quota %+v", p.Quota)
	}
	if p.MaxRating <= 0 {
		return errors.Errorf("max rating must be positive, got %v", p.MaxRating)
	}
	return nil
}

func (p Policy) Label(marks float64) Label {
	switch {
	case marks < p.MidCutoff:
		return LabelLow
	case marks < p.HighCutoff:
		return LabelMid
	default:
		return LabelHigh
	}
}

type Student struct {
	ID       int     `json:"id" yaml:"id"`
	Name     string  `json:"name" yaml:"name"`
	Email    string  `json:"email,omitempty" yaml:"email,omitempty"`
	Marks    float64 `json:"marks" yaml:"marks"`
	Language string  `json:"language" yaml:"language"`
	Label    Label   `json:"label" yaml:"label"`
}

type Group struct {
	ID      int       `json:"id" yaml:"id"`
	Members []Student `json:"members" yaml:"members"`
	Ratings []float64 `json:"ratings" yaml:"ratings,omitempty"`
}

func (g *Group) Size() int     { return len(g.Members) }
func (g *Group) IsEmpty() bool { return len(g.Members) == 0 }
func (g *Group) IsRated() bool { return len(g.Ratings) > 0 }
func (g *Group) ResetRatings() { g.Ratings = nil }

func (g *Group) clearMembers() {
	g.Members = nil
	g.Ratings = nil
}

func (g *Group) add(s Student) {
	g.Members = append(g.Members, s)
}

func (g *Group) Counts() Composition {
	var c Composition
	for _, m := range g.Members {
		c.add(m.Label, 1)
	}
	return c
}

// AvgRating is 0 when the group has no ratings.
func (g *Group) AvgRating() float64 {
	if len(g.Ratings) == 0 {
		return 0
	}
	var sum float64
	for _, r := range g.Ratings {
		sum += r
	}
	return sum / float64(len(g.Ratings))
}

func (g *Group) index(studentID int) int {
	for i, m := range g.Members {
		if m.ID == studentID {
			return i
		}
	}
	return -1
}

func (g *Group) Member(studentID int) (Student, bool) {
	if i := g.index(studentID); i >= 0 {
		return g.Members[i], true
	}
	return Student{}, false
}

func (g *Group) remove(studentID int) (Student, bool) {
	i := g.index(studentID)
	if i < 0 {
		return Student{}, false
	}
	s := g.Members[i]
	g.Members = append(g.Members[:i:i], g.Members[i+1:]...)
	return s, true
}

func (g *Group) clone() Group {
	c := Group{ID: g.ID}
	if g.Members != nil {
		c.Members = append([]Student(nil), g.Members...)
	}
	if g.Ratings != nil {
		c.Ratings = append([]float64(nil), g.Ratings...)
	}
	return c
}

// Placement locates a student inside a pool. GroupID is 0 for waiting students.
type Placement struct {
	Subject  string  `json:"subject"`
	Language string  `json:"language"`
	GroupID  int     `json:"group_id,omitempty"`
	Waiting  bool    `json:"waiting"`
	Student  Student `json:"student"`
}

// SweepReport describes what a sweep of one pool changed.
type SweepReport struct {
	ID         string   `json:"id"`
	Subject    string   `json:"subject"`
	Language   string   `json:"language"`
	Disbanded  []int    `json:"disbanded"`
	Reshuffled [][2]int `json:"reshuffled"`
	Formed     []int    `json:"formed"`
	Merged     [][2]int `json:"merged"`
}

func (r SweepReport) Changed() bool {
	return len(r.Disbanded)+len(r.Reshuffled)+len(r.Formed)+len(r.Merged) > 0
}

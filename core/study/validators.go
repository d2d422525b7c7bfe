package study

import (
	"regexp"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/studygroups/core"
)

var (
	courseCodeTag   = "coursecode"
	courseCodeText  = "course codes are 2 to 20 letters, digits, dashes or underscores"
	courseCodeRegex = regexp.MustCompile(`^[A-Z0-9][A-Z0-9_-]{1,19}$`)

	groupPairTag  = "grouppair"
	groupPairText = "exactly two different group ids are required"
)

// InitValidators registers the study validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(courseCodeTag, courseCodeValidation)
	core.RegisterCustomTranslation(validate, translator, courseCodeTag, courseCodeText)

	_ = validate.RegisterValidation(groupPairTag, groupPairValidation)
	core.RegisterCustomTranslation(validate, translator, groupPairTag, groupPairText)
}

type NewSubject struct {
	Code string `json:"code" validate:"required,coursecode"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Code = core.CleanCode(ns.Code)
	return validate.Struct(ns)
}

type NewLanguage struct {
	Language string `json:"language" validate:"required,max=40,alphanum_"`
}

func (nl *NewLanguage) Validate(validate *validator.Validate) error {
	nl.Language = core.CleanString(nl.Language)
	return validate.Struct(nl)
}

type NewStudent struct {
	ID    int      `json:"id" validate:"required,gt=0"`
	Name  string   `json:"name" validate:"required,max=100"`
	Email string   `json:"email" validate:"omitempty,email"`
	Marks *float64 `json:"marks" validate:"required,gte=0,lte=100"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	return validate.Struct(ns)
}

func (ns NewStudent) student() Student {
	s := Student{ID: ns.ID, Name: ns.Name, Email: ns.Email}
	if ns.Marks != nil {
		s.Marks = *ns.Marks
	}
	return s
}

type UpdateMarks struct {
	Marks *float64 `json:"marks" validate:"required,gte=0,lte=100"`
}

func (um *UpdateMarks) Validate(validate *validator.Validate) error {
	return validate.Struct(um)
}

// NewRating is a session feedback rating. The upper bound comes from the Policy.
type NewRating struct {
	Rating *float64 `json:"rating" validate:"required,gte=0"`
}

func (nr *NewRating) Validate(validate *validator.Validate) error {
	return validate.Struct(nr)
}

type GroupPair struct {
	GroupIDs []int `json:"group_ids" validate:"required,grouppair"`
}

func (gp *GroupPair) Validate(validate *validator.Validate) error {
	return validate.Struct(gp)
}

// Custom Validators

func courseCodeValidation(fl validator.FieldLevel) bool {
	return courseCodeRegex.MatchString(fl.Field().String())
}

func groupPairValidation(fl validator.FieldLevel) bool {
	ids, ok := fl.Field().Interface().([]int)
	if !ok || len(ids) != 2 {
		return false
	}
	return ids[0] > 0 && ids[1] > 0 && ids[0] != ids[1]
}

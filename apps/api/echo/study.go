package echoapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studygroups/core/study"
)

type (
	studyApi struct {
		svc        *study.Service
		validate   *validator.Validate
		translator ut.Translator
	}

	SubjectResponse struct {
		Code string `json:"code"`
	}

	LanguageResponse struct {
		Subject  string `json:"subject"`
		Language string `json:"language"`
	}

	RemoveMemberResponse struct {
		Group    study.Group    `json:"group"`
		Backfill *study.Student `json:"backfill"`
	}
)

func registerStudyAPI(g *echo.Group, jwt echo.MiddlewareFunc, api *studyApi) {
	admin := []echo.MiddlewareFunc{jwt, adminMiddleware()}

	sg := g.Group("/subjects")
	sg.GET("", api.listSubjects)
	sg.POST("", api.createSubject, admin...)
	sg.PUT("/:code", api.renameSubject, admin...)
	sg.DELETE("/:code", api.deleteSubject, admin...)
	sg.GET("/:code/languages", api.listLanguages)
	sg.POST("/:code/languages", api.createLanguage, admin...)

	// pool endpoints
	pg := sg.Group("/:code/languages/:lang")
	pg.GET("", api.retrievePool)
	pg.DELETE("", api.deleteLanguage, admin...)
	pg.POST("/sweep", api.sweepPool, admin...)

	pg.POST("/students", api.enqueue, admin...)
	pg.GET("/students/:id", api.findStudent)
	pg.DELETE("/students/:id", api.withdraw, admin...)
	pg.PUT("/students/:id/marks", api.updateMarks, admin...)

	pg.GET("/groups", api.listGroups)
	pg.POST("/groups", api.createGroup, admin...)
	pg.POST("/groups/form", api.formGroups, admin...)
	pg.POST("/groups/reshuffle", api.reshuffle, admin...)
	pg.POST("/groups/merge", api.merge, admin...)
	pg.GET("/groups/:gid", api.retrieveGroup)
	pg.DELETE("/groups/:gid", api.disband, admin...)
	pg.DELETE("/groups/:gid/members/:sid", api.removeMember, admin...)
	pg.POST("/groups/:gid/ratings", api.rate, jwt) // any authenticated user

	g.POST("/sweep", api.sweepAll, admin...)
	g.GET("/students/search", api.search)
}

// bind decodes the JSON body only; path and query params are read explicitly.
func bind(ctx echo.Context, i interface{}) error {
	req := ctx.Request()
	if req.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(req.Body).Decode(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed JSON body").SetInternal(err)
	}
	return nil
}

func pathParam(ctx echo.Context, name string) string {
	v := ctx.Param(name)
	if uv, err := url.PathUnescape(v); err == nil {
		return uv
	}
	return v
}

// intParam reads a positive integer path param; anything else cannot name a resource.
func intParam(ctx echo.Context, name string) (int, error) {
	i, err := strconv.Atoi(ctx.Param(name))
	if err != nil || i <= 0 {
		return 0, errHttpNotFound
	}
	return i, nil
}

func poolParams(ctx echo.Context) (code, lang string) {
	return pathParam(ctx, "code"), pathParam(ctx, "lang")
}

// Subjects & Languages

func (api *studyApi) listSubjects(ctx echo.Context) error {
	subjects := api.svc.Subjects(ctx.Request().Context())
	if subjects == nil {
		subjects = []string{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *studyApi) createSubject(ctx echo.Context) error {
	var data study.NewSubject
	if err := bind(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	code, err := api.svc.AddSubject(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "adding subject")
	}
	return ctx.JSON(http.StatusCreated, SubjectResponse{Code: code})
}

func (api *studyApi) renameSubject(ctx echo.Context) error {
	var data study.NewSubject
	if err := bind(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	code, err := api.svc.RenameSubject(ctx.Request().Context(), pathParam(ctx, "code"), data)
	if err != nil {
		return errors.Wrap(err, "renaming subject")
	}
	return ctx.JSON(http.StatusOK, SubjectResponse{Code: code})
}

func (api *studyApi) deleteSubject(ctx echo.Context) error {
	if err := api.svc.RemoveSubject(ctx.Request().Context(), pathParam(ctx, "code")); err != nil {
		return errors.Wrap(err, "removing subject")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studyApi) listLanguages(ctx echo.Context) error {
	langs, err := api.svc.Languages(ctx.Request().Context(), pathParam(ctx, "code"))
	if err != nil {
		return errors.Wrap(err, "listing languages")
	}
	if langs == nil {
		langs = []string{}
	}
	return ctx.JSON(http.StatusOK, langs)
}

func (api *studyApi) createLanguage(ctx echo.Context) error {
	var data study.NewLanguage
	if err := bind(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to NewLanguage")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	code := pathParam(ctx, "code")
	lang, err := api.svc.AddLanguage(ctx.Request().Context(), code, data)
	if err != nil {
		return errors.Wrap(err, "adding language")
	}
	return ctx.JSON(http.StatusCreated, LanguageResponse{Subject: code, Language: lang})
}

func (api *studyApi) retrievePool(ctx echo.Context) error {
	code, lang := poolParams(ctx)
	view, err := api.svc.Pool(ctx.Request().Context(), code, lang)
	if err != nil {
		return errors.Wrap(err, "retrieving pool")
	}
	return ctx.JSON(http.StatusOK, view)
}

func (api *studyApi) deleteLanguage(ctx echo.Context) error {
	code, lang := poolParams(ctx)
	if err := api.svc.RemoveLanguage(ctx.Request().Context(), code, lang); err != nil {
		return errors.Wrap(err, "removing language")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Students

func (api *studyApi) enqueue(ctx echo.Context) error {
	var data study.NewStudent
	if err := bind(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	code, lang := poolParams(ctx)
	s, err := api.svc.Enqueue(ctx.Request().Context(), code, lang, data)
	if err != nil {
		return errors.Wrap(err, "enqueuing student")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *studyApi) findStudent(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	code, lang := poolParams(ctx)
	pl, err := api.svc.FindStudent(ctx.Request().Context(), code, lang, id)
	if err != nil {
		return errors.Wrap(err, "finding student")
	}
	return ctx.JSON(http.StatusOK, pl)
}

func (api *studyApi) withdraw(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	code, lang := poolParams(ctx)
	s, err := api.svc.Withdraw(ctx.Request().Context(), code, lang, id)
	if err != nil {
		return errors.Wrap(err, "withdrawing student")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studyApi) updateMarks(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	var data study.UpdateMarks
	if err := bind(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to UpdateMarks")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	code, lang := poolParams(ctx)
	s, err := api.svc.UpdateMarks(ctx.Request().Context(), code, lang, id, data)
	if err != nil {
		return errors.Wrap(err, "updating marks")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studyApi) search(ctx echo.Context) error {
	matches := api.svc.SearchStudents(ctx.Request().Context(), ctx.QueryParam("q"))
	if matches == nil {
		matches = []study.Match{}
	}
	return ctx.JSON(http.StatusOK, matches)
}

// Groups

func (api *studyApi) listGroups(ctx echo.Context) error {
	code, lang := poolParams(ctx)
	groups, err := api.svc.Groups(ctx.Request().Context(), code, lang)
	if err != nil {
		return errors.Wrap(err, "listing groups")
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (api *studyApi) createGroup(ctx echo.Context) error {
	code, lang := poolParams(ctx)
	g, err := api.svc.CreateGroup(ctx.Request().Context(), code, lang)
	if err != nil {
		return errors.Wrap(err, "creating group")
	}
	return ctx.JSON(http.StatusCreated, g)
}

func (api *studyApi) formGroups(ctx echo.Context) error {
	code, lang := poolParams(ctx)
	groups, err := api.svc.FormGroups(ctx.Request().Context(), code, lang)
	if err != nil {
		return errors.Wrap(err, "forming groups")
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (api *studyApi) reshuffle(ctx echo.Context) error {
	var data study.GroupPair
	if err := bind(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to GroupPair")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	code, lang := poolParams(ctx)
	groups, err := api.svc.Reshuffle(ctx.Request().Context(), code, lang, data)
	if err != nil {
		return errors.Wrap(err, "reshuffling groups")
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (api *studyApi) merge(ctx echo.Context) error {
	var data study.GroupPair
	if err := bind(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to GroupPair")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	code, lang := poolParams(ctx)
	g, err := api.svc.Merge(ctx.Request().Context(), code, lang, data)
	if err != nil {
		return errors.Wrap(err, "merging groups")
	}
	return ctx.JSON(http.StatusOK, g)
}

func (api *studyApi) retrieveGroup(ctx echo.Context) error {
	gid, err := intParam(ctx, "gid")
	if err != nil {
		return err
	}
	code, lang := poolParams(ctx)
	g, err := api.svc.Group(ctx.Request().Context(), code, lang, gid)
	if err != nil {
		return errors.Wrap(err, "retrieving group")
	}
	return ctx.JSON(http.StatusOK, g)
}

func (api *studyApi) disband(ctx echo.Context) error {
	gid, err := intParam(ctx, "gid")
	if err != nil {
		return err
	}
	code, lang := poolParams(ctx)
	members, err := api.svc.Disband(ctx.Request().Context(), code, lang, gid)
	if err != nil {
		return errors.Wrap(err, "disbanding group")
	}
	if members == nil {
		members = []study.Student{}
	}
	return ctx.JSON(http.StatusOK, members)
}

func (api *studyApi) removeMember(ctx echo.Context) error {
	gid, err := intParam(ctx, "gid")
	if err != nil {
		return err
	}
	sid, err := intParam(ctx, "sid")
	if err != nil {
		return err
	}
	code, lang := poolParams(ctx)
	g, backfill, err := api.svc.RemoveMember(ctx.Request().Context(), code, lang, gid, sid)
	if err != nil {
		return errors.Wrap(err, "removing member")
	}
	return ctx.JSON(http.StatusOK, RemoveMemberResponse{Group: g, Backfill: backfill})
}

func (api *studyApi) rate(ctx echo.Context) error {
	gid, err := intParam(ctx, "gid")
	if err != nil {
		return err
	}
	var data study.NewRating
	if err := bind(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to NewRating")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	code, lang := poolParams(ctx)
	g, err := api.svc.AddRating(ctx.Request().Context(), code, lang, gid, data)
	if err != nil {
		return errors.Wrap(err, "rating group")
	}
	return ctx.JSON(http.StatusCreated, g)
}

// Sweeps

func (api *studyApi) sweepPool(ctx echo.Context) error {
	code, lang := poolParams(ctx)
	report, err := api.svc.Sweep(ctx.Request().Context(), code, lang)
	if err != nil {
		return errors.Wrap(err, "sweeping pool")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *studyApi) sweepAll(ctx echo.Context) error {
	reports, err := api.svc.SweepAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "sweeping pools")
	}
	if reports == nil {
		reports = []study.SweepReport{}
	}
	return ctx.JSON(http.StatusOK, reports)
}

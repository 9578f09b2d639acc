package echoapi

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kdadks/eyogi/core/compliance"
)

type complianceApi struct {
	svc      *compliance.Service
	validate *validator.Validate
}

func registerComplianceAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *compliance.Service,
	validate *validator.Validate,
) {
	api := complianceApi{
		svc:      svc,
		validate: validate,
	}

	cg := g.Group("/compliance", jwt)

	// items
	ig := cg.Group("/items")
	ig.GET("", api.queryItems)
	ig.POST("", api.createItem, adminMiddleware())
	ig.GET("/:id", api.retrieveItem)
	ig.PUT("/:id", api.updateItem, adminMiddleware())
	ig.DELETE("/:id", api.deactivateItem, adminMiddleware())
	ig.POST("/:id/complete", api.markComplete)
	ig.POST("/:id/submit", api.submitForm)

	// forms
	fg := cg.Group("/forms")
	fg.POST("", api.createForm, adminMiddleware())
	fg.GET("/:id", api.retrieveForm)
	fg.PUT("/:id", api.updateForm, adminMiddleware())

	// submissions
	sg := cg.Group("/submissions")
	sg.GET("", api.querySubmissions, adminMiddleware())
	sg.GET("/:id", api.retrieveSubmission)
	sg.POST("/:id/review", api.review, adminMiddleware())

	// per-user views
	cg.GET("/checklist", api.checklist)
	cg.GET("/stats", api.stats)
	cg.GET("/admin/stats", api.adminStats, adminMiddleware())
}

// Handlers

func (api *complianceApi) queryItems(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	filter := compliance.ItemFilter{ActiveOnly: true}
	if claims.IsAdmin {
		// admins see everything, optionally narrowed by query params
		filter.ActiveOnly = ctx.QueryParam("active") == "true"
		filter.Role = compliance.Role(ctx.QueryParam("role"))
	} else {
		filter.Role = claims.Role
	}

	items, err := api.svc.QueryItems(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying items")
	}
	if items == nil {
		items = []compliance.Item{}
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *complianceApi) createItem(ctx echo.Context) error {
	var data compliance.NewItem
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewItem")
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	item, err := api.svc.CreateItem(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating item")
	}
	return ctx.JSON(http.StatusCreated, item)
}

func (api *complianceApi) retrieveItem(ctx echo.Context) error {
	item, err := api.svc.GetItem(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting item")
	}
	return ctx.JSON(http.StatusOK, item)
}

func (api *complianceApi) updateItem(ctx echo.Context) error {
	var data compliance.UpdateItem
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateItem")
	}

	item, err := api.svc.UpdateItem(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating item")
	}
	return ctx.JSON(http.StatusOK, item)
}

func (api *complianceApi) deactivateItem(ctx echo.Context) error {
	if _, err := api.svc.DeactivateItem(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deactivating item")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *complianceApi) markComplete(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	sub, err := api.svc.MarkComplete(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "marking item complete")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

// submitForm accepts a multipart request: a `form_data` part holding the JSON
// field values plus one file part per uploaded attachment, named after its field.
func (api *complianceApi) submitForm(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	data := compliance.NewSubmission{
		ItemID: ctx.Param("id"),
		UserID: claims.Subject,
	}
	if raw := ctx.FormValue("form_data"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &data.FormData); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "form_data is not valid JSON")
		}
	}

	if form, err := ctx.MultipartForm(); err == nil && form != nil {
		for field, headers := range form.File {
			for _, fh := range headers {
				f, err := fh.Open()
				if err != nil {
					return errors.Wrap(err, "opening uploaded file")
				}
				defer f.Close()
				data.Files = append(data.Files, compliance.FileUpload{
					FieldName:   field,
					Filename:    fh.Filename,
					ContentType: fh.Header.Get("Content-Type"),
					Size:        fh.Size,
					Content:     f,
				})
			}
		}
	}

	sub, err := api.svc.SubmitForm(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "submitting form")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *complianceApi) createForm(ctx echo.Context) error {
	var data compliance.NewForm
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewForm")
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	form, err := api.svc.CreateForm(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating form")
	}
	return ctx.JSON(http.StatusCreated, form)
}

func (api *complianceApi) retrieveForm(ctx echo.Context) error {
	form, err := api.svc.GetForm(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting form")
	}
	return ctx.JSON(http.StatusOK, form)
}

func (api *complianceApi) updateForm(ctx echo.Context) error {
	var data compliance.NewForm
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewForm")
	}

	form, err := api.svc.UpdateForm(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating form")
	}
	return ctx.JSON(http.StatusOK, form)
}

func (api *complianceApi) querySubmissions(ctx echo.Context) error {
	filter := compliance.SubmissionFilter{
		ItemID: ctx.QueryParam("item_id"),
		UserID: ctx.QueryParam("user_id"),
		Status: compliance.Status(ctx.QueryParam("status")),
	}
	subs, err := api.svc.QuerySubmissions(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	if subs == nil {
		subs = []compliance.Submission{}
	}

	ordering := new(Ordering)
	ordering.Bind(ctx)
	orderSubmissions(subs, ordering)

	return ctx.JSON(http.StatusOK, subs)
}

// orderSubmissions applies the requested orderings; unknown fields are ignored.
func orderSubmissions(subs []compliance.Submission, ordering *Ordering) {
	for i := len(ordering.Orderings) - 1; i >= 0; i-- {
		ord := ordering.Orderings[i]
		sort.SliceStable(subs, func(a, b int) bool {
			if !ord.Ascending {
				a, b = b, a
			}
			switch ord.Field {
			case "submitted_at":
				return subs[a].SubmittedAt.Before(subs[b].SubmittedAt)
			case "status":
				return subs[a].Status < subs[b].Status
			case "user_id":
				return subs[a].UserID < subs[b].UserID
			default:
				return false
			}
		})
	}
}

func (api *complianceApi) retrieveSubmission(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	sub, err := api.svc.GetSubmission(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting submission")
	}
	if !claims.IsAdmin && sub.UserID != claims.Subject {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *complianceApi) review(ctx echo.Context) error {
	var data compliance.ReviewDecision
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewDecision")
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	sub, err := api.svc.Review(ctx.Request().Context(), ctx.Param("id"), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "reviewing submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *complianceApi) checklist(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	checklist, err := api.svc.GetUserChecklist(ctx.Request().Context(), claims.Subject, claims.Role)
	if err != nil {
		return errors.Wrap(err, "getting checklist")
	}
	if checklist == nil {
		checklist = []compliance.ChecklistItem{}
	}
	return ctx.JSON(http.StatusOK, checklist)
}

func (api *complianceApi) stats(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	stats, err := api.svc.GetStats(ctx.Request().Context(), claims.Subject, claims.Role)
	if err != nil {
		return errors.Wrap(err, "getting stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *complianceApi) adminStats(ctx echo.Context) error {
	stats, err := api.svc.GetAdminStats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting admin stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

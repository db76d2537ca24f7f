package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/authz"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/notify"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/user"
)

type userApi struct {
	svc      *user.Service
	notifier *notify.Notifier
	validate *validator.Validate
	policy   authz.Policy
	auth     *jwtAuth
	logger   core.Logger
}

func registerUserAPI(g *echo.Group, authed []echo.MiddlewareFunc, auth *jwtAuth, deps *Deps) {
	api := userApi{
		svc:      deps.UserSvc,
		notifier: deps.Notifier,
		validate: deps.Validate,
		policy:   deps.Policy,
		auth:     auth,
		logger:   deps.Logger,
	}
	allow := func(action authz.Action) echo.MiddlewareFunc { return requireAction(api.policy, action) }

	// un-authed endpoints
	// TODO: rate limit `/recuperar-password` & `/restablecer-password`
	ag := g.Group("/auth")
	ag.POST("/login", api.login)
	ag.POST("/registrar", api.register)
	ag.POST("/recuperar-password", api.requestPasswordReset)
	ag.POST("/restablecer-password", api.confirmPasswordReset)

	// authed endpoints
	ag.GET("/perfil", api.profile, authed...)
	ag.POST("/refresh", api.refreshToken, authed...)

	ug := g.Group("/usuarios", authed...)
	ug.GET("", api.query, allow(authz.ManageUsers))
	ug.GET("/roles", api.queryRoles, allow(authz.ManageUsers))
	ug.PUT("/:id", api.update, allow(authz.ManageUsers))

	pg := g.Group("/profesores", authed...)
	pg.GET("", api.queryProfessors, allow(authz.ListProfessors))
}

// Handlers

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		switch errors.Cause(err) {
		case user.ErrInvalidCredentials:
			return echo.NewHTTPError(http.StatusUnauthorized, "credenciales inválidas")
		case user.ErrAccountDeactivated:
			return errAccountDeactivated
		}
		return errors.Wrap(err, "authenticating")
	}
	token, err := api.auth.sign(api.auth.claims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: usr})
}

// register is open for professors; any other role needs an admin token on the request.
func (api *userApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	if data.Role != user.RoleProfessor {
		caller, err := api.auth.optionalUser(ctx, api.svc)
		if err != nil {
			return err
		}
		if caller == nil {
			return errUnauthorized
		}
		if err = api.policy.Check(*caller, authz.RegisterStaff); err != nil {
			return err
		}
	}

	usr, prof, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	token, err := api.auth.sign(api.auth.claims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusCreated, RegisterResponse{Token: token, User: usr, Professor: prof})
}

func (api *userApi) profile(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	resp := ProfileResponse{User: usr}
	if usr.IsProfessor() {
		prof, err := api.svc.GetProfessor(ctx.Request().Context(), usr)
		if err != nil && !core.IsNotFound(err) {
			return errors.Wrap(err, "finding professor profile")
		}
		if err == nil {
			resp.Professor = &prof
		}
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := api.auth.refreshToken(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *userApi) requestPasswordReset(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	usr, uid, token, err := api.svc.RequestPasswordReset(rctx, data.Email)
	switch {
	case err == nil:
		if res := api.notifier.PasswordReset(rctx, usr, uid, token); !res.Success {
			api.logger.Warn("password reset email to "+usr.Email+" failed: "+res.Error, usr)
		}
	case core.IsNotFound(err) || errors.Cause(err) == user.ErrAccountDeactivated:
		// do not tell attackers which emails exist
	default:
		api.logger.Error("requesting password reset", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, messageResponse{
		Message: "Si el correo pertenece a una cuenta activa, recibirás un mensaje con las instrucciones " +
			"para restablecer tu contraseña.",
	})
}

func (api *userApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "La contraseña se restableció correctamente."})
}

func (api *userApi) query(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.User{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	users, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}

func (api *userApi) update(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	rctx := ctx.Request().Context()
	usr, err := api.svc.GetByID(rctx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding user by ID")
	}

	var data user.UpdateUser
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	// an admin cannot lock themselves out
	if usr.ID == ctxUsr.ID && ((data.Role != "" && data.Role != usr.Role) || (data.IsActive != nil && !*data.IsActive)) {
		return errSelfChange
	}

	usr, err = api.svc.Update(rctx, usr, data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) queryProfessors(ctx echo.Context) error {
	filter := new(user.ProfessorFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to ProfessorFilter")
	}
	filter.Clean()

	profs, err := api.svc.QueryProfessors(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying professors")
	}
	if profs == nil {
		profs = []user.ProfessorDetail{}
	}
	return ctx.JSON(http.StatusOK, profs)
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string    `json:"token"`
		User  user.User `json:"usuario"`
	}

	RegisterResponse struct {
		Token     string          `json:"token"`
		User      user.User       `json:"usuario"`
		Professor *user.Professor `json:"profesor,omitempty"`
	}

	ProfileResponse struct {
		User      user.User       `json:"usuario"`
		Professor *user.Professor `json:"profesor,omitempty"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}

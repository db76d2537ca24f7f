package echoapi

import (
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/user"
)

const (
	jwtContextKey  = "userToken"
	contextUserKey = "user"
	jwtAudience    = "planeacion"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Name         string `json:"nombre,omitempty"`
	Email        string `json:"email,omitempty"`
	Role         string `json:"rol,omitempty"`
}

type jwtAuth struct {
	issuer            string
	secret            []byte
	expiration        time.Duration
	refreshExpiration time.Duration
}

func newJWTAuth(conf *core.Config) *jwtAuth {
	return &jwtAuth{
		issuer:            conf.AppName,
		secret:            []byte(conf.SecretKey),
		expiration:        conf.Server.JWTExpirationDelta,
		refreshExpiration: conf.Server.JWTRefreshExpirationDelta,
	}
}

func (a *jwtAuth) config() middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    a.secret,
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    jwtContextKey,
		Claims:        new(Claims),
	}
}

func (a *jwtAuth) claims(usr user.User, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    a.issuer,
			Subject:   usr.ID,
			Audience:  jwtAudience,
			ExpiresAt: now.Add(a.expiration).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Name:         usr.Name,
		Email:        usr.Email,
		Role:         usr.Role,
	}
}

func (a *jwtAuth) sign(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString(a.secret)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// parse validates a raw token the same way the JWT middleware does.
func (a *jwtAuth) parse(raw string) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != middleware.AlgorithmHS256 {
			return nil, errors.Errorf("unexpected jwt signing method=%v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}
	return claims, nil
}

// GetUserClaims returns the claims of a fresh token for usr.
func GetUserClaims(conf *core.Config, usr user.User, origIat ...int64) *Claims {
	return newJWTAuth(conf).claims(usr, origIat...)
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	return newJWTAuth(conf).sign(claims)
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(jwtContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// userMiddleware loads the user behind the token; unknown or deactivated users are turned away.
func userMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
			if err != nil {
				if core.IsNotFound(err) {
					return errUnauthorized
				}
				return errors.Wrap(err, "finding user by ID")
			}
			if !usr.IsActive {
				return errAccountDeactivated
			}
			ctx.Set(contextUserKey, usr)
			return next(ctx)
		}
	}
}

func getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	return user.User{}, errUnauthorized
}

// optionalUser returns the user of the bearer token when the request carries one.
func (a *jwtAuth) optionalUser(ctx echo.Context, svc *user.Service) (*user.User, error) {
	header := ctx.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return nil, nil
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, middleware.DefaultJWTConfig.AuthScheme))
	if raw == "" || raw == header {
		return nil, errInvalidToken
	}
	claims, err := a.parse(raw)
	if err != nil {
		return nil, err
	}
	usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if core.IsNotFound(err) {
			return nil, errInvalidToken
		}
		return nil, errors.Wrap(err, "finding user by ID")
	}
	if !usr.IsActive {
		return nil, errAccountDeactivated
	}
	return &usr, nil
}

func (a *jwtAuth) refreshToken(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context user")
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.refreshExpiration)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	token, err := a.sign(a.claims(usr, claims.OrigIssuedAt))
	return token, errors.Wrap(err, "generating token")
}

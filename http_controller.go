package auth

import (
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-auth-boilerplate/middleware/response"
)

// AuthControllerRoutes holds the paths relative to the auth group
type AuthControllerRoutes struct {
	Login    string
	Logout   string
	Register string
	Me       string
}

// AuthController is the HTTP façade for local accounts and sessions
type AuthController struct {
	Logger    Logger
	Routes    *AuthControllerRoutes
	Registrar Registrar
	Verifier  CredentialVerifier
	Sessions  SessionBinder
}

type AuthControllerOption func(*AuthController) *AuthController

// WithControllerLogger sets the controller logger
func WithControllerLogger(l Logger) AuthControllerOption {
	return func(ac *AuthController) *AuthController {
		if l != nil {
			ac.Logger = l
		}
		return ac
	}
}

// WithRegistrar sets the registration handler
func WithRegistrar(r Registrar) AuthControllerOption {
	return func(ac *AuthController) *AuthController {
		ac.Registrar = r
		return ac
	}
}

// WithCredentialVerifier sets the verifier used by the local strategy
func WithCredentialVerifier(v CredentialVerifier) AuthControllerOption {
	return func(ac *AuthController) *AuthController {
		ac.Verifier = v
		return ac
	}
}

// WithSessions sets the session binder
func WithSessions(s SessionBinder) AuthControllerOption {
	return func(ac *AuthController) *AuthController {
		ac.Sessions = s
		return ac
	}
}

// NewAuthController creates the controller, it panics when a required
// collaborator is missing.
func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Login:    "/login",
			Logout:   "/logout",
			Register: "/register",
			Me:       "/me",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Registrar == nil {
		panic("Missing Registrar in auth controller...")
	}

	if c.Verifier == nil {
		panic("Missing CredentialVerifier in auth controller...")
	}

	if c.Sessions == nil {
		panic("Missing SessionBinder in auth controller...")
	}

	return c
}

// RegisterAuthRoutes mounts the local account routes on router
func RegisterAuthRoutes(router fiber.Router, opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	router.Post(controller.Routes.Register, controller.RegistrationCreate).
		Name("auth.register")

	router.Post(
		controller.Routes.Login,
		Authenticate(NewLocalStrategy(controller.Verifier), controller.Sessions, nil, controller.Logger),
		controller.LoginPost,
	).Name("auth.login")

	router.Post(controller.Routes.Logout, controller.LogOut).
		Name("auth.logout")

	router.Get(controller.Routes.Me, RequireUser(), controller.Me).
		Name("auth.me")

	return controller
}

// RegistrationCreate creates a local user and logs it in
func (a *AuthController) RegistrationCreate(c *fiber.Ctx) error {
	var payload RegisterUserMessage
	if err := c.BodyParser(&payload); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid request body").
			WithCode(goerrors.CodeBadRequest).
			WithTextCode(TextCodeValidation)
	}

	a.Logger.Info("register attempt", "email", payload.Email)

	user, err := a.Registrar.Execute(c.UserContext(), payload)
	if err != nil {
		return err
	}

	if err := a.Sessions.Login(c, user); err != nil {
		a.Logger.Error("login after register failed", "user_id", user.ID.String(), "error", err)
		return err
	}

	a.Logger.Info("user registered and logged in", "user_id", user.ID.String())

	return response.Created(c, fiber.Map{
		"user": RegisteredUser{
			ID:    user.ID.String(),
			Email: user.Email,
			Name:  user.Name,
		},
	})
}

// LoginPost runs after the local strategy authenticated the request
func (a *AuthController) LoginPost(c *fiber.Ctx) error {
	user, ok := CurrentUser(c)
	if !ok {
		return ErrInvalidCredentials
	}

	a.Logger.Info("login successful", "user_id", user.ID.String())

	return response.OK(c, fiber.Map{"user": NewPublicUser(user)})
}

// LogOut destroys the session
func (a *AuthController) LogOut(c *fiber.Ctx) error {
	a.Logger.Info("logout attempt", "user_id", UserIDOrAnonymous(c))

	if err := a.Sessions.Logout(c); err != nil {
		return err
	}

	a.Logger.Info("user logged out")

	return response.OK(c, response.Message{Message: "Logged out."})
}

// Me returns the current user
func (a *AuthController) Me(c *fiber.Ctx) error {
	user, ok := CurrentUser(c)
	if !ok {
		return ErrUnauthorized
	}
	return response.OK(c, fiber.Map{"user": NewPublicUser(user)})
}

// Package auth provides the authentication core of the boilerplate backend:
// the user store, local credential verification, registration, session
// binding and the HTTP façade that dispatches register/login/logout requests.
//
// Strategies:
//   - Every way of proving an identity implements Strategy. LocalStrategy
//     checks an email and password pair, the social package contributes one
//     callback strategy per OAuth provider. Routes pick the strategy they run
//     through Authenticate, there is no runtime type switching.
//
// Sessions:
//   - SessionManager stores only the user id in a server side session backed
//     by any fiber.Storage (database, redis or memory). SessionIdentity resolves
//     the user once per request and places it in the request context, read it
//     back with FromContext. A session whose user no longer exists is destroyed
//     and the request continues as anonymous.
//
// Errors:
//   - Failures are *goerrors.Error values. The category and code decide the
//     HTTP status rendered by the response middleware: validation 400,
//     rejected credentials 401, conflicts 409, everything else 500.
package auth

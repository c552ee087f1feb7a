// Package auth provides accounts, authentication and authorization.
//
// Two kinds of account exist: students, who register themselves and own a
// student profile, and staff, who are created from the command line. Browsers
// authenticate with a session cookie (scs) and must send the CSRF token on
// unsafe requests; API clients send a bearer token issued from /profile/tokens.
//
// # Configuration
//
//	AUTH_SESSION_SECRET=<random string>   # CSRF key; random per process if empty
//	AUTH_SESSION_LIFETIME=24h
//	AUTH_TOKEN_EXPIRY=720h
//	AUTH_BCRYPT_COST=12
//	AUTH_SECURE_COOKIES=true
//	AUTH_MAX_LOGIN_ATTEMPTS=5
//	AUTH_LOCKOUT_DURATION=30m
//
// # Usage
//
//	authService := auth.NewService(db, cfg.Auth)
//	sm, _ := auth.NewSessionManager(sqlDB, cfg.Database.Driver, cfg.Auth)
//	router.Use(sm.SessionLoadSave())
//	router.Use(auth.NewMiddleware(authService, sm).Handler())
//	staff := router.Group("/staff", auth.RequireRole(entities.UserRoleStaff))
//
// Handlers read the caller with auth.GetAuthUser(c).
package auth

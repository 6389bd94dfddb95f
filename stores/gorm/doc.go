//go:build !wasm
// +build !wasm

// Package gorm provides GORM-based implementations of the kraackauth store
// interfaces.  It works with any database GORM supports (PostgreSQL, MySQL,
// SQLite, ...) and is the store to use in production.
//
// # Database Schema
//
// The package auto-migrates the following tables:
//   - users: User accounts
//   - accounts: Linked OAuth identities
//   - auth_tokens: Verification, password reset, and two-factor tokens
//   - two_factor_confirmations: Cleared two-factor challenges awaiting sign-in
//
// # Usage
//
//	db, _ := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
//	gormstore.AutoMigrate(db)
//	app := kraackauth.New("MyApp",
//		gormstore.NewUserStore(db),
//		gormstore.NewAccountStore(db),
//		gormstore.NewTokenStore(db),
//		gormstore.NewConfirmationStore(db))
//
// TranslateError must be enabled for duplicate-email detection to map onto
// kraackauth.ErrUserExists.
package gorm

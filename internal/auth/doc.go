// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flickbox Contributors

// Package auth implements account registration and login for Flickbox.
//
// # Pipeline
//
// Both operations run the same short pipeline:
//   - field validation against a declarative rule table (see [NewRegistrationValidator])
//   - credential store reads through [AccountRepository]
//   - password hashing or verification through [PasswordHasher]
//   - a single insert for registration
//
// Validation always completes before the store is touched.
//
// # Outcomes
//
// Every failure returned by [Service] is an [*Error] whose [Kind] tells the
// caller how to present it. Store and hashing failures keep their cause for
// logging, but their Message is always generic.
//
// # Storage
//
// Repository implementations live in the postgres subpackage. They report
// [ErrNotFound] for missing rows, a [*DuplicateError] for unique-constraint
// violations and [ErrStoreUnavailable] when the database cannot be reached.
package auth

// Package iam (Identity and Access Management) provides the authentication,
// entitlement and multi-tenant user management core of the service.
//
// # Overview
//
// The iam package is organized into bounded contexts that work together:
//
//   - iam/auth   — credential verification, JWT token contexts, the
//     authentication pipeline, bearer middleware and action links
//   - iam/user   — user entity, roles, password management
//   - iam/tenant — tenant entity, subscription history, entitlement
//     resolution and the cached tenant directory
//
// # Architecture
//
// Each context follows the same layering:
//
//	HTTP Handler (<ctx>api)  →  Service (<ctx>srv)  →  Repository Interface  →  Infrastructure (<ctx>infra)
//
// Each sub-domain exposes its own error registry (e.g. "AUTH", "USER",
// "TENANT"), domain entities with rich methods and repository interfaces.
// The iamcontainer package composes the full dependency graph for cmd/.
//
// # Authentication
//
// Sign-in is email plus password, verified with bcrypt. A successful
// authentication walks an ordered pipeline: credentials, tenant binding,
// cached tenant lookup, entitlement, tenant activity, user activity. The
// first failing check decides the rejection reason and the first three
// share one message so callers cannot probe for registered emails.
//
// # Tokens
//
// Five HS256 signing contexts exist, each with its own secret and
// lifetime: access, refresh, authorization code, password reset and
// account setup. Session tokens carry the tenant domain as audience;
// action tokens carry the service base URL. An expired token is reported
// distinctly from an otherwise invalid one.
//
// # Multi-Tenancy
//
// Every non-superadmin user belongs to a tenant. Tenant records are
// served from a Redis-backed directory that is rebuilt in full on every
// miss or write; subscription entitlement is resolved lazily against an
// append-only history with inclusive date bounds.
package iam

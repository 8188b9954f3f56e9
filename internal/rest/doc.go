// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-sessionsign.
//
// go-sessionsign is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package rest exposes the signing method selector over HTTP.
//
// Routes:
//
//	GET  /health                 service health
//	GET  /health/live            liveness probe
//	GET  /health/ready           readiness probe
//	GET  /health/startup         startup probe
//	GET  /api/v1/method          active method and sizing
//	PUT  /api/v1/method          switch the active method
//	POST /api/v1/tokens          issue a session token
//	POST /api/v1/sign            sign a message with a session token
//	POST /api/v1/verify          verify a signature
//
// Tokens, messages and signatures travel as standard base64 strings. A
// signature that does not verify is reported as {"valid": false} with
// status 200; errors use the ErrorResponse body.
//
// Example:
//
//	curl -s -X POST localhost:8443/api/v1/tokens \
//	    -d '{"username":"jsmith","secret":"s3cret"}'
package rest

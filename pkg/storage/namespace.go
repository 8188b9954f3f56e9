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

package storage

import (
	"strings"
)

const (
	credentialPrefix = "credentials/"
	credentialSuffix = ".json"
)

// CredentialPath returns the storage key of a user's credential record.
// The path follows the convention: credentials/{username}.json
func CredentialPath(username string) string {
	return credentialPrefix + username + credentialSuffix
}

// ListCredentials returns the usernames that have a credential record.
func ListCredentials(backend Backend) ([]string, error) {
	keys, err := backend.List(credentialPrefix)
	if err != nil {
		return nil, err
	}

	users := make([]string, 0, len(keys))
	for _, k := range keys {
		if !strings.HasSuffix(k, credentialSuffix) {
			continue
		}
		user := strings.TrimSuffix(strings.TrimPrefix(k, credentialPrefix), credentialSuffix)
		if user != "" {
			users = append(users, user)
		}
	}
	return users, nil
}

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

package health

import (
	"context"
	"fmt"

	"github.com/jeremyhahn/go-sessionsign/pkg/types"
	"github.com/spf13/afero"
)

// MethodSource reports the active signing method. An empty method means no
// backend is active.
type MethodSource interface {
	Method() types.Method
}

// MethodCheck is unhealthy while no signing method is active.
func MethodCheck(src MethodSource) CheckFunc {
	return func(ctx context.Context) CheckResult {
		m := src.Method()
		if m == "" {
			return CheckResult{
				Name:    "method",
				Status:  StatusUnhealthy,
				Message: "No signing method is active",
			}
		}
		return CheckResult{
			Name:    "method",
			Status:  StatusHealthy,
			Message: fmt.Sprintf("Active method: %s", m),
		}
	}
}

// KeyStoreCheck is unhealthy when the key store root is missing or is not a
// directory. A world-accessible root is reported as degraded.
func KeyStoreCheck(fs afero.Fs, rootDir string) CheckFunc {
	return func(ctx context.Context) CheckResult {
		info, err := fs.Stat(rootDir)
		if err != nil {
			return CheckResult{
				Name:    "keystore",
				Status:  StatusUnhealthy,
				Message: "Key store root is not accessible",
				Error:   err.Error(),
			}
		}
		if !info.IsDir() {
			return CheckResult{
				Name:    "keystore",
				Status:  StatusUnhealthy,
				Message: fmt.Sprintf("%s is not a directory", rootDir),
			}
		}
		if info.Mode().Perm()&0077 != 0 {
			return CheckResult{
				Name:    "keystore",
				Status:  StatusDegraded,
				Message: fmt.Sprintf("%s is accessible to other users (%04o)", rootDir, info.Mode().Perm()),
			}
		}
		return CheckResult{
			Name:    "keystore",
			Status:  StatusHealthy,
			Message: rootDir,
		}
	}
}

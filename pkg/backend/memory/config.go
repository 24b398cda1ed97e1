// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-tcp-keystore.
//
// go-tcp-keystore is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package memory

import (
	"github.com/jeremyhahn/go-tcp-keystore/pkg/adapters/logger"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/types"
)

// Config configures a memory Backend.
type Config struct {
	// KeyTypes restricts the key types the backend accepts. Empty accepts
	// every key type.
	KeyTypes []types.KeyTypeID

	// Logger defaults to logger.Nop().
	Logger logger.Logger
}

func (c *Config) allows(id types.KeyTypeID) bool {
	if c == nil || len(c.KeyTypes) == 0 {
		return true
	}
	for _, k := range c.KeyTypes {
		if k == id {
			return true
		}
	}
	return false
}

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

package server

import (
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-tcp-keystore/pkg/crypto/suri"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/keystore"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/types"
)

// DevPhrase seeds every provisioned key.
const DevPhrase = suri.DevPhrase

// ProvisionedKeyTypes are the key types populated by Provision.
var ProvisionedKeyTypes = []types.KeyTypeID{
	types.KeyTypeBABE,
	types.KeyTypeGRANDPA,
	types.KeyTypeImOnline,
}

// ProvisionError reports one key type and scheme that could not be
// provisioned.
type ProvisionError struct {
	KeyType types.KeyTypeID
	Scheme  types.Scheme
	Err     error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provision %s/%s: %v", e.KeyType, e.Scheme.Name(), e.Err)
}

func (e *ProvisionError) Unwrap() error {
	return e.Err
}

// Provision generates one key per provisioned key type and scheme from
// DevPhrase. Every combination is attempted; the failures are joined into
// the returned error.
func Provision(ks keystore.KeyStore) error {
	var errs []error
	for _, id := range ProvisionedKeyTypes {
		for _, scheme := range types.Schemes() {
			if _, err := ks.GenerateNew(scheme, id, DevPhrase); err != nil {
				errs = append(errs, &ProvisionError{KeyType: id, Scheme: scheme, Err: err})
			}
		}
	}
	return errors.Join(errs...)
}

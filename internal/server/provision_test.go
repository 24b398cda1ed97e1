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
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-tcp-keystore/pkg/backend/memory"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/keystore"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/types"
)

func provisioned(t *testing.T) map[string][]byte {
	t.Helper()
	ks := memory.New(nil)
	require.NoError(t, Provision(ks))
	assert.Equal(t, len(ProvisionedKeyTypes)*len(types.Schemes()), ks.Len())

	keys := make(map[string][]byte)
	for _, id := range ProvisionedKeyTypes {
		for _, scheme := range types.Schemes() {
			pubs, err := ks.PublicKeys(scheme, id)
			require.NoError(t, err)
			require.Len(t, pubs, 1, "%s/%s", id, scheme.Name())
			keys[id.String()+"/"+scheme.Name()] = pubs[0]
		}
	}
	return keys
}

func TestProvisionDeterministic(t *testing.T) {
	first := provisioned(t)
	second := provisioned(t)
	assert.Equal(t, first, second)
}

func TestProvisionDevRootKey(t *testing.T) {
	keys := provisioned(t)
	assert.Equal(t, "46ebddef8cd9bb167dc30878d7113b7e168e6f0646beffd77d69d39bad76b47a",
		hex.EncodeToString(keys["babe/"+types.Sr25519.Name()]))
}

func TestProvisionIdempotent(t *testing.T) {
	ks := memory.New(nil)
	require.NoError(t, Provision(ks))
	require.NoError(t, Provision(ks))
	assert.Equal(t, len(ProvisionedKeyTypes)*len(types.Schemes()), ks.Len())
}

func TestProvisionJoinsErrors(t *testing.T) {
	ks := memory.New(&memory.Config{KeyTypes: []types.KeyTypeID{types.KeyTypeBABE}})
	err := Provision(ks)
	require.Error(t, err)
	assert.ErrorIs(t, err, keystore.ErrKeyNotSupported)

	joined, ok := err.(interface{ Unwrap() []error })
	require.True(t, ok)
	errs := joined.Unwrap()
	assert.Len(t, errs, 2*len(types.Schemes()))

	var perr *ProvisionError
	require.True(t, errors.As(err, &perr))
	assert.NotEqual(t, types.KeyTypeBABE, perr.KeyType)
	assert.Contains(t, perr.Error(), "provision ")

	assert.Equal(t, len(types.Schemes()), ks.Len(), "babe keys are still provisioned")
}

// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	solidus "github.com/solidus-project/solidus"
)

func TestNonceStoreRejectsReplay(t *testing.T) {
	ctx := context.Background()
	ds := NewMockDatastore()
	ns := NewNonceStore(ds)

	account := []byte("account-1")

	require.NoError(t, ns.Accept(ctx, account, 1))
	require.NoError(t, ns.Accept(ctx, account, 2))

	err := ns.Accept(ctx, account, 2)
	require.Error(t, err)
	assert.True(t, solidus.ErrorIs(err, solidus.ReplayedNonce))

	err = ns.Accept(ctx, account, 1)
	require.Error(t, err)
	assert.True(t, solidus.ErrorIs(err, solidus.ReplayedNonce))

	require.NoError(t, ns.Accept(ctx, account, 3))
}

func TestNonceStorePersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	ds := NewMockDatastore()
	account := []byte("account-2")

	require.NoError(t, NewNonceStore(ds).Accept(ctx, account, 5))

	reopened := NewNonceStore(ds)
	last, err := reopened.Last(ctx, account)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), last)
}

// Copyright 2024 healer project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package store

import (
	"context"
	"testing"
	"time"

	"github.com/killvxk/healer/pkg/prog"
	"github.com/stretchr/testify/require"
)

func TestChanQueue_SeedAndPush(t *testing.T) {
	seed := []*prog.Prog{{Group: 0}, {Group: 1}}
	q := NewChanQueue(seed)
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	p1, ok := q.PopWait(ctx)
	require.True(t, ok)
	p2, ok := q.PopWait(ctx)
	require.True(t, ok)
	require.ElementsMatch(t, []int{int(p1.Group), int(p2.Group)}, []int{0, 1})

	_, ok = q.Pop()
	require.False(t, ok)

	q.Push(&prog.Prog{Group: 2})
	p3, ok := q.PopWait(ctx)
	require.True(t, ok)
	require.Equal(t, 2, int(p3.Group))
}

func TestChanQueue_CloseStopsPop(t *testing.T) {
	q := NewChanQueue(nil)
	q.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, ok := q.PopWait(ctx)
	require.False(t, ok)
}

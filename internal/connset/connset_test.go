package connset

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	uuid "github.com/satori/go.uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinNext_Empty(t *testing.T) {
	s := New()
	_, ok := s.JoinNext(context.Background())
	assert.False(t, ok)
}

func TestJoinNext_AllTasksFinish(t *testing.T) {
	s := New()
	release := make(chan struct{})
	errBoom := errors.New("boom")

	const n = 10
	for i := 0; i < n; i++ {
		i := i
		s.Go(uuid.NewV4(), "peer", nil, func() error {
			<-release
			if i == 0 {
				return errBoom
			}
			return nil
		})
	}
	assert.Equal(t, n, s.Len())

	close(release)
	var results []Result
	for {
		r, ok := s.JoinNext(context.Background())
		if !ok {
			break
		}
		results = append(results, r)
	}
	require.Len(t, results, n)
	assert.Equal(t, 0, s.Len())

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			assert.ErrorIs(t, r.Err, errBoom)
			failed++
		}
	}
	assert.Equal(t, 1, failed)
}

func TestJoinNext_Panic(t *testing.T) {
	s := New()
	id := uuid.NewV4()
	s.Go(id, "peer", nil, func() error {
		panic("handler crashed")
	})

	r, ok := s.JoinNext(context.Background())
	require.True(t, ok)
	var je *JoinError
	require.ErrorAs(t, r.Err, &je)
	assert.Equal(t, id, je.ID)
	assert.Equal(t, "handler crashed", je.Value)

	_, ok = s.JoinNext(context.Background())
	assert.False(t, ok)
}

func TestJoinNext_Context(t *testing.T) {
	s := New()
	block := make(chan struct{})
	defer close(block)
	s.Go(uuid.NewV4(), "peer", nil, func() error {
		<-block
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, ok := s.JoinNext(ctx)
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len())
}

func TestCloseAll(t *testing.T) {
	s := New()
	server, client := net.Pipe()
	defer client.Close()

	s.Go(uuid.NewV4(), "pipe", server, func() error {
		buf := make([]byte, 1)
		_, err := server.Read(buf)
		return err
	})

	s.CloseAll()
	r, ok := s.JoinNext(context.Background())
	require.True(t, ok)
	assert.Error(t, r.Err)
}
